// Package pool keeps built package artifacts: a staging area for fresh
// builds, a local cache, and a remote store updated through ordered
// transactions that end in a lockfile naming every published package.
package pool

import (
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/PhotonQuantum/archer/solver"
)

var extRe = regexp.MustCompile(`\.tar(\..*)?$`)

// PackageMeta identifies one built artifact: package identity plus the
// content checksum of the artifact itself.
type PackageMeta struct {
	Name     string
	Version  solver.Version
	Checksum uint64
}

// ShortChecksum is the 8-hex-digit prefix used in canonical filenames.
func (m PackageMeta) ShortChecksum() string {
	s := fmt.Sprintf("%016x", m.Checksum)
	return s[:8]
}

// Filename is the canonical stem: <name>-<version>-<8hexchksum>.
func (m PackageMeta) Filename() string {
	return fmt.Sprintf("%s-%s-%s", m.Name, m.Version, m.ShortChecksum())
}

// LocalPackageUnit is a built artifact sitting on the local filesystem.
type LocalPackageUnit struct {
	Meta PackageMeta
	Path string
}

// Ext extracts the archive extension chain (".tar", ".tar.zst", ...) of
// the artifact file.
func (u LocalPackageUnit) Ext() string {
	return extRe.FindString(filepath.Base(u.Path))
}

// CanonicalFilename is the name the artifact publishes under.
func (u LocalPackageUnit) CanonicalFilename() string {
	return u.Meta.Filename() + u.Ext()
}

// RemotePackageUnit is a published artifact: its identity plus the remote
// key it lives under.
type RemotePackageUnit struct {
	Meta PackageMeta `toml:"meta"`
	Key  string      `toml:"key"`
}
