package pool

import (
	"sort"
	"time"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

// LockFileVersion guards the on-disk format.
const LockFileVersion = 1

// LockFileKey is where the index lives in the remote store.
const LockFileKey = "index.lock"

// LockFile is the published index: every committed package by canonical
// key. Readers treat it as the source of truth for what the remote
// currently serves.
type LockFile struct {
	Version   int                 `toml:"version"`
	Timestamp int64               `toml:"timestamp"`
	Packages  []RemotePackageUnit `toml:"packages"`
}

// NewLockFile snapshots a meta-to-key map.
func NewLockFile(m map[PackageMeta]string) LockFile {
	lf := LockFile{
		Version:   LockFileVersion,
		Timestamp: time.Now().Unix(),
	}
	for meta, key := range m {
		lf.Packages = append(lf.Packages, RemotePackageUnit{Meta: meta, Key: key})
	}
	sortUnits(lf.Packages)
	return lf
}

func sortUnits(units []RemotePackageUnit) {
	sort.Slice(units, func(i, j int) bool { return units[i].Key < units[j].Key })
}

// Map inverts the lockfile back into a meta-to-key map.
func (lf LockFile) Map() map[PackageMeta]string {
	out := make(map[PackageMeta]string, len(lf.Packages))
	for _, u := range lf.Packages {
		out[u.Meta] = u.Key
	}
	return out
}

// Encode renders the lockfile.
func (lf LockFile) Encode() ([]byte, error) {
	raw, err := toml.Marshal(lf)
	return raw, errors.Wrap(err, "failed to encode lock file")
}

// DecodeLockFile parses a lockfile and rejects unknown format versions.
func DecodeLockFile(raw []byte) (LockFile, error) {
	var lf LockFile
	if err := toml.Unmarshal(raw, &lf); err != nil {
		return LockFile{}, errors.Wrap(err, "failed to decode lock file")
	}
	if lf.Version != LockFileVersion {
		return LockFile{}, errors.Errorf("unsupported lock file version %d", lf.Version)
	}
	return lf, nil
}
