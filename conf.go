// Package archer glues the resolver core to its host system: it reads
// the pacman configuration the repositories and downstream tooling are
// wired from.
package archer

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
)

// DefaultConfPath is where the system configuration lives.
const DefaultConfPath = "/etc/pacman.conf"

// SigLevel is the signature-check policy of a database or package, a
// bitset split into a package half and a database half.
type SigLevel uint8

const (
	SigPackage SigLevel = 1 << iota
	SigPackageOptional
	SigDatabase
	SigDatabaseOptional
	SigUseDefault
)

// DefaultSigLevel mirrors the compiled-in default: optional signatures
// for both packages and databases.
const DefaultSigLevel = SigPackage | SigPackageOptional | SigDatabase | SigDatabaseOptional

// SyncDB is one [repo] section: a named sync database with its servers,
// signature policy and usage flags.
type SyncDB struct {
	Name     string
	SigLevel SigLevel
	Servers  []string
	Usage    []string
}

// PacmanConf is the parsed configuration: the option table plus the sync
// database definitions, in declaration order.
type PacmanConf struct {
	ini     *ini.File
	syncDBs []SyncDB
	path    string
}

// LoadConf reads and parses the configuration at path (DefaultConfPath
// when empty). Include directives inside repo sections are followed.
func LoadConf(path string) (*PacmanConf, error) {
	if path == "" {
		path = DefaultConfPath
	}
	f, err := ini.LoadSources(ini.LoadOptions{
		AllowShadows:          true,
		KeyValueDelimiters:    "=",
		AllowBooleanKeys:      true,
		SkipUnrecognizableLines: true,
	}, path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read pacman configuration %s", path)
	}

	conf := &PacmanConf{ini: f, path: path}
	arch := f.Section("options").Key("Architecture").MustString("x86_64")
	if arch == "auto" {
		arch = "x86_64"
	}

	for _, sec := range f.Sections() {
		name := sec.Name()
		if name == ini.DefaultSection || name == "options" {
			continue
		}
		db := SyncDB{
			Name:     name,
			SigLevel: parseSigLevel(shadows(sec, "SigLevel")),
			Usage:    shadows(sec, "Usage"),
		}
		if len(db.Usage) == 0 {
			db.Usage = []string{"All"}
		}

		servers := shadows(sec, "Server")
		for _, inc := range shadows(sec, "Include") {
			included, err := readServerList(inc)
			if err != nil {
				return nil, err
			}
			servers = append(servers, included...)
		}
		for _, s := range servers {
			db.Servers = append(db.Servers, expandServer(s, name, arch))
		}
		conf.syncDBs = append(conf.syncDBs, db)
	}
	return conf, nil
}

// shadows reads a repeatable key, dropping blank values; a missing key
// yields nothing rather than an auto-created empty entry.
func shadows(sec *ini.Section, name string) []string {
	if !sec.HasKey(name) {
		return nil
	}
	var out []string
	for _, v := range sec.Key(name).ValueWithShadows() {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// parseSigLevel folds SigLevel words into the bitset. Each word may be
// scoped with a Package or Database prefix; an unscoped word applies to
// both halves.
func parseSigLevel(words []string) SigLevel {
	if len(words) == 0 {
		return DefaultSigLevel | SigUseDefault
	}
	level := SigLevel(0)
	for _, w := range words {
		for _, part := range strings.Fields(w) {
			pkg, db := true, true
			flag := part
			if strings.HasPrefix(part, "Package") {
				db = false
				flag = strings.TrimPrefix(part, "Package")
			} else if strings.HasPrefix(part, "Database") {
				pkg = false
				flag = strings.TrimPrefix(part, "Database")
			}
			switch flag {
			case "Never":
				if pkg {
					level &^= SigPackage | SigPackageOptional
				}
				if db {
					level &^= SigDatabase | SigDatabaseOptional
				}
			case "Optional":
				if pkg {
					level |= SigPackage | SigPackageOptional
				}
				if db {
					level |= SigDatabase | SigDatabaseOptional
				}
			case "Required":
				if pkg {
					level |= SigPackage
					level &^= SigPackageOptional
				}
				if db {
					level |= SigDatabase
					level &^= SigDatabaseOptional
				}
			}
		}
	}
	return level
}

// readServerList reads an Include'd mirror list: Server lines, comments
// and blanks.
func readServerList(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read mirror list %s", path)
	}
	var servers []string
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if value, ok := strings.CutPrefix(line, "Server"); ok {
			value = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(value), "="))
			if value != "" {
				servers = append(servers, value)
			}
		}
	}
	return servers, nil
}

func expandServer(s, repo, arch string) string {
	s = strings.ReplaceAll(s, "$repo", repo)
	return strings.ReplaceAll(s, "$arch", arch)
}

// SyncDBs returns the sync database definitions in declaration order.
func (c *PacmanConf) SyncDBs() []SyncDB {
	return c.syncDBs
}

// SyncDB returns the named definition.
func (c *PacmanConf) SyncDB(name string) (SyncDB, bool) {
	for _, db := range c.syncDBs {
		if db.Name == name {
			return db, true
		}
	}
	return SyncDB{}, false
}

// Option looks up a field from the [options] section; ok is false when
// the field is absent.
func (c *PacmanConf) Option(name string) (string, bool) {
	sec := c.ini.Section("options")
	if !sec.HasKey(name) {
		return "", false
	}
	return sec.Key(name).String(), true
}

// Mirrors returns the deduplicated host list across every sync database.
func (c *PacmanConf) Mirrors() []string {
	seen := make(map[string]bool)
	var out []string
	for _, db := range c.syncDBs {
		for _, s := range db.Servers {
			if host := serverHost(s); host != "" && !seen[host] {
				seen[host] = true
				out = append(out, host)
			}
		}
	}
	return out
}

func serverHost(s string) string {
	rest := s
	if i := strings.Index(s, "://"); i >= 0 {
		rest = s[i+3:]
	}
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	return rest
}

// DBPath returns the database directory downstream tooling reads,
// falling back to the stock location.
func (c *PacmanConf) DBPath() string {
	if p, ok := c.Option("DBPath"); ok && p != "" {
		return filepath.Clean(p)
	}
	return "/var/lib/pacman"
}

// Path returns where the configuration was loaded from.
func (c *PacmanConf) Path() string {
	return c.path
}
