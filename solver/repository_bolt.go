package solver

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/boltdb/bolt"
	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

// BoltRepository is a CachedRepository that survives restarts: successful
// answers are stored in a BoltDB file, keyed by the demand's rendered
// form inside a per-namespace bucket. Entries older than the epoch given
// at open time are treated as misses, so a caller can invalidate the
// whole cache by advancing the epoch. Errors from the child are never
// stored.
type BoltRepository struct {
	inner  Repository
	db     *bolt.DB
	bucket []byte
	epoch  int64
}

// OpenBoltRepository opens (creating if needed) the cache file at path and
// wraps inner under the given namespace.
func OpenBoltRepository(inner Repository, path, namespace string, epoch int64) (*BoltRepository, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create cache directory %s", dir)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open cache file %q", path)
	}
	return &BoltRepository{
		inner:  inner,
		db:     db,
		bucket: []byte("repo:" + namespace),
		epoch:  epoch,
	}, nil
}

// Close releases the underlying database.
func (r *BoltRepository) Close() error {
	return errors.Wrapf(r.db.Close(), "error closing cache database %q", r.db.String())
}

type boltEntry struct {
	Stamp    int64         `toml:"stamp"`
	Packages []boltPackage `toml:"packages"`
}

type boltPackage struct {
	Kind        string   `toml:"kind"`
	Name        string   `toml:"name"`
	Version     string   `toml:"version"`
	Description string   `toml:"description,omitempty"`
	URL         string   `toml:"url,omitempty"`
	Depends     []string `toml:"depends,omitempty"`
	MakeDepends []string `toml:"makedepends,omitempty"`
	Conflicts   []string `toml:"conflicts,omitempty"`
	Provides    []string `toml:"provides,omitempty"`
	Replaces    []string `toml:"replaces,omitempty"`
}

const (
	kindBinary = "binary"
	kindSource = "source"
	kindLocal  = "local"
)

func encodeDepends(ds []Depend) []string {
	out := make([]string, 0, len(ds))
	for _, d := range ds {
		out = append(out, d.String())
	}
	return out
}

func decodeDepends(ss []string) []Depend {
	out := make([]Depend, 0, len(ss))
	for _, s := range ss {
		out = append(out, decodeDepend(s))
	}
	return out
}

// decodeDepend inverts Depend.String, including the two-sided
// "name>=a and name<b" form.
func decodeDepend(s string) Depend {
	parts := splitAnd(s)
	d := ParseDepend(parts[0])
	for _, p := range parts[1:] {
		d.Version = d.Version.Intersect(ParseDepend(p).Version)
	}
	return d
}

func splitAnd(s string) []string {
	return strings.Split(s, " and ")
}

func encodePackage(p Package) boltPackage {
	bp := boltPackage{
		Name:        p.Name(),
		Version:     string(p.Version()),
		Description: p.Description(),
		URL:         p.URL(),
		Depends:     encodeDepends(p.Depends()),
		MakeDepends: encodeDepends(p.MakeDepends()),
		Conflicts:   encodeDepends(p.Conflicts()),
		Provides:    encodeDepends(p.Provides()),
		Replaces:    encodeDepends(p.Replaces()),
	}
	switch p.(type) {
	case BinaryPackage:
		bp.Kind = kindBinary
	case LocalRecipe:
		bp.Kind = kindLocal
	default:
		bp.Kind = kindSource
	}
	return bp
}

func decodePackage(bp boltPackage) (Package, error) {
	base := PackageBase{
		PkgName:        bp.Name,
		PkgVersion:     Version(bp.Version),
		PkgDesc:        bp.Description,
		PkgURL:         bp.URL,
		PkgDepends:     decodeDepends(bp.Depends),
		PkgMakeDepends: decodeDepends(bp.MakeDepends),
		PkgConflicts:   decodeDepends(bp.Conflicts),
		PkgProvides:    decodeDepends(bp.Provides),
		PkgReplaces:    decodeDepends(bp.Replaces),
	}
	switch bp.Kind {
	case kindBinary:
		return BinaryPackage{PackageBase: base}, nil
	case kindSource:
		return SourcePackage{PackageBase: base}, nil
	case kindLocal:
		return LocalRecipe{PackageBase: base}, nil
	default:
		return nil, errors.Errorf("unrecognized package kind: %q", bp.Kind)
	}
}

// load returns the cached answer for key, or ok=false on a miss or a
// stale or undecodable entry.
func (r *BoltRepository) load(key string) (pkgs []Package, ok bool) {
	err := r.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(r.bucket)
		if b == nil {
			return nil
		}
		raw := b.Get([]byte(key))
		if raw == nil {
			return nil
		}
		var entry boltEntry
		if err := toml.Unmarshal(raw, &entry); err != nil {
			return nil // treat as a miss; the store pass overwrites it
		}
		if entry.Stamp < r.epoch {
			return nil
		}
		decoded := make([]Package, 0, len(entry.Packages))
		for _, bp := range entry.Packages {
			p, err := decodePackage(bp)
			if err != nil {
				return nil
			}
			decoded = append(decoded, p)
		}
		pkgs, ok = decoded, true
		return nil
	})
	if err != nil {
		return nil, false
	}
	return pkgs, ok
}

func (r *BoltRepository) store(key string, pkgs []Package) error {
	entry := boltEntry{Stamp: time.Now().Unix()}
	for _, p := range pkgs {
		entry.Packages = append(entry.Packages, encodePackage(p))
	}
	raw, err := toml.Marshal(entry)
	if err != nil {
		return errors.Wrap(err, "failed to encode cache entry")
	}
	return r.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(r.bucket)
		if err != nil {
			return err
		}
		return b.Put([]byte(key), raw)
	})
}

func (r *BoltRepository) FindPackage(d Depend) ([]Package, error) {
	if hit, ok := r.load(d.key()); ok {
		return hit, nil
	}
	missed, err := r.inner.FindPackage(d)
	if err != nil {
		return nil, err
	}
	if err := r.store(d.key(), missed); err != nil {
		return nil, errors.Wrapf(err, "failed to cache answer for %s", d)
	}
	return missed, nil
}

func (r *BoltRepository) FindPackages(ds []Depend) (map[string][]Package, error) {
	out := make(map[string][]Package, len(ds))
	var missing []Depend
	for _, d := range ds {
		if hit, ok := r.load(d.key()); ok {
			out[d.key()] = hit
		} else {
			missing = append(missing, d)
		}
	}
	if len(missing) == 0 {
		return out, nil
	}

	found, err := r.inner.FindPackages(missing)
	if err != nil {
		return nil, err
	}
	for _, d := range missing {
		pkgs := found[d.key()]
		if err := r.store(d.key(), pkgs); err != nil {
			return nil, errors.Wrapf(err, "failed to cache answer for %s", d)
		}
		out[d.key()] = pkgs
	}
	return out, nil
}
