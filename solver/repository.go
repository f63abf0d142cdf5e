package solver

import (
	"github.com/armon/go-radix"
)

// A Repository answers dependency queries with candidate packages. Many
// implementations exist: the binary sync DB, the local installed DB, the
// remote source catalog, in-memory sets, plus merged and cached adapters.
//
// FindPackage returns the candidates whose declared identity or provides
// satisfy the demand, best-first: exact-name matches before pure
// providers, then descending package order (newest first). An empty list
// is a valid (non-error) answer.
//
// FindPackages is the batched form; the default path iterates, efficient
// implementations override it.
type Repository interface {
	FindPackage(d Depend) ([]Package, error)
	FindPackages(ds []Depend) (map[string][]Package, error)
}

// findPackagesEach is the fallback FindPackages: one FindPackage call per
// demand. Results are keyed by the demand's rendered form.
func findPackagesEach(r Repository, ds []Depend) (map[string][]Package, error) {
	out := make(map[string][]Package, len(ds))
	for _, d := range ds {
		pkgs, err := r.FindPackage(d)
		if err != nil {
			return nil, err
		}
		out[d.key()] = pkgs
	}
	return out, nil
}

// EmptyRepository answers every query with no candidates.
type EmptyRepository struct{}

func NewEmptyRepository() EmptyRepository { return EmptyRepository{} }

func (EmptyRepository) FindPackage(Depend) ([]Package, error) {
	return nil, nil
}

func (EmptyRepository) FindPackages(ds []Depend) (map[string][]Package, error) {
	out := make(map[string][]Package, len(ds))
	for _, d := range ds {
		out[d.key()] = nil
	}
	return out, nil
}

// CustomRepository is an in-memory package set. Lookups go through a radix
// tree keyed by package name and by each provide name, so a demand only
// touches the packages that can possibly serve it.
type CustomRepository struct {
	byName *pkgTrie
}

// NewCustomRepository indexes the given packages.
func NewCustomRepository(pkgs []Package) *CustomRepository {
	t := newPkgTrie()
	for _, p := range pkgs {
		t.add(p.Name(), p)
		for _, pr := range p.Provides() {
			t.add(pr.Name, p)
		}
	}
	return &CustomRepository{byName: t}
}

func (r *CustomRepository) FindPackage(d Depend) ([]Package, error) {
	var result []Package
	for _, p := range r.byName.get(d.Name) {
		if d.SatisfiedBy(p) {
			result = append(result, p)
		}
	}
	sortCandidates(result, d.Name)
	return result, nil
}

func (r *CustomRepository) FindPackages(ds []Depend) (map[string][]Package, error) {
	return findPackagesEach(r, ds)
}

// pkgTrie is a typed wrapper around a radix tree holding package lists,
// so the lookup sites avoid type assertions.
type pkgTrie struct {
	t *radix.Tree
}

func newPkgTrie() *pkgTrie {
	return &pkgTrie{t: radix.New()}
}

func (t *pkgTrie) add(name string, p Package) {
	if v, has := t.t.Get(name); has {
		t.t.Insert(name, append(v.([]Package), p))
		return
	}
	t.t.Insert(name, []Package{p})
}

func (t *pkgTrie) get(name string) []Package {
	if v, has := t.t.Get(name); has {
		return v.([]Package)
	}
	return nil
}

// Len returns the number of distinct indexed names.
func (t *pkgTrie) Len() int {
	return t.t.Len()
}
