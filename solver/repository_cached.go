package solver

import "sync"

// CachedRepository memoizes a child's successful answers, keyed by demand.
// Errors are never cached; the next call retries the child. Many readers
// may hold the cache concurrently; writers take the lock only for the map
// insert, never across the child query, so a racing miss may query the
// child twice. The last write wins.
type CachedRepository struct {
	inner Repository

	mu    sync.RWMutex
	cache map[string][]Package
}

func NewCachedRepository(inner Repository) *CachedRepository {
	return &CachedRepository{
		inner: inner,
		cache: make(map[string][]Package),
	}
}

func (r *CachedRepository) FindPackage(d Depend) ([]Package, error) {
	r.mu.RLock()
	hit, ok := r.cache[d.key()]
	r.mu.RUnlock()
	if ok {
		return hit, nil
	}

	missed, err := r.inner.FindPackage(d)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[d.key()] = missed
	r.mu.Unlock()
	return missed, nil
}

// FindPackages takes one read pass over the cache, queries the child for
// the miss set in a single batch, then installs the misses under one write
// lock.
func (r *CachedRepository) FindPackages(ds []Depend) (map[string][]Package, error) {
	out := make(map[string][]Package, len(ds))

	r.mu.RLock()
	var missing []Depend
	for _, d := range ds {
		if hit, ok := r.cache[d.key()]; ok {
			out[d.key()] = hit
		} else {
			missing = append(missing, d)
		}
	}
	r.mu.RUnlock()

	if len(missing) == 0 {
		return out, nil
	}

	found, err := r.inner.FindPackages(missing)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	for _, d := range missing {
		pkgs := found[d.key()]
		r.cache[d.key()] = pkgs
		out[d.key()] = pkgs
	}
	r.mu.Unlock()

	return out, nil
}
