package solver

import "sync"

// DBHandle is the surface this package needs from the binary-database
// binding (the sync DB reader and the local installed DB). The binding
// itself lives outside the resolver; only its query interface is pinned
// here.
//
// Implementations are not assumed reentrant.
type DBHandle interface {
	// SyncPackages returns every package the named sync database
	// declares under or providing name.
	SyncPackages(name string) ([]BinaryPackage, error)
	// LocalPackage returns the installed package with exactly the given
	// name, if any.
	LocalPackage(name string) (*BinaryPackage, error)
}

// SyncDBRepository adapts the sync databases behind a DBHandle. The
// handle is guarded with an exclusive lock around each query because the
// underlying library is not reentrant.
type SyncDBRepository struct {
	mu     sync.Mutex
	handle DBHandle
}

func NewSyncDBRepository(handle DBHandle) *SyncDBRepository {
	return &SyncDBRepository{handle: handle}
}

func (r *SyncDBRepository) FindPackage(d Depend) ([]Package, error) {
	r.mu.Lock()
	raw, err := r.handle.SyncPackages(d.Name)
	r.mu.Unlock()
	if err != nil {
		return nil, repoErr("sync", err)
	}

	var result []Package
	for _, p := range raw {
		if d.SatisfiedBy(p) {
			result = append(result, p)
		}
	}
	sortCandidates(result, d.Name)
	return result, nil
}

func (r *SyncDBRepository) FindPackages(ds []Depend) (map[string][]Package, error) {
	return findPackagesEach(r, ds)
}

// LocalDBRepository adapts the installed-package database. It only
// answers exact-name matches; a provides-based lookup on the local DB is
// the handle's business, not this adapter's.
type LocalDBRepository struct {
	mu     sync.Mutex
	handle DBHandle
}

func NewLocalDBRepository(handle DBHandle) *LocalDBRepository {
	return &LocalDBRepository{handle: handle}
}

func (r *LocalDBRepository) FindPackage(d Depend) ([]Package, error) {
	r.mu.Lock()
	p, err := r.handle.LocalPackage(d.Name)
	r.mu.Unlock()
	if err != nil {
		return nil, repoErr("local", err)
	}
	if p == nil || !d.SatisfiedBy(*p) {
		return nil, nil
	}
	return []Package{*p}, nil
}

func (r *LocalDBRepository) FindPackages(ds []Depend) (map[string][]Package, error) {
	return findPackagesEach(r, ds)
}
