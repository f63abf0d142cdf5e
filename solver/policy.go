package solver

import "sync"

// DependChoice selects which edge kinds of a package the resolver
// traverses.
type DependChoice uint8

const (
	ChooseDepends DependChoice = 1 << iota
	ChooseMakeDepends
)

// Has reports whether the bitset includes choice.
func (c DependChoice) Has(choice DependChoice) bool {
	return c&choice != 0
}

// A DependPolicy decides, per package, which dependency edges to follow.
// Policies are plain functions, not configured objects.
type DependPolicy func(Package) DependChoice

// AlwaysDepend follows run-time depends only.
func AlwaysDepend(Package) DependChoice {
	return ChooseDepends
}

// MakeDependIfSourceCustom follows run-time depends always, and build-time
// depends additionally for packages that must be built before install.
func MakeDependIfSourceCustom(p Package) DependChoice {
	if IsSourceBuilt(p) {
		return ChooseDepends | ChooseMakeDepends
	}
	return ChooseDepends
}

// A CycleAcceptancePolicy decides whether a detected dependency cycle is
// acceptable for the current search.
type CycleAcceptancePolicy func([]Package) bool

// AllowCycles accepts every cycle.
func AllowCycles([]Package) bool { return true }

// DenyCycles rejects every cycle.
func DenyCycles([]Package) bool { return false }

// AllowIfBinary accepts a cycle iff every member is a binary package:
// installation of prebuilt packages can be batched, whereas source builds
// need a prior topological order.
func AllowIfBinary(pkgs []Package) bool {
	for _, p := range pkgs {
		if _, ok := p.(BinaryPackage); !ok {
			return false
		}
	}
	return true
}

// ResolvePolicy names the three repositories a resolve run consults:
// where candidates come from, which demands count as already present, and
// which installed packages must not be disturbed.
type ResolvePolicy struct {
	FromRepo     Repository
	SkipRepo     Repository
	ImmortalRepo Repository

	mu            sync.RWMutex
	immortalCache map[string]bool
}

// NewResolvePolicy builds a policy over the three repositories.
func NewResolvePolicy(from, skip, immortal Repository) *ResolvePolicy {
	return &ResolvePolicy{
		FromRepo:      from,
		SkipRepo:      skip,
		ImmortalRepo:  immortal,
		immortalCache: make(map[string]bool),
	}
}

// IsMortalBlade reports whether choosing p is forbidden: the immortal set
// holds a package of the same name at a different version, so installing
// p would replace something that must stay. The verdict is memoized per
// (name, version); the lock is held only around map access, never across
// the repository query.
func (r *ResolvePolicy) IsMortalBlade(p Package) (bool, error) {
	dep := DependOnPackage(p)
	key := dep.key()

	r.mu.RLock()
	verdict, ok := r.immortalCache[key]
	r.mu.RUnlock()
	if ok {
		return verdict, nil
	}

	immortals, err := r.ImmortalRepo.FindPackage(NewDepend(p.Name()))
	if err != nil {
		return false, err
	}
	verdict = false
	for _, im := range immortals {
		if im.Name() == p.Name() && !im.Version().Equal(p.Version()) {
			verdict = true
			break
		}
	}

	r.mu.Lock()
	r.immortalCache[key] = verdict
	r.mu.Unlock()
	return verdict, nil
}

// IsImmortal reports whether p itself is pinned: the immortal set holds
// the same name at the same version. Such candidates rank ahead of
// ordinary ones.
func (r *ResolvePolicy) IsImmortal(p Package) (bool, error) {
	immortals, err := r.ImmortalRepo.FindPackage(NewDepend(p.Name()))
	if err != nil {
		return false, err
	}
	for _, im := range immortals {
		if im.Name() == p.Name() && im.Version().Equal(p.Version()) {
			return true, nil
		}
	}
	return false, nil
}

// SkipSatisfies reports whether the skip repository already fulfills d,
// in which case the demand is pruned rather than resolved.
func (r *ResolvePolicy) SkipSatisfies(d Depend) (bool, error) {
	pkgs, err := r.SkipRepo.FindPackage(d)
	if err != nil {
		return false, err
	}
	for _, p := range pkgs {
		if d.SatisfiedBy(p) {
			return true, nil
		}
	}
	return false, nil
}
