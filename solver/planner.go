package solver

import (
	"log"

	"github.com/pkg/errors"
)

// PlanBuilder turns a set of requested source-built packages into an
// ordered action plan: which packages to install from the binary
// repository, which to build first, and in what order, so that every
// build sees its dependencies installed and every built artifact lands
// in the destination.
type PlanBuilder struct {
	binaryRepo Repository // prebuilt packages
	sourceRepo Repository // build recipes (remote catalog + local)
	localRepo  Repository // what is installed right now
	globalRepo Repository // binary first, then source

	sourceResolver *TreeResolver
	binaryResolver *TreeResolver

	roots []Package

	// TraceLogger, when set, is handed to the resolvers.
	TraceLogger *log.Logger
}

// NewPlanBuilder wires a planner over the three repositories. Queries are
// memoized per repository for the builder's lifetime.
func NewPlanBuilder(binary, source, local Repository) *PlanBuilder {
	binaryCached := NewCachedRepository(binary)
	sourceCached := NewCachedRepository(source)
	localCached := NewCachedRepository(local)
	global := NewMergedRepository([]Repository{binaryCached, sourceCached})

	// Source-side resolution pulls from everywhere; binary-side
	// resolution stays inside the binary repo. Both treat installed
	// packages as already present and never disturb them.
	sourcePolicy := NewResolvePolicy(global, localCached, localCached)
	binaryPolicy := NewResolvePolicy(binaryCached, localCached, localCached)

	return &PlanBuilder{
		binaryRepo:     binaryCached,
		sourceRepo:     sourceCached,
		localRepo:      localCached,
		globalRepo:     global,
		sourceResolver: NewTreeResolver(sourcePolicy, MakeDependIfSourceCustom, AllowIfBinary),
		binaryResolver: NewTreeResolver(binaryPolicy, AlwaysDepend, AllowIfBinary),
	}
}

// AddPackage resolves a requested depend to its best candidate and, when
// that candidate needs building, queues it as a plan root. Requests the
// binary repository can already serve are not planned.
func (b *PlanBuilder) AddPackage(d Depend) error {
	pkgs, err := b.globalRepo.FindPackage(d)
	if err != nil {
		return err
	}
	if len(pkgs) == 0 {
		return &MissingDependencyError{Name: d.Name}
	}
	b.AddPackageExact(pkgs[0])
	return nil
}

// AddPackageExact queues an already-chosen package. Only source-built
// packages become roots.
func (b *PlanBuilder) AddPackageExact(p Package) {
	if IsSourceBuilt(p) {
		b.roots = append(b.roots, p)
	}
}

// Build lowers the queued roots into the action sequence. Source-built
// run-time deps discovered along the way become roots themselves, so
// their artifacts get published too. A package is built at most once
// across the whole plan. Resolver failures are annotated with the root
// being planned.
func (b *PlanBuilder) Build() ([]PlanAction, error) {
	b.sourceResolver.TraceLogger = b.TraceLogger
	b.binaryResolver.TraceLogger = b.TraceLogger

	var plan []PlanAction
	queue := append([]Package(nil), b.roots...)
	planned := make(map[string]bool)
	built := make(map[string]bool)

	for len(queue) > 0 {
		root := queue[0]
		queue = queue[1:]
		if planned[pkgKey(root)] {
			continue
		}
		planned[pkgKey(root)] = true

		actions, sourceDeps, err := b.planOne(root, built)
		if err != nil {
			return nil, errors.Wrapf(err, "while planning %s", root)
		}
		plan = append(plan, actions...)
		queue = append(queue, sourceDeps...)
	}
	return plan, nil
}

// planOne emits the actions for a single root. Order within the root:
// source-built dependencies (run-time and make-time alike) are built and
// installed first, leaves first; binary make-deps are installed after the
// source section, so nothing that was just set up gets displaced by a
// later install; the root's own build and the copy of its artifact close
// the sequence. Source-built run-time deps are also returned so the
// caller can queue them as roots.
func (b *PlanBuilder) planOne(root Package, built map[string]bool) (_ []PlanAction, sourceDeps []Package, _ error) {
	// Run-time deps split by where their best candidate lives.
	depCands, err := b.globalRepo.FindPackages(root.Depends())
	if err != nil {
		return nil, nil, err
	}
	for _, d := range root.Depends() {
		cands := depCands[d.key()]
		if len(cands) == 0 {
			return nil, nil, &MissingDependencyError{Name: d.Name}
		}
		if IsSourceBuilt(cands[0]) {
			sourceDeps = append(sourceDeps, cands[0])
		}
	}

	// Make-deps already installed are no work at all; the remainder
	// splits like run-time deps.
	var sourceMakeDeps, binaryMakeDeps []Package
	makeCands, err := b.globalRepo.FindPackages(root.MakeDepends())
	if err != nil {
		return nil, nil, err
	}
	for _, d := range root.MakeDepends() {
		installed, err := b.localRepo.FindPackage(d)
		if err != nil {
			return nil, nil, err
		}
		if len(installed) > 0 {
			continue
		}
		cands := makeCands[d.key()]
		if len(cands) == 0 {
			return nil, nil, &MissingDependencyError{Name: d.Name}
		}
		if IsSourceBuilt(cands[0]) {
			sourceMakeDeps = append(sourceMakeDeps, cands[0])
		} else {
			binaryMakeDeps = append(binaryMakeDeps, cands[0])
		}
	}

	var plan []PlanAction

	// The root's build must see its source-built deps installed, so they
	// resolve together with the source make-deps and come out leaves
	// first.
	sourceSection := make([]Package, 0, len(sourceDeps)+len(sourceMakeDeps))
	seen := make(map[string]bool)
	for _, p := range append(append([]Package(nil), sourceDeps...), sourceMakeDeps...) {
		if !seen[pkgKey(p)] {
			seen[pkgKey(p)] = true
			sourceSection = append(sourceSection, p)
		}
	}
	if len(sourceSection) > 0 {
		solved, err := b.sourceResolver.Resolve(sourceSection)
		if err != nil {
			return nil, nil, err
		}
		for _, group := range solved.StronglyConnectedComponents() {
			if len(group) > 1 {
				plan = append(plan, InstallGroupAction{Pkgs: group})
				continue
			}
			p := group[0]
			if IsSourceBuilt(p) && !built[pkgKey(p)] {
				built[pkgKey(p)] = true
				plan = append(plan, BuildAction{Pkg: p})
			}
			plan = append(plan, InstallAction{Pkg: p})
		}
	}

	// Install binary make-deps behind the source ones.
	if len(binaryMakeDeps) > 0 {
		solved, err := b.binaryResolver.Resolve(binaryMakeDeps)
		if err != nil {
			return nil, nil, err
		}
		for _, group := range solved.StronglyConnectedComponents() {
			plan = append(plan, InstallGroupAction{Pkgs: group})
		}
	}

	if !built[pkgKey(root)] {
		built[pkgKey(root)] = true
		plan = append(plan, BuildAction{Pkg: root})
	}
	plan = append(plan, CopyToDestAction{Pkg: root})
	return plan, sourceDeps, nil
}
