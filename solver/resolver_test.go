package solver

import (
	"testing"

	"github.com/pkg/errors"
)

// Scenario: a diamond-ish dependency tree. Resolving f pulls in exactly
// its transitive closure, ordered leaves first.
func TestResolveSimpleTree(t *testing.T) {
	repo := repoOf(
		mkb("a@1"),
		mkb("b@1", "a"),
		mkb("c@1", "a"),
		mkb("d@1"),
		mkb("e@1", "b"),
		mkb("f@1", "c", "e"),
	)
	ctx := mustResolve(t, repo, "f", AlwaysDepend, AllowIfBinary)

	for _, want := range []string{"a", "b", "c", "e", "f"} {
		if _, ok := ctx.Get(want); !ok {
			t.Errorf("solution lacks %q", want)
		}
	}
	if _, ok := ctx.Get("d"); ok {
		t.Error("solution includes the unrelated d")
	}

	idx := orderIndex(ctx.StronglyConnectedComponents())
	assertBefore(t, idx, "a", "b")
	assertBefore(t, idx, "a", "c")
	assertBefore(t, idx, "b", "e")
	assertBefore(t, idx, "e", "f")
	assertBefore(t, idx, "c", "f")
}

// Scenario: version selection. b wants a>=2; only a@2 qualifies.
func TestResolvePicksSatisfyingVersion(t *testing.T) {
	repo := repoOf(
		mkb("a@1.0.0"),
		mkb("a@2.0.0"),
		mkb("b@1.0.0", "a>=2"),
	)
	ctx := mustResolve(t, repo, "b", AlwaysDepend, AllowIfBinary)

	a, ok := ctx.Get("a")
	if !ok {
		t.Fatal("solution lacks a")
	}
	if !a.Version().Equal("2.0.0") {
		t.Errorf("chose a@%s, want a@2.0.0", a.Version())
	}
}

// Scenario: a three-package cycle, accepted by policy, lands in one
// component.
func TestResolveAcceptedCycle(t *testing.T) {
	repo := repoOf(
		mkb("a@1", "c"),
		mkb("b@1", "a"),
		mkb("c@1", "b"),
	)
	for _, root := range []string{"a", "c"} {
		ctx := mustResolve(t, repo, root, AlwaysDepend, AllowCycles)
		for _, want := range []string{"a", "b", "c"} {
			if _, ok := ctx.Get(want); !ok {
				t.Errorf("root %s: solution lacks %q", root, want)
			}
		}
		groups := ctx.StronglyConnectedComponents()
		found := false
		for _, g := range groups {
			if len(g) == 3 {
				found = true
			}
		}
		if !found {
			t.Errorf("root %s: expected {a,b,c} as one component, got %v", root, sccNames(groups))
		}
	}
}

// The same cycle under a denying policy fails with CyclicDependency.
func TestResolveRejectedCycle(t *testing.T) {
	repo := repoOf(
		mks("a@1", "c"),
		mks("b@1", "a"),
		mks("c@1", "b"),
	)
	pkgs, _ := repo.FindPackage(ParseDepend("a"))
	res := NewTreeResolver(emptyPolicy(repo), AlwaysDepend, AllowIfBinary)
	_, err := res.Resolve([]Package{pkgs[0]})
	if err == nil {
		t.Fatal("expected a cycle failure")
	}
	var cyc *CyclicDependencyError
	if !errors.As(err, &cyc) {
		t.Errorf("expected CyclicDependencyError, got %T: %s", err, err)
	}
}

// Boundary: no dependencies at all yields the single-package context.
func TestResolveLeafPackage(t *testing.T) {
	repo := repoOf(mkb("lone@1"))
	ctx := mustResolve(t, repo, "lone", AlwaysDepend, AllowIfBinary)
	if ctx.Len() != 1 {
		t.Errorf("expected a single-package context, got %d", ctx.Len())
	}
}

// Boundary: a union demand (=1 or =2) accepts either; the repository's
// ranking picks the newer.
func TestResolveUnionDemand(t *testing.T) {
	either := Depend{
		Name:    "a",
		Version: ExactlyVersion("1.0-1").Union(ExactlyVersion("2.0-1")),
	}
	root := BinaryPackage{PackageBase: PackageBase{
		PkgName:    "r",
		PkgVersion: "1.0-1",
		PkgDepends: []Depend{either},
	}}
	repo := repoOf(mkb("a@1.0-1"), mkb("a@2.0-1"), mkb("a@3.0-1"), root)

	ctx := mustResolve(t, repo, "r", AlwaysDepend, AllowIfBinary)
	a, ok := ctx.Get("a")
	if !ok {
		t.Fatal("solution lacks a")
	}
	if !a.Version().Equal("2.0-1") {
		t.Errorf("chose a@%s, want the newer admissible a@2.0-1", a.Version())
	}
}

// Boundary: an empty version range fails fast, before any repository
// query for it.
func TestResolveEmptyRangeShortCircuits(t *testing.T) {
	impossible := Depend{
		Name:    "a",
		Version: AtLeastVersion("2").Intersect(LessVersion("2")),
	}
	root := BinaryPackage{PackageBase: PackageBase{
		PkgName:    "r",
		PkgVersion: "1.0-1",
		PkgDepends: []Depend{impossible},
	}}

	res := NewTreeResolver(emptyPolicy(&failingRepo{t: t}), AlwaysDepend, AllowIfBinary)
	_, err := res.Resolve([]Package{root})
	if err == nil {
		t.Fatal("expected MissingDependency")
	}
	var missing *MissingDependencyError
	if !errors.As(err, &missing) || missing.Name != "a" {
		t.Errorf("expected MissingDependency(a), got %v", err)
	}
}

// A demand the skip repository covers is pruned, not resolved.
func TestResolveSkipRepoPrunes(t *testing.T) {
	from := repoOf(mkb("b@1", "a"))
	skip := repoOf(mkb("a@5"))
	policy := NewResolvePolicy(from, skip, NewEmptyRepository())
	res := NewTreeResolver(policy, AlwaysDepend, AllowIfBinary)

	roots, _ := from.FindPackage(ParseDepend("b"))
	ctx, err := res.Resolve(roots[:1])
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := ctx.Get("a"); ok {
		t.Error("skip-satisfied demand should not enter the solution")
	}
	if _, ok := ctx.Get("b"); !ok {
		t.Error("solution lacks the root")
	}
}

// No context may contain a mortal-blade package: the immortal repo pins
// a@1, so b (needing a>=2) cannot resolve.
func TestResolveMortalBlade(t *testing.T) {
	from := repoOf(mkb("a@1"), mkb("a@2"), mkb("b@1", "a>=2"))
	immortal := repoOf(mkb("a@1"))
	policy := NewResolvePolicy(from, NewEmptyRepository(), immortal)
	res := NewTreeResolver(policy, AlwaysDepend, AllowIfBinary)

	roots, _ := from.FindPackage(ParseDepend("b"))
	_, err := res.Resolve(roots[:1])
	if err == nil {
		t.Fatal("expected failure: the only admissible a is mortal-blade")
	}
	var missing *MissingDependencyError
	if !errors.As(err, &missing) || missing.Name != "a" {
		t.Errorf("expected MissingDependency(a), got %v", err)
	}
}

// The pinned version wins over a newer one: with a@1 immortal, a@2 is
// mortal-blade and never becomes a candidate.
func TestResolvePrefersImmortal(t *testing.T) {
	from := repoOf(mkb("a@1"), mkb("a@2"), mkb("b@1", "a"))
	immortal := repoOf(mkb("a@1"))
	policy := NewResolvePolicy(from, NewEmptyRepository(), immortal)
	res := NewTreeResolver(policy, AlwaysDepend, AllowIfBinary)

	roots, _ := from.FindPackage(ParseDepend("b"))
	ctx, err := res.Resolve(roots[:1])
	if err != nil {
		t.Fatal(err)
	}
	a, _ := ctx.Get("a")
	if a == nil || !a.Version().Equal("1") {
		t.Errorf("expected the pinned a@1, got %v", a)
	}
}

// Conflicting initial packages fail the seed phase.
func TestResolveConflictingSeeds(t *testing.T) {
	a := mkb("a@1")
	hostile := BinaryPackage{PackageBase: withConflicts(mkbase("h@1"), "a")}
	res := NewTreeResolver(emptyPolicy(repoOf(a, hostile)), AlwaysDepend, AllowIfBinary)

	_, err := res.Resolve([]Package{a, hostile})
	if err == nil {
		t.Fatal("expected ConflictDependency")
	}
	var conflict *ConflictDependencyError
	if !errors.As(err, &conflict) {
		t.Errorf("expected ConflictDependencyError, got %T: %s", err, err)
	}
}

// A conflict brought in by a dependency forces the search onto the other
// candidate: b@2 conflicts with the root, so b@1 wins despite ranking
// lower.
func TestResolveBacktracksOverConflict(t *testing.T) {
	hostile := BinaryPackage{PackageBase: withConflicts(mkbase("b@2"), "r")}
	repo := repoOf(
		mkb("r@1", "b"),
		hostile,
		mkb("b@1"),
	)
	ctx := mustResolve(t, repo, "r", AlwaysDepend, AllowIfBinary)
	b, ok := ctx.Get("b")
	if !ok {
		t.Fatal("solution lacks b")
	}
	if !b.Version().Equal("1") {
		t.Errorf("chose b@%s, want the compatible b@1", b.Version())
	}
}

// MakeDepends traversal only fires for source-built packages under
// MakeDependIfSourceCustom.
func TestResolveDependPolicy(t *testing.T) {
	srcRoot := withMakeDepends(mks("s@1"), "maketool")
	repo := repoOf(srcRoot, mkb("maketool@1"))

	ctx := mustResolve(t, repo, "s", MakeDependIfSourceCustom, AllowIfBinary)
	if _, ok := ctx.Get("maketool"); !ok {
		t.Error("source package's make-depends should resolve")
	}

	ctx = mustResolve(t, repo, "s", AlwaysDepend, AllowIfBinary)
	if _, ok := ctx.Get("maketool"); ok {
		t.Error("AlwaysDepend should ignore make-depends")
	}
}
