package solver

import "testing"

// Fixture constructors shared by the package's tests. Versions default to
// "1.0.0-1" so fixtures read like the scenarios they encode.

func mkb(nv string, deps ...string) BinaryPackage {
	return BinaryPackage{PackageBase: mkbase(nv, deps...)}
}

func mks(nv string, deps ...string) SourcePackage {
	return SourcePackage{PackageBase: mkbase(nv, deps...)}
}

func mkl(nv string, deps ...string) LocalRecipe {
	return LocalRecipe{PackageBase: mkbase(nv, deps...)}
}

// mkbase parses "name" or "name@version" plus depend strings.
func mkbase(nv string, deps ...string) PackageBase {
	name, ver := nv, "1.0.0-1"
	for i := 0; i < len(nv); i++ {
		if nv[i] == '@' {
			name, ver = nv[:i], nv[i+1:]
			break
		}
	}
	base := PackageBase{PkgName: name, PkgVersion: Version(ver)}
	for _, d := range deps {
		base.PkgDepends = append(base.PkgDepends, ParseDepend(d))
	}
	return base
}

func withMakeDepends(p SourcePackage, deps ...string) SourcePackage {
	for _, d := range deps {
		p.PkgMakeDepends = append(p.PkgMakeDepends, ParseDepend(d))
	}
	return p
}

func withProvides(base PackageBase, provides ...string) PackageBase {
	for _, d := range provides {
		base.PkgProvides = append(base.PkgProvides, ParseDepend(d))
	}
	return base
}

func withConflicts(base PackageBase, conflicts ...string) PackageBase {
	for _, d := range conflicts {
		base.PkgConflicts = append(base.PkgConflicts, ParseDepend(d))
	}
	return base
}

func repoOf(pkgs ...Package) *CustomRepository {
	return NewCustomRepository(pkgs)
}

func emptyPolicy(from Repository) *ResolvePolicy {
	return NewResolvePolicy(from, NewEmptyRepository(), NewEmptyRepository())
}

// mustResolve runs a resolver over from with default knobs and fails the
// test on error.
func mustResolve(t *testing.T, from Repository, root string, dp DependPolicy, cp CycleAcceptancePolicy) *Context {
	t.Helper()
	pkgs, err := from.FindPackage(ParseDepend(root))
	if err != nil {
		t.Fatalf("finding root %q: %s", root, err)
	}
	if len(pkgs) == 0 {
		t.Fatalf("root %q not found", root)
	}
	res := NewTreeResolver(emptyPolicy(from), dp, cp)
	ctx, err := res.Resolve([]Package{pkgs[0]})
	if err != nil {
		t.Fatalf("resolving %q: %s", root, err)
	}
	return ctx
}

// sccNames flattens an SCC listing into component name slices.
func sccNames(groups [][]Package) [][]string {
	out := make([][]string, 0, len(groups))
	for _, g := range groups {
		names := make([]string, 0, len(g))
		for _, p := range g {
			names = append(names, p.Name())
		}
		out = append(out, names)
	}
	return out
}

// orderIndex maps each package name to its flattened position in an SCC
// listing; members of one component share a position.
func orderIndex(groups [][]Package) map[string]int {
	idx := make(map[string]int)
	for i, g := range groups {
		for _, p := range g {
			idx[p.Name()] = i
		}
	}
	return idx
}

func assertBefore(t *testing.T, idx map[string]int, earlier, later string) {
	t.Helper()
	ei, eok := idx[earlier]
	li, lok := idx[later]
	if !eok || !lok {
		t.Fatalf("expected both %q and %q in the solution, have %v", earlier, later, idx)
	}
	if ei >= li {
		t.Errorf("expected %q (pos %d) before %q (pos %d)", earlier, ei, later, li)
	}
}

// countingRepo instruments a child repository, counting per-name queries.
type countingRepo struct {
	inner Repository
	calls map[string]int
}

func newCountingRepo(inner Repository) *countingRepo {
	return &countingRepo{inner: inner, calls: make(map[string]int)}
}

func (r *countingRepo) FindPackage(d Depend) ([]Package, error) {
	r.calls[d.Name]++
	return r.inner.FindPackage(d)
}

func (r *countingRepo) FindPackages(ds []Depend) (map[string][]Package, error) {
	for _, d := range ds {
		r.calls[d.Name]++
	}
	return r.inner.FindPackages(ds)
}

func (r *countingRepo) total() int {
	n := 0
	for _, c := range r.calls {
		n += c
	}
	return n
}

// failingRepo trips the test if it is ever queried.
type failingRepo struct {
	t *testing.T
}

func (r *failingRepo) FindPackage(d Depend) ([]Package, error) {
	r.t.Fatalf("repository unexpectedly queried for %s", d)
	return nil, nil
}

func (r *failingRepo) FindPackages(ds []Depend) (map[string][]Package, error) {
	r.t.Fatalf("repository unexpectedly queried for %v", ds)
	return nil, nil
}
