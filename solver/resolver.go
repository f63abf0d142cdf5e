package solver

import (
	"fmt"
	"log"
	"sort"
)

// Tuning defaults. The candidate cap bounds the branching factor per
// demand; the attempt cap forces earlier backtracking out of hopeless
// subtrees (a responsiveness heuristic, not a correctness knob - with it
// disabled the search is complete modulo the candidate cap); the depth
// guard bounds pathological inputs.
const (
	DefaultMaxCandidates = 5
	DefaultMaxAttempts   = 300
	DefaultMaxDepth      = 100
)

// TreeResolver performs the layered backtracking search: stages of
// aggregated demands are expanded into candidate combinations, each
// accepted combination seeds the next stage, and exhausted stages unwind
// onto the previous stage's next combination.
type TreeResolver struct {
	policy       *ResolvePolicy
	dependPolicy DependPolicy
	cyclePolicy  CycleAcceptancePolicy

	// MaxCandidates caps candidates considered per demand.
	MaxCandidates int
	// MaxAttempts caps combinations tried per stage before backtracking.
	MaxAttempts int
	// MaxDepth caps the stage stack.
	MaxDepth int

	// TraceLogger, when set, receives a line per search step.
	TraceLogger *log.Logger

	attempts int
}

// NewTreeResolver builds a resolver with default knobs.
func NewTreeResolver(policy *ResolvePolicy, dp DependPolicy, cp CycleAcceptancePolicy) *TreeResolver {
	return &TreeResolver{
		policy:        policy,
		dependPolicy:  dp,
		cyclePolicy:   cp,
		MaxCandidates: DefaultMaxCandidates,
		MaxAttempts:   DefaultMaxAttempts,
		MaxDepth:      DefaultMaxDepth,
	}
}

func (t *TreeResolver) tracef(format string, args ...interface{}) {
	if t.TraceLogger != nil {
		t.TraceLogger.Printf(format, args...)
	}
}

// demand is one aggregated requirement of a stage: the union of every
// same-named depend the frontier raised, plus the packages that raised
// them.
type demand struct {
	dep     Depend
	parents []Package
}

// stage is one layer of the search: a base context, the expanded
// candidate lists for its demands, and an odometer over their cartesian
// product. Demands are ordered most-constrained-first, and the odometer
// advances the last position fastest, so tightly-constrained demands
// stay in the outer loops.
type stage struct {
	base     *Context
	demands  []demand
	cands    [][]Package
	idx      []int
	started  bool
	attempts int
}

// next advances the odometer. It returns false when the stage is
// exhausted.
func (s *stage) next() bool {
	if len(s.cands) == 0 {
		return false
	}
	if !s.started {
		s.started = true
		return true
	}
	for i := len(s.idx) - 1; i >= 0; i-- {
		s.idx[i]++
		if s.idx[i] < len(s.cands[i]) {
			return true
		}
		s.idx[i] = 0
	}
	return false
}

// isBranchFailure reports errors that abandon the current combination or
// stage but keep the search alive. Repository errors are never branch
// failures; they abort the whole resolve.
func isBranchFailure(err error) bool {
	switch err.(type) {
	case *MissingDependencyError, *ConflictDependencyError, *CyclicDependencyError:
		return true
	}
	return false
}

// Resolve searches for a context that contains every initial package,
// fulfills every transitive demand not masked by the skip repository,
// avoids mortal-blade candidates, and only carries cycles the cycle
// policy accepts.
//
// With fixed inputs and fixed repository answers the result is
// deterministic: demands aggregate in name order and candidate lists
// preserve the repositories' best-first ranking.
func (t *TreeResolver) Resolve(initial []Package) (*Context, error) {
	t.attempts = 0

	ctx := NewContext()
	frontier := make([]Package, 0, len(initial))
	for _, p := range initial {
		skip, err := t.policy.SkipSatisfies(DependOnPackage(p))
		if err != nil {
			return nil, err
		}
		if skip {
			t.tracef("seed: %s already present, skipping", p)
			continue
		}
		if _, ok := ctx.insertInPlace(p, nil); !ok {
			return nil, &ConflictDependencyError{
				Reason: fmt.Sprintf("initial package %s is incompatible with its peers", p),
			}
		}
		frontier = append(frontier, p)
	}

	first, done, err := t.buildStage(ctx, frontier)
	if err != nil {
		return nil, err
	}
	if done {
		return ctx, nil
	}

	var lastFailure error
	stack := []*stage{first}
	for len(stack) > 0 {
		top := stack[len(stack)-1]

		if top.attempts >= t.MaxAttempts || !top.next() {
			stack = stack[:len(stack)-1]
			continue
		}
		top.attempts++
		t.attempts++

		next, ok, err := t.foldCombination(top)
		if err != nil {
			if isBranchFailure(err) {
				lastFailure = err
				continue
			}
			return nil, err
		}
		if !ok {
			continue
		}

		frontier := make([]Package, 0, len(top.demands))
		for i := range top.demands {
			frontier = append(frontier, top.cands[i][top.idx[i]])
		}

		st, done, err := t.buildStage(next, frontier)
		if err != nil {
			if isBranchFailure(err) {
				lastFailure = err
				continue
			}
			return nil, err
		}
		if done {
			return next, nil
		}
		if len(stack) >= t.MaxDepth {
			return nil, &DepthExceededError{Limit: t.MaxDepth}
		}
		stack = append(stack, st)
	}

	if lastFailure == nil {
		lastFailure = &ConflictDependencyError{Reason: "no combination of candidates is mutually compatible"}
	}
	return nil, lastFailure
}

// foldCombination merges the stage's current candidate combination into a
// copy of its base context, wiring parent edges and vetting every cycle
// the merge closes.
func (t *TreeResolver) foldCombination(s *stage) (*Context, bool, error) {
	ctx := s.base.Clone()
	for i, d := range s.demands {
		candidate := s.cands[i][s.idx[i]]
		cycles, ok := ctx.insertInPlace(candidate, d.parents)
		if !ok {
			t.tracef("fold: %s rejected for %s", candidate, d.dep)
			return nil, false, nil
		}
		for _, cyc := range cycles {
			if !t.cyclePolicy(cyc) {
				t.tracef("fold: cycle %v rejected by policy", cyc)
				return nil, false, &CyclicDependencyError{Component: cyc}
			}
		}
	}
	return ctx, true, nil
}

// buildStage computes the next stage from a context and the packages
// added last. done is true when the frontier raises no further demands:
// the context is a complete solution.
func (t *TreeResolver) buildStage(ctx *Context, frontier []Package) (_ *stage, done bool, _ error) {
	demands, err := t.aggregateDemands(ctx, frontier)
	if err != nil {
		return nil, false, err
	}

	// Satisfaction pruning: a demand the partial solution already
	// fulfills only contributes edges from its parents to the
	// satisfier. Those edges can close cycles, which face the policy
	// like any other.
	remaining := demands[:0]
	for _, d := range demands {
		satisfier, ok := ctx.FindSatisfier(d.dep)
		if !ok {
			remaining = append(remaining, d)
			continue
		}
		t.tracef("stage: %s satisfied by %s", d.dep, satisfier)
		for _, parent := range d.parents {
			eff, err := ctx.AddEdge(parent, satisfier)
			if err != nil {
				return nil, false, err
			}
			if eff.Cycle != nil && !t.cyclePolicy(eff.Cycle) {
				return nil, false, &CyclicDependencyError{Component: eff.Cycle}
			}
		}
	}

	for _, d := range remaining {
		if ctx.ConflictsWith(d.dep) {
			return nil, false, &ConflictDependencyError{
				Reason: fmt.Sprintf("%s conflicts with the current solution", d.dep),
			}
		}
	}

	if len(remaining) == 0 {
		return nil, true, nil
	}

	cands, err := t.expandCandidates(ctx, remaining)
	if err != nil {
		return nil, false, err
	}

	// Most constrained demands go first, where the odometer varies them
	// slowest.
	order := make([]int, len(remaining))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		if len(cands[order[a]]) != len(cands[order[b]]) {
			return len(cands[order[a]]) < len(cands[order[b]])
		}
		return remaining[order[a]].dep.Name < remaining[order[b]].dep.Name
	})

	st := &stage{base: ctx}
	for _, i := range order {
		st.demands = append(st.demands, remaining[i])
		st.cands = append(st.cands, cands[i])
	}
	st.idx = make([]int, len(st.demands))
	return st, false, nil
}

// aggregateDemands collects the frontier's outgoing demands under the
// depend policy, drops the ones the skip repository covers, and merges
// same-named demands by version-range union, remembering every parent.
func (t *TreeResolver) aggregateDemands(ctx *Context, frontier []Package) ([]demand, error) {
	sorted := append([]Package(nil), frontier...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name() < sorted[j].Name() })

	byName := make(map[string]*demand)
	var names []string
	for _, p := range sorted {
		choice := t.dependPolicy(p)
		var deps []Depend
		if choice.Has(ChooseDepends) {
			deps = append(deps, p.Depends()...)
		}
		if choice.Has(ChooseMakeDepends) {
			deps = append(deps, p.MakeDepends()...)
		}

		for _, d := range deps {
			if d.Version.IsEmpty() {
				// An unsatisfiable range needs no repository round trip.
				return nil, &MissingDependencyError{Name: d.Name}
			}
			skip, err := t.policy.SkipSatisfies(d)
			if err != nil {
				return nil, err
			}
			if skip {
				t.tracef("stage: %s masked by skip repository", d)
				continue
			}

			agg, ok := byName[d.Name]
			if !ok {
				agg = &demand{dep: d}
				byName[d.Name] = agg
				names = append(names, d.Name)
			} else {
				agg.dep.Version = agg.dep.Version.Union(d.Version)
			}
			if !containsPkg(agg.parents, p) {
				agg.parents = append(agg.parents, p)
			}
		}
	}

	sort.Strings(names)
	out := make([]demand, 0, len(names))
	for _, n := range names {
		out = append(out, *byName[n])
	}
	return out, nil
}

// expandCandidates queries the from-repository for every remaining demand
// and ranks each candidate list: choices already in the partial solution
// first, pinned (immortal) versions next, the rest in repository order;
// mortal-blade candidates are dropped outright. Lists are truncated to
// the candidate cap.
func (t *TreeResolver) expandCandidates(ctx *Context, demands []demand) ([][]Package, error) {
	deps := make([]Depend, 0, len(demands))
	for _, d := range demands {
		deps = append(deps, d.dep)
	}
	found, err := t.policy.FromRepo.FindPackages(deps)
	if err != nil {
		return nil, err
	}

	out := make([][]Package, len(demands))
	for i, d := range demands {
		raw := found[d.dep.key()]
		kept := make([]Package, 0, len(raw))
		for _, p := range raw {
			blade, err := t.policy.IsMortalBlade(p)
			if err != nil {
				return nil, err
			}
			if blade {
				t.tracef("expand: %s is mortal-blade, dropped", p)
				continue
			}
			kept = append(kept, p)
		}
		if len(kept) == 0 {
			return nil, &MissingDependencyError{Name: d.dep.Name}
		}

		rank := make([]int, len(kept))
		for j, p := range kept {
			switch {
			case ctx.ContainsExact(p):
				rank[j] = 0
			default:
				immortal, err := t.policy.IsImmortal(p)
				if err != nil {
					return nil, err
				}
				if immortal {
					rank[j] = 1
				} else {
					rank[j] = 2
				}
			}
		}
		idx := make([]int, len(kept))
		for j := range idx {
			idx[j] = j
		}
		sort.SliceStable(idx, func(a, b int) bool { return rank[idx[a]] < rank[idx[b]] })

		ordered := make([]Package, 0, len(kept))
		for _, j := range idx {
			ordered = append(ordered, kept[j])
		}
		if len(ordered) > t.MaxCandidates {
			ordered = ordered[:t.MaxCandidates]
		}
		out[i] = ordered
	}
	return out, nil
}

func containsPkg(pkgs []Package, p Package) bool {
	for _, q := range pkgs {
		if pkgKey(q) == pkgKey(p) {
			return true
		}
	}
	return false
}

// Attempts reports how many combinations the last Resolve examined.
func (t *TreeResolver) Attempts() int {
	return t.attempts
}
