package solver

import "sort"

// Context is the resolver's partial solution: at most one package per
// name, the dependency graph between chosen packages, and the aggregated
// provides and conflicts of the whole set.
//
// Contexts are persistent in the search's sense: Insert and Union return
// fresh contexts and leave the receiver intact, so the search can fork
// and roll back freely. Packages themselves are shared immutably; the
// clone copies only the containers.
type Context struct {
	packages  map[string]Package
	graph     *SCCGraph
	provides  map[string]DependVersion
	conflicts map[string]DependVersion
}

// NewContext returns an empty partial solution.
func NewContext() *Context {
	return &Context{
		packages:  make(map[string]Package),
		graph:     NewSCCGraph(),
		provides:  make(map[string]DependVersion),
		conflicts: make(map[string]DependVersion),
	}
}

// Clone returns an independent copy.
func (c *Context) Clone() *Context {
	nc := &Context{
		packages:  make(map[string]Package, len(c.packages)),
		graph:     c.graph.Clone(),
		provides:  make(map[string]DependVersion, len(c.provides)),
		conflicts: make(map[string]DependVersion, len(c.conflicts)),
	}
	for k, v := range c.packages {
		nc.packages[k] = v
	}
	for k, v := range c.provides {
		nc.provides[k] = v
	}
	for k, v := range c.conflicts {
		nc.conflicts[k] = v
	}
	return nc
}

// IsEmpty reports whether nothing has been chosen yet.
func (c *Context) IsEmpty() bool {
	return len(c.packages) == 0
}

// Len returns the number of chosen packages.
func (c *Context) Len() int {
	return len(c.packages)
}

// Get returns the chosen package under name.
func (c *Context) Get(name string) (Package, bool) {
	p, ok := c.packages[name]
	return p, ok
}

// Packages lists the chosen packages in deterministic (name) order.
func (c *Context) Packages() []Package {
	names := make([]string, 0, len(c.packages))
	for n := range c.packages {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]Package, 0, len(names))
	for _, n := range names {
		out = append(out, c.packages[n])
	}
	return out
}

// ContainsExact reports whether the exact package (same name, vercmp-equal
// version) was chosen.
func (c *Context) ContainsExact(p Package) bool {
	chosen, ok := c.packages[p.Name()]
	return ok && chosen.Version().Equal(p.Version())
}

// Satisfies reports whether the current set fulfills d through any chosen
// package or provide.
func (c *Context) Satisfies(d Depend) bool {
	r, ok := c.provides[d.Name]
	return ok && !r.Intersect(d.Version).IsEmpty()
}

// ConflictsWith reports whether d intersects a conflict declared by the
// current set.
func (c *Context) ConflictsWith(d Depend) bool {
	r, ok := c.conflicts[d.Name]
	return ok && !r.Intersect(d.Version).IsEmpty()
}

// FindSatisfier returns the chosen package that fulfills d, if any.
func (c *Context) FindSatisfier(d Depend) (Package, bool) {
	if p, ok := c.packages[d.Name]; ok && d.SatisfiedBy(p) {
		return p, true
	}
	for _, name := range sortedKeys(c.packages) {
		p := c.packages[name]
		if d.SatisfiedBy(p) {
			return p, true
		}
	}
	return nil, false
}

func sortedKeys(m map[string]Package) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsCompatible reports whether adding p would keep the context invariants:
// a same-name choice must be version-equal, p's identity and provides must
// not intersect recorded conflicts, and p's conflicts must not intersect
// recorded provides.
func (c *Context) IsCompatible(p Package) bool {
	if chosen, ok := c.packages[p.Name()]; ok {
		return chosen.Version().Equal(p.Version())
	}

	offers := append([]Depend{DependOnPackage(p)}, p.Provides()...)
	for _, offer := range offers {
		if con, ok := c.conflicts[offer.Name]; ok && !con.Intersect(offer.Version).IsEmpty() {
			return false
		}
	}
	for _, con := range p.Conflicts() {
		if prov, ok := c.provides[con.Name]; ok && !prov.Intersect(con.Version).IsEmpty() {
			return false
		}
	}

	// A package whose declared conflicts strike its own provides can
	// never coexist with itself. A conflict on the package's own name is
	// the usual replace idiom and stays allowed.
	for _, con := range p.Conflicts() {
		if con.Name == p.Name() {
			continue
		}
		for _, offer := range p.Provides() {
			if offer.Name == con.Name && !con.Version.Intersect(offer.Version).IsEmpty() {
				return false
			}
		}
	}
	return true
}

// AddEdge records "from depends on to" between two already-chosen
// packages, reporting any cycle the edge closed.
func (c *Context) AddEdge(from, to Package) (EdgeEffect, error) {
	return c.graph.Insert(from, to)
}

// Insert returns a new context with p chosen and an edge from every
// reason to p, plus the cycles those edges closed. It returns ok=false,
// leaving the receiver usable, when p is incompatible. Re-inserting the
// already-chosen package is a no-op (new reasons still gain edges).
func (c *Context) Insert(p Package, reasons []Package) (next *Context, cycles [][]Package, ok bool) {
	if !c.IsCompatible(p) {
		return nil, nil, false
	}

	next = c.Clone()
	cycles, ok = next.insertInPlace(p, reasons)
	if !ok {
		return nil, nil, false
	}
	return next, cycles, true
}

// insertInPlace is Insert without the defensive clone; the resolver uses
// it on contexts it already owns exclusively.
func (c *Context) insertInPlace(p Package, reasons []Package) (cycles [][]Package, ok bool) {
	if !c.IsCompatible(p) {
		return nil, false
	}

	if _, present := c.packages[p.Name()]; !present {
		c.packages[p.Name()] = p
		c.graph.AddNode(p)

		offers := append([]Depend{DependOnPackage(p)}, p.Provides()...)
		for _, offer := range offers {
			if cur, ok := c.provides[offer.Name]; ok {
				c.provides[offer.Name] = cur.Union(offer.Version)
			} else {
				c.provides[offer.Name] = offer.Version
			}
		}
		for _, con := range p.Conflicts() {
			if cur, ok := c.conflicts[con.Name]; ok {
				c.conflicts[con.Name] = cur.Union(con.Version)
			} else {
				c.conflicts[con.Name] = con.Version
			}
		}
	}

	target := c.packages[p.Name()]
	for _, reason := range reasons {
		eff, err := c.graph.Insert(reason, target)
		if err != nil {
			return nil, false
		}
		if eff.Cycle != nil {
			cycles = append(cycles, eff.Cycle)
		}
	}
	return cycles, true
}

// Union merges two partial solutions, or reports incompatibility.
// Packages merge one-per-name; provides aggregate by union, conflicts by
// intersection (the surviving conflict range is what both sides agree
// on); graphs merge node- and edge-wise.
func (c *Context) Union(other *Context) (*Context, bool) {
	for _, p := range other.packages {
		if !c.IsCompatible(p) {
			return nil, false
		}
	}

	next := c.Clone()
	for k, p := range other.packages {
		if cur, ok := next.packages[k]; ok {
			if !cur.Version().Equal(p.Version()) {
				return nil, false
			}
			continue
		}
		next.packages[k] = p
	}
	if err := next.graph.Merge(other.graph); err != nil {
		return nil, false
	}
	for k, v := range other.provides {
		if cur, ok := next.provides[k]; ok {
			next.provides[k] = cur.Union(v)
		} else {
			next.provides[k] = v
		}
	}
	for k, v := range other.conflicts {
		if cur, ok := next.conflicts[k]; ok {
			next.conflicts[k] = cur.Intersect(v)
		} else {
			next.conflicts[k] = v
		}
	}
	return next, true
}

// StronglyConnectedComponents is the planner's view of the final graph:
// dependency groups leaves first, so each group is listed only after
// everything it depends on.
func (c *Context) StronglyConnectedComponents() [][]Package {
	return c.graph.StronglyConnectedComponents(false)
}

// Graph exposes the underlying SCC graph (read-only by convention).
func (c *Context) Graph() *SCCGraph {
	return c.graph
}
