package solver

import (
	"fmt"
	"sort"
	"strings"
)

// A DependVersion is a set of versions, kept as a normalized union of
// intervals over the vercmp order: intervals are sorted, disjoint and
// non-touching. The zero value is the empty set.
//
// All operations are pure; none mutate the receiver.
type DependVersion struct {
	ivs []interval
}

// A bound is one end of an interval. inf means the bound is absent
// (-inf for a low bound, +inf for a high bound); incl is meaningless
// when inf is set.
type bound struct {
	v    Version
	incl bool
	inf  bool
}

type interval struct {
	lo, hi bound
}

var (
	fullInterval = interval{lo: bound{inf: true}, hi: bound{inf: true}}
)

// Constructors for the primitive constraint forms.

// AnyVersion matches every version.
func AnyVersion() DependVersion {
	return DependVersion{ivs: []interval{fullInterval}}
}

// NoVersion matches nothing.
func NoVersion() DependVersion {
	return DependVersion{}
}

// ExactlyVersion is the "= v" constraint.
func ExactlyVersion(v Version) DependVersion {
	return DependVersion{ivs: []interval{{
		lo: bound{v: v, incl: true},
		hi: bound{v: v, incl: true},
	}}}
}

// AtLeastVersion is the ">= v" constraint.
func AtLeastVersion(v Version) DependVersion {
	return DependVersion{ivs: []interval{{
		lo: bound{v: v, incl: true},
		hi: bound{inf: true},
	}}}
}

// GreaterVersion is the "> v" constraint.
func GreaterVersion(v Version) DependVersion {
	return DependVersion{ivs: []interval{{
		lo: bound{v: v},
		hi: bound{inf: true},
	}}}
}

// AtMostVersion is the "<= v" constraint.
func AtMostVersion(v Version) DependVersion {
	return DependVersion{ivs: []interval{{
		lo: bound{inf: true},
		hi: bound{v: v, incl: true},
	}}}
}

// LessVersion is the "< v" constraint.
func LessVersion(v Version) DependVersion {
	return DependVersion{ivs: []interval{{
		lo: bound{inf: true},
		hi: bound{v: v},
	}}}
}

// cmpLo orders low bounds: -inf first; equal versions order inclusive
// before exclusive (the inclusive bound admits more).
func cmpLo(a, b bound) int {
	switch {
	case a.inf && b.inf:
		return 0
	case a.inf:
		return -1
	case b.inf:
		return 1
	}
	if c := a.v.Compare(b.v); c != 0 {
		return c
	}
	switch {
	case a.incl == b.incl:
		return 0
	case a.incl:
		return -1
	default:
		return 1
	}
}

// cmpHi orders high bounds: +inf last; equal versions order exclusive
// before inclusive.
func cmpHi(a, b bound) int {
	switch {
	case a.inf && b.inf:
		return 0
	case a.inf:
		return 1
	case b.inf:
		return -1
	}
	if c := a.v.Compare(b.v); c != 0 {
		return c
	}
	switch {
	case a.incl == b.incl:
		return 0
	case a.incl:
		return 1
	default:
		return -1
	}
}

// empty reports whether the interval admits no version.
func (iv interval) empty() bool {
	if iv.lo.inf || iv.hi.inf {
		return false
	}
	c := iv.lo.v.Compare(iv.hi.v)
	if c > 0 {
		return true
	}
	if c == 0 {
		return !(iv.lo.incl && iv.hi.incl)
	}
	return false
}

func (iv interval) contains(v Version) bool {
	if !iv.lo.inf {
		c := v.Compare(iv.lo.v)
		if c < 0 || (c == 0 && !iv.lo.incl) {
			return false
		}
	}
	if !iv.hi.inf {
		c := v.Compare(iv.hi.v)
		if c > 0 || (c == 0 && !iv.hi.incl) {
			return false
		}
	}
	return true
}

// overlapsOrTouches reports whether a and b form a contiguous region.
// Touching means the high bound of one meets the low bound of the other
// with at least one side inclusive.
func (a interval) overlapsOrTouches(b interval) bool {
	if a.intersect(b) != nil {
		return true
	}
	touch := func(hi, lo bound) bool {
		if hi.inf || lo.inf {
			return false
		}
		return hi.v.Compare(lo.v) == 0 && (hi.incl || lo.incl)
	}
	return touch(a.hi, b.lo) || touch(b.hi, a.lo)
}

// intersect returns the overlap of two intervals, or nil if they are
// disjoint.
func (a interval) intersect(b interval) *interval {
	lo := a.lo
	if cmpLo(b.lo, lo) > 0 {
		lo = b.lo
	}
	hi := a.hi
	if cmpHi(b.hi, hi) < 0 {
		hi = b.hi
	}
	iv := interval{lo: lo, hi: hi}
	if iv.empty() {
		return nil
	}
	return &iv
}

// hull returns the smallest interval covering both inputs. Only valid
// when the inputs overlap or touch.
func (a interval) hull(b interval) interval {
	lo := a.lo
	if cmpLo(b.lo, lo) < 0 {
		lo = b.lo
	}
	hi := a.hi
	if cmpHi(b.hi, hi) > 0 {
		hi = b.hi
	}
	return interval{lo: lo, hi: hi}
}

// normalize sorts intervals, drops empty ones and merges contiguous
// regions.
func normalize(ivs []interval) []interval {
	live := ivs[:0:0]
	for _, iv := range ivs {
		if !iv.empty() {
			live = append(live, iv)
		}
	}
	if len(live) == 0 {
		return nil
	}
	sort.SliceStable(live, func(i, j int) bool {
		return cmpLo(live[i].lo, live[j].lo) < 0
	})

	out := []interval{live[0]}
	for _, iv := range live[1:] {
		last := &out[len(out)-1]
		if last.overlapsOrTouches(iv) {
			*last = last.hull(iv)
		} else {
			out = append(out, iv)
		}
	}
	return out
}

// IsEmpty reports whether the set admits no version.
func (d DependVersion) IsEmpty() bool {
	return len(d.ivs) == 0
}

// IsAny reports whether the set admits every version.
func (d DependVersion) IsAny() bool {
	return len(d.ivs) == 1 && d.ivs[0].lo.inf && d.ivs[0].hi.inf
}

// SatisfiedBy reports whether v lies in the set.
func (d DependVersion) SatisfiedBy(v Version) bool {
	for _, iv := range d.ivs {
		if iv.contains(v) {
			return true
		}
	}
	return false
}

// Union returns the set of versions in either input.
func (d DependVersion) Union(other DependVersion) DependVersion {
	merged := make([]interval, 0, len(d.ivs)+len(other.ivs))
	merged = append(merged, d.ivs...)
	merged = append(merged, other.ivs...)
	return DependVersion{ivs: normalize(merged)}
}

// Intersect returns the set of versions in both inputs.
func (d DependVersion) Intersect(other DependVersion) DependVersion {
	var out []interval
	for _, a := range d.ivs {
		for _, b := range other.ivs {
			if iv := a.intersect(b); iv != nil {
				out = append(out, *iv)
			}
		}
	}
	return DependVersion{ivs: normalize(out)}
}

// Complement returns the set of versions not in d.
func (d DependVersion) Complement() DependVersion {
	if d.IsEmpty() {
		return AnyVersion()
	}

	var out []interval
	// Region below the first interval, gaps between intervals, region
	// above the last. An inclusive bound flips to exclusive and vice
	// versa.
	first := d.ivs[0]
	if !first.lo.inf {
		out = append(out, interval{
			lo: bound{inf: true},
			hi: bound{v: first.lo.v, incl: !first.lo.incl},
		})
	}
	for i := 0; i+1 < len(d.ivs); i++ {
		hi, lo := d.ivs[i].hi, d.ivs[i+1].lo
		out = append(out, interval{
			lo: bound{v: hi.v, incl: !hi.incl},
			hi: bound{v: lo.v, incl: !lo.incl},
		})
	}
	last := d.ivs[len(d.ivs)-1]
	if !last.hi.inf {
		out = append(out, interval{
			lo: bound{v: last.hi.v, incl: !last.hi.incl},
			hi: bound{inf: true},
		})
	}
	return DependVersion{ivs: normalize(out)}
}

// Contains reports whether other is a subset of d.
func (d DependVersion) Contains(other DependVersion) bool {
	return d.Intersect(other).Equal(other)
}

// Equal reports set equality. Bound versions compare with vercmp, so two
// textually different but vercmp-equal ranges are equal.
func (d DependVersion) Equal(other DependVersion) bool {
	if len(d.ivs) != len(other.ivs) {
		return false
	}
	for i, a := range d.ivs {
		b := other.ivs[i]
		if cmpLo(a.lo, b.lo) != 0 || cmpHi(a.hi, b.hi) != 0 {
			return false
		}
	}
	return true
}

// Split breaks a single two-sided interval into its two one-sided halves,
// for rendering in a syntax that admits only one-sided constraints. A
// one-sided or unbounded set is returned as-is; an empty or multi-interval
// set yields nothing.
func (d DependVersion) Split() []DependVersion {
	if len(d.ivs) != 1 {
		return nil
	}
	iv := d.ivs[0]
	if iv.lo.inf || iv.hi.inf || (iv.lo.incl && iv.hi.incl && iv.lo.v.Equal(iv.hi.v)) {
		return []DependVersion{d}
	}
	return []DependVersion{
		{ivs: []interval{{lo: iv.lo, hi: bound{inf: true}}}},
		{ivs: []interval{{lo: bound{inf: true}, hi: iv.hi}}},
	}
}

func (iv interval) String() string {
	switch {
	case iv.lo.inf && iv.hi.inf:
		return ""
	case iv.lo.inf:
		if iv.hi.incl {
			return fmt.Sprintf("<=%s", iv.hi.v)
		}
		return fmt.Sprintf("<%s", iv.hi.v)
	case iv.hi.inf:
		if iv.lo.incl {
			return fmt.Sprintf(">=%s", iv.lo.v)
		}
		return fmt.Sprintf(">%s", iv.lo.v)
	case iv.lo.incl && iv.hi.incl && iv.lo.v.Equal(iv.hi.v):
		return fmt.Sprintf("=%s", iv.lo.v)
	default:
		var lo, hi string
		if iv.lo.incl {
			lo = fmt.Sprintf(">=%s", iv.lo.v)
		} else {
			lo = fmt.Sprintf(">%s", iv.lo.v)
		}
		if iv.hi.incl {
			hi = fmt.Sprintf("<=%s", iv.hi.v)
		} else {
			hi = fmt.Sprintf("<%s", iv.hi.v)
		}
		return lo + " and " + hi
	}
}

// String renders the shortest textual form in the domain syntax. The full
// set renders empty (an unconstrained depend is just its name); a
// two-sided interval renders as its two one-sided constraints joined by
// "and".
func (d DependVersion) String() string {
	if d.IsEmpty() {
		return "<none>"
	}
	parts := make([]string, 0, len(d.ivs))
	for _, iv := range d.ivs {
		parts = append(parts, iv.String())
	}
	return strings.Join(parts, " or ")
}
