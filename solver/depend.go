package solver

import "strings"

// A Depend is a requirement on some provider: a name plus an admissible
// version set.
type Depend struct {
	Name    string
	Version DependVersion
}

// NewDepend returns an unconstrained depend on name.
func NewDepend(name string) Depend {
	return Depend{Name: name, Version: AnyVersion()}
}

// DependOnPackage returns the exact depend a package fulfills by itself.
func DependOnPackage(p Package) Depend {
	return Depend{Name: p.Name(), Version: ExactlyVersion(p.Version())}
}

// ParseDepend parses the depend syntax: a bare name, or a name followed by
// one of ">=", "<=", ">", "<", "=" and a version. The two-character
// operators must be tried before their one-character prefixes.
func ParseDepend(s string) Depend {
	for _, op := range []struct {
		sep  string
		mk   func(Version) DependVersion
	}{
		{">=", AtLeastVersion},
		{"<=", AtMostVersion},
		{">", GreaterVersion},
		{"<", LessVersion},
		{"=", ExactlyVersion},
	} {
		if name, ver, found := strings.Cut(s, op.sep); found {
			return Depend{Name: name, Version: op.mk(Version(ver))}
		}
	}
	return NewDepend(s)
}

// SatisfiedBy reports whether candidate fulfills the depend, either by its
// own identity or through one of its provides.
func (d Depend) SatisfiedBy(candidate Package) bool {
	if candidate.Name() == d.Name && d.Version.SatisfiedBy(candidate.Version()) {
		return true
	}
	for _, pr := range candidate.Provides() {
		if pr.Name == d.Name && d.Version.Contains(pr.Version) {
			return true
		}
	}
	return false
}

// Split returns the depend broken into one-sided constraints, for display
// in a syntax without two-sided ranges.
func (d Depend) Split() []Depend {
	vers := d.Version.Split()
	out := make([]Depend, 0, len(vers))
	for _, v := range vers {
		out = append(out, Depend{Name: d.Name, Version: v})
	}
	return out
}

func (d Depend) String() string {
	if d.Version.IsAny() {
		return d.Name
	}
	switch split := d.Split(); len(split) {
	case 1:
		return d.Name + split[0].Version.String()
	case 2:
		return d.Name + split[0].Version.String() + " and " + d.Name + split[1].Version.String()
	default:
		return d.Name + " " + d.Version.String()
	}
}

// key is the memoization identity of a depend: its rendered form, which
// folds vercmp-equal constraints expressed identically.
func (d Depend) key() string {
	return d.String()
}
