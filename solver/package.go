package solver

import (
	"fmt"
	"sort"
	"strings"
)

// A Package is a uniform read view over the three package variants: a
// prebuilt entry from a binary repository's signed database, a recipe from
// the source catalog, or an on-disk recipe under the user's control. The
// planner inspects the variant to decide between "install" and "build".
//
// Packages are immutable once materialized; identity (equality, hashing)
// is (name, version).
type Package interface {
	fmt.Stringer

	Name() string
	Version() Version
	Description() string
	URL() string

	Depends() []Depend
	MakeDepends() []Depend
	Conflicts() []Depend
	Provides() []Depend
	Replaces() []Depend

	// typeMagic pins the set of variants, in the manner of a sealed sum
	// type.
	typeMagic()
}

func (BinaryPackage) typeMagic() {}
func (SourcePackage) typeMagic() {}
func (LocalRecipe) typeMagic()   {}

// PackageBase carries the attributes every variant shares.
type PackageBase struct {
	PkgName    string
	PkgVersion Version
	PkgDesc    string
	PkgURL     string

	PkgDepends     []Depend
	PkgMakeDepends []Depend
	PkgConflicts   []Depend
	PkgProvides    []Depend
	PkgReplaces    []Depend
}

func (p PackageBase) Name() string           { return p.PkgName }
func (p PackageBase) Version() Version       { return p.PkgVersion }
func (p PackageBase) Description() string    { return p.PkgDesc }
func (p PackageBase) URL() string            { return p.PkgURL }
func (p PackageBase) Depends() []Depend      { return p.PkgDepends }
func (p PackageBase) MakeDepends() []Depend  { return p.PkgMakeDepends }
func (p PackageBase) Conflicts() []Depend    { return p.PkgConflicts }
func (p PackageBase) Provides() []Depend     { return p.PkgProvides }
func (p PackageBase) Replaces() []Depend     { return p.PkgReplaces }

// BinaryPackage is a prebuilt artifact described by a binary repository's
// database entry.
type BinaryPackage struct {
	PackageBase

	// Binary-repo metadata beyond the shared surface.
	Repository    string
	Architecture  string
	Filename      string
	PackagedSize  int64
	InstalledSize int64
	Packager      string
	BuildDate     int64
}

func (p BinaryPackage) String() string {
	return fmt.Sprintf("[binary] %s %s", p.PkgName, p.PkgVersion)
}

// SourcePackage is a build recipe from the remote source catalog.
type SourcePackage struct {
	PackageBase

	PackageBaseName string
	Maintainer      string
	Popularity      float64
	OutOfDate       bool
}

func (p SourcePackage) String() string {
	return fmt.Sprintf("[source] %s %s", p.PkgName, p.PkgVersion)
}

// LocalRecipe is an on-disk recipe under the user's control.
type LocalRecipe struct {
	PackageBase

	// Dir is the directory holding the recipe.
	Dir string
}

func (p LocalRecipe) String() string {
	return fmt.Sprintf("[local] %s %s", p.PkgName, p.PkgVersion)
}

// IsSourceBuilt reports whether the package must be built before it can be
// installed.
func IsSourceBuilt(p Package) bool {
	switch p.(type) {
	case SourcePackage, LocalRecipe:
		return true
	default:
		return false
	}
}

// PkgEqual is (name, version) identity with vercmp version equality.
func PkgEqual(a, b Package) bool {
	return a.Name() == b.Name() && a.Version().Equal(b.Version())
}

// pkgKey is the hash identity of a package. Versions hash by raw string.
func pkgKey(p Package) string {
	return p.Name() + "\x00" + string(p.Version())
}

// variantRank orders package kinds under equal name and version: binary
// entries beat source recipes, which tie with local recipes.
func variantRank(p Package) int {
	if _, ok := p.(BinaryPackage); ok {
		return 1
	}
	return 0
}

// ComparePackages is the candidate-ranking partial order for packages of
// equal name: newer versions first, then Binary over Source/LocalRecipe,
// then fewer depends. Ties resolve on name and raw version strings so that
// the order is total and independent of sort stability.
func ComparePackages(a, b Package) int {
	if c := a.Version().Compare(b.Version()); c != 0 {
		return c
	}
	if c := variantRank(a) - variantRank(b); c != 0 {
		return c
	}
	// Fewer depends ranks higher.
	if c := len(b.Depends()) - len(a.Depends()); c != 0 {
		return c
	}
	if c := strings.Compare(b.Name(), a.Name()); c != 0 {
		return c
	}
	return strings.Compare(string(b.Version()), string(a.Version()))
}

// sortCandidates orders a find_package result list: exact-name matches for
// the demanded name first, then best-first by ComparePackages.
func sortCandidates(pkgs []Package, demanded string) {
	sort.SliceStable(pkgs, func(i, j int) bool {
		a, b := pkgs[i], pkgs[j]
		ae, be := a.Name() == demanded, b.Name() == demanded
		if ae != be {
			return ae
		}
		return ComparePackages(a, b) > 0
	})
}
