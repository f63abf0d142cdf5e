package solver

import (
	"fmt"
	"strings"
)

// A PlanAction is one linear instruction for the downstream executor.
type PlanAction interface {
	fmt.Stringer
	planAction()
}

func (InstallAction) planAction()      {}
func (InstallGroupAction) planAction() {}
func (BuildAction) planAction()        {}
func (CopyToDestAction) planAction()   {}

// InstallAction installs a single package.
type InstallAction struct {
	Pkg Package
}

func (a InstallAction) String() string {
	return fmt.Sprintf("Install(%s %s)", a.Pkg.Name(), a.Pkg.Version())
}

// InstallGroupAction installs a strongly-connected group of packages in
// one batch; mutually-dependent binary packages cannot be ordered, but
// batched installation handles them.
type InstallGroupAction struct {
	Pkgs []Package
}

func (a InstallGroupAction) String() string {
	parts := make([]string, 0, len(a.Pkgs))
	for _, p := range a.Pkgs {
		parts = append(parts, fmt.Sprintf("%s %s", p.Name(), p.Version()))
	}
	return fmt.Sprintf("InstallGroup(%s)", strings.Join(parts, ", "))
}

// BuildAction builds a source or local-recipe package.
type BuildAction struct {
	Pkg Package
}

func (a BuildAction) String() string {
	return fmt.Sprintf("Build(%s %s)", a.Pkg.Name(), a.Pkg.Version())
}

// CopyToDestAction moves a built artifact to its destination (local
// cache or remote publication staging).
type CopyToDestAction struct {
	Pkg Package
}

func (a CopyToDestAction) String() string {
	return fmt.Sprintf("CopyToDest(%s %s)", a.Pkg.Name(), a.Pkg.Version())
}
