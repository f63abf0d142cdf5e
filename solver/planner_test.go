package solver

import (
	"strings"
	"testing"
)

func planStrings(t *testing.T, actions []PlanAction) []string {
	t.Helper()
	out := make([]string, 0, len(actions))
	for _, a := range actions {
		out = append(out, a.String())
	}
	return out
}

func findAction(list []string, want string) int {
	for i, s := range list {
		if s == want {
			return i
		}
	}
	return -1
}

// Scenario: a source package whose run-time deps split half binary, half
// source, with binary make-deps. The source deps are built and installed
// before the root builds; binary make-deps install after the source
// section; the root's build precedes the copy of its artifact.
func TestPlanMixedDependencies(t *testing.T) {
	root := withMakeDepends(mks("app@1.0-1", "libbin", "libsrc"), "maketool")

	binary := repoOf(mkb("libbin@1.0-1"), mkb("maketool@1.0-1"))
	source := repoOf(root, mks("libsrc@1.0-1"))
	local := NewEmptyRepository()

	b := NewPlanBuilder(binary, source, local)
	if err := b.AddPackage(ParseDepend("app")); err != nil {
		t.Fatal(err)
	}
	plan, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	got := planStrings(t, plan)

	buildSrc := findAction(got, "Build(libsrc 1.0-1)")
	installSrc := findAction(got, "Install(libsrc 1.0-1)")
	makeGroup := findAction(got, "InstallGroup(maketool 1.0-1)")
	buildApp := findAction(got, "Build(app 1.0-1)")
	copyApp := findAction(got, "CopyToDest(app 1.0-1)")

	for name, idx := range map[string]int{
		"Build(libsrc)":        buildSrc,
		"Install(libsrc)":      installSrc,
		"InstallGroup(maketool)": makeGroup,
		"Build(app)":           buildApp,
		"CopyToDest(app)":      copyApp,
	} {
		if idx < 0 {
			t.Fatalf("plan lacks %s: %v", name, got)
		}
	}

	if !(buildSrc < installSrc) {
		t.Errorf("libsrc must build before it installs: %v", got)
	}
	if !(installSrc < buildApp) {
		t.Errorf("the source dep must be in place before the root builds: %v", got)
	}
	if !(installSrc < makeGroup) {
		t.Errorf("binary make-deps belong after the source section: %v", got)
	}
	if !(makeGroup < buildApp) {
		t.Errorf("make-deps must be in place before the root builds: %v", got)
	}
	if !(buildApp < copyApp) {
		t.Errorf("the artifact copies only after its build: %v", got)
	}

	// The source dep is a root of its own: its artifact gets published.
	if findAction(got, "CopyToDest(libsrc 1.0-1)") < 0 {
		t.Errorf("source deps should be planned as roots too: %v", got)
	}
	// But built exactly once.
	builds := 0
	for _, s := range got {
		if strings.HasPrefix(s, "Build(libsrc") {
			builds++
		}
	}
	if builds != 1 {
		t.Errorf("libsrc built %d times, want once: %v", builds, got)
	}
}

// A binary-only request plans nothing: the binary repo can serve it
// without this tool's help.
func TestPlanBinaryRequestIsNoop(t *testing.T) {
	binary := repoOf(mkb("plain@1.0-1"))
	b := NewPlanBuilder(binary, NewEmptyRepository(), NewEmptyRepository())
	if err := b.AddPackage(ParseDepend("plain")); err != nil {
		t.Fatal(err)
	}
	plan, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	if len(plan) != 0 {
		t.Errorf("expected an empty plan, got %v", planStrings(t, plan))
	}
}

// Make-deps the local repository already carries produce no actions.
func TestPlanSkipsInstalledMakeDeps(t *testing.T) {
	root := withMakeDepends(mks("app@1.0-1"), "maketool")
	binary := repoOf(mkb("maketool@1.0-1"))
	source := repoOf(root)
	local := repoOf(mkb("maketool@1.0-1"))

	b := NewPlanBuilder(binary, source, local)
	if err := b.AddPackage(ParseDepend("app")); err != nil {
		t.Fatal(err)
	}
	plan, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	got := planStrings(t, plan)
	if findAction(got, "InstallGroup(maketool 1.0-1)") >= 0 {
		t.Errorf("installed make-dep should produce no action: %v", got)
	}
	if findAction(got, "Build(app 1.0-1)") != 0 || findAction(got, "CopyToDest(app 1.0-1)") != 1 {
		t.Errorf("expected just the root's build and copy, got %v", got)
	}
}

// A missing dependency surfaces annotated with the root being planned.
func TestPlanMissingDependency(t *testing.T) {
	root := mks("app@1.0-1", "ghost")
	b := NewPlanBuilder(NewEmptyRepository(), repoOf(root), NewEmptyRepository())
	if err := b.AddPackage(ParseDepend("app")); err != nil {
		t.Fatal(err)
	}
	_, err := b.Build()
	if err == nil {
		t.Fatal("expected a missing-dependency failure")
	}
	if !strings.Contains(err.Error(), "app") {
		t.Errorf("error should name the root being planned: %s", err)
	}
	if !strings.Contains(err.Error(), "ghost") {
		t.Errorf("error should name the missing dependency: %s", err)
	}
}
