package solver

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleSrcinfo = `pkgbase = yay
pkgname = yay
pkgdesc = Yet another yogurt
url = https://github.com/Jguer/yay
pkgver = 10.2.0
pkgrel = 1
epoch = 0
depends = pacman>5
depends = git
makedepends = go
provides = yay
conflicts = yay-bin
`

func writeRecipe(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, recipeMetaFile)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseRecipeMeta(t *testing.T) {
	path := writeRecipe(t, t.TempDir(), sampleSrcinfo)

	recipe, err := ParseRecipeMeta(path)
	if err != nil {
		t.Fatal(err)
	}
	if recipe.Name() != "yay" {
		t.Errorf("name = %q", recipe.Name())
	}
	if !recipe.Version().Equal("10.2.0-1") {
		t.Errorf("version = %q, want 10.2.0-1", recipe.Version())
	}
	if len(recipe.Depends()) != 2 || recipe.Depends()[0].String() != "pacman>5" {
		t.Errorf("depends = %v", recipe.Depends())
	}
	if len(recipe.MakeDepends()) != 1 || recipe.MakeDepends()[0].Name != "go" {
		t.Errorf("make-depends = %v", recipe.MakeDepends())
	}
	if len(recipe.Conflicts()) != 1 || recipe.Conflicts()[0].Name != "yay-bin" {
		t.Errorf("conflicts = %v", recipe.Conflicts())
	}
	if recipe.Dir != filepath.Dir(path) {
		t.Errorf("recipe dir = %q", recipe.Dir)
	}
}

func TestParseRecipeMetaRejectsGarbage(t *testing.T) {
	path := writeRecipe(t, t.TempDir(), "pkgname = x\nnot a pair\n")
	if _, err := ParseRecipeMeta(path); err == nil {
		t.Error("expected a parse failure")
	}

	path = writeRecipe(t, t.TempDir(), "pkgdesc = no name or version\n")
	if _, err := ParseRecipeMeta(path); err == nil {
		t.Error("expected a failure for missing pkgname/pkgver")
	}
}

func TestScanRecipeDir(t *testing.T) {
	root := t.TempDir()
	for _, sub := range []string{"one", "two"} {
		dir := filepath.Join(root, sub)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		writeRecipe(t, dir, "pkgname = "+sub+"\npkgver = 1.0\npkgrel = 1\n")
	}

	repo, err := NewLocalRecipeRepository(root)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"one", "two"} {
		pkgs, err := repo.FindPackage(ParseDepend(name))
		if err != nil {
			t.Fatal(err)
		}
		if len(pkgs) != 1 {
			t.Fatalf("expected recipe %q indexed, got %v", name, pkgs)
		}
		if _, ok := pkgs[0].(LocalRecipe); !ok {
			t.Errorf("scanned recipe has variant %T", pkgs[0])
		}
	}
}
