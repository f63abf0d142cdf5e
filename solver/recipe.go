package solver

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/vcs"
	"github.com/karrick/godirwalk"
	"github.com/pkg/errors"
)

// recipeMetaFile is the machine-readable metadata sidecar of a recipe.
// Only this file is read; the recipe script itself is never interpreted
// here.
const recipeMetaFile = ".SRCINFO"

// ParseRecipeMeta reads the key = value metadata format of a recipe: one
// pair per line, '#' comments, a pkgbase/pkgname header followed by
// attribute lines. Unknown keys are ignored.
func ParseRecipeMeta(path string) (LocalRecipe, error) {
	f, err := os.Open(path)
	if err != nil {
		return LocalRecipe{}, errors.Wrapf(err, "failed to open recipe metadata %s", path)
	}
	defer f.Close()

	recipe := LocalRecipe{Dir: filepath.Dir(path)}
	var epoch, pkgver, pkgrel string

	sc := bufio.NewScanner(f)
	lineno := 0
	for sc.Scan() {
		lineno++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			return LocalRecipe{}, &ParseError{
				What: path,
				Err:  errors.Errorf("line %d: expected key = value, got %q", lineno, line),
			}
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "pkgbase":
			if recipe.PkgName == "" {
				recipe.PkgName = value
			}
		case "pkgname":
			recipe.PkgName = value
		case "pkgdesc":
			recipe.PkgDesc = value
		case "url":
			recipe.PkgURL = value
		case "epoch":
			epoch = value
		case "pkgver":
			pkgver = value
		case "pkgrel":
			pkgrel = value
		case "depends":
			recipe.PkgDepends = append(recipe.PkgDepends, ParseDepend(value))
		case "makedepends":
			recipe.PkgMakeDepends = append(recipe.PkgMakeDepends, ParseDepend(value))
		case "conflicts":
			recipe.PkgConflicts = append(recipe.PkgConflicts, ParseDepend(value))
		case "provides":
			recipe.PkgProvides = append(recipe.PkgProvides, ParseDepend(value))
		case "replaces":
			recipe.PkgReplaces = append(recipe.PkgReplaces, ParseDepend(value))
		}
	}
	if err := sc.Err(); err != nil {
		return LocalRecipe{}, errors.Wrapf(err, "failed to read %s", path)
	}
	if recipe.PkgName == "" || pkgver == "" {
		return LocalRecipe{}, &ParseError{
			What: path,
			Err:  errors.New("recipe metadata lacks pkgname or pkgver"),
		}
	}

	full := pkgver
	if epoch != "" && epoch != "0" {
		full = epoch + ":" + full
	}
	if pkgrel != "" {
		full = full + "-" + pkgrel
	}
	recipe.PkgVersion = Version(full)
	return recipe, nil
}

// ScanRecipeDir walks root and parses every recipe metadata file found,
// one recipe per directory.
func ScanRecipeDir(root string) ([]LocalRecipe, error) {
	var recipes []LocalRecipe
	err := godirwalk.Walk(root, &godirwalk.Options{
		Unsorted: false,
		Callback: func(path string, de *godirwalk.Dirent) error {
			if de.IsDir() || de.Name() != recipeMetaFile {
				return nil
			}
			recipe, err := ParseRecipeMeta(path)
			if err != nil {
				return err
			}
			recipes = append(recipes, recipe)
			return nil
		},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to scan recipe directory %s", root)
	}
	return recipes, nil
}

// NewLocalRecipeRepository scans root and serves the recipes found there
// as an in-memory repository.
func NewLocalRecipeRepository(root string) (*CustomRepository, error) {
	recipes, err := ScanRecipeDir(root)
	if err != nil {
		return nil, err
	}
	pkgs := make([]Package, 0, len(recipes))
	for _, r := range recipes {
		pkgs = append(pkgs, r)
	}
	return NewCustomRepository(pkgs), nil
}

// DefaultRecipeRemote derives the catalog's VCS URL for a source package.
func DefaultRecipeRemote(p SourcePackage) string {
	base := p.PackageBaseName
	if base == "" {
		base = p.PkgName
	}
	return "https://aur.archlinux.org/" + base + ".git"
}

// CheckoutRecipe materializes the build recipe of a source package into
// workdir: a fresh clone when the directory is empty, an update when a
// previous checkout is already there. It returns the recipe directory.
func CheckoutRecipe(p SourcePackage, workdir string) (string, error) {
	remote := DefaultRecipeRemote(p)
	local := filepath.Join(workdir, p.PkgName)

	repo, err := vcs.NewRepo(remote, local)
	if err != nil {
		return "", errors.Wrapf(err, "failed to set up recipe checkout for %s", p.PkgName)
	}
	if repo.CheckLocal() {
		if err := repo.Update(); err != nil {
			return "", errors.Wrapf(err, "failed to update recipe checkout for %s", p.PkgName)
		}
		return local, nil
	}
	if err := repo.Get(); err != nil {
		return "", errors.Wrapf(err, "failed to clone recipe for %s", p.PkgName)
	}
	return local, nil
}
