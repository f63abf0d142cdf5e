// Command archer plans build-and-install actions for packages that come
// from the source catalog or local recipes.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/PhotonQuantum/archer"
	"github.com/PhotonQuantum/archer/solver"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("archer", flag.ContinueOnError)
	confPath := fs.String("config", "", "pacman configuration path")
	recipeDir := fs.String("recipes", "", "directory of local recipes")
	catalog := fs.String("catalog", "", "source catalog RPC endpoint")
	verbose := fs.Bool("v", false, "verbose logging")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: archer [flags] <package>...")
		return 2
	}

	log := logrus.New()
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	conf, err := archer.LoadConf(*confPath)
	if err != nil {
		log.WithError(err).Error("failed to load configuration")
		return 1
	}
	log.WithFields(logrus.Fields{
		"config":  conf.Path(),
		"syncdbs": len(conf.SyncDBs()),
	}).Debug("configuration loaded")

	sourceRepo := solver.Repository(solver.NewSourceRepository(context.Background(), *catalog))
	if *recipeDir != "" {
		local, err := solver.NewLocalRecipeRepository(*recipeDir)
		if err != nil {
			log.WithError(err).Error("failed to scan recipe directory")
			return 1
		}
		sourceRepo = solver.NewMergedRepository([]solver.Repository{local, sourceRepo})
	}

	// The binary and installed databases come from the host's DB
	// binding; without one, planning still works against the catalog
	// alone.
	binaryRepo := solver.Repository(solver.NewEmptyRepository())
	localRepo := solver.Repository(solver.NewEmptyRepository())

	builder := solver.NewPlanBuilder(binaryRepo, sourceRepo, localRepo)
	for _, name := range fs.Args() {
		if err := builder.AddPackage(solver.ParseDepend(name)); err != nil {
			log.WithError(err).WithField("package", name).Error("failed to add request")
			return 1
		}
	}

	plan, err := builder.Build()
	if err != nil {
		log.WithError(err).Error("planning failed")
		return 1
	}

	if len(plan) == 0 {
		log.Info("nothing to do")
		return 0
	}
	for _, action := range plan {
		fmt.Println(action)
	}
	return 0
}
