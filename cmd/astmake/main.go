// Command astmake generates the input manifest for an artificial-star-test
// campaign: it derives magnitude cuts from the observed catalog, selects a
// controlled subset of synthetic SEDs, and assigns them spatial positions.
package main

import (
	"fmt"
	"os"

	"ast-pipeline/internal/model"
	"ast-pipeline/internal/pipeline"
	"ast-pipeline/internal/store"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	flagConfig  string
	flagFluxBin int
	flagSeed    int64
	flagDB      string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "astmake",
	Short: "Generate artificial-star-test input manifests",
	Long: `astmake builds the list of artificial stars to be re-injected into
imaging and re-measured by the photometry pipeline. Runs resume from the
artifacts a previous interrupted run completed.`,
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the AST input pipeline for one project",
	RunE:  runPipeline,
}

func runPipeline(cmd *cobra.Command, args []string) error {
	// The method flag is the execution switch: without it, show help
	// instead of running.
	if !cmd.Flags().Changed("flux-bin-method") {
		return cmd.Help()
	}

	cfg, err := model.LoadConfig(flagConfig)
	if err != nil {
		return err
	}
	if flagFluxBin != 0 {
		cfg.AST.SelectionMethod = model.MethodStratified
	} else {
		cfg.AST.SelectionMethod = model.MethodRandom
	}
	if flagSeed != 0 {
		cfg.AST.Seed = flagSeed
	}

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	opts := []pipeline.Option{}
	runID := uuid.New().String()
	if flagDB != "" {
		s, err := store.Open(flagDB)
		if err != nil {
			return err
		}
		defer s.Close()
		if err := s.SaveRun(runID, cfg); err != nil {
			return err
		}
		opts = append(opts, pipeline.WithTracker(store.NewTracker(s, log)))
	}

	p := pipeline.New(cfg, log, opts...)
	if err := p.Run(cmd.Context(), runID); err != nil {
		return err
	}

	fmt.Printf("AST inputs ready for project %s in %s\n", cfg.Project, p.Paths().Dir())
	return nil
}

func newLogger() (*zap.Logger, error) {
	if flagVerbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func init() {
	runCmd.Flags().StringVarP(&flagConfig, "config", "c", "", "run configuration file (json or yaml)")
	runCmd.Flags().IntVar(&flagFluxBin, "flux-bin-method", 1,
		"choose SEDs using the flux bin method (1) or randomly (0)")
	runCmd.Flags().Int64Var(&flagSeed, "seed", 0, "sampling RNG seed (0 = time-based)")
	runCmd.Flags().StringVar(&flagDB, "db", "", "optional sqlite run-tracking database")
	runCmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "verbose console logging")
	runCmd.MarkFlagRequired("config")
	rootCmd.AddCommand(runCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
