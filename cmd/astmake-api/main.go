// Command astmake-api serves the run-tracking HTTP API: submit AST input
// runs, watch their stage progress, and locate the produced artifacts.
package main

import (
	"os"

	"ast-pipeline/internal/api"
	"ast-pipeline/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	flagAddr string
	flagDB   string
)

var rootCmd = &cobra.Command{
	Use:   "astmake-api",
	Short: "Serve the AST pipeline run-tracking API",
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := zap.NewProduction()
		if err != nil {
			return err
		}
		defer log.Sync()

		s, err := store.Open(flagDB)
		if err != nil {
			return err
		}
		defer s.Close()

		return api.NewRouter(s, log).Start(flagAddr)
	},
}

func init() {
	rootCmd.Flags().StringVar(&flagAddr, "addr", ":8080", "listen address")
	rootCmd.Flags().StringVar(&flagDB, "db", "astruns.db", "sqlite run-tracking database")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
