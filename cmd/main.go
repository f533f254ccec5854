package main

import (
	"os"

	"github.com/spf13/cobra"
)

const app = "fitscore"

// Actual version can be specified in build command.
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	serve := newServeCmd()
	root := &cobra.Command{
		Use:          app,
		Short:        "fitscore evaluates candidates on a ten-item questionnaire and lists them live",
		Version:      version,
		SilenceUsage: true,
		// Running the bare binary starts the server.
		RunE: serve.RunE,
	}
	root.AddCommand(serve, newMigrateCmd(), newScoreCmd())
	return root
}
