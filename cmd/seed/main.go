package main

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/fitscore/internal/seed"
	"github.com/okian/fitscore/pkg/logger"
)

// Default configuration constants.
const (
	defaultCount       = 100
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultVisibility  = 30 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	if err := newSeedCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newSeedCmd() *cobra.Command {
	cfg := &seed.Config{}
	var verbose bool

	cmd := &cobra.Command{
		Use:          "seed",
		Short:        "Submit generated evaluations to a running fitscore server and verify the roster",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.Init(); err != nil {
				return err
			}
			if verbose {
				_ = logger.SetLevelString("debug")
			}
			cfg.Verbose = verbose

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithTimeout(ctx, defaultTestTimeout)
			defer cancel()

			_, err := seed.Run(ctx, cfg, logger.Get())
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", "http://localhost:9080", "Base URL of the service")
	f.IntVar(&cfg.Count, "count", defaultCount, "Number of evaluations to submit")
	f.IntVar(&cfg.Workers, "workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent submitters")
	f.DurationVar(&cfg.Timeout, "timeout", defaultTimeout, "HTTP request timeout")
	f.DurationVar(&cfg.Visibility, "visibility", defaultVisibility, "How long to wait for records to appear in the roster")
	f.BoolVarP(&verbose, "verbose", "v", false, "Log every submission")
	return cmd
}
