package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/fitscore/internal/adapters/repository"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations to the configured SQL store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, log, err := setup(ctx)
			if err != nil {
				return err
			}
			sc, err := repository.ParseConfig(cfg.StoreConfig)
			if err != nil {
				return err
			}
			if sc.Driver == repository.DriverMemory {
				return fmt.Errorf("%w: the memory store has no schema", repository.ErrUnsupportedDriver)
			}
			// OpenSQL applies pending migrations.
			s, err := repository.OpenSQL(ctx, sc.Driver, sc.DSN, repository.WithLogger(log.Named("store")))
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			v, err := s.Version(ctx)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s schema at version %d\n", sc.Driver, v)
			return err
		},
	}
}
