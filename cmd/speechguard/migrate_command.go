package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kdimtricp/speechguard/internal/config"
	"github.com/kdimtricp/speechguard/internal/database"
	"github.com/kdimtricp/speechguard/internal/results"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the SQL result store schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.Results.Backend != config.BackendSQLite && cfg.Results.Backend != config.BackendPostgres {
				return fmt.Errorf("result store %q has no schema to migrate", cfg.Results.Backend)
			}

			db, err := database.NewDB(results.DatabaseConfig(cfg))
			if err != nil {
				return err
			}
			defer db.Close()

			applied, err := database.NewMigrator(db, ctx.logger).Run(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) to %s store\n", applied, db.Type())
			return nil
		},
	}
}
