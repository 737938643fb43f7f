package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kdimtricp/speechguard/internal/janitor"
	"github.com/kdimtricp/speechguard/internal/storage"
)

func newSweepCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove expired results and orphaned uploads once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			store, err := ctx.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			removedResults, err := store.Sweep(cmd.Context(), cfg.ResultTTL())
			if err != nil {
				return fmt.Errorf("sweep results: %w", err)
			}

			ls, err := storage.NewLocalStorage(cfg.UploadDir, ctx.logger)
			if err != nil {
				return err
			}
			j, err := janitor.New(ls, cfg.TempMaxAgeDuration(), cfg.JanitorSchedule, ctx.logger)
			if err != nil {
				return err
			}
			removedUploads := j.RunOnce()

			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired result(s) and %d orphaned upload(s)\n", removedResults, removedUploads)
			return nil
		},
	}
}
