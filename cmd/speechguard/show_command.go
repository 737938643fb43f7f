package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kdimtricp/speechguard/internal/models"
	"github.com/kdimtricp/speechguard/internal/results"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <video_id>",
		Short: "Display a stored analysis result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			raw, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				if errors.Is(err, results.ErrNotFound) {
					return fmt.Errorf("no result for %s (missing or expired)", args[0])
				}
				return err
			}

			if jsonOutput {
				_, err := cmd.OutOrStdout().Write(append(raw, '\n'))
				return err
			}

			var result models.AnalysisResult
			if err := json.Unmarshal(raw, &result); err != nil {
				return fmt.Errorf("decode stored result: %w", err)
			}
			renderResult(cmd.OutOrStdout(), &result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the stored JSON record verbatim")
	return cmd
}
