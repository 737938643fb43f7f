package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "analyze <video>",
		Short: "Analyze a local video file and store the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := ctx.buildPipeline(cmd.Context())
			if err != nil {
				return err
			}
			defer p.Close()

			result, err := p.service.AnalyzeFile(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("analyze %s: %w", args[0], err)
			}

			if jsonOutput {
				return writeJSON(cmd, result)
			}
			renderResult(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the stored JSON record")
	return cmd
}
