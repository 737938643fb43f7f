package main

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kdimtricp/speechguard/internal/config"
)

type checkRow struct {
	component string
	setting   string
	status    string
}

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report configured backends and whether their tools are reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			rows := checkConfig(cfg, exec.LookPath)
			failed := false
			table := make([][]string, 0, len(rows))
			for _, r := range rows {
				if !strings.HasPrefix(r.status, "ok") {
					failed = true
				}
				table = append(table, []string{r.component, r.setting, r.status})
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Component", "Setting", "Status"}, table, nil, useRoundedStyle(cmd.OutOrStdout())))
			if failed {
				return errors.New("one or more checks failed")
			}
			return nil
		},
	}
}

func checkConfig(cfg *config.Config, lookPath func(string) (string, error)) []checkRow {
	binary := func(component, name string) checkRow {
		if _, err := lookPath(name); err != nil {
			return checkRow{component, name, "missing"}
		}
		return checkRow{component, name, "ok"}
	}

	rows := []checkRow{
		{"result store", cfg.Results.Backend, "ok"},
	}

	switch cfg.Transcriber.Backend {
	case config.TranscriberFasterWhisper:
		rows = append(rows, binary("transcriber (faster-whisper)", cfg.Transcriber.PythonPath))
	case config.TranscriberOpenAI:
		rows = append(rows, binary("transcriber (openai)", cfg.Transcriber.FFmpegPath))
	}

	switch cfg.Classifier.Backend {
	case config.ClassifierTransformers:
		rows = append(rows, binary("classifier (transformers)", cfg.Classifier.PythonPath))
	case config.ClassifierHuggingFace:
		status := "ok"
		if cfg.Classifier.APIToken == "" {
			status = "ok, no token"
		}
		rows = append(rows, checkRow{"classifier (huggingface)", cfg.Classifier.Model, status})
	}

	return rows
}
