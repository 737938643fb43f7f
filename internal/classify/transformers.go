package classify

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"

	"github.com/kdimtricp/speechguard/internal/logging"
	"github.com/kdimtricp/speechguard/internal/models"
	"github.com/kdimtricp/speechguard/internal/pyworker"
)

//go:embed assets/transformers_classify.py
var transformersScript []byte

// Transformers runs the model locally through the python transformers
// package, in a helper process that loads the model once.
type Transformers struct {
	model  string
	worker *pyworker.Worker
	logger *slog.Logger
}

func NewTransformers(python, model, cacheDir string, logger *slog.Logger) *Transformers {
	args := []string{"--model", model}
	if cacheDir != "" {
		args = append(args, "--cache-dir", cacheDir)
	}
	return &Transformers{
		model:  model,
		worker: pyworker.New(python, transformersScript, args, logger),
		logger: logging.NewComponentLogger(logger, "classify"),
	}
}

// WithLauncher sets a custom process launcher (for testing).
func (t *Transformers) WithLauncher(launch pyworker.Launcher) *Transformers {
	t.worker.WithLauncher(launch)
	return t
}

// Start launches the helper so the model loads before the first request.
func (t *Transformers) Start() error {
	return t.worker.Start()
}

type transformersRequest struct {
	Texts []string `json:"texts"`
}

type transformersResponse struct {
	Predictions []labelScore `json:"predictions"`
}

func (t *Transformers) Classify(ctx context.Context, texts []string) ([]models.Prediction, error) {
	if len(texts) == 0 {
		return []models.Prediction{}, nil
	}

	var resp transformersResponse
	if err := t.worker.Call(ctx, transformersRequest{Texts: texts}, &resp); err != nil {
		return nil, fmt.Errorf("transformers classifier failed: %w", err)
	}

	preds := make([]models.Prediction, len(resp.Predictions))
	for i, s := range resp.Predictions {
		pred, err := argmax([]labelScore{s})
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
		preds[i] = pred
	}

	t.logger.Debug("classification completed",
		logging.String("model", t.model),
		logging.Int("texts", len(texts)))

	return preds, nil
}

// Close stops the helper process.
func (t *Transformers) Close() error {
	return t.worker.Close()
}
