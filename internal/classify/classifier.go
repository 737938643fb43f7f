// Package classify labels text as hate or non-hate speech.
package classify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kdimtricp/speechguard/internal/config"
	"github.com/kdimtricp/speechguard/internal/models"
)

// Classifier returns exactly one prediction per input text, in input order.
type Classifier interface {
	Classify(ctx context.Context, texts []string) ([]models.Prediction, error)
}

// New builds the classifier selected in the configuration, wrapped so that
// no single backend call receives more than cfg.BatchSize texts.
func New(cfg config.ClassifierConfig, httpTimeout time.Duration, logger *slog.Logger) (Classifier, error) {
	var inner Classifier
	switch cfg.Backend {
	case config.ClassifierHuggingFace:
		inner = NewHuggingFace(cfg.BaseURL, cfg.Model, cfg.APIToken, httpTimeout, logger)
	case config.ClassifierTransformers:
		tr := NewTransformers(cfg.PythonPath, cfg.Model, cfg.CacheDir, logger)
		if err := tr.Start(); err != nil {
			tr.Close()
			return nil, err
		}
		inner = tr
	default:
		return nil, fmt.Errorf("unsupported classifier: %s", cfg.Backend)
	}
	return NewBatched(inner, cfg.BatchSize), nil
}

// argmax picks the highest scoring label. Unknown labels are an error so a
// misconfigured model never produces silently wrong output.
func argmax(scores []labelScore) (models.Prediction, error) {
	if len(scores) == 0 {
		return models.Prediction{}, fmt.Errorf("empty score list")
	}
	best := scores[0]
	for _, s := range scores[1:] {
		if s.Score > best.Score {
			best = s
		}
	}
	label, ok := models.ParseLabel(best.Label)
	if !ok {
		return models.Prediction{}, fmt.Errorf("unknown label %q", best.Label)
	}
	return models.Prediction{Label: label, Score: best.Score}, nil
}

type labelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}
