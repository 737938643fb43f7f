// Package transcribe turns a video or audio file into timestamped speech
// segments using an external speech-to-text model.
package transcribe

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kdimtricp/speechguard/internal/config"
	"github.com/kdimtricp/speechguard/internal/media"
	"github.com/kdimtricp/speechguard/internal/models"
)

// Transcriber returns the speech segments of the file at path, in order,
// with ids equal to their position.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) ([]models.Segment, error)
}

// New builds the transcriber selected in the configuration. It is called once
// at startup and the result is shared by every request.
func New(cfg config.TranscriberConfig, logger *slog.Logger) (Transcriber, error) {
	switch cfg.Backend {
	case config.TranscriberFasterWhisper:
		fw := NewFasterWhisper(FasterWhisperConfig{
			Python:      cfg.PythonPath,
			Model:       cfg.Model,
			Device:      cfg.Device,
			ComputeType: cfg.ComputeType,
			Language:    cfg.Language,
		}, logger)
		if err := fw.Start(); err != nil {
			fw.Close()
			return nil, err
		}
		return fw, nil
	case config.TranscriberOpenAI:
		extractor, err := media.NewAudioExtractor(cfg.FFmpegPath)
		if err != nil {
			return nil, err
		}
		return NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.Language, extractor, logger), nil
	default:
		return nil, fmt.Errorf("unsupported transcriber: %s", cfg.Backend)
	}
}

// renumber assigns sequence ids starting at 0.
func renumber(segments []models.Segment) []models.Segment {
	for i := range segments {
		segments[i].ID = i
	}
	return segments
}
