package transcribe

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/kdimtricp/speechguard/internal/logging"
	"github.com/kdimtricp/speechguard/internal/models"
	"github.com/kdimtricp/speechguard/internal/pyworker"
)

//go:embed assets/faster_whisper.py
var fasterWhisperScript []byte

type FasterWhisperConfig struct {
	Python      string
	Model       string
	Device      string
	ComputeType string
	Language    string
}

// FasterWhisper runs the faster-whisper python package in a long-lived
// helper process that loads the model once.
type FasterWhisper struct {
	cfg    FasterWhisperConfig
	worker *pyworker.Worker
	logger *slog.Logger
}

func NewFasterWhisper(cfg FasterWhisperConfig, logger *slog.Logger) *FasterWhisper {
	if cfg.Python == "" {
		cfg.Python = "python3"
	}
	if cfg.Model == "" {
		cfg.Model = "small"
	}
	if cfg.Device == "" {
		cfg.Device = "cpu"
	}
	if cfg.ComputeType == "" {
		cfg.ComputeType = "int8"
	}

	args := []string{
		"--model", cfg.Model,
		"--device", cfg.Device,
		"--compute-type", cfg.ComputeType,
	}
	if cfg.Language != "" {
		args = append(args, "--language", cfg.Language)
	}

	return &FasterWhisper{
		cfg:    cfg,
		worker: pyworker.New(cfg.Python, fasterWhisperScript, args, logger),
		logger: logging.NewComponentLogger(logger, "transcribe"),
	}
}

// WithLauncher sets a custom process launcher (for testing).
func (f *FasterWhisper) WithLauncher(launch pyworker.Launcher) *FasterWhisper {
	f.worker.WithLauncher(launch)
	return f
}

// Start launches the helper so the model loads before the first request.
func (f *FasterWhisper) Start() error {
	return f.worker.Start()
}

type fasterWhisperRequest struct {
	Input string `json:"input"`
}

type fasterWhisperOutput struct {
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

func (f *FasterWhisper) Transcribe(ctx context.Context, path string) ([]models.Segment, error) {
	started := time.Now()

	var parsed fasterWhisperOutput
	if err := f.worker.Call(ctx, fasterWhisperRequest{Input: path}, &parsed); err != nil {
		return nil, fmt.Errorf("faster-whisper failed: %w", err)
	}

	segments := make([]models.Segment, 0, len(parsed.Segments))
	for _, s := range parsed.Segments {
		segments = append(segments, models.Segment{Start: s.Start, End: s.End, Text: s.Text})
	}

	f.logger.Info("transcription completed",
		logging.String("model", f.cfg.Model),
		logging.String("language", parsed.Language),
		logging.Int("segments", len(segments)),
		logging.String("elapsed", time.Since(started).Round(time.Millisecond).String()))

	return renumber(segments), nil
}

// Close stops the helper process.
func (f *FasterWhisper) Close() error {
	return f.worker.Close()
}
