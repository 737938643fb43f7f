// Package analysis runs the upload, transcribe, classify and persist pipeline.
package analysis

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kdimtricp/speechguard/internal/classify"
	"github.com/kdimtricp/speechguard/internal/logging"
	"github.com/kdimtricp/speechguard/internal/models"
	"github.com/kdimtricp/speechguard/internal/results"
	"github.com/kdimtricp/speechguard/internal/storage"
	"github.com/kdimtricp/speechguard/internal/transcribe"
)

// Upload is one video submitted for analysis.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type Config struct {
	// Retention is the age after which stored results are swept.
	Retention time.Duration
	// MaxSize rejects larger inputs when positive.
	MaxSize int64
}

type Service struct {
	transcriber transcribe.Transcriber
	classifier  classify.Classifier
	storage     storage.Storage
	store       results.Store
	retention   time.Duration
	maxSize     int64
	logger      *slog.Logger
	newID       func() string
}

func NewService(
	transcriber transcribe.Transcriber,
	classifier classify.Classifier,
	storageService storage.Storage,
	store results.Store,
	config Config,
	logger *slog.Logger,
) *Service {
	if config.Retention <= 0 {
		config.Retention = 30 * time.Minute
	}
	return &Service{
		transcriber: transcriber,
		classifier:  classifier,
		storage:     storageService,
		store:       store,
		retention:   config.Retention,
		maxSize:     config.MaxSize,
		logger:      logging.NewComponentLogger(logger, "analysis"),
		newID:       func() string { return uuid.New().String() },
	}
}

// Analyze saves the upload to temporary storage, runs it through the
// pipeline and persists the result. The temp file is removed once
// transcription finishes.
func (s *Service) Analyze(ctx context.Context, upload Upload) (*models.AnalysisResult, error) {
	if err := s.validate(upload.Size, upload.ContentType); err != nil {
		return nil, err
	}

	videoID := s.newID()
	logger := s.logger.With(logging.String(logging.FieldVideoID, videoID))

	name, err := s.storage.SaveFile(upload.Body, storage.FileInfo{
		ID:          videoID,
		Filename:    upload.Filename,
		ContentType: upload.ContentType,
		Size:        upload.Size,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: saving upload: %w", ErrInternal, err)
	}

	segments, err := s.transcribeTemp(ctx, name, logger)
	if err != nil {
		return nil, err
	}

	return s.finish(ctx, videoID, segments, logger)
}

// AnalyzeFile runs the pipeline over a file already on disk. The file is
// left in place.
func (s *Service) AnalyzeFile(ctx context.Context, path string) (*models.AnalysisResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrValidation, path)
	}

	contentType := contentTypeFor(path)
	if err := s.validate(info.Size(), contentType); err != nil {
		return nil, err
	}

	videoID := s.newID()
	logger := s.logger.With(logging.String(logging.FieldVideoID, videoID))

	segments, err := s.transcriber.Transcribe(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: transcription: %w", ErrInternal, err)
	}

	return s.finish(ctx, videoID, segments, logger)
}

func (s *Service) transcribeTemp(ctx context.Context, name string, logger *slog.Logger) ([]models.Segment, error) {
	path := s.storage.Path(name)
	defer func() {
		if err := s.storage.DeleteFile(name); err != nil {
			logger.Warn("temp upload delete failed; janitor will remove it",
				logging.String(logging.FieldEventType, "temp_delete_failed"),
				logging.String("path", path),
				logging.Error(err))
		}
	}()

	segments, err := s.transcriber.Transcribe(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: transcription: %w", ErrInternal, err)
	}
	return segments, nil
}

func (s *Service) finish(ctx context.Context, videoID string, segments []models.Segment, logger *slog.Logger) (*models.AnalysisResult, error) {
	data, err := s.classifySegments(ctx, segments)
	if err != nil {
		return nil, err
	}

	result := models.NewAnalysisResult(videoID, data)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInternal, err)
	}

	if removed, err := s.store.Sweep(ctx, s.retention); err != nil {
		logger.Warn("result sweep failed",
			logging.String(logging.FieldEventType, "result_sweep_failed"),
			logging.Error(err))
	} else if removed > 0 {
		logger.Debug("expired results removed", logging.Int("count", removed))
	}

	if err := s.store.Put(ctx, videoID, result); err != nil {
		return nil, fmt.Errorf("%w: persisting result: %w", ErrInternal, err)
	}

	hate := 0
	for _, d := range data {
		if d.ClassPredicted == models.LabelHate {
			hate++
		}
	}
	logger.Info("video analyzed",
		logging.Int("segments", len(data)),
		logging.Int("hate_segments", hate))

	return result, nil
}

func (s *Service) classifySegments(ctx context.Context, segments []models.Segment) ([]models.ClassifiedSegment, error) {
	if len(segments) == 0 {
		return []models.ClassifiedSegment{}, nil
	}

	texts := make([]string, len(segments))
	for i, seg := range segments {
		texts[i] = strings.TrimSpace(seg.Text)
	}

	preds, err := s.classifier.Classify(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: classification: %w", ErrInternal, err)
	}
	if len(preds) != len(segments) {
		return nil, fmt.Errorf("%w: classifier returned %d predictions for %d segments", ErrInternal, len(preds), len(segments))
	}

	data := make([]models.ClassifiedSegment, len(segments))
	for i, seg := range segments {
		if !preds[i].Label.Valid() {
			return nil, fmt.Errorf("%w: invalid label %q", ErrInternal, preds[i].Label)
		}
		data[i] = models.Classify(seg, preds[i])
	}
	return data, nil
}

func (s *Service) validate(size int64, contentType string) error {
	if size <= 0 {
		return ErrNoFile
	}
	if s.maxSize > 0 && size > s.maxSize {
		return ErrTooLarge
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.TrimSpace(contentType)
	}
	if !strings.HasPrefix(strings.ToLower(mediaType), "video/") {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, contentType)
	}
	return nil
}

var videoExtensions = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".mov":  "video/quicktime",
	".mkv":  "video/x-matroska",
	".webm": "video/webm",
	".avi":  "video/x-msvideo",
}

// contentTypeFor guesses a media type from the file extension, falling back
// to a built-in table when the system has no mime.types.
func contentTypeFor(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	if ct, ok := videoExtensions[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}
