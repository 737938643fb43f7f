package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/kdimtricp/speechguard/internal/analysis"
	"github.com/kdimtricp/speechguard/internal/logging"
	"github.com/kdimtricp/speechguard/internal/models"
	"github.com/kdimtricp/speechguard/internal/results"
)

const (
	msgNoFile          = "No file uploaded"
	msgUnsupported     = "Unsupported file format: "
	msgTooLarge        = "File too large"
	msgFieldRequired   = "Field required: file"
	msgMalformed       = "Invalid multipart form data"
	msgAnalyzeFailed   = "Internal server error while analyzing video"
	msgResultNotFound  = "Result not found"
	msgRetrievalFailed = "Internal server error while retrieving result"
)

// multipartMemory is how much of an upload ParseMultipartForm keeps in
// memory before spilling to disk.
const multipartMemory = 32 << 20

type Analyzer interface {
	Analyze(ctx context.Context, upload analysis.Upload) (*models.AnalysisResult, error)
}

type ResultReader interface {
	Get(ctx context.Context, id string) ([]byte, error)
}

type App struct {
	Analyzer      Analyzer
	Results       ResultReader
	MaxUploadSize int64
	Logger        *slog.Logger
}

func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}

func (app *App) AnalyzeHandler(w http.ResponseWriter, r *http.Request) {
	if app.MaxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, app.MaxUploadSize)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusBadRequest, msgTooLarge)
			return
		}
		writeError(w, http.StatusUnprocessableEntity, msgMalformed)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			writeError(w, http.StatusUnprocessableEntity, msgFieldRequired)
			return
		}
		writeError(w, http.StatusUnprocessableEntity, msgMalformed)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")

	result, err := app.Analyzer.Analyze(r.Context(), analysis.Upload{
		Filename:    header.Filename,
		ContentType: contentType,
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		app.writeAnalysisError(w, r, err, contentType)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (app *App) writeAnalysisError(w http.ResponseWriter, r *http.Request, err error, contentType string) {
	switch {
	case errors.Is(err, analysis.ErrNoFile):
		writeError(w, http.StatusBadRequest, msgNoFile)
	case errors.Is(err, analysis.ErrUnsupportedFormat):
		writeError(w, http.StatusBadRequest, msgUnsupported+contentType)
	case errors.Is(err, analysis.ErrTooLarge):
		writeError(w, http.StatusBadRequest, msgTooLarge)
	case errors.Is(err, analysis.ErrValidation):
		writeError(w, http.StatusUnprocessableEntity, msgFieldRequired)
	default:
		app.logger().Error("video analysis failed",
			logging.String(logging.FieldRequestID, middleware.GetReqID(r.Context())),
			logging.String(logging.FieldEventType, "analysis_failed"),
			logging.Error(err))
		writeError(w, http.StatusInternalServerError, msgAnalyzeFailed)
	}
}

func (app *App) ResultHandler(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "video_id")

	body, err := app.Results.Get(r.Context(), videoID)
	if err != nil {
		if errors.Is(err, results.ErrNotFound) {
			writeError(w, http.StatusNotFound, msgResultNotFound)
			return
		}
		app.logger().Error("result retrieval failed",
			logging.String(logging.FieldRequestID, middleware.GetReqID(r.Context())),
			logging.String(logging.FieldVideoID, videoID),
			logging.Error(err))
		writeError(w, http.StatusInternalServerError, msgRetrievalFailed)
		return
	}

	writeRaw(w, http.StatusOK, body)
}

func (app *App) logger() *slog.Logger {
	if app.Logger == nil {
		return logging.NewNop()
	}
	return app.Logger
}
