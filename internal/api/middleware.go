package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/kdimtricp/speechguard/internal/logging"
)

// requestLogger emits one slog record per request.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				logger.Info("request",
					logging.String(logging.FieldRequestID, middleware.GetReqID(r.Context())),
					logging.String("method", r.Method),
					logging.String("path", r.URL.Path),
					logging.Int("status", ww.Status()),
					logging.Int("bytes", ww.BytesWritten()),
					logging.String("remote", r.RemoteAddr),
					logging.String("duration", time.Since(start).Round(time.Microsecond).String()))
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// recoverer turns panics into the generic error response.
func recoverer(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.Error("handler panic",
						logging.String(logging.FieldRequestID, middleware.GetReqID(r.Context())),
						slog.Any("panic", rec))
					writeError(w, http.StatusInternalServerError, "Internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
