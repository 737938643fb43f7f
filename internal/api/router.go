package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/kdimtricp/speechguard/internal/logging"
)

func NewRouter(app *App) http.Handler {
	logger := logging.NewComponentLogger(app.Logger, "http")

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(recoverer(logger))

	r.Get("/ping", PingHandler)
	r.Post("/analyze", app.AnalyzeHandler)
	r.Get("/results/{video_id}", app.ResultHandler)

	return r
}
