package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kdimtricp/speechguard/internal/api"
	"github.com/kdimtricp/speechguard/internal/janitor"
	"github.com/kdimtricp/speechguard/internal/logging"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.logger

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			p, err := ctx.buildPipeline(runCtx)
			if err != nil {
				return err
			}
			defer p.Close()

			sweeper, err := janitor.New(p.storage, cfg.TempMaxAgeDuration(), cfg.JanitorSchedule, logger)
			if err != nil {
				return err
			}
			sweeper.Start()

			router := api.NewRouter(&api.App{
				Analyzer:      p.service,
				Results:       p.store,
				MaxUploadSize: cfg.MaxUploadSize,
				Logger:        logger,
			})

			httpServer := &http.Server{
				Addr:              cfg.ListenAddr(),
				Handler:           router,
				ReadHeaderTimeout: 15 * time.Second,
				IdleTimeout:       60 * time.Second,
			}

			serveErr := make(chan error, 1)
			go func() {
				logger.Info("server listening",
					logging.String("addr", httpServer.Addr),
					logging.String("result_store", cfg.Results.Backend),
					logging.String("transcriber", cfg.Transcriber.Backend),
					logging.String("classifier", cfg.Classifier.Backend))
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr <- err
				}
				close(serveErr)
			}()

			select {
			case err := <-serveErr:
				if err != nil {
					sweeper.Stop(context.Background())
					return err
				}
			case <-runCtx.Done():
			}

			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			sweeper.Stop(shutdownCtx)
			return httpServer.Shutdown(shutdownCtx)
		},
	}
}
