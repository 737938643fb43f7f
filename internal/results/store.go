// Package results persists analysis results keyed by video id and expires
// them after a retention window.
package results

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kdimtricp/speechguard/internal/config"
	"github.com/kdimtricp/speechguard/internal/database"
	"github.com/kdimtricp/speechguard/internal/models"
)

var ErrNotFound = errors.New("result not found")

// Store is the persistence contract shared by every backend. Get returns the
// record exactly as it was written.
type Store interface {
	Put(ctx context.Context, id string, result *models.AnalysisResult) error
	Get(ctx context.Context, id string) ([]byte, error)
	Sweep(ctx context.Context, maxAge time.Duration) (int, error)
	Close() error
}

// Open builds the backend selected in the configuration.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Store, error) {
	ttl := cfg.ResultTTL()

	switch cfg.Results.Backend {
	case config.BackendFile:
		return NewFileStore(cfg.Results.Dir, ttl, logger)
	case config.BackendSQLite, config.BackendPostgres:
		db, err := database.NewDB(DatabaseConfig(cfg))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		if _, err := database.NewMigrator(db, logger).Run(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return NewSQLStore(db, ttl, logger), nil
	case config.BackendRedis:
		return NewRedisStore(ctx, cfg.Results.RedisURL, ttl, logger)
	default:
		return nil, fmt.Errorf("unsupported result store: %s", cfg.Results.Backend)
	}
}

// DatabaseConfig maps the configured SQL backend onto connection settings.
func DatabaseConfig(cfg *config.Config) database.Config {
	return database.Config{
		Type:       cfg.Results.Backend,
		Host:       cfg.Database.Host,
		Port:       cfg.Database.Port,
		User:       cfg.Database.User,
		Password:   cfg.Database.Password,
		Name:       cfg.Database.Name,
		SQLitePath: cfg.Database.SQLitePath,
	}
}

// validID rejects anything that is not a UUID so ids can be used directly as
// file names and keys.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil && len(id) == 36
}
