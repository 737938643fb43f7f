package results

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kdimtricp/speechguard/internal/database"
	"github.com/kdimtricp/speechguard/internal/logging"
	"github.com/kdimtricp/speechguard/internal/models"
)

// SQLStore keeps results as JSON text rows in the results table.
type SQLStore struct {
	db     *database.DB
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

func NewSQLStore(db *database.DB, ttl time.Duration, logger *slog.Logger) *SQLStore {
	return &SQLStore{
		db:     db,
		ttl:    ttl,
		logger: logging.NewComponentLogger(logger, "results"),
		now:    time.Now,
	}
}

func (s *SQLStore) Put(ctx context.Context, id string, result *models.AnalysisResult) error {
	if !validID(id) {
		return fmt.Errorf("invalid result id %q", id)
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	query := s.db.Rebind(`INSERT INTO results (id, payload, created_at) VALUES (?, ?, ?)`)
	if _, err := s.db.Conn().ExecContext(ctx, query, id, string(payload), s.now().UnixMilli()); err != nil {
		return fmt.Errorf("failed to insert result: %w", err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, id string) ([]byte, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}

	var payload string
	var createdAt int64
	query := s.db.Rebind(`SELECT payload, created_at FROM results WHERE id = ?`)
	err := s.db.Conn().QueryRowContext(ctx, query, id).Scan(&payload, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get result: %w", err)
	}

	if s.ttl > 0 && s.now().Sub(time.UnixMilli(createdAt)) > s.ttl {
		return nil, ErrNotFound
	}
	return []byte(payload), nil
}

func (s *SQLStore) Sweep(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := s.now().Add(-maxAge).UnixMilli()

	res, err := s.db.Conn().ExecContext(ctx, s.db.Rebind(`DELETE FROM results WHERE created_at < ?`), cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep results: %w", err)
	}

	removed := s.rowsRemoved(res)
	if removed > 0 {
		s.logger.Info("expired results removed", logging.Int("count", removed))
	}
	return removed, nil
}

// rowsRemoved reports the sweep count, or 0 when the driver cannot say.
func (s *SQLStore) rowsRemoved(res sql.Result) int {
	n, err := res.RowsAffected()
	if err != nil {
		s.logger.Warn("sweep row count unavailable",
			logging.String(logging.FieldEventType, "result_sweep_failed"),
			logging.Error(err))
		return 0
	}
	return int(n)
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
