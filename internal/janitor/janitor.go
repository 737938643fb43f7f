// Package janitor removes temporary uploads left behind by crashed or
// interrupted analyses.
package janitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kdimtricp/speechguard/internal/logging"
	"github.com/robfig/cron/v3"
)

// Sweeper deletes files older than maxAge and reports how many it removed.
type Sweeper interface {
	SweepOlderThan(maxAge time.Duration) (int, error)
}

// Janitor sweeps the upload directory once at startup and then on a cron
// schedule.
type Janitor struct {
	sweeper Sweeper
	maxAge  time.Duration
	cron    *cron.Cron
	logger  *slog.Logger
}

func New(sweeper Sweeper, maxAge time.Duration, schedule string, logger *slog.Logger) (*Janitor, error) {
	j := &Janitor{
		sweeper: sweeper,
		maxAge:  maxAge,
		cron:    cron.New(),
		logger:  logging.NewComponentLogger(logger, "janitor"),
	}
	if _, err := j.cron.AddFunc(schedule, func() { j.RunOnce() }); err != nil {
		return nil, fmt.Errorf("invalid janitor schedule %q: %w", schedule, err)
	}
	return j, nil
}

// Start runs one sweep synchronously and then starts the schedule.
func (j *Janitor) Start() {
	j.RunOnce()
	j.cron.Start()
	j.logger.Info("janitor started", logging.String("max_age", j.maxAge.String()))
}

// Stop halts the schedule and waits for a running sweep to finish or ctx to
// expire.
func (j *Janitor) Stop(ctx context.Context) {
	done := j.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
	j.logger.Info("janitor stopped")
}

// RunOnce sweeps immediately and returns the number of files removed.
func (j *Janitor) RunOnce() int {
	removed, err := j.sweeper.SweepOlderThan(j.maxAge)
	if err != nil {
		j.logger.Warn("temp sweep failed",
			logging.String(logging.FieldEventType, "temp_sweep_failed"),
			logging.Error(err))
		return 0
	}
	if removed > 0 {
		j.logger.Info("orphaned uploads removed", logging.Int("count", removed))
	}
	return removed
}
