package results

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/kdimtricp/speechguard/internal/logging"
	"github.com/kdimtricp/speechguard/internal/models"
)

const (
	recordExt    = ".json"
	sweepLockTag = ".sweep.lock"
)

// FileStore keeps one JSON file per result in a flat directory.
type FileStore struct {
	dir    string
	ttl    time.Duration
	lock   *flock.Flock
	logger *slog.Logger
	now    func() time.Time
}

func NewFileStore(dir string, ttl time.Duration, logger *slog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create results directory: %w", err)
	}
	return &FileStore{
		dir:    dir,
		ttl:    ttl,
		lock:   flock.New(filepath.Join(dir, sweepLockTag)),
		logger: logging.NewComponentLogger(logger, "results"),
		now:    time.Now,
	}, nil
}

// Put writes the record to a temporary file and renames it into place so a
// reader never observes a partially written result.
func (s *FileStore) Put(ctx context.Context, id string, result *models.AnalysisResult) error {
	if !validID(id) {
		return fmt.Errorf("invalid result id %q", id)
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, id+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp result: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write result: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close result: %w", err)
	}
	if err := os.Rename(tmpName, s.path(id)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to commit result: %w", err)
	}

	return nil
}

func (s *FileStore) Get(ctx context.Context, id string) ([]byte, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}

	path := s.path(id)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to stat result: %w", err)
	}
	if s.expired(info.ModTime()) {
		return nil, ErrNotFound
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read result: %w", err)
	}
	return data, nil
}

// Sweep deletes records whose modification time is older than maxAge. Only
// one process sweeps a directory at a time; a sweep that finds the lock held
// returns immediately.
func (s *FileStore) Sweep(ctx context.Context, maxAge time.Duration) (int, error) {
	locked, err := s.lock.TryLock()
	if err != nil {
		return 0, fmt.Errorf("failed to acquire sweep lock: %w", err)
	}
	if !locked {
		s.logger.Debug("sweep already running elsewhere; skipping")
		return 0, nil
	}
	defer s.lock.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read results directory: %w", err)
	}

	cutoff := s.now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if s.sweepEntry(entry, cutoff) {
			removed++
		}
	}

	if removed > 0 {
		s.logger.Info("expired results removed", logging.Int("count", removed))
	}
	return removed, nil
}

func (s *FileStore) sweepEntry(entry fs.DirEntry, cutoff time.Time) bool {
	name := entry.Name()
	if entry.IsDir() || name == sweepLockTag {
		return false
	}
	if !strings.HasSuffix(name, recordExt) && !strings.HasSuffix(name, ".tmp") {
		return false
	}
	path := filepath.Join(s.dir, name)

	info, err := entry.Info()
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("expired result stat failed; skipping",
				logging.String(logging.FieldEventType, "result_sweep_failed"),
				logging.String("path", path),
				logging.Error(err))
		}
		return false
	}
	if !info.ModTime().Before(cutoff) {
		return false
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("expired result remove failed; skipping",
			logging.String(logging.FieldEventType, "result_sweep_failed"),
			logging.String("path", path),
			logging.Error(err))
		return false
	}
	return true
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+recordExt)
}

func (s *FileStore) expired(modTime time.Time) bool {
	return s.ttl > 0 && s.now().Sub(modTime) > s.ttl
}
