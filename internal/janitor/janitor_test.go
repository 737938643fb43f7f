package janitor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kdimtricp/speechguard/internal/storage"
)

type countingSweeper struct {
	calls atomic.Int32
	err   error
}

func (c *countingSweeper) SweepOlderThan(maxAge time.Duration) (int, error) {
	c.calls.Add(1)
	return 1, c.err
}

func TestNewRejectsBadSchedule(t *testing.T) {
	if _, err := New(&countingSweeper{}, time.Hour, "whenever", nil); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}

func TestStartSweepsImmediately(t *testing.T) {
	sweeper := &countingSweeper{}
	j, err := New(sweeper, time.Hour, "@every 1h", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	j.Start()
	defer j.Stop(context.Background())

	if got := sweeper.calls.Load(); got != 1 {
		t.Errorf("expected one sweep at startup, got %d", got)
	}
}

func TestScheduleRunsSweeps(t *testing.T) {
	sweeper := &countingSweeper{}
	j, err := New(sweeper, time.Hour, "@every 1s", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	j.Start()
	deadline := time.Now().Add(5 * time.Second)
	for sweeper.calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	j.Stop(context.Background())

	if got := sweeper.calls.Load(); got < 2 {
		t.Errorf("expected a scheduled sweep after startup, got %d calls", got)
	}
}

func TestRunOnceLogsErrors(t *testing.T) {
	j, err := New(&countingSweeper{err: errors.New("read-only fs")}, time.Hour, "@every 1h", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if removed := j.RunOnce(); removed != 0 {
		t.Errorf("failed sweep should report 0, got %d", removed)
	}
}

func TestRunOnceRemovesOrphans(t *testing.T) {
	dir := t.TempDir()
	ls, err := storage.NewLocalStorage(dir, nil)
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}

	stale := filepath.Join(dir, "stale_clip.mp4")
	fresh := filepath.Join(dir, "fresh_clip.mp4")
	for _, p := range []string{stale, fresh} {
		if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	old := time.Now().Add(-2 * time.Hour)
	os.Chtimes(stale, old, old)

	j, err := New(ls, time.Hour, "@every 1h", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if removed := j.RunOnce(); removed != 1 {
		t.Errorf("expected 1 removal, got %d", removed)
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Errorf("fresh upload should survive: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Errorf("stale upload should be removed")
	}
}
