package results

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/kdimtricp/speechguard/internal/logging"
)

func backdate(t *testing.T, path string, when time.Time) {
	t.Helper()
	if err := os.Chtimes(path, when, when); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}

func TestFileStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T, ttl time.Duration) clockedStore {
		store, err := NewFileStore(t.TempDir(), ttl, nil)
		if err != nil {
			t.Fatalf("NewFileStore: %v", err)
		}
		return store
	})
}

func TestFileStoreGetHidesExpiredByModTime(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), time.Minute, nil)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	ctx := context.Background()
	id := uuid.New().String()
	if err := store.Put(ctx, id, sampleResult(id)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	backdate(t, store.path(id), time.Now().Add(-10*time.Minute))

	if _, err := store.Get(ctx, id); err != ErrNotFound {
		t.Errorf("expected ErrNotFound for stale file, got %v", err)
	}
}

func TestFileStoreSweepSkipsWhenLocked(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, 0, nil)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	ctx := context.Background()
	id := uuid.New().String()
	if err := store.Put(ctx, id, sampleResult(id)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	backdate(t, store.path(id), time.Now().Add(-2*time.Hour))

	other := flock.New(filepath.Join(dir, sweepLockTag))
	locked, err := other.TryLock()
	if err != nil || !locked {
		t.Fatalf("failed to take lock: %v", err)
	}

	removed, err := store.Sweep(ctx, time.Hour)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if removed != 0 {
		t.Errorf("expected sweep to be skipped, removed %d", removed)
	}

	if err := other.Unlock(); err != nil {
		t.Fatalf("unlock: %v", err)
	}

	removed, err = store.Sweep(ctx, time.Hour)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 removal after unlock, got %d", removed)
	}
}

func TestFileStorePutLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, time.Minute, nil)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	id := uuid.New().String()
	if err := store.Put(context.Background(), id, sampleResult(id)); err != nil {
		t.Fatalf("Put: %v", err)
	}

	matches, _ := filepath.Glob(filepath.Join(dir, "*.tmp"))
	if len(matches) != 0 {
		t.Errorf("expected no temp files, found %v", matches)
	}
}

func TestFileStorePutRejectsInvalidID(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), time.Minute, nil)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if err := store.Put(context.Background(), "../escape", sampleResult("x")); err == nil {
		t.Error("expected error for invalid id")
	}
}

type unreadableEntry struct{ name string }

func (e unreadableEntry) Name() string               { return e.name }
func (e unreadableEntry) IsDir() bool                { return false }
func (e unreadableEntry) Type() fs.FileMode          { return 0 }
func (e unreadableEntry) Info() (fs.FileInfo, error) { return nil, fs.ErrPermission }

func TestFileStoreSweepLogsStatFailure(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	store, err := NewFileStore(t.TempDir(), 0, logger)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	if store.sweepEntry(unreadableEntry{name: "abc.json"}, time.Now()) {
		t.Errorf("unreadable entry should not count as removed")
	}
	out := buf.String()
	if !strings.Contains(out, "result_sweep_failed") || !strings.Contains(out, "abc.json") {
		t.Errorf("expected a warning naming the record, got %q", out)
	}

	buf.Reset()
	store.sweepEntry(unreadableEntry{name: "notes.txt"}, time.Now())
	if buf.Len() != 0 {
		t.Errorf("non-record files should be ignored silently, got %q", buf.String())
	}
}
