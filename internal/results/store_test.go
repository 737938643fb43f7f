package results

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kdimtricp/speechguard/internal/models"
)

// clockedStore lets the shared contract tests move a backend's clock.
type clockedStore interface {
	Store
	setNow(func() time.Time)
}

func (s *FileStore) setNow(now func() time.Time)  { s.now = now }
func (s *SQLStore) setNow(now func() time.Time)   { s.now = now }
func (s *RedisStore) setNow(now func() time.Time) { s.now = now }

func sampleResult(id string) *models.AnalysisResult {
	return models.NewAnalysisResult(id, []models.ClassifiedSegment{
		{ID: 0, Start: 0, End: 2.5, Text: "hello everyone", ClassPredicted: models.LabelNonHate, Probability: 0.9731},
		{ID: 1, Start: 2.5, End: 5, Text: "something nasty", ClassPredicted: models.LabelHate, Probability: 0.8812},
	})
}

// runStoreContract exercises the behaviour every backend must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T, ttl time.Duration) clockedStore) {
	ctx := context.Background()

	t.Run("PutThenGetIsVerbatim", func(t *testing.T) {
		store := newStore(t, 30*time.Minute)
		id := uuid.New().String()
		result := sampleResult(id)

		if err := store.Put(ctx, id, result); err != nil {
			t.Fatalf("Put: %v", err)
		}

		got, err := store.Get(ctx, id)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}

		want, _ := json.Marshal(result)
		if !bytes.Equal(got, want) {
			t.Errorf("stored bytes differ:\n got %s\nwant %s", got, want)
		}
	})

	t.Run("GetUnknownID", func(t *testing.T) {
		store := newStore(t, 30*time.Minute)
		if _, err := store.Get(ctx, uuid.New().String()); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("GetInvalidID", func(t *testing.T) {
		store := newStore(t, 30*time.Minute)
		for _, id := range []string{"", "../etc/passwd", "not-a-uuid"} {
			if _, err := store.Get(ctx, id); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get(%q): expected ErrNotFound, got %v", id, err)
			}
		}
	})

	t.Run("SweepRespectsWindow", func(t *testing.T) {
		store := newStore(t, 0)
		base := time.Now()

		oldID := uuid.New().String()
		store.setNow(func() time.Time { return base.Add(-2 * time.Hour) })
		if err := store.Put(ctx, oldID, sampleResult(oldID)); err != nil {
			t.Fatalf("Put old: %v", err)
		}
		if fs, ok := store.(*FileStore); ok {
			backdate(t, fs.path(oldID), base.Add(-2*time.Hour))
		}

		freshID := uuid.New().String()
		store.setNow(func() time.Time { return base })
		if err := store.Put(ctx, freshID, sampleResult(freshID)); err != nil {
			t.Fatalf("Put fresh: %v", err)
		}

		removed, err := store.Sweep(ctx, time.Hour)
		if err != nil {
			t.Fatalf("Sweep: %v", err)
		}
		if removed != 1 {
			t.Errorf("expected 1 record removed, got %d", removed)
		}

		if _, err := store.Get(ctx, oldID); !errors.Is(err, ErrNotFound) {
			t.Errorf("old record should be gone, got %v", err)
		}
		if _, err := store.Get(ctx, freshID); err != nil {
			t.Errorf("fresh record should remain, got %v", err)
		}
	})

	t.Run("GetHidesExpired", func(t *testing.T) {
		store := newStore(t, time.Minute)
		base := time.Now()
		id := uuid.New().String()

		store.setNow(func() time.Time { return base })
		if err := store.Put(ctx, id, sampleResult(id)); err != nil {
			t.Fatalf("Put: %v", err)
		}

		store.setNow(func() time.Time { return base.Add(5 * time.Minute) })
		if _, ok := store.(*RedisStore); ok {
			// redis enforces the TTL itself; the clock cannot move it.
			return
		}
		if _, err := store.Get(ctx, id); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected expired record to be hidden, got %v", err)
		}
	})

	t.Run("ConcurrentDistinctKeys", func(t *testing.T) {
		store := newStore(t, 30*time.Minute)

		ids := make([]string, 16)
		for i := range ids {
			ids[i] = uuid.New().String()
		}

		var wg sync.WaitGroup
		errs := make(chan error, len(ids))
		for _, id := range ids {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				errs <- store.Put(ctx, id, sampleResult(id))
			}(id)
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			if err != nil {
				t.Fatalf("concurrent Put: %v", err)
			}
		}

		for _, id := range ids {
			raw, err := store.Get(ctx, id)
			if err != nil {
				t.Fatalf("Get %s: %v", id, err)
			}
			var got models.AnalysisResult
			if err := json.Unmarshal(raw, &got); err != nil {
				t.Fatalf("decode %s: %v", id, err)
			}
			if got.VideoID != id {
				t.Errorf("record %s holds video_id %s", id, got.VideoID)
			}
		}
	})
}
