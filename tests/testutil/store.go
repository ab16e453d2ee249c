package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/nhle/tech-tracker/internal/store"
	"github.com/nhle/tech-tracker/internal/tracker"
)

// NewTestSlot creates an in-memory SQLiteSlot with all migrations applied.
// It automatically closes the slot when the test completes.
func NewTestSlot(t *testing.T) *store.SQLiteSlot {
	t.Helper()

	s, err := store.NewSQLiteSlot(":memory:")
	if err != nil {
		t.Fatalf("creating test slot: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test slot: %v", err)
		}
	})

	return s
}

// FixedNow is the clock reading used by NewTestTracker.
var FixedNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

// NewTestTracker returns a tracker over a fresh in-memory slot, seeded with
// the starter set and pinned to FixedNow. Extra options are applied last.
func NewTestTracker(t *testing.T, opts ...tracker.Option) *tracker.Store {
	t.Helper()

	adapter := store.NewAdapter(NewTestSlot(t), nil)
	base := []tracker.Option{
		tracker.WithSeed(tracker.StarterSet()),
		tracker.WithClock(func() time.Time { return FixedNow }),
	}
	return tracker.New(context.Background(), adapter, append(base, opts...)...)
}
