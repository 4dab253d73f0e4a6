package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/unsaid-app/attune/internal/attachment"
)

func sampleProfile() *attachment.Profile {
	return &attachment.Profile{
		UserID:     "u1",
		CreatedAt:  time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		WindowDays: 7,
		DailyLimit: 20,
		DayBuckets: []attachment.DayBucket{{
			Date:             "2026-08-01",
			ObservationCount: 2,
			Accumulator:      map[attachment.Style]float64{attachment.Anxious: 1.8},
			CategoryCounts:   map[string]int{"microExpression": 2},
		}},
	}
}

func TestMemoryRoundTrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.Put(ctx, "u1", sampleProfile()); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := m.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.UserID != "u1" || len(got.DayBuckets) != 1 {
		t.Errorf("unexpected profile %+v", got)
	}
	if got.DayBuckets[0].Accumulator[attachment.Anxious] != 1.8 {
		t.Errorf("accumulator lost in round trip: %+v", got.DayBuckets[0])
	}
}

func TestMemoryNotFound(t *testing.T) {
	m := NewMemory()

	_, err := m.Get(context.Background(), "nobody")
	if !errors.Is(err, attachment.ErrProfileNotFound) {
		t.Errorf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestMemoryDelete(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.Put(ctx, "u1", sampleProfile()); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := m.Delete(ctx, "u1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := m.Get(ctx, "u1"); !errors.Is(err, attachment.ErrProfileNotFound) {
		t.Errorf("expected ErrProfileNotFound after delete, got %v", err)
	}

	// Deleting again is a no-op.
	if err := m.Delete(ctx, "u1"); err != nil {
		t.Errorf("second delete: %v", err)
	}
}

func TestMemoryIsolation(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	p := sampleProfile()
	if err := m.Put(ctx, "u1", p); err != nil {
		t.Fatalf("put: %v", err)
	}

	// Mutating the caller's copy must not leak into the store.
	p.DayBuckets[0].Accumulator[attachment.Anxious] = 99

	got, err := m.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.DayBuckets[0].Accumulator[attachment.Anxious] != 1.8 {
		t.Error("store shares state with the caller")
	}

	// And mutating a returned copy must not affect later reads.
	got.DayBuckets[0].ObservationCount = 99
	again, err := m.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if again.DayBuckets[0].ObservationCount != 2 {
		t.Error("returned profile shares state with the store")
	}
}
