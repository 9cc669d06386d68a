package report

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreClockStepsBack(t *testing.T) {
	base := time.Date(2025, 7, 27, 15, 4, 0, 0, time.UTC)
	ticks := []time.Time{
		base,
		base.Add(-time.Hour),
		base.Add(-time.Hour),
		base.Add(-2 * time.Minute),
		base.Add(time.Second),
	}
	store := NewMemoryStore()
	next := 0
	store.nowFunc = func() time.Time {
		now := ticks[next]
		next++
		return now
	}
	ctx := context.Background()

	var saved []Report
	for _, title := range []string{"a", "b", "c", "d", "e"} {
		r, err := store.Save(ctx, Report{Title: title})
		if err != nil {
			t.Fatalf("Save err: %v", err)
		}
		saved = append(saved, r)
	}

	for i := 1; i < len(saved); i++ {
		if !saved[i].CreatedAt.After(saved[i-1].CreatedAt) {
			t.Fatalf("createdAt not increasing at %d: %s <= %s", i, saved[i].CreatedAt, saved[i-1].CreatedAt)
		}
	}
	if !saved[1].CreatedAt.Equal(base.Add(clockStep)) {
		t.Fatalf("expected clamp to last timestamp plus step, got %s", saved[1].CreatedAt)
	}
	if !saved[4].CreatedAt.Equal(base.Add(time.Second)) {
		t.Fatalf("clock moving forward again should be used as is, got %s", saved[4].CreatedAt)
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List err: %v", err)
	}
	for i, r := range list {
		if want := saved[len(saved)-1-i].Title; r.Title != want {
			t.Fatalf("list[%d] = %q, want %q", i, r.Title, want)
		}
	}
}
