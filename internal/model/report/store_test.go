package report_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/zhouzirui/sirius-report/backend/internal/model/report"
)

func TestMemoryStoreSaveAssignsIdentity(t *testing.T) {
	store := report.NewMemoryStore()
	ctx := context.Background()

	supplied := time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC)
	saved, err := store.Save(ctx, report.Report{
		ID:        "caller-id",
		Title:     "Einbruch Kiosk",
		Tags:      []string{" Einbruch", "", "Spuren "},
		CreatedAt: supplied,
	})
	if err != nil {
		t.Fatalf("Save err: %v", err)
	}

	if saved.ID == "" || saved.ID == "caller-id" {
		t.Fatalf("expected generated id, got %q", saved.ID)
	}
	if saved.CreatedAt.Equal(supplied) || saved.CreatedAt.IsZero() {
		t.Fatalf("expected store-assigned createdAt, got %s", saved.CreatedAt)
	}
	if len(saved.Tags) != 2 || saved.Tags[0] != "Einbruch" || saved.Tags[1] != "Spuren" {
		t.Fatalf("unexpected tags: %#v", saved.Tags)
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List err: %v", err)
	}
	if len(list) != 1 || list[0].ID != saved.ID {
		t.Fatalf("expected listed report %s, got %#v", saved.ID, list)
	}
}

func TestMemoryStoreSaveGeneratesUniqueIDs(t *testing.T) {
	store := report.NewMemoryStore()
	ctx := context.Background()

	first, _ := store.Save(ctx, report.Report{ID: "same"})
	second, _ := store.Save(ctx, report.Report{ID: "same"})

	if first.ID == second.ID {
		t.Fatalf("expected distinct ids, both %s", first.ID)
	}
	if second.CreatedAt.Before(first.CreatedAt) {
		t.Fatalf("createdAt went backwards: %s < %s", second.CreatedAt, first.CreatedAt)
	}
}

func TestMemoryStoreListNewestFirst(t *testing.T) {
	store := report.NewMemoryStore()
	ctx := context.Background()

	var ids []string
	for _, title := range []string{"a", "b", "c"} {
		saved, err := store.Save(ctx, report.Report{Title: title})
		if err != nil {
			t.Fatalf("Save err: %v", err)
		}
		ids = append(ids, saved.ID)
		time.Sleep(2 * time.Millisecond)
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List err: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 reports, got %d", len(list))
	}
	if list[0].ID != ids[2] || list[2].ID != ids[0] {
		t.Fatalf("unexpected order: %s, %s, %s", list[0].Title, list[1].Title, list[2].Title)
	}
}

func TestMemoryStoreDeleteIsPermanent(t *testing.T) {
	store := report.NewMemoryStore()
	ctx := context.Background()

	saved, _ := store.Save(ctx, report.Report{Title: "Sachbeschädigung"})
	if err := store.Delete(ctx, saved.ID); err != nil {
		t.Fatalf("Delete err: %v", err)
	}

	if _, err := store.Get(ctx, saved.ID); !errors.Is(err, report.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	list, _ := store.List(ctx)
	if len(list) != 0 {
		t.Fatalf("expected empty list, got %d", len(list))
	}
	if err := store.Delete(ctx, saved.ID); !errors.Is(err, report.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := report.NewMemoryStore()
	ctx := context.Background()

	saved, _ := store.Save(ctx, report.Report{Tags: []string{"Zeuge"}})
	saved.Tags[0] = "mutated"

	got, err := store.Get(ctx, saved.ID)
	if err != nil {
		t.Fatalf("Get err: %v", err)
	}
	if got.Tags[0] != "Zeuge" {
		t.Fatalf("store was mutated through returned value: %v", got.Tags)
	}
}
