package bookmarks

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "bookmarks.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveGetList(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	clock := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	b, err := s.Save(ctx, "  raw  ", "dataset=/A/B/RAW block_create_since=24")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if b.Name != "raw" || b.State != "dataset=/A/B/RAW block_create_since=24" {
		t.Errorf("unexpected bookmark %+v", b)
	}
	if _, err := uuid.Parse(b.ID); err != nil {
		t.Errorf("ID %q is not a UUID: %v", b.ID, err)
	}
	if !b.CreatedAt.Equal(clock) {
		t.Errorf("CreatedAt = %v, want %v", b.CreatedAt, clock)
	}

	clock = clock.Add(time.Hour)
	updated, err := s.Save(ctx, "raw", "dataset=/A/B/RAW block_create_since=48")
	if err != nil {
		t.Fatalf("Save (update): %v", err)
	}
	if updated.ID != b.ID {
		t.Errorf("update should keep the ID: %s vs %s", updated.ID, b.ID)
	}
	if !updated.UpdatedAt.Equal(clock) || !updated.CreatedAt.Equal(b.CreatedAt) {
		t.Errorf("unexpected timestamps %+v", updated)
	}

	if _, err := s.Save(ctx, "alpha", "block=/X#1"); err != nil {
		t.Fatal(err)
	}
	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].Name != "alpha" || list[1].Name != "raw" {
		t.Errorf("unexpected list %+v", list)
	}
	if list[1].State != "dataset=/A/B/RAW block_create_since=48" {
		t.Errorf("stale state in list: %q", list[1].State)
	}
}

func TestGetMissing(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveEmptyName(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Save(context.Background(), "   ", "dataset=/A"); !errors.Is(err, ErrEmptyName) {
		t.Errorf("expected ErrEmptyName, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	if _, err := s.Save(ctx, "tmp", "dataset=/A"); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "tmp"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, "tmp"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
	list, _ := s.List(ctx)
	if len(list) != 0 {
		t.Errorf("expected empty list, got %+v", list)
	}
}

func TestReopenPersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bookmarks.db")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Save(ctx, "keep", "block=/A#1"); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	b, err := s.Get(ctx, "keep")
	if err != nil || b.State != "block=/A#1" {
		t.Errorf("after reopen: %+v, %v", b, err)
	}
}
