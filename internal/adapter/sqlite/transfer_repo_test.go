package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/vertextoedge/wget-fetch/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "journal", "transfers.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_SaveGetDelete(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	if _, err := store.Get(ctx, "https://example.com/a", "/tmp/a"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Get() on empty store error = %v, want ErrNotFound", err)
	}

	rec := &domain.ResumeRecord{
		URL:           "https://example.com/a",
		Path:          "/tmp/a",
		PartPath:      "/tmp/a.part",
		Offset:        1024,
		ETag:          `"v1"`,
		ExpectedBytes: 4096,
	}
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if rec.ID == "" {
		t.Fatal("Save() should assign an ID")
	}

	got, err := store.Get(ctx, rec.URL, rec.Path)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ID != rec.ID || got.Offset != 1024 || got.ETag != `"v1"` || got.ExpectedBytes != 4096 {
		t.Errorf("Get() = %+v, want %+v", got, rec)
	}

	// saving again with a fresh struct updates in place
	update := &domain.ResumeRecord{URL: rec.URL, Path: rec.Path, PartPath: rec.PartPath, Offset: 2048, ExpectedBytes: 4096}
	if err := store.Save(ctx, update); err != nil {
		t.Fatalf("Save(update) error = %v", err)
	}
	got, _ = store.Get(ctx, rec.URL, rec.Path)
	if got.ID != rec.ID {
		t.Errorf("ID after upsert = %s, want %s", got.ID, rec.ID)
	}
	if got.Offset != 2048 {
		t.Errorf("Offset after upsert = %d, want 2048", got.Offset)
	}

	if err := store.Delete(ctx, rec.URL, rec.Path); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get(ctx, rec.URL, rec.Path); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Get() after Delete() error = %v, want ErrNotFound", err)
	}
	if err := store.Delete(ctx, rec.URL, rec.Path); err != nil {
		t.Errorf("Delete() of missing record error = %v", err)
	}
}

func TestStore_ListOlderThan(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	store.Save(ctx, &domain.ResumeRecord{URL: "u1", Path: "p1", PartPath: "p1.part"})
	time.Sleep(300 * time.Millisecond)
	store.Save(ctx, &domain.ResumeRecord{URL: "u2", Path: "p2", PartPath: "p2.part"})

	records, err := store.ListOlderThan(ctx, 150*time.Millisecond)
	if err != nil {
		t.Fatalf("ListOlderThan() error = %v", err)
	}
	if len(records) != 1 || records[0].URL != "u1" {
		t.Errorf("ListOlderThan() = %v, want only u1", records)
	}

	records, _ = store.ListOlderThan(ctx, time.Hour)
	if len(records) != 0 {
		t.Errorf("ListOlderThan(1h) returned %d records, want 0", len(records))
	}
}
