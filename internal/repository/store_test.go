package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"loghelper/internal/domain"
	"loghelper/internal/severity"
	"loghelper/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "records.db"))
	if err != nil {
		t.Fatalf("storage.Open() error = %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return New(db)
}

func TestInsertAndRecent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2018, 12, 5, 14, 50, 41, 902000000, time.UTC)

	for i, msg := range []string{"one", "two", "three"} {
		rec := domain.Record{Name: "app", Level: severity.Warning, Message: msg, Time: base.Add(time.Duration(i) * time.Second)}
		id, err := store.Insert(ctx, rec, "line "+msg)
		if err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
		if _, err := uuid.Parse(id); err != nil {
			t.Fatalf("Insert() returned a non-uuid id %q", id)
		}
	}

	recent, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("len(Recent()) = %d", len(recent))
	}
	if recent[0].Record.Message != "two" || recent[1].Record.Message != "three" {
		t.Fatalf("Recent() order = %q, %q", recent[0].Record.Message, recent[1].Record.Message)
	}
	got := recent[1]
	if got.Line != "line three" || got.Record.Level != severity.Warning || got.Record.Name != "app" {
		t.Fatalf("Recent()[1] = %+v", got)
	}
	if !got.Record.Time.Equal(base.Add(2 * time.Second)) {
		t.Fatalf("time = %v", got.Record.Time)
	}

	if none, err := store.Recent(ctx, 0); err != nil || none != nil {
		t.Fatalf("Recent(0) = %v, %v", none, err)
	}
}

func TestCount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"app", "app", "db"} {
		if _, err := store.Insert(ctx, domain.Record{Name: name, Level: severity.Info, Message: "m", Time: time.Now()}, "m"); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	if n, err := store.Count(ctx, "app"); err != nil || n != 2 {
		t.Fatalf("Count(app) = %d, %v", n, err)
	}
	if n, err := store.Count(ctx, ""); err != nil || n != 3 {
		t.Fatalf("Count() = %d, %v", n, err)
	}
}

func TestRecentWithLargeLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if got, err := store.Recent(ctx, 1<<40); err != nil || len(got) != 0 {
		t.Fatalf("Recent() on empty store = %v, %v", got, err)
	}

	if _, err := store.Insert(ctx, domain.Record{Name: "app", Level: severity.Error, Message: "only", Time: time.Now()}, "only"); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	got, err := store.Recent(ctx, 1<<40)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 1 || got[0].Line != "only" {
		t.Fatalf("Recent() = %+v", got)
	}
}
