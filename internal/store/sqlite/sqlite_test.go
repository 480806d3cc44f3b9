package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/loykin/taskr/internal/store"
	"github.com/loykin/taskr/internal/todo"
)

func TestSQLiteSnapshotRoundTrip(t *testing.T) {
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("sqlite open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	ctx := context.Background()

	ts := time.Unix(1700000000, 250000000)
	in := &store.Snapshot{
		Sessions: []store.Session{
			{Key: "second", Todos: []todo.Record{
				{ID: "b", Content: "bee", Status: todo.StatusPending, Priority: todo.PriorityLow},
				{ID: "a", Content: "ay", Status: todo.StatusCompleted, Priority: todo.PriorityHigh},
			}, LastUpdated: ts},
			{Key: "first", Todos: []todo.Record{}, LastUpdated: ts},
		},
		LastSaved: ts,
	}
	if err := db.Save(ctx, in); err != nil {
		t.Fatalf("save: %v", err)
	}
	out, err := db.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(out.Sessions) != 2 || out.Sessions[0].Key != "second" || out.Sessions[1].Key != "first" {
		t.Fatalf("session order lost: %+v", out.Sessions)
	}
	if got := out.Sessions[0].Todos; len(got) != 2 || got[0].ID != "b" || got[1].ID != "a" {
		t.Fatalf("todo order lost: %+v", got)
	}
	if len(out.Sessions[1].Todos) != 0 {
		t.Fatalf("empty session gained todos")
	}
	if !out.Sessions[0].LastUpdated.Equal(ts) || !out.LastSaved.Equal(ts) {
		t.Fatalf("timestamps drifted: %v %v", out.Sessions[0].LastUpdated, out.LastSaved)
	}

	// Save is a full rewrite
	if err := db.Save(ctx, &store.Snapshot{Sessions: []store.Session{{Key: "only", LastUpdated: ts}}, LastSaved: ts}); err != nil {
		t.Fatalf("second save: %v", err)
	}
	out, err = db.Load(ctx)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(out.Sessions) != 1 || out.Sessions[0].Key != "only" {
		t.Fatalf("rewrite left stale rows: %+v", out.Sessions)
	}
	var n int
	if err := db.SQL().QueryRowContext(ctx, `SELECT COUNT(*) FROM taskr_todos`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("expected no todo rows, got %d", n)
	}
}

func TestSQLiteBackedStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "taskr.db")

	db, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	s := store.Open(ctx, store.WithPersister(db))
	s.Set(ctx, "proj-1", []todo.Record{
		{ID: "todo-1", Content: "A", Status: todo.StatusPending, Priority: todo.PriorityHigh},
		{ID: "todo-2", Content: "B", Status: todo.StatusInProgress, Priority: todo.PriorityMedium},
		{ID: "todo-3", Content: "C", Status: todo.StatusCompleted, Priority: todo.PriorityLow},
	})
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db2, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	again := store.Open(ctx, store.WithPersister(db2))
	t.Cleanup(func() { _ = again.Close() })
	got := again.Get("proj-1")
	if len(got) != 3 || got[1].Status != todo.StatusInProgress {
		t.Fatalf("unexpected records after reopen: %+v", got)
	}
	st := again.Stats()
	if st.StorageFile == nil || *st.StorageFile != path {
		t.Fatalf("storage location: %+v", st.StorageFile)
	}
}

func TestNewRejectsEmptyPath(t *testing.T) {
	if _, err := New(" "); err == nil {
		t.Fatalf("expected error")
	}
}
