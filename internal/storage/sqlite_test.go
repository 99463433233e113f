//go:build sqlite

package storage

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestSQLiteStore(t *testing.T) Store {
	t.Helper()

	store, err := NewStore("sqlite", filepath.Join(t.TempDir(), "checkpoints.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() { _ = CloseIfSupported(store) })
	return store
}

func TestSQLiteSaveGet(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	if err := store.SaveCheckpoint(ctx, testRecord("fridge", 0, 0.5)); err != nil {
		t.Fatalf("save: %v", err)
	}

	rec, ok, err := store.GetCheckpoint(ctx, "fridge", 0)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if rec.ValidationLoss != 0.5 || len(rec.Snapshot.Params) != 1 {
		t.Fatalf("record mismatch: %+v", rec)
	}

	if _, ok, _ := store.GetCheckpoint(ctx, "kettle", 0); ok {
		t.Fatal("kettle should be absent")
	}
}

func TestSQLiteUpsert(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	store.SaveCheckpoint(ctx, testRecord("fridge", 0, 0.5))
	store.SaveCheckpoint(ctx, testRecord("fridge", 0, 0.25))

	rec, _, _ := store.GetCheckpoint(ctx, "fridge", 0)
	if rec.ValidationLoss != 0.25 {
		t.Fatalf("loss = %g, want 0.25", rec.ValidationLoss)
	}
	records, _ := store.ListCheckpoints(ctx)
	if len(records) != 1 {
		t.Fatalf("list length = %d, want 1", len(records))
	}
}

func TestSQLiteListOrderedByKey(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	store.SaveCheckpoint(ctx, testRecord("kettle", 0, 1))
	store.SaveCheckpoint(ctx, testRecord("fridge", 0, 1))

	records, err := store.ListCheckpoints(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 2 || records[0].Appliance != "fridge" || records[1].Appliance != "kettle" {
		t.Fatalf("unexpected order: %+v", records)
	}
}

func TestSQLiteRequiresPath(t *testing.T) {
	store, err := NewStore("sqlite", "")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.Init(context.Background()); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestSQLiteRequiresInit(t *testing.T) {
	store, _ := NewStore("sqlite", filepath.Join(t.TempDir(), "checkpoints.db"))
	if err := store.SaveCheckpoint(context.Background(), testRecord("fridge", 0, 1)); err == nil {
		t.Fatal("expected error before Init")
	}
}
