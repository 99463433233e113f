package storage

import (
	"context"
	"testing"

	"wattsplit/internal/model"
)

func testRecord(appliance string, round int, loss float64) model.CheckpointRecord {
	rec := model.CheckpointRecord{
		Appliance:      appliance,
		Round:          round,
		RunID:          "run-1",
		ValidationLoss: loss,
		Snapshot: model.Snapshot{
			Params: []model.ParamState{
				{Name: "w", Rows: 1, Cols: 2, Data: []float64{1, 2}},
			},
		},
	}
	Stamp(&rec)
	return rec
}

func TestMemoryStoreSaveGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	if err := store.SaveCheckpoint(ctx, testRecord("fridge", 0, 0.5)); err != nil {
		t.Fatalf("save: %v", err)
	}

	rec, ok, err := store.GetCheckpoint(ctx, "fridge", 0)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if rec.ValidationLoss != 0.5 {
		t.Fatalf("loss = %g, want 0.5", rec.ValidationLoss)
	}

	if _, ok, _ := store.GetCheckpoint(ctx, "fridge", 1); ok {
		t.Fatal("round 1 should be absent")
	}
}

func TestMemoryStoreOverwritesSameKey(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.Init(ctx)

	store.SaveCheckpoint(ctx, testRecord("fridge", 0, 0.5))
	store.SaveCheckpoint(ctx, testRecord("fridge", 0, 0.2))

	rec, _, _ := store.GetCheckpoint(ctx, "fridge", 0)
	if rec.ValidationLoss != 0.2 {
		t.Fatalf("loss = %g, want latest save 0.2", rec.ValidationLoss)
	}
	records, _ := store.ListCheckpoints(ctx)
	if len(records) != 1 {
		t.Fatalf("list length = %d, want 1", len(records))
	}
}

func TestMemoryStoreListSorted(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.Init(ctx)

	store.SaveCheckpoint(ctx, testRecord("kettle", 0, 1))
	store.SaveCheckpoint(ctx, testRecord("fridge", 1, 1))
	store.SaveCheckpoint(ctx, testRecord("fridge", 0, 1))

	records, err := store.ListCheckpoints(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var keys []string
	for _, rec := range records {
		keys = append(keys, model.CheckpointKey(rec.Appliance, rec.Round))
	}
	want := []string{"fridge-round0", "fridge-round1", "kettle-round0"}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("keys = %v, want %v", keys, want)
		}
	}
}

func TestMemoryStoreRequiresInit(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.SaveCheckpoint(ctx, testRecord("fridge", 0, 1)); err == nil {
		t.Fatal("expected error for save before Init")
	}
	if _, _, err := store.GetCheckpoint(ctx, "fridge", 0); err == nil {
		t.Fatal("expected error for get before Init")
	}
	if _, err := store.ListCheckpoints(ctx); err == nil {
		t.Fatal("expected error for list before Init")
	}

	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := store.SaveCheckpoint(ctx, testRecord("fridge", 0, 1)); err != nil {
		t.Fatalf("save after init: %v", err)
	}
}

func TestMemoryStoreIsolatesSnapshots(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.Init(ctx)

	rec := testRecord("fridge", 0, 0.5)
	store.SaveCheckpoint(ctx, rec)
	rec.Snapshot.Params[0].Data[0] = 99

	got, _, _ := store.GetCheckpoint(ctx, "fridge", 0)
	if got.Snapshot.Params[0].Data[0] != 1 {
		t.Fatal("stored snapshot aliases the caller's slice")
	}

	got.Snapshot.Params[0].Data[0] = 77
	again, _, _ := store.GetCheckpoint(ctx, "fridge", 0)
	if again.Snapshot.Params[0].Data[0] != 1 {
		t.Fatal("returned snapshot aliases the stored copy")
	}
}
