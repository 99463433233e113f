package stats

import (
	"os"
	"path/filepath"
	"testing"

	"wattsplit/internal/trainer"
)

func TestWriteAndReadFitArtifacts(t *testing.T) {
	dir := t.TempDir()
	hist := trainer.History{
		RunID:          "run-abc",
		Appliance:      "fridge",
		Round:          0,
		TrainLoss:      []float64{0.9, 0.4},
		ValidationLoss: []float64{0.8, 0.5},
		BestValidation: 0.5,
	}

	runDir, err := WriteFitArtifacts(dir, hist)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if runDir != filepath.Join(dir, "run-abc") {
		t.Fatalf("run dir = %q", runDir)
	}
	if _, err := os.Stat(filepath.Join(runDir, "loss_history.json")); err != nil {
		t.Fatalf("loss history missing: %v", err)
	}

	got, ok, err := ReadFitHistory(dir, "run-abc")
	if err != nil || !ok {
		t.Fatalf("read: ok=%v err=%v", ok, err)
	}
	if got.Appliance != "fridge" || got.BestValidation != 0.5 {
		t.Fatalf("history mismatch: %+v", got)
	}
	if len(got.TrainLoss) != 2 || got.TrainLoss[1] != 0.4 {
		t.Fatalf("train loss mismatch: %v", got.TrainLoss)
	}
}

func TestWriteFitArtifactsRequiresRunID(t *testing.T) {
	if _, err := WriteFitArtifacts(t.TempDir(), trainer.History{}); err == nil {
		t.Fatal("expected error for missing run id")
	}
}

func TestReadFitHistoryMissingRun(t *testing.T) {
	_, ok, err := ReadFitHistory(t.TempDir(), "nope")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if ok {
		t.Fatal("missing run should report ok=false")
	}
}

func TestRunIndexAppendAndUpdate(t *testing.T) {
	dir := t.TempDir()

	if index, err := ListRunIndex(dir); err != nil || index != nil {
		t.Fatalf("empty index: %v %v", index, err)
	}

	first := RunIndexEntry{RunID: "r1", Appliance: "fridge", Epochs: 2, BestValidation: 0.5}
	second := RunIndexEntry{RunID: "r2", Appliance: "kettle", Epochs: 2, BestValidation: 0.9}
	if err := AppendRunIndex(dir, first); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := AppendRunIndex(dir, second); err != nil {
		t.Fatalf("append: %v", err)
	}

	// Re-appending an existing run updates it in place.
	first.BestValidation = 0.3
	if err := AppendRunIndex(dir, first); err != nil {
		t.Fatalf("update: %v", err)
	}

	index, err := ListRunIndex(dir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(index) != 2 {
		t.Fatalf("index length = %d, want 2", len(index))
	}
	if index[0].RunID != "r1" || index[0].BestValidation != 0.3 {
		t.Fatalf("updated entry mismatch: %+v", index[0])
	}
	if index[1].RunID != "r2" {
		t.Fatalf("second entry mismatch: %+v", index[1])
	}
}

func TestAppendRunIndexRequiresRunID(t *testing.T) {
	if err := AppendRunIndex(t.TempDir(), RunIndexEntry{}); err == nil {
		t.Fatal("expected error for missing run id")
	}
}
