package main

import (
	"os"
	"path/filepath"
	"testing"

	"wattsplit/pkg/wattsplit"
)

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "series.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

func TestReadSeriesCSVPlain(t *testing.T) {
	got, err := readSeriesCSV(writeTempCSV(t, "1.5\n2\n3.25\n"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := []float64{1.5, 2, 3.25}
	if len(got) != len(want) {
		t.Fatalf("length %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("row %d = %g, want %g", i, got[i], want[i])
		}
	}
}

func TestReadSeriesCSVHeaderAndTimestamps(t *testing.T) {
	content := "timestamp,power\n2024-01-01T00:00:00Z,120.5\n2024-01-01T00:00:06Z,98\n"
	got, err := readSeriesCSV(writeTempCSV(t, content))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 2 || got[0] != 120.5 || got[1] != 98 {
		t.Fatalf("got %v", got)
	}
}

func TestReadSeriesCSVBadValue(t *testing.T) {
	if _, err := readSeriesCSV(writeTempCSV(t, "1\noops\n3\n")); err == nil {
		t.Fatal("expected error for non-numeric value past the header")
	}
}

func TestReadSeriesCSVEmpty(t *testing.T) {
	if _, err := readSeriesCSV(writeTempCSV(t, "")); err == nil {
		t.Fatal("expected error for empty file")
	}
}

func TestWriteThenReadResultsCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	table := wattsplit.ResultTable{
		Appliances: []string{"fridge", "kettle"},
		Series: map[string][]float64{
			"fridge": {85.5, 90},
			"kettle": {0, 2000},
		},
	}
	if err := writeResultsCSV(path, table); err != nil {
		t.Fatalf("write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	want := "fridge,kettle\n85.5000,0.0000\n90.0000,2000.0000\n"
	if string(data) != want {
		t.Fatalf("file content:\n%s\nwant:\n%s", data, want)
	}
}
