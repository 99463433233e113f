// Package stats writes training-run artifacts to disk for offline
// inspection: one directory per fit run holding the epoch loss history,
// plus a flat index of all runs.
package stats

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"wattsplit/internal/trainer"
)

const runIndexFile = "run_index.json"

type RunIndexEntry struct {
	RunID          string  `json:"run_id"`
	Appliance      string  `json:"appliance"`
	Round          int     `json:"round"`
	Epochs         int     `json:"epochs"`
	Skipped        bool    `json:"skipped"`
	BestValidation float64 `json:"best_validation"`
	CreatedAtUTC   string  `json:"created_at_utc"`
}

// WriteFitArtifacts stores one fit's loss history under baseDir/<run id> and
// returns the run directory.
func WriteFitArtifacts(baseDir string, hist trainer.History) (string, error) {
	if hist.RunID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, hist.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "loss_history.json"), hist); err != nil {
		return "", err
	}
	return runDir, nil
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}
	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, runIndexFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var index []RunIndexEntry
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, err
	}
	return index, nil
}

func ReadFitHistory(baseDir, runID string) (trainer.History, bool, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, runID, "loss_history.json"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return trainer.History{}, false, nil
		}
		return trainer.History{}, false, err
	}

	var hist trainer.History
	if err := json.Unmarshal(data, &hist); err != nil {
		return trainer.History{}, false, err
	}
	return hist, true, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
