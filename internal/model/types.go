package model

import (
	"fmt"
	"strings"
)

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// ApplianceStats holds the z-score normalization constants for one appliance.
type ApplianceStats struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// ParamState is the serialized form of one learned weight tensor.
type ParamState struct {
	Name string    `json:"name"`
	Rows int       `json:"rows"`
	Cols int       `json:"cols"`
	Data []float64 `json:"data"`
}

// Snapshot is a full copy of a network's learned parameters.
type Snapshot struct {
	Params []ParamState `json:"params"`
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{Params: make([]ParamState, len(s.Params))}
	for i, p := range s.Params {
		out.Params[i] = ParamState{
			Name: p.Name,
			Rows: p.Rows,
			Cols: p.Cols,
			Data: append([]float64(nil), p.Data...),
		}
	}
	return out
}

// CheckpointRecord is the best-so-far parameter snapshot for one appliance
// within one outer training round.
type CheckpointRecord struct {
	VersionedRecord
	Appliance      string   `json:"appliance"`
	Round          int      `json:"round"`
	RunID          string   `json:"run_id"`
	ValidationLoss float64  `json:"validation_loss"`
	CreatedAtUTC   string   `json:"created_at_utc"`
	Snapshot       Snapshot `json:"snapshot"`
}

// CheckpointKey names a checkpoint deterministically from the appliance name
// and round index. Spaces in appliance names are replaced so the key is safe
// to use as a file or row identifier.
func CheckpointKey(appliance string, round int) string {
	return fmt.Sprintf("%s-round%d", strings.ReplaceAll(appliance, " ", "_"), round)
}
