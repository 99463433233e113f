package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"wattsplit/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

func EncodeCheckpoint(rec model.CheckpointRecord) ([]byte, error) {
	return json.Marshal(rec)
}

func DecodeCheckpoint(data []byte) (model.CheckpointRecord, error) {
	var rec model.CheckpointRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return model.CheckpointRecord{}, err
	}
	if err := checkVersion(rec.VersionedRecord); err != nil {
		return model.CheckpointRecord{}, err
	}
	return rec, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return fmt.Errorf("%w: schema=%d codec=%d", ErrVersionMismatch, v.SchemaVersion, v.CodecVersion)
	}
	return nil
}

// Stamp sets the current schema and codec versions on a record before it is
// persisted.
func Stamp(rec *model.CheckpointRecord) {
	rec.SchemaVersion = CurrentSchemaVersion
	rec.CodecVersion = CurrentCodecVersion
}
