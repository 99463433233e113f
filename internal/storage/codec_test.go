package storage

import (
	"errors"
	"testing"
)

func TestCodecRoundTrip(t *testing.T) {
	rec := testRecord("washing machine", 2, 0.125)
	data, err := EncodeCheckpoint(rec)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	got, err := DecodeCheckpoint(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Appliance != "washing machine" || got.Round != 2 || got.ValidationLoss != 0.125 {
		t.Fatalf("decoded record mismatch: %+v", got)
	}
	if len(got.Snapshot.Params) != 1 || got.Snapshot.Params[0].Data[1] != 2 {
		t.Fatalf("snapshot mismatch: %+v", got.Snapshot)
	}
}

func TestCodecRejectsSchemaMismatch(t *testing.T) {
	rec := testRecord("fridge", 0, 1)
	rec.SchemaVersion = CurrentSchemaVersion + 1
	data, err := EncodeCheckpoint(rec)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeCheckpoint(data); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("err = %v, want ErrVersionMismatch", err)
	}
}

func TestCodecRejectsCodecMismatch(t *testing.T) {
	rec := testRecord("fridge", 0, 1)
	rec.CodecVersion = 0
	data, _ := EncodeCheckpoint(rec)
	if _, err := DecodeCheckpoint(data); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("err = %v, want ErrVersionMismatch", err)
	}
}

func TestCodecRejectsGarbage(t *testing.T) {
	if _, err := DecodeCheckpoint([]byte("{not json")); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}

func TestStampSetsCurrentVersions(t *testing.T) {
	var rec = testRecord("fridge", 0, 1)
	rec.SchemaVersion = 0
	rec.CodecVersion = 0
	Stamp(&rec)
	if rec.SchemaVersion != CurrentSchemaVersion || rec.CodecVersion != CurrentCodecVersion {
		t.Fatalf("stamped versions = %d/%d", rec.SchemaVersion, rec.CodecVersion)
	}
}
