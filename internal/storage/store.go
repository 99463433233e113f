package storage

import (
	"context"

	"wattsplit/internal/model"
)

// Store persists best-so-far checkpoints keyed by (appliance, round). Writes
// are synchronous; a failed write must not corrupt previously saved rows.
type Store interface {
	Init(ctx context.Context) error
	SaveCheckpoint(ctx context.Context, record model.CheckpointRecord) error
	GetCheckpoint(ctx context.Context, appliance string, round int) (model.CheckpointRecord, bool, error)
	ListCheckpoints(ctx context.Context) ([]model.CheckpointRecord, error)
}
