package storage

import (
	"context"
	"errors"
	"sort"
	"sync"

	"wattsplit/internal/model"
)

var errNotInitialized = errors.New("store is not initialized")

type MemoryStore struct {
	mu          sync.RWMutex
	checkpoints map[string]model.CheckpointRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.checkpoints = make(map[string]model.CheckpointRecord)
	return nil
}

func (s *MemoryStore) SaveCheckpoint(_ context.Context, record model.CheckpointRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.checkpoints == nil {
		return errNotInitialized
	}
	record.Snapshot = record.Snapshot.Clone()
	s.checkpoints[model.CheckpointKey(record.Appliance, record.Round)] = record
	return nil
}

func (s *MemoryStore) GetCheckpoint(_ context.Context, appliance string, round int) (model.CheckpointRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.checkpoints == nil {
		return model.CheckpointRecord{}, false, errNotInitialized
	}
	record, ok := s.checkpoints[model.CheckpointKey(appliance, round)]
	if !ok {
		return model.CheckpointRecord{}, false, nil
	}
	record.Snapshot = record.Snapshot.Clone()
	return record, true, nil
}

func (s *MemoryStore) ListCheckpoints(_ context.Context) ([]model.CheckpointRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.checkpoints == nil {
		return nil, errNotInitialized
	}
	keys := make([]string, 0, len(s.checkpoints))
	for key := range s.checkpoints {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	records := make([]model.CheckpointRecord, 0, len(keys))
	for _, key := range keys {
		record := s.checkpoints[key]
		record.Snapshot = record.Snapshot.Clone()
		records = append(records, record)
	}
	return records, nil
}
