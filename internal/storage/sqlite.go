//go:build sqlite

package storage

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"wattsplit/internal/model"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func newSQLiteStore(path string) (Store, error) {
	return &SQLiteStore{path: path}, nil
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS checkpoints (
			key TEXT PRIMARY KEY,
			appliance TEXT NOT NULL,
			round INTEGER NOT NULL,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL
		)
	`)
	if err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

func (s *SQLiteStore) SaveCheckpoint(ctx context.Context, record model.CheckpointRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeCheckpoint(record)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO checkpoints (key, appliance, round, schema_version, codec_version, payload)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			appliance = excluded.appliance,
			round = excluded.round,
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			payload = excluded.payload
	`, model.CheckpointKey(record.Appliance, record.Round), record.Appliance, record.Round,
		record.SchemaVersion, record.CodecVersion, payload)
	return err
}

func (s *SQLiteStore) GetCheckpoint(ctx context.Context, appliance string, round int) (model.CheckpointRecord, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.CheckpointRecord{}, false, err
	}

	var payload []byte
	row := db.QueryRowContext(ctx, `SELECT payload FROM checkpoints WHERE key = ?`,
		model.CheckpointKey(appliance, round))
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.CheckpointRecord{}, false, nil
		}
		return model.CheckpointRecord{}, false, err
	}

	record, err := DecodeCheckpoint(payload)
	if err != nil {
		return model.CheckpointRecord{}, false, err
	}
	return record, true, nil
}

func (s *SQLiteStore) ListCheckpoints(ctx context.Context) ([]model.CheckpointRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT payload FROM checkpoints ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.CheckpointRecord
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		record, err := DecodeCheckpoint(payload)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
