package storage

import "fmt"

// NewStore selects the checkpoint store backend. The empty kind and
// "memory" yield the in-process store; "sqlite" yields the durable store at
// dbPath, available only in builds with the sqlite tag.
func NewStore(kind, dbPath string) (Store, error) {
	switch kind {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return newSQLiteStore(dbPath)
	default:
		return nil, fmt.Errorf("unsupported checkpoint store backend: %s", kind)
	}
}

// CloseIfSupported releases the store's resources when the backend holds
// any; the memory store does not.
func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}
