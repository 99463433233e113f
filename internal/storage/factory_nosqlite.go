//go:build !sqlite

package storage

import "fmt"

// Checkpoints stay in memory in default builds; the sqlite-backed store
// needs the sqlite build tag.
func newSQLiteStore(_ string) (Store, error) {
	return nil, fmt.Errorf("sqlite checkpoint store unavailable in this build; rebuild with -tags sqlite")
}
