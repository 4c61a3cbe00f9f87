package storage

import (
	"errors"
	"fmt"
	"slices"
)

const (
	KindMemory = "memory"
	KindSQLite = "sqlite"
)

var ErrUnsupportedStore = errors.New("unsupported store backend")

// Kinds lists the backend names NewStore understands, whether or not this
// build carries the sqlite driver.
func Kinds() []string { return []string{KindMemory, KindSQLite} }

func SupportedKind(kind string) bool { return slices.Contains(Kinds(), kind) }

// NewStore opens a population/run store. An empty kind selects the memory
// store; sqlite needs a database path.
func NewStore(kind, sqlitePath string) (Store, error) {
	switch kind {
	case "", KindMemory:
		return NewMemoryStore(), nil
	case KindSQLite:
		if sqlitePath == "" {
			return nil, fmt.Errorf("sqlite store requires a database path")
		}
		return newSQLiteStore(sqlitePath)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedStore, kind)
	}
}

func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}
