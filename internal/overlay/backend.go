// Package overlay holds the locally persisted layer of edits that sits on
// top of the read-only seed data. Each collection is stored under a single
// key as a JSON array of slots (present records and tombstones).
package overlay

import (
	"context"
	"errors"
)

// KeyPrefix is prepended to the collection name to build the storage key.
const KeyPrefix = "otis_db_"

// ErrClosed is returned by backends used after Close.
var ErrClosed = errors.New("overlay backend closed")

// Driver names a backend implementation.
type Driver string

const (
	DriverMemory   Driver = "memory"
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Backend is a durable key/value area holding one JSON payload per key.
// Load reports ok=false when the key has never been written or was deleted.
type Backend interface {
	Load(ctx context.Context, key string) (payload []byte, ok bool, err error)
	Save(ctx context.Context, key string, payload []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	Driver() Driver
	Close() error
}
