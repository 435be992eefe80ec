// Package seedstore defines where immutable seed datasets live. A Source
// is a thin read-mostly object store: the fs driver reads plain JSON files
// from a directory, the s3 driver reads objects from a bucket, and the
// memory driver backs tests.
package seedstore

import (
	"context"
	"errors"
	"io"
	"time"
)

// Driver identifies a concrete seed source implementation.
type Driver string

const (
	// DriverFilesystem reads seed files from a local directory (default).
	DriverFilesystem Driver = "fs"
	// DriverS3 reads seed objects from an S3 / MinIO bucket.
	DriverS3 Driver = "s3"
	// DriverMemory keeps seeds in process memory (tests).
	DriverMemory Driver = "memory"
)

// Info describes a stored seed object.
type Info struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size_bytes"`
	ContentType  string    `json:"content_type,omitempty"`
	ETag         string    `json:"etag,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// Source is implemented by every seed backend.
type Source interface {
	// Get opens the object at key. Missing keys yield an error matching ErrNotFound.
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	// Head returns metadata only.
	Head(ctx context.Context, key string) (Info, error)
	// List returns objects whose key has prefix, ordered by key.
	List(ctx context.Context, prefix string) ([]Info, error)
	// Put writes (or replaces) the object at key.
	Put(ctx context.Context, key string, r io.Reader, contentType string) (Info, error)
	// Driver reports the backend identifier.
	Driver() Driver
}

// ErrNotFound is returned (possibly wrapped) when a key does not exist.
var ErrNotFound = errors.New("seedstore: object not found")

// ContentTypeJSON is the content type recorded for seed files.
const ContentTypeJSON = "application/json"
