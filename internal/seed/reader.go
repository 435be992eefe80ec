// Package seed loads the immutable factory datasets shipped with the
// application. Each collection is fetched at most once per Reader; every
// later call is served from memory.
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"sync"

	"golang.org/x/sync/singleflight"

	"elevadorpro/internal/logging"
	"elevadorpro/internal/seedstore"
	"elevadorpro/pkg/domain"
)

// FetchError reports a seed that could not be loaded: missing object,
// backend failure, or a payload that is not a JSON array.
type FetchError struct {
	Collection domain.Collection
	Key        string
	Err        error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("load seed %s (%s): %v", e.Collection, e.Key, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Reader reads and caches seed collections from a seedstore.Source.
// Successful loads are cached for the Reader's lifetime; failures are not,
// so a later call retries.
type Reader struct {
	src    seedstore.Source
	prefix string
	log    logging.Logger

	group singleflight.Group
	mu    sync.RWMutex
	cache map[domain.Collection][]domain.Record
}

// Option configures a Reader.
type Option func(*Reader)

// WithPrefix places seed files under prefix (e.g. "data").
func WithPrefix(prefix string) Option {
	return func(r *Reader) { r.prefix = prefix }
}

// WithLogger sets the logger used for lenient reads and load events.
func WithLogger(l logging.Logger) Option {
	return func(r *Reader) { r.log = logging.OrNop(l) }
}

// NewReader constructs a Reader over src.
func NewReader(src seedstore.Source, opts ...Option) *Reader {
	r := &Reader{
		src:   src,
		log:   logging.Nop(),
		cache: make(map[domain.Collection][]domain.Record),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Key returns the object key holding collection c.
func (r *Reader) Key(c domain.Collection) string {
	if r.prefix == "" {
		return c.SeedFile()
	}
	return path.Join(r.prefix, c.SeedFile())
}

// Read returns the seed records of c. Concurrent first calls share a
// single fetch. The returned slice and records are copies; callers may
// modify them freely.
func (r *Reader) Read(ctx context.Context, c domain.Collection) ([]domain.Record, error) {
	if recs, ok := r.cached(c); ok {
		return cloneRecords(recs), nil
	}
	v, err, _ := r.group.Do(string(c), func() (any, error) {
		if recs, ok := r.cached(c); ok {
			return recs, nil
		}
		recs, err := r.fetch(ctx, c)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.cache[c] = recs
		r.mu.Unlock()
		r.log.Debug("seed loaded", "collection", string(c), "records", len(recs))
		return recs, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneRecords(v.([]domain.Record)), nil
}

// ReadOrEmpty is the lenient variant used by views that prefer an empty
// collection over an error.
func (r *Reader) ReadOrEmpty(ctx context.Context, c domain.Collection) []domain.Record {
	recs, err := r.Read(ctx, c)
	if err != nil {
		r.log.Warn("seed unavailable, using empty collection", "collection", string(c), "error", err)
		return []domain.Record{}
	}
	return recs
}

// Reset drops every cached collection.
func (r *Reader) Reset() {
	r.mu.Lock()
	r.cache = make(map[domain.Collection][]domain.Record)
	r.mu.Unlock()
}

// Source exposes the underlying seed source.
func (r *Reader) Source() seedstore.Source { return r.src }

func (r *Reader) cached(c domain.Collection) ([]domain.Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	recs, ok := r.cache[c]
	return recs, ok
}

func (r *Reader) fetch(ctx context.Context, c domain.Collection) ([]domain.Record, error) {
	key := r.Key(c)
	fail := func(err error) error { return &FetchError{Collection: c, Key: key, Err: err} }

	_, body, err := r.src.Get(ctx, key)
	if err != nil {
		return nil, fail(err)
	}
	defer func() { _ = body.Close() }()
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, fail(err)
	}
	return decodeSeed(raw, fail)
}

func decodeSeed(raw []byte, fail func(error) error) ([]domain.Record, error) {
	var recs []domain.Record
	if err := json.Unmarshal(raw, &recs); err != nil {
		return nil, fail(fmt.Errorf("decode json array: %w", err))
	}
	if recs == nil {
		return nil, fail(fmt.Errorf("seed payload is null"))
	}
	return recs, nil
}

func cloneRecords(in []domain.Record) []domain.Record {
	out := make([]domain.Record, len(in))
	for i, rec := range in {
		out[i] = rec.Clone()
	}
	return out
}
