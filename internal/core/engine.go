// Package core merges the read-only seed datasets with the local overlay
// and implements the create, update and remove operations on top of them.
package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"elevadorpro/internal/logging"
	"elevadorpro/internal/notify"
	"elevadorpro/internal/overlay"
	"elevadorpro/internal/seed"
	"elevadorpro/pkg/domain"
)

// ErrMissingID is returned by Update and Remove when no id is given.
var ErrMissingID = errors.New("record id required")

// Engine is the single entry point for reading and mutating collections.
// Mutations on all collections are serialized by one mutex so every
// read-modify-write of the overlay is atomic with respect to the others.
type Engine struct {
	seeds *seed.Reader
	local *overlay.Store

	mu      sync.Mutex
	log     logging.Logger
	metrics MetricsRecorder
	tracer  Tracer
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l logging.Logger) Option {
	return func(e *Engine) { e.log = logging.OrNop(l) }
}

// WithMetrics records operation outcomes on m.
func WithMetrics(m MetricsRecorder) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithTracer wraps every operation in a span from t.
func WithTracer(t Tracer) Option {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

// NewEngine builds an engine over the given seed reader and overlay store.
func NewEngine(seeds *seed.Reader, local *overlay.Store, opts ...Option) *Engine {
	e := &Engine{
		seeds:   seeds,
		local:   local,
		log:     logging.Nop(),
		metrics: noopMetrics{},
		tracer:  noopTracer{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Seeds returns the seed reader.
func (e *Engine) Seeds() *seed.Reader { return e.seeds }

// Overlay returns the overlay store.
func (e *Engine) Overlay() *overlay.Store { return e.local }

// Subscribe registers fn to run after every overlay write of c. Listeners
// run while the write lock is held: they may re-read with List or Get but
// must not call Create, Update, Remove or ResetOverlay.
func (e *Engine) Subscribe(c domain.Collection, fn notify.Listener) (unsubscribe func()) {
	return e.local.Bus().Subscribe(c, fn)
}

// List returns the merged view of c.
func (e *Engine) List(ctx context.Context, c domain.Collection) (recs []domain.Record, err error) {
	ctx, done := e.begin(ctx, "list", c)
	defer func() { done(err) }()
	if err = checkCollection(c); err != nil {
		return nil, err
	}
	seedRecs, slots, err := e.load(ctx, c)
	if err != nil {
		return nil, err
	}
	return Merge(seedRecs, slots), nil
}

// Get returns the visible record id of c.
func (e *Engine) Get(ctx context.Context, c domain.Collection, id string) (domain.Record, error) {
	recs, err := e.List(ctx, c)
	if err != nil {
		return nil, err
	}
	for _, rec := range recs {
		if rec.ID() == id {
			return rec, nil
		}
	}
	return nil, notFound(c, id)
}

// Removed reports whether the overlay of c holds a tombstone for id.
func (e *Engine) Removed(ctx context.Context, c domain.Collection, id string) bool {
	return hasTombstone(e.local.ReadLocal(ctx, c), id)
}

// Create stores rec as a new overlay record. Without an id one is
// allocated from the collection prefix. A supplied id that is already
// visible fails with ErrDuplicateID; a tombstoned one is revived.
// Tombstone markers in rec are dropped.
func (e *Engine) Create(ctx context.Context, c domain.Collection, rec domain.Record) (created domain.Record, err error) {
	ctx, done := e.begin(ctx, "create", c)
	defer func() { done(err) }()
	if err = checkCollection(c); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	seedRecs, slots, err := e.load(ctx, c)
	if err != nil {
		return nil, err
	}
	merged := Merge(seedRecs, slots)
	id := rec.ID()
	if id == "" {
		id = NextID(c.IDPrefix(), merged)
	} else if indexOf(merged, id) >= 0 {
		return nil, fmt.Errorf("%s %s: %w", c, id, ErrDuplicateID)
	}
	created = rec.WithoutMarkers().WithID(id)
	next := append(withoutID(slots, id), domain.Present(created))
	if err = e.write(ctx, c, next); err != nil {
		return nil, err
	}
	e.log.Info("record created", "collection", string(c), "id", id)
	return created.Clone(), nil
}

// Update shallow-merges patch over the current record with the same id.
// The base is the overlay entry when one exists, otherwise the seed
// record; an id unknown to both is inserted as given. Updating a removed
// record fails with ErrNotFound. Tombstone markers in patch are dropped.
func (e *Engine) Update(ctx context.Context, c domain.Collection, patch domain.Record) (updated domain.Record, err error) {
	ctx, done := e.begin(ctx, "update", c)
	defer func() { done(err) }()
	if err = checkCollection(c); err != nil {
		return nil, err
	}
	id := patch.ID()
	if id == "" {
		return nil, ErrMissingID
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	seedRecs, slots, err := e.load(ctx, c)
	if err != nil {
		return nil, err
	}
	if hasTombstone(slots, id) {
		return nil, notFound(c, id)
	}
	if i := presentIndex(slots, id); i >= 0 {
		updated = slots[i].Record.Merge(patch).WithoutMarkers().WithID(id)
		slots[i] = domain.Present(updated)
	} else {
		base := domain.Record{}
		if j := indexOf(seedRecs, id); j >= 0 {
			base = seedRecs[j]
		}
		updated = base.Merge(patch).WithoutMarkers().WithID(id)
		slots = append(slots, domain.Present(updated))
	}
	if err = e.write(ctx, c, slots); err != nil {
		return nil, err
	}
	e.log.Info("record updated", "collection", string(c), "id", id)
	return updated.Clone(), nil
}

// Remove hides id from the merged view. Overlay entries for id are
// dropped and, when the seed carries id, a tombstone is written. Removing
// an id that is not visible is a no-op.
func (e *Engine) Remove(ctx context.Context, c domain.Collection, id string) (err error) {
	ctx, done := e.begin(ctx, "remove", c)
	defer func() { done(err) }()
	if err = checkCollection(c); err != nil {
		return err
	}
	if id == "" {
		return ErrMissingID
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	seedRecs, slots, err := e.load(ctx, c)
	if err != nil {
		return err
	}
	inSeed := indexOf(seedRecs, id) >= 0
	local := presentIndex(slots, id) >= 0
	switch {
	case local && inSeed:
		slots = append(withoutID(slots, id), domain.Tombstone(id))
	case local:
		slots = withoutID(slots, id)
	case inSeed && !hasTombstone(slots, id):
		slots = append(slots, domain.Tombstone(id))
	default:
		return nil
	}
	if err = e.write(ctx, c, slots); err != nil {
		return err
	}
	e.log.Info("record removed", "collection", string(c), "id", id)
	return nil
}

// ResetOverlay discards every local edit.
func (e *Engine) ResetOverlay(ctx context.Context) (err error) {
	ctx, done := e.begin(ctx, "reset", "")
	defer func() { done(err) }()
	e.mu.Lock()
	defer e.mu.Unlock()
	if err = e.local.Reset(ctx); err != nil {
		return err
	}
	if sizer, ok := e.metrics.(OverlaySizer); ok {
		for _, c := range domain.Collections() {
			sizer.SetOverlayEntries(string(c), 0)
		}
	}
	e.log.Warn("overlay reset")
	return nil
}

// load reads the seed and the overlay of c concurrently.
func (e *Engine) load(ctx context.Context, c domain.Collection) ([]domain.Record, []domain.Slot, error) {
	var (
		seedRecs []domain.Record
		slots    []domain.Slot
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		seedRecs, err = e.seeds.Read(gctx, c)
		return err
	})
	g.Go(func() error {
		slots = e.local.ReadLocal(gctx, c)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return seedRecs, slots, nil
}

func (e *Engine) write(ctx context.Context, c domain.Collection, slots []domain.Slot) error {
	if err := e.local.WriteLocal(ctx, c, slots); err != nil {
		return err
	}
	if sizer, ok := e.metrics.(OverlaySizer); ok {
		sizer.SetOverlayEntries(string(c), len(slots))
	}
	return nil
}

func (e *Engine) begin(ctx context.Context, op string, c domain.Collection) (context.Context, func(error)) {
	name := op
	if c != "" {
		name = op + "_" + string(c)
	}
	ctx, span := e.tracer.Start(ctx, name)
	start := time.Now()
	return ctx, func(err error) {
		e.metrics.Observe(ctx, op, err == nil, time.Since(start))
		span.End(err)
		if err != nil {
			e.log.Debug("operation failed", "operation", op, "collection", string(c), "error", err)
		}
	}
}
