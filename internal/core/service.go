package core

import (
	"context"
	"errors"
	"strings"
	"time"

	"elevadorpro/pkg/domain"
)

// Operation defaults applied on create when the caller leaves them blank.
const (
	DefaultOperationStatus     = "Aberta"
	DefaultOperationPrioridade = "Média"
)

// Service exposes validated CRUD on top of the engine plus typed
// repositories per collection.
type Service struct {
	engine *Engine
	now    func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithClock overrides the clock used for default dates.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService constructs a service backed by engine.
func NewService(engine *Engine, opts ...ServiceOption) *Service {
	s := &Service{engine: engine, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Engine returns the underlying engine.
func (s *Service) Engine() *Engine { return s.engine }

// List returns the merged view of c.
func (s *Service) List(ctx context.Context, c domain.Collection) ([]domain.Record, error) {
	return s.engine.List(ctx, c)
}

// Get returns one visible record.
func (s *Service) Get(ctx context.Context, c domain.Collection, id string) (domain.Record, error) {
	return s.engine.Get(ctx, c, id)
}

// Create fills collection defaults, validates and stores rec.
func (s *Service) Create(ctx context.Context, c domain.Collection, rec domain.Record) (domain.Record, error) {
	if err := checkCollection(c); err != nil {
		return nil, err
	}
	rec = s.withDefaults(c, rec)
	if err := domain.Validate(c, rec); err != nil {
		return nil, err
	}
	return s.engine.Create(ctx, c, rec)
}

// Update validates the record that would result from applying patch and
// stores it.
func (s *Service) Update(ctx context.Context, c domain.Collection, patch domain.Record) (domain.Record, error) {
	if err := checkCollection(c); err != nil {
		return nil, err
	}
	if patch.ID() == "" {
		return nil, ErrMissingID
	}
	current, err := s.engine.Get(ctx, c, patch.ID())
	switch {
	case errors.Is(err, ErrNotFound):
		if s.engine.Removed(ctx, c, patch.ID()) {
			return nil, err
		}
	case err != nil:
		return nil, err
	}
	if err := domain.Validate(c, current.Merge(patch)); err != nil {
		return nil, err
	}
	return s.engine.Update(ctx, c, patch)
}

// Remove hides id from c.
func (s *Service) Remove(ctx context.Context, c domain.Collection, id string) error {
	return s.engine.Remove(ctx, c, id)
}

func (s *Service) withDefaults(c domain.Collection, rec domain.Record) domain.Record {
	if c != domain.CollectionOperations {
		return rec
	}
	out := rec.Clone()
	if out == nil {
		out = domain.Record{}
	}
	setDefault := func(field, value string) {
		if strings.TrimSpace(out.String(field)) == "" {
			out[field] = value
		}
	}
	setDefault("status", DefaultOperationStatus)
	setDefault("prioridade", DefaultOperationPrioridade)
	setDefault("dataAbertura", s.now().Format("2006-01-02"))
	return out
}

// Repository is a typed view of one collection.
type Repository[T any] struct {
	svc *Service
	c   domain.Collection
}

// Clients returns the client repository.
func (s *Service) Clients() Repository[domain.Client] {
	return Repository[domain.Client]{svc: s, c: domain.CollectionClients}
}

// Elevators returns the elevator (product) repository.
func (s *Service) Elevators() Repository[domain.Elevator] {
	return Repository[domain.Elevator]{svc: s, c: domain.CollectionElevators}
}

// Operations returns the operation (order) repository.
func (s *Service) Operations() Repository[domain.Operation] {
	return Repository[domain.Operation]{svc: s, c: domain.CollectionOperations}
}

// Users returns the user repository.
func (s *Service) Users() Repository[domain.User] {
	return Repository[domain.User]{svc: s, c: domain.CollectionUsers}
}

// Collection names the collection behind the repository.
func (r Repository[T]) Collection() domain.Collection { return r.c }

func (r Repository[T]) List(ctx context.Context) ([]T, error) {
	recs, err := r.svc.List(ctx, r.c)
	if err != nil {
		return nil, err
	}
	return decodeAll[T](recs)
}

func (r Repository[T]) Get(ctx context.Context, id string) (T, error) {
	var out T
	rec, err := r.svc.Get(ctx, r.c, id)
	if err != nil {
		return out, err
	}
	err = rec.Decode(&out)
	return out, err
}

func (r Repository[T]) Create(ctx context.Context, v T) (T, error) {
	return r.write(ctx, v, r.svc.Create)
}

// Update writes every field of v over the stored record.
func (r Repository[T]) Update(ctx context.Context, v T) (T, error) {
	return r.write(ctx, v, r.svc.Update)
}

func (r Repository[T]) Remove(ctx context.Context, id string) error {
	return r.svc.Remove(ctx, r.c, id)
}

// OnChange runs fn after every write to the collection.
func (r Repository[T]) OnChange(fn func()) (unsubscribe func()) {
	return r.svc.engine.Subscribe(r.c, fn)
}

func (r Repository[T]) write(ctx context.Context, v T, op func(context.Context, domain.Collection, domain.Record) (domain.Record, error)) (T, error) {
	var out T
	rec, err := domain.RecordOf(v)
	if err != nil {
		return out, err
	}
	if rec.ID() == "" {
		delete(rec, domain.FieldID)
	}
	saved, err := op(ctx, r.c, rec)
	if err != nil {
		return out, err
	}
	err = saved.Decode(&out)
	return out, err
}

func decodeAll[T any](recs []domain.Record) ([]T, error) {
	out := make([]T, 0, len(recs))
	for _, rec := range recs {
		var v T
		if err := rec.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
