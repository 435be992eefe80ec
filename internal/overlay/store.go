package overlay

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"elevadorpro/internal/logging"
	"elevadorpro/internal/notify"
	"elevadorpro/pkg/domain"
)

// Store reads and writes per-collection slot lists on a Backend and
// announces every successful write on the notification bus.
type Store struct {
	backend Backend
	prefix  string
	bus     *notify.Bus
	log     logging.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithKeyPrefix overrides KeyPrefix.
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithBus publishes writes on bus instead of a private one.
func WithBus(bus *notify.Bus) Option {
	return func(s *Store) {
		if bus != nil {
			s.bus = bus
		}
	}
}

// WithLogger sets the logger used to report unreadable payloads.
func WithLogger(l logging.Logger) Option {
	return func(s *Store) { s.log = logging.OrNop(l) }
}

// NewStore wraps backend.
func NewStore(backend Backend, opts ...Option) *Store {
	s := &Store{backend: backend, prefix: KeyPrefix, bus: notify.New(), log: logging.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the storage key of c.
func (s *Store) Key(c domain.Collection) string { return s.prefix + string(c) }

// Bus returns the bus writes are published on.
func (s *Store) Bus() *notify.Bus { return s.bus }

// Backend returns the underlying persistence backend.
func (s *Store) Backend() Backend { return s.backend }

// ReadLocal returns the overlay slots of c in stored order. It never fails:
// a missing, unreadable or corrupt payload yields an empty list.
func (s *Store) ReadLocal(ctx context.Context, c domain.Collection) []domain.Slot {
	key := s.Key(c)
	raw, ok, err := s.backend.Load(ctx, key)
	if err != nil {
		s.log.Warn("overlay unreadable, treating as empty", "key", key, "error", err)
		return []domain.Slot{}
	}
	if !ok || len(raw) == 0 {
		return []domain.Slot{}
	}
	slots, err := decodeSlots(raw)
	if err != nil {
		s.log.Warn("overlay corrupt, treating as empty", "key", key, "error", err)
		return []domain.Slot{}
	}
	return slots
}

// WriteLocal replaces the overlay of c with slots, then notifies
// subscribers of c. Listeners have run by the time WriteLocal returns.
func (s *Store) WriteLocal(ctx context.Context, c domain.Collection, slots []domain.Slot) error {
	out := make([]domain.Slot, 0, len(slots))
	for _, slot := range slots {
		if slot.Kind != domain.SlotAbsent {
			out = append(out, slot)
		}
	}
	payload, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("encode overlay %s: %w", c, err)
	}
	if err := s.backend.Save(ctx, s.Key(c), payload); err != nil {
		return fmt.Errorf("persist overlay %s: %w", c, err)
	}
	s.bus.Publish(c)
	return nil
}

// Reset drops the overlay of every known collection and notifies each.
func (s *Store) Reset(ctx context.Context) error {
	keys, err := s.backend.Keys(ctx)
	if err != nil {
		return fmt.Errorf("list overlay keys: %w", err)
	}
	for _, key := range keys {
		if !strings.HasPrefix(key, s.prefix) {
			continue
		}
		if err := s.backend.Delete(ctx, key); err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
	}
	for _, c := range domain.Collections() {
		s.bus.Publish(c)
	}
	return nil
}

// Raw returns the persisted payload of c as stored, or "[]" when empty.
func (s *Store) Raw(ctx context.Context, c domain.Collection) ([]byte, error) {
	raw, ok, err := s.backend.Load(ctx, s.Key(c))
	if err != nil {
		return nil, err
	}
	if !ok {
		return []byte("[]"), nil
	}
	return raw, nil
}

// Close releases the backend.
func (s *Store) Close() error { return s.backend.Close() }

func decodeSlots(raw []byte) ([]domain.Slot, error) {
	var decoded []domain.Slot
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, err
	}
	slots := make([]domain.Slot, 0, len(decoded))
	for _, slot := range decoded {
		if slot.Kind == domain.SlotAbsent || slot.ID == "" {
			continue
		}
		slots = append(slots, slot)
	}
	return slots, nil
}
