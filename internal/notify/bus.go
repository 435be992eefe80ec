// Package notify fans out "collection changed" signals to subscribers.
// Signals carry no payload: subscribers re-read the collection themselves.
package notify

import (
	"sort"
	"sync"

	"elevadorpro/pkg/domain"
)

// Listener is invoked after every overlay write of a collection.
type Listener func()

// Bus holds per-collection listeners. The zero value is not usable; call New.
type Bus struct {
	mu     sync.RWMutex
	next   uint64
	listen map[domain.Collection]map[uint64]Listener
}

// New returns an empty bus.
func New() *Bus {
	return &Bus{listen: make(map[domain.Collection]map[uint64]Listener)}
}

// Subscribe registers fn for collection c. The returned function removes
// the registration; calling it more than once is harmless.
func (b *Bus) Subscribe(c domain.Collection, fn Listener) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	b.mu.Lock()
	b.next++
	id := b.next
	if b.listen[c] == nil {
		b.listen[c] = make(map[uint64]Listener)
	}
	b.listen[c][id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if ls := b.listen[c]; ls != nil {
			delete(ls, id)
			if len(ls) == 0 {
				delete(b.listen, c)
			}
		}
	}
}

// Publish synchronously invokes every listener registered for c at the
// moment of the call. Listeners run outside the bus lock and may
// subscribe or unsubscribe.
func (b *Bus) Publish(c domain.Collection) {
	b.mu.RLock()
	ls := b.listen[c]
	ids := make([]uint64, 0, len(ls))
	for id := range ls {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	snapshot := make([]Listener, 0, len(ids))
	for _, id := range ids {
		snapshot = append(snapshot, ls[id])
	}
	b.mu.RUnlock()

	for _, fn := range snapshot {
		fn()
	}
}

// Subscribers reports how many listeners are registered for c.
func (b *Bus) Subscribers(c domain.Collection) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listen[c])
}

// Reset drops every listener.
func (b *Bus) Reset() {
	b.mu.Lock()
	b.listen = make(map[domain.Collection]map[uint64]Listener)
	b.mu.Unlock()
}
