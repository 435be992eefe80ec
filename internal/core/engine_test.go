package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"elevadorpro/internal/infra/persistence/memory"
	seedmem "elevadorpro/internal/infra/seedstore/memory"
	"elevadorpro/internal/overlay"
	"elevadorpro/internal/seed"
	"elevadorpro/pkg/domain"
)

type fixture struct {
	engine  *Engine
	seeds   *seedmem.Store
	backend *memory.Store
}

func newFixture(t *testing.T, seeds map[domain.Collection]string, opts ...Option) fixture {
	t.Helper()
	src := seedmem.New()
	for _, c := range domain.Collections() {
		body, ok := seeds[c]
		if !ok {
			body = `[]`
		}
		src.PutString(c.SeedFile(), body)
	}
	backend := memory.NewStore()
	eng := NewEngine(seed.NewReader(src), overlay.NewStore(backend), opts...)
	return fixture{engine: eng, seeds: src, backend: backend}
}

func ids(recs []domain.Record) []string {
	out := make([]string, len(recs))
	for i, rec := range recs {
		out[i] = rec.ID()
	}
	return out
}

func TestCreateWithIDIsListedExactlyOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	for _, c := range domain.Collections() {
		data := domain.Record{"id": "X-1", "nome": "Fulano"}
		if _, err := f.engine.Create(ctx, c, data); err != nil {
			t.Fatalf("%s create: %v", c, err)
		}
		recs, err := f.engine.List(ctx, c)
		if err != nil {
			t.Fatalf("%s list: %v", c, err)
		}
		if len(recs) != 1 {
			t.Fatalf("%s: expected one record, got %v", c, recs)
		}
		if diff := cmp.Diff(data, recs[0]); diff != "" {
			t.Fatalf("%s record mismatch (-want +got):\n%s", c, diff)
		}
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[domain.Collection]string{
		domain.CollectionClients: `[{"id":"CLI-0001","nome":"A"},{"id":"CLI-0002","nome":"B"}]`,
	})
	for i := 0; i < 2; i++ {
		if err := f.engine.Remove(ctx, domain.CollectionClients, "CLI-0001"); err != nil {
			t.Fatalf("remove #%d: %v", i+1, err)
		}
	}
	recs, _ := f.engine.List(ctx, domain.CollectionClients)
	if diff := cmp.Diff([]string{"CLI-0002"}, ids(recs)); diff != "" {
		t.Fatalf("ids mismatch: %s", diff)
	}
	slots := f.engine.Overlay().ReadLocal(ctx, domain.CollectionClients)
	if len(slots) != 1 {
		t.Fatalf("second remove should not add another tombstone: %v", slots)
	}
	if err := f.engine.Remove(ctx, domain.CollectionClients, "CLI-9999"); err != nil {
		t.Fatalf("removing an unknown id should be a no-op: %v", err)
	}
}

func TestTombstonePrecedenceAndRecreation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[domain.Collection]string{
		domain.CollectionElevators: `[{"id":"ELV-0001","modelo":"Gen2"}]`,
	})
	if err := f.engine.Remove(ctx, domain.CollectionElevators, "ELV-0001"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := f.engine.Get(ctx, domain.CollectionElevators, "ELV-0001"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected removed seed record to be hidden, got %v", err)
	}
	if _, err := f.engine.Update(ctx, domain.CollectionElevators, domain.Record{"id": "ELV-0001", "modelo": "X"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("updating a removed record should fail, got %v", err)
	}
	if _, err := f.engine.Create(ctx, domain.CollectionElevators, domain.Record{"id": "ELV-0001", "modelo": "MRL"}); err != nil {
		t.Fatalf("recreate: %v", err)
	}
	got, err := f.engine.Get(ctx, domain.CollectionElevators, "ELV-0001")
	if err != nil || got.String("modelo") != "MRL" {
		t.Fatalf("recreated record = %v, err %v", got, err)
	}
	for _, slot := range f.engine.Overlay().ReadLocal(ctx, domain.CollectionElevators) {
		if slot.IsTombstone() {
			t.Fatalf("recreation must clear the tombstone")
		}
	}
}

func TestMarkerFieldsNeverHideWrites(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[domain.Collection]string{
		domain.CollectionClients: `[{"id":"CLI-0001","nome":"Alfa"}]`,
	})
	created, err := f.engine.Create(ctx, domain.CollectionClients, domain.Record{"id": "CLI-9", "nome": "A", "deleted": true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.engine.Update(ctx, domain.CollectionClients, domain.Record{"id": "CLI-0001", "__deleted": true}); err != nil {
		t.Fatalf("update: %v", err)
	}
	recs, err := f.engine.List(ctx, domain.CollectionClients)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []domain.Record{{"id": "CLI-0001", "nome": "Alfa"}, {"id": "CLI-9", "nome": "A"}}
	if diff := cmp.Diff(want, recs); diff != "" {
		t.Fatalf("merged view mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want[1], created); diff != "" {
		t.Fatalf("created record mismatch (-want +got):\n%s", diff)
	}
}

func TestIDAllocationUsesMaxSuffix(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[domain.Collection]string{
		domain.CollectionElevators: `[{"id":"ELV-0001"},{"id":"ELV-0003"},{"id":"ELV-ABC"}]`,
	})
	rec, err := f.engine.Create(ctx, domain.CollectionElevators, domain.Record{"modelo": "Gen3"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.ID() != "ELV-0004" {
		t.Fatalf("allocated %s, want ELV-0004", rec.ID())
	}

	tests := []struct {
		collection domain.Collection
		want       string
	}{
		{collection: domain.CollectionOperations, want: "OP-0001"},
		{collection: domain.CollectionClients, want: "CLI-0001"},
		{collection: domain.CollectionUsers, want: "ID-0001"},
	}
	for _, tt := range tests {
		rec, err := f.engine.Create(ctx, tt.collection, domain.Record{"nome": "n"})
		if err != nil || rec.ID() != tt.want {
			t.Fatalf("%s: allocated %v (err %v), want %s", tt.collection, rec.ID(), err, tt.want)
		}
	}
}

func TestCreateRejectsVisibleDuplicate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[domain.Collection]string{
		domain.CollectionClients: `[{"id":"CLI-1","nome":"A"}]`,
	})
	if _, err := f.engine.Create(ctx, domain.CollectionClients, domain.Record{"id": "CLI-1"}); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
}

func TestOverlayWinsOverSeed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[domain.Collection]string{
		domain.CollectionClients: `[{"id":"CLI-1","nome":"A","telefone":"1"},{"id":"CLI-2","nome":"C"}]`,
	})
	updated, err := f.engine.Update(ctx, domain.CollectionClients, domain.Record{"id": "CLI-1", "nome": "B"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.String("telefone") != "1" {
		t.Fatalf("partial update should keep seed fields: %v", updated)
	}
	if _, err := f.engine.Update(ctx, domain.CollectionClients, domain.Record{"id": "CLI-1", "email": "b@x.io"}); err != nil {
		t.Fatalf("second update: %v", err)
	}
	recs, _ := f.engine.List(ctx, domain.CollectionClients)
	if diff := cmp.Diff([]string{"CLI-1", "CLI-2"}, ids(recs)); diff != "" {
		t.Fatalf("seed order not kept: %s", diff)
	}
	want := domain.Record{"id": "CLI-1", "nome": "B", "telefone": "1", "email": "b@x.io"}
	if diff := cmp.Diff(want, recs[0]); diff != "" {
		t.Fatalf("merged record (-want +got):\n%s", diff)
	}

	// removing an overlay edit of a seed record keeps the record hidden
	if err := f.engine.Remove(ctx, domain.CollectionClients, "CLI-1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	recs, _ = f.engine.List(ctx, domain.CollectionClients)
	if diff := cmp.Diff([]string{"CLI-2"}, ids(recs)); diff != "" {
		t.Fatalf("removed edit resurfaced seed: %s", diff)
	}
}

func TestUpdateUnknownIDInserts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	if _, err := f.engine.Update(ctx, domain.CollectionOperations, domain.Record{"id": "OP-0100", "status": "Aberta"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := f.engine.Get(ctx, domain.CollectionOperations, "OP-0100"); err != nil {
		t.Fatalf("expected upserted record: %v", err)
	}
	if _, err := f.engine.Update(ctx, domain.CollectionOperations, domain.Record{"status": "x"}); !errors.Is(err, ErrMissingID) {
		t.Fatalf("expected ErrMissingID, got %v", err)
	}
}

func TestSeedFailurePropagates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[domain.Collection]string{domain.CollectionUsers: `{"broken":true}`})
	_, err := f.engine.List(ctx, domain.CollectionUsers)
	var fe *seed.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if _, err := f.engine.Create(ctx, domain.CollectionUsers, domain.Record{"email": "a@b.c"}); err == nil {
		t.Fatalf("create must not proceed without the seed")
	}
	if _, err := f.engine.List(ctx, domain.Collection("parts")); !errors.Is(err, ErrUnknownCollection) {
		t.Fatalf("expected ErrUnknownCollection, got %v", err)
	}
}

func TestMutationsNotifySubscribers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[domain.Collection]string{
		domain.CollectionOperations: `[{"id":"OP-0001"}]`,
	})
	var calls int
	unsubscribe := f.engine.Subscribe(domain.CollectionOperations, func() { calls++ })
	_, _ = f.engine.Create(ctx, domain.CollectionOperations, domain.Record{"descricao": "x"})
	_, _ = f.engine.Update(ctx, domain.CollectionOperations, domain.Record{"id": "OP-0001", "status": "Concluída"})
	_ = f.engine.Remove(ctx, domain.CollectionOperations, "OP-0001")
	if calls != 3 {
		t.Fatalf("expected 3 notifications, got %d", calls)
	}
	unsubscribe()
	unsubscribe()
	_, _ = f.engine.Create(ctx, domain.CollectionOperations, domain.Record{"descricao": "y"})
	if calls != 3 {
		t.Fatalf("listener ran after unsubscribe")
	}
}

func TestListenersMayReadTheMergedView(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	var seen []string
	unsubscribe := f.engine.Subscribe(domain.CollectionOperations, func() {
		recs, err := f.engine.List(ctx, domain.CollectionOperations)
		if err != nil {
			t.Errorf("list from listener: %v", err)
			return
		}
		seen = ids(recs)
	})
	defer unsubscribe()

	done := make(chan error, 1)
	go func() {
		_, err := f.engine.Create(ctx, domain.CollectionOperations, domain.Record{"descricao": "x"})
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("create: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("create blocked on a reading listener")
	}
	if diff := cmp.Diff([]string{"OP-0001"}, seen); diff != "" {
		t.Fatalf("listener view mismatch (-want +got):\n%s", diff)
	}
}

func TestConcurrentCreatesAllocateDistinctIDs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	const n = 20
	var wg sync.WaitGroup
	got := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, err := f.engine.Create(ctx, domain.CollectionElevators, domain.Record{"modelo": "m"})
			if err != nil {
				t.Errorf("create: %v", err)
				return
			}
			got <- rec.ID()
		}()
	}
	wg.Wait()
	close(got)
	seen := map[string]bool{}
	for id := range got {
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
	recs, _ := f.engine.List(ctx, domain.CollectionElevators)
	if len(recs) != n || !seen["ELV-0020"] {
		t.Fatalf("expected %d records ending at ELV-0020, got %v", n, ids(recs))
	}
}

type recordingMetrics struct {
	mu      sync.Mutex
	ops     map[string]int
	entries map[string]int
}

func (m *recordingMetrics) Observe(_ context.Context, op string, _ bool, _ time.Duration) {
	m.mu.Lock()
	m.ops[op]++
	m.mu.Unlock()
}

func (m *recordingMetrics) SetOverlayEntries(c string, n int) {
	m.mu.Lock()
	m.entries[c] = n
	m.mu.Unlock()
}

func TestObservabilityHooks(t *testing.T) {
	ctx := context.Background()
	metrics := &recordingMetrics{ops: map[string]int{}, entries: map[string]int{}}
	tracer := NewJSONTracer(nil, 2)
	f := newFixture(t, nil, WithMetrics(metrics), WithTracer(tracer))

	_, _ = f.engine.Create(ctx, domain.CollectionClients, domain.Record{"nome": "A"})
	_, _ = f.engine.List(ctx, domain.CollectionClients)
	_, _ = f.engine.List(ctx, domain.Collection("nope"))

	if metrics.ops["create"] != 1 || metrics.ops["list"] != 2 {
		t.Fatalf("unexpected metrics %v", metrics.ops)
	}
	if metrics.entries["clients"] != 1 {
		t.Fatalf("overlay gauge not updated: %v", metrics.entries)
	}
	entries := tracer.Entries()
	if len(entries) != 2 || entries[1].Status != "error" || entries[0].Operation != "list_clients" {
		t.Fatalf("unexpected trace entries %+v", entries)
	}

	if err := f.engine.ResetOverlay(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if metrics.entries["clients"] != 0 {
		t.Fatalf("reset should zero the gauge")
	}
	if recs, _ := f.engine.List(ctx, domain.CollectionClients); len(recs) != 0 {
		t.Fatalf("reset should drop local records: %v", recs)
	}
}
