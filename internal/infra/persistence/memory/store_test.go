package memory

import (
	"context"
	"errors"
	"testing"

	"elevadorpro/internal/overlay"
)

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	if _, ok, err := s.Load(ctx, "otis_db_clients"); ok || err != nil {
		t.Fatalf("expected empty load, ok=%v err=%v", ok, err)
	}
	payload := []byte(`[{"id":"CLI-0001"}]`)
	if err := s.Save(ctx, "otis_db_clients", payload); err != nil {
		t.Fatalf("save: %v", err)
	}
	payload[0] = 'x'
	got, ok, err := s.Load(ctx, "otis_db_clients")
	if err != nil || !ok || string(got) != `[{"id":"CLI-0001"}]` {
		t.Fatalf("load = %q ok=%v err=%v", got, ok, err)
	}
	_ = s.Save(ctx, "otis_db_users", []byte(`[]`))
	keys, _ := s.Keys(ctx)
	if len(keys) != 2 || keys[0] != "otis_db_clients" || keys[1] != "otis_db_users" {
		t.Fatalf("keys = %v", keys)
	}
	if err := s.Delete(ctx, "otis_db_clients"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := s.Load(ctx, "otis_db_clients"); ok {
		t.Fatalf("expected deleted key to be absent")
	}
	if s.Driver() != overlay.DriverMemory {
		t.Fatalf("driver = %s", s.Driver())
	}
}

func TestStoreClosed(t *testing.T) {
	s := NewStore()
	_ = s.Close()
	if err := s.Save(context.Background(), "k", nil); !errors.Is(err, overlay.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if _, err := s.Keys(context.Background()); !errors.Is(err, overlay.ErrClosed) {
		t.Fatalf("expected ErrClosed from keys, got %v", err)
	}
}
