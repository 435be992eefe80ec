package memory

import (
	"context"
	"errors"
	"io"
	"testing"

	"elevadorpro/internal/seedstore"
)

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.PutString("elevators.json", `[]`)
	s.PutString("clients.json", `[{"id":"CLI-1"}]`)
	if s.Driver() != seedstore.DriverMemory {
		t.Fatalf("driver = %s", s.Driver())
	}
	info, rc, err := s.Get(ctx, "clients.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b, _ := io.ReadAll(rc)
	if string(b) != `[{"id":"CLI-1"}]` || info.Size != int64(len(b)) || info.ETag == "" {
		t.Fatalf("unexpected %q %+v", b, info)
	}
	list, _ := s.List(ctx, "")
	if len(list) != 2 || list[0].Key != "clients.json" {
		t.Fatalf("unexpected list %+v", list)
	}
	if _, _, err := s.Get(ctx, "users.json"); !errors.Is(err, seedstore.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if s.Gets() != 2 {
		t.Fatalf("gets = %d", s.Gets())
	}
}
