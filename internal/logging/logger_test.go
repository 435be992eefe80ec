package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromZapWritesStructuredFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := FromZap(zap.New(core))

	l.Debug("seed loaded", "collection", "clients", "records", 3)
	l.Warn("overlay unreadable", "key", "otis_db_clients")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["collection"] != "clients" || fields["records"] != int64(3) {
		t.Fatalf("unexpected fields %v", fields)
	}
	if entries[1].Level != zap.WarnLevel {
		t.Fatalf("unexpected level %s", entries[1].Level)
	}
}

func TestNopLoggerDoesNotPanic(t *testing.T) {
	for _, l := range []Logger{Nop(), OrNop(nil), FromZap(nil)} {
		l.Debug("m", "k", "v")
		l.Info("m")
		l.Warn("m", "k")
		l.Error("m", "k", 1)
	}
}

func TestNewBuildsLogger(t *testing.T) {
	l, err := New(true)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if !l.Core().Enabled(zap.DebugLevel) {
		t.Fatalf("debug level not enabled")
	}
	_ = l.Sync()
}
