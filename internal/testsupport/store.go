package testsupport

import (
	"context"
	"testing"
	"time"

	"loudsync/internal/config"
	"loudsync/internal/journal"
)

// MustOpenStore opens the run journal for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *journal.Store {
	t.Helper()

	store, err := journal.Open(cfg.Paths.JournalPath)
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewRun records a started run for tests using the provided store.
func NewRun(t testing.TB, store *journal.Store, id, mode string) journal.Run {
	t.Helper()

	run := journal.Run{
		ID:        id,
		StartedAt: time.Now(),
		Mode:      mode,
		Preset:    "-16",
		TargetI:   -16,
		TargetTP:  -1.5,
	}
	if err := store.StartRun(context.Background(), run); err != nil {
		t.Fatalf("store.StartRun: %v", err)
	}
	return run
}
