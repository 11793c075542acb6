package testsupport

import (
	"context"
	"testing"

	"bleeparr/internal/config"
	"bleeparr/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustAdmit admits item and fails the test unless it was newly queued.
func MustAdmit(t testing.TB, store *queue.Store, item *queue.Item) *queue.Item {
	t.Helper()

	ok, err := store.Admit(context.Background(), item)
	if err != nil {
		t.Fatalf("store.Admit: %v", err)
	}
	if !ok {
		t.Fatalf("expected %s %d to be admitted", item.Kind, item.ItemID)
	}
	return item
}
