package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestStartRegistryRefresher(t *testing.T) {
	store := newFakeStore()
	store.seed(Registrant{ID: uuid.New(), VPA: "a@ybl"})
	svc := newTestService(store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.StartRegistryRefresher(ctx, 5*time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for {
		store.mu.Lock()
		n := store.fetches
		store.mu.Unlock()
		if n >= 3 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("fetches = %d after 2s, want at least 3", n)
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("refresher did not stop after cancel")
	}
}

func TestRefreshRegistryKeepsStaleSnapshotOnError(t *testing.T) {
	store := newFakeStore()
	store.seed(Registrant{ID: uuid.New(), VPA: "a@ybl"})
	svc := newTestService(store, nil)
	ctx := context.Background()

	svc.refreshRegistry(ctx)

	store.mu.Lock()
	store.fetchErr = errors.New("connection refused")
	store.mu.Unlock()

	svc.refreshRegistry(ctx)

	snap, err := svc.RegistrySnapshot(ctx)
	if err != nil {
		t.Fatalf("RegistrySnapshot() error = %v", err)
	}
	if len(snap) != 1 {
		t.Errorf("len(snapshot) = %d, want stale snapshot of 1", len(snap))
	}
}
