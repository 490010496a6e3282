package core

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRegistryCache_ExpiresAfterTTL(t *testing.T) {
	c := newRegistryCache(time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	var loads int
	load := func(context.Context) ([]Registrant, error) {
		loads++
		return []Registrant{{VPA: "a@ybl"}}, nil
	}

	ctx := context.Background()
	c.get(ctx, load)
	c.get(ctx, load)
	if loads != 1 {
		t.Errorf("loads = %d, want 1 within TTL", loads)
	}

	now = now.Add(2 * time.Minute)
	c.get(ctx, load)
	if loads != 2 {
		t.Errorf("loads = %d, want 2 after TTL", loads)
	}
}

func TestRegistryCache_ZeroTTLAlwaysLoads(t *testing.T) {
	c := newRegistryCache(0)
	var loads int
	load := func(context.Context) ([]Registrant, error) {
		loads++
		return nil, nil
	}
	c.get(context.Background(), load)
	c.get(context.Background(), load)
	if loads != 2 {
		t.Errorf("loads = %d, want 2", loads)
	}
}

func TestRegistryCache_CollapsesConcurrentLoads(t *testing.T) {
	c := newRegistryCache(time.Minute)
	var loads atomic.Int32
	release := make(chan struct{})
	load := func(context.Context) ([]Registrant, error) {
		loads.Add(1)
		<-release
		return []Registrant{{VPA: "a@ybl"}}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.get(context.Background(), load); err != nil {
				t.Errorf("get() error = %v", err)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := loads.Load(); got != 1 {
		t.Errorf("loads = %d, want 1", got)
	}
}

func TestRegistryCache_StaleFallback(t *testing.T) {
	c := newRegistryCache(time.Minute)
	ctx := context.Background()

	if _, err := c.get(ctx, func(context.Context) ([]Registrant, error) {
		return []Registrant{{VPA: "a@ybl"}}, nil
	}); err != nil {
		t.Fatal(err)
	}
	c.invalidate()

	failing := func(context.Context) ([]Registrant, error) { return nil, errors.New("connection refused") }
	snap, err := c.get(ctx, failing)
	if err != nil {
		t.Fatalf("get() error = %v, want stale snapshot", err)
	}
	if len(snap) != 1 {
		t.Errorf("len(snap) = %d, want 1", len(snap))
	}

	empty := newRegistryCache(time.Minute)
	if _, err := empty.get(ctx, failing); err == nil {
		t.Error("get() on empty cache should return the load error")
	}
}

func TestRegistryCache_CallerCancellation(t *testing.T) {
	c := newRegistryCache(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})
	defer close(release)

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := c.get(ctx, func(context.Context) ([]Registrant, error) {
		<-release
		return nil, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("get() error = %v, want context.Canceled", err)
	}
}
