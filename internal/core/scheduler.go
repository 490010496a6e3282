package core

// scheduler.go keeps the registry snapshot warm in the background.
//
// Reconciliation needs the whole registry. Without a refresher the first
// reconcile after the cache TTL expires pays for the full store walk; with
// one, the walk happens on a ticker and reconciles find a fresh snapshot.
// A failed refresh keeps the previous snapshot and is logged, never fatal.

import (
	"context"
	"log/slog"
	"time"
)

// StartRegistryRefresher reloads the registry snapshot immediately and then
// every interval until ctx is cancelled. It blocks; run it in a goroutine.
func (s *Service) StartRegistryRefresher(ctx context.Context, interval time.Duration) {
	slog.Info("registry refresher started", "interval", interval)

	s.refreshRegistry(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("registry refresher stopped")
			return
		case <-ticker.C:
			s.refreshRegistry(ctx)
		}
	}
}

// refreshRegistry forces one snapshot reload.
func (s *Service) refreshRegistry(ctx context.Context) {
	start := time.Now()

	s.InvalidateRegistry()
	snap, err := s.RegistrySnapshot(ctx)
	if err != nil {
		if ctx.Err() == nil {
			slog.Error("registry refresh failed", "error", err)
		}
		return
	}

	slog.Debug("registry refreshed",
		"registrants", len(snap),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
