package core

// scheduler.go runs background maintenance.
//
// Each cycle refreshes the exchange quote, so page loads rarely wait on the
// rate provider, and drops expired delete confirmations. The scheduler is
// long-running and context-aware for graceful shutdown; a failed cycle is
// logged and never stops the application.

import (
	"context"
	"log/slog"
	"time"
)

// DefaultRefreshInterval is how often the maintenance cycle runs.
const DefaultRefreshInterval = 30 * time.Minute

// SchedulerConfig holds configuration for the maintenance scheduler.
type SchedulerConfig struct {
	RefreshInterval time.Duration // How often to run (default: 30m)
}

// StartScheduler runs the maintenance cycle immediately and then every
// RefreshInterval until ctx is cancelled.
func (s *Service) StartScheduler(ctx context.Context, cfg SchedulerConfig) {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = DefaultRefreshInterval
	}
	slog.Info("maintenance scheduler started", "interval", cfg.RefreshInterval.String())

	s.runMaintenance(ctx)

	ticker := time.NewTicker(cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("maintenance scheduler stopped")
			return
		case <-ticker.C:
			s.runMaintenance(ctx)
		}
	}
}

// runMaintenance performs one refresh + purge cycle.
func (s *Service) runMaintenance(ctx context.Context) {
	start := time.Now()

	quote := s.rates.Refresh(ctx)
	if quote.Fallback {
		slog.Warn("exchange rate refresh fell back", "rate", quote.Rate.String())
	} else {
		slog.Info("exchange rate refreshed",
			"rate", quote.Rate.String(),
			"source", quote.Source,
		)
	}

	purged := s.PurgeExpiredDeletes()

	slog.Debug("maintenance cycle completed",
		"expired_deletes", purged,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
