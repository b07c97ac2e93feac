// File: internal/infra/sched/entitlement_reaper.go
package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"ege-billing/internal/domain/ports/repository"
	"ege-billing/internal/infra/metrics"
)

// EntitlementReaper periodically flips is_active on entitlements past their
// expiration so reads never have to reason about stale rows.
type EntitlementReaper struct {
	interval     time.Duration
	entitlements repository.EntitlementRepository
	log          *zerolog.Logger
}

func NewEntitlementReaper(interval time.Duration, entitlements repository.EntitlementRepository, logger *zerolog.Logger) *EntitlementReaper {
	if interval <= 0 {
		interval = time.Hour
	}
	reapLog := logger.With().Str("component", "EntitlementReaper").Logger()
	return &EntitlementReaper{
		interval:     interval,
		entitlements: entitlements,
		log:          &reapLog,
	}
}

func (w *EntitlementReaper) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting entitlement reaper")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping entitlement reaper")
			return ctx.Err()
		case <-ticker.C:
			n, err := w.entitlements.DeactivateExpired(ctx, nil, time.Now())
			if err != nil {
				w.log.Error().Err(err).Msg("entitlement reap failed")
			}
			if n > 0 {
				metrics.AddEntitlementsExpired(n)
				w.log.Info().Int("count", n).Msg("expired entitlements deactivated")
			}
		}
	}
}
