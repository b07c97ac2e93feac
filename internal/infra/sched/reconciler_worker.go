// File: internal/infra/sched/reconciler_worker.go
package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"ege-billing/internal/infra/redis"
	"ege-billing/internal/usecase"
)

const reconcileLockKey = "lock:reconcile:sweep"

// ReconcilerWorker periodically sweeps for drift between succeeded payments
// and entitlements. The redis lock keeps replicas from sweeping concurrently;
// when the lock is held elsewhere the tick is skipped, not queued.
type ReconcilerWorker struct {
	interval time.Duration
	window   time.Duration
	uc       usecase.ReconcileUseCase
	locker   redis.Locker
	log      *zerolog.Logger
}

func NewReconcilerWorker(interval, window time.Duration, uc usecase.ReconcileUseCase, locker redis.Locker, logger *zerolog.Logger) *ReconcilerWorker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if window <= 0 {
		window = 72 * time.Hour
	}
	compLog := logger.With().Str("component", "ReconcilerWorker").Logger()
	return &ReconcilerWorker{
		interval: interval,
		window:   window,
		uc:       uc,
		locker:   locker,
		log:      &compLog,
	}
}

func (w *ReconcilerWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Dur("window", w.window).Msg("Starting reconciler worker")
	// Run once on startup, then on every tick
	w.sweep(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping reconciler worker")
			return ctx.Err()
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *ReconcilerWorker) sweep(ctx context.Context) {
	token, err := w.locker.TryLock(ctx, reconcileLockKey, w.interval)
	if err != nil {
		if errors.Is(err, redis.ErrLockHeld) {
			w.log.Debug().Msg("sweep lock held elsewhere, skipping tick")
		} else {
			w.log.Error().Err(err).Msg("sweep lock acquire failed")
		}
		return
	}
	defer func() {
		if err := w.locker.Unlock(ctx, reconcileLockKey, token); err != nil {
			w.log.Warn().Err(err).Msg("sweep lock release failed")
		}
	}()

	findings, err := w.uc.Sweep(ctx, w.window)
	if err != nil {
		w.log.Error().Err(err).Msg("reconciliation sweep failed")
		return
	}
	if len(findings) > 0 {
		w.log.Warn().Int("findings", len(findings)).Msg("reconciliation sweep found discrepancies")
	}
}
