// File: internal/usecase/reconcile_uc.go
package usecase

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ege-billing/internal/domain/model"
	"ege-billing/internal/domain/ports/adapter"
	"ege-billing/internal/domain/ports/repository"
	"ege-billing/internal/infra/metrics"
)

// Compile-time check
var _ ReconcileUseCase = (*reconcileUC)(nil)

type ReconcileUseCase interface {
	// Sweep scans one window for drift between payments and entitlements,
	// re-drives activation for under-activated orders, and escalates findings
	// that keep recurring. A failure on one order never aborts the rest.
	Sweep(ctx context.Context, window time.Duration) ([]model.ReconciliationFinding, error)
}

type reconcileUC struct {
	payments     repository.PaymentRepository
	entitlements repository.EntitlementRepository
	activation   ActivationUseCase
	notifier     adapter.Notifier
	maxRedrives  int
	batchLimit   int
	log          *zerolog.Logger

	mu   sync.Mutex
	seen map[string]int // order id -> consecutive sweeps it stayed broken
}

func NewReconcileUseCase(
	payments repository.PaymentRepository,
	entitlements repository.EntitlementRepository,
	activation ActivationUseCase,
	notifier adapter.Notifier,
	maxRedrives int,
	logger *zerolog.Logger,
) *reconcileUC {
	if maxRedrives <= 0 {
		maxRedrives = 3
	}
	l := logger.With().Str("component", "ReconcileUC").Logger()
	return &reconcileUC{
		payments:     payments,
		entitlements: entitlements,
		activation:   activation,
		notifier:     notifier,
		maxRedrives:  maxRedrives,
		batchLimit:   200,
		log:          &l,
	}
}

func (u *reconcileUC) Sweep(ctx context.Context, window time.Duration) ([]model.ReconciliationFinding, error) {
	now := time.Now().UTC()
	since := now.Add(-window)

	var findings []model.ReconciliationFinding
	current := make(map[string]struct{})

	// Forward scan: payment says paid, entitlement store disagrees.
	attempts, err := u.payments.ListSucceededWithoutEntitlements(ctx, nil, since, u.batchLimit)
	if err != nil {
		return nil, err
	}
	for _, p := range attempts {
		finding := model.ReconciliationFinding{
			OrderID:    p.OrderID,
			UserID:     p.UserID,
			Kind:       model.DiscrepancyMissingEntitlement,
			DetectedAt: now,
		}
		findings = append(findings, finding)
		current[p.OrderID] = struct{}{}
		metrics.IncReconcileFinding(string(finding.Kind))

		occurrences := u.bump(p.OrderID)
		if occurrences > u.maxRedrives {
			// Retrying forever would mask a systemic defect; hand it to an
			// operator instead.
			u.escalate(ctx, p.OrderID, finding.Kind, occurrences)
			continue
		}

		paymentID := ""
		if p.PaymentID != nil {
			paymentID = *p.PaymentID
		}
		if _, err := u.activation.Activate(ctx, p.OrderID, paymentID); err != nil {
			u.log.Error().Err(err).Str("order_id", p.OrderID).Int("occurrences", occurrences).Msg("re-drive failed")
			if occurrences >= u.maxRedrives {
				u.escalate(ctx, p.OrderID, finding.Kind, occurrences)
			}
			continue
		}
		u.log.Info().Str("order_id", p.OrderID).Msg("re-drive restored entitlements")
		metrics.IncReconcileRedrive("success")
		u.forget(p.OrderID)
	}

	// Inverse scan: active entitlement nobody paid for. Never legitimate, so
	// it is alert-only; no automatic repair guesses at intent.
	orphans, err := u.entitlements.ListActiveWithoutPayment(ctx, nil, u.batchLimit)
	if err != nil {
		u.log.Error().Err(err).Msg("inverse scan failed")
		return findings, err
	}
	for _, e := range orphans {
		key := "orphan:" + e.ModuleCode + ":" + strconv.FormatInt(e.UserID, 10)
		finding := model.ReconciliationFinding{
			UserID:     e.UserID,
			Kind:       model.DiscrepancyOrphanEntitlement,
			DetectedAt: now,
		}
		findings = append(findings, finding)
		current[key] = struct{}{}
		metrics.IncReconcileFinding(string(finding.Kind))
		u.escalate(ctx, key, finding.Kind, u.bump(key))
	}

	u.dropRecovered(current)
	return findings, nil
}

func (u *reconcileUC) bump(key string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.seen == nil {
		u.seen = make(map[string]int)
	}
	u.seen[key]++
	return u.seen[key]
}

func (u *reconcileUC) forget(key string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.seen, key)
}

// dropRecovered clears counters for orders that no longer show up, so a
// finding that comes back much later starts a fresh escalation count.
func (u *reconcileUC) dropRecovered(current map[string]struct{}) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for key := range u.seen {
		if _, ok := current[key]; !ok {
			delete(u.seen, key)
		}
	}
}

func (u *reconcileUC) escalate(ctx context.Context, orderID string, kind model.DiscrepancyKind, occurrences int) {
	if u.notifier == nil {
		return
	}
	if err := u.notifier.OnPersistentDiscrepancy(ctx, orderID, kind, occurrences); err != nil {
		u.log.Warn().Err(err).Str("order_id", orderID).Msg("discrepancy alert failed")
	}
}

