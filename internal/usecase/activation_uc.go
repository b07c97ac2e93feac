// File: internal/usecase/activation_uc.go
package usecase

import (
	"context"
	"errors"
	"hash/fnv"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"ege-billing/internal/domain"
	"ege-billing/internal/domain/model"
	"ege-billing/internal/domain/ports/adapter"
	"ege-billing/internal/domain/ports/repository"
	"ege-billing/internal/infra/metrics"
)

// Compile-time check
var _ ActivationUseCase = (*activationUC)(nil)

// ActivationResult is what a completed activation reports back.
type ActivationResult struct {
	ModulesActivated []string
	TeacherTouched   bool
}

type ActivationUseCase interface {
	// Activate finalizes a paid order: marks the payment succeeded, upserts
	// one entitlement per plan module, and provisions the teacher profile for
	// role-granting plans, all inside one transaction. Re-entrant: calling it
	// on a fully activated order is a no-op that still returns success.
	Activate(ctx context.Context, orderID string, paymentID string) (*ActivationResult, error)
}

type activationUC struct {
	payments     repository.PaymentRepository
	entitlements repository.EntitlementRepository
	plans        repository.PlanCatalog
	teacher      *TeacherProvisioner
	tm           repository.TransactionManager
	notifier     adapter.Notifier
	log          *zerolog.Logger
}

func NewActivationUseCase(
	payments repository.PaymentRepository,
	entitlements repository.EntitlementRepository,
	plans repository.PlanCatalog,
	teacher *TeacherProvisioner,
	tm repository.TransactionManager,
	notifier adapter.Notifier,
	logger *zerolog.Logger,
) *activationUC {
	l := logger.With().Str("component", "ActivationUC").Logger()
	return &activationUC{
		payments:     payments,
		entitlements: entitlements,
		plans:        plans,
		teacher:      teacher,
		tm:           tm,
		notifier:     notifier,
		log:          &l,
	}
}

func hashToInt64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64() & ((1 << 63) - 1))
}

func (u *activationUC) Activate(ctx context.Context, orderID string, paymentID string) (*ActivationResult, error) {
	if orderID == "" {
		return nil, domain.ErrInvalidArgument
	}

	var (
		res         *ActivationResult
		userID      int64
		planID      string
		newlyPaid   bool
		amountPaidK int64
	)
	err := u.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		// Serialize concurrent activations for the same order. A second
		// caller blocks here until the first commits, then sees the
		// already-activated state and no-ops.
		if pgtx, ok := tx.(pgx.Tx); ok {
			if _, err := pgtx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", hashToInt64(orderID)); err != nil {
				return &ActivationError{Stage: StageLoadPayment, Kind: KindTransient, Cause: err}
			}
		}

		p, err := u.payments.FindByOrderID(ctx, tx, orderID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return &ActivationError{Stage: StageLoadPayment, Kind: KindUnknownOrder, Cause: domain.ErrUnknownOrder}
			}
			return &ActivationError{Stage: StageLoadPayment, Kind: KindTransient, Cause: err}
		}
		userID, planID = p.UserID, p.PlanID

		plan, err := u.plans.FindByID(ctx, p.PlanID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return &ActivationError{Stage: StagePlanLookup, Kind: KindInvalidPlan, Cause: domain.ErrInvalidPlan}
			}
			return &ActivationError{Stage: StagePlanLookup, Kind: KindTransient, Cause: err}
		}

		now := time.Now().UTC()

		// Re-entrant fast path: an already-succeeded payment whose
		// activation demonstrably ran must not be touched again, or a stale
		// re-delivery would grant a fresh term without payment.
		if p.Status == model.PaymentStatusSucceeded {
			done, err := u.fullyActivated(ctx, tx, p, plan)
			if err != nil {
				return &ActivationError{Stage: StageEntitlements, Kind: KindTransient, Cause: err}
			}
			if done {
				res = &ActivationResult{ModulesActivated: append([]string(nil), plan.Modules...)}
				res.TeacherTouched = plan.RoleGranting
				return nil
			}
			// Succeeded but under-activated (crash between records in a past
			// version, or manual data surgery): fall through and repair.
		}

		if p.Status != model.PaymentStatusSucceeded {
			var pid *string
			if paymentID != "" {
				pid = &paymentID
			}
			if err := u.payments.MarkSucceeded(ctx, tx, orderID, pid, now); err != nil {
				return &ActivationError{Stage: StageMarkPayment, Kind: KindTransient, Cause: err}
			}
			newlyPaid, amountPaidK = true, p.AmountKopecks
		}

		// The expiration is computed exactly once, from the catalog duration,
		// and shared verbatim with every entitlement and the teacher profile.
		expiresAt := now.Add(plan.Duration())

		activated := make([]string, 0, len(plan.Modules))
		for _, moduleCode := range plan.Modules {
			e := &model.Entitlement{
				UserID:      p.UserID,
				ModuleCode:  moduleCode,
				PlanID:      plan.ID,
				ActivatedAt: now,
				ExpiresAt:   expiresAt,
				IsActive:    true,
			}
			if err := u.entitlements.Upsert(ctx, tx, e); err != nil {
				return &ActivationError{Stage: StageEntitlements, Kind: KindTransient, Cause: err}
			}
			activated = append(activated, moduleCode)
		}

		touched := false
		if plan.RoleGranting {
			if err := u.teacher.Provision(ctx, tx, p.UserID, plan, expiresAt); err != nil {
				// Roll back everything: a succeeded payment with entitlements
				// but no teacher profile is a user who paid for a role they
				// cannot use.
				return &ActivationError{Stage: StageTeacherProfile, Kind: KindPartialActivation, Cause: err}
			}
			touched = true
		}

		res = &ActivationResult{ModulesActivated: activated, TeacherTouched: touched}
		return nil
	})

	if err != nil {
		var aerr *ActivationError
		if !errors.As(err, &aerr) {
			// Commit/begin failures surface raw from the tx manager.
			aerr = &ActivationError{Stage: StageCommit, Kind: KindTransient, Cause: err}
		}
		metrics.IncActivation(string(aerr.Kind))
		u.log.Error().Err(aerr).Str("order_id", orderID).Str("stage", string(aerr.Stage)).Msg("activation failed")
		if !aerr.Retryable() {
			u.notifyResult(ctx, orderID, userID, adapter.ActivationOutcome{
				Success:       false,
				PlanID:        planID,
				FailureReason: string(aerr.Kind),
			})
		}
		return nil, aerr
	}

	metrics.IncActivation("success")
	if newlyPaid {
		metrics.AddRevenue(amountPaidK)
	}
	u.log.Info().Str("order_id", orderID).Strs("modules", res.ModulesActivated).
		Bool("teacher", res.TeacherTouched).Msg("order activated")
	u.notifyResult(ctx, orderID, userID, adapter.ActivationOutcome{
		Success:        true,
		PlanID:         planID,
		Modules:        res.ModulesActivated,
		TeacherTouched: res.TeacherTouched,
	})
	return res, nil
}

// fullyActivated reports whether this payment's activation already ran to
// completion. The proof is the entitlement rows themselves: one per plan
// module, written at or after the payment completed. Liveness is deliberately
// not part of the check. A term that ran its full length and expired (or was
// reaped) is still a completed activation; only a missing row, or a stale row
// left over from an earlier purchase, means the order is owed a repair.
func (u *activationUC) fullyActivated(ctx context.Context, tx repository.Tx, p *model.PaymentAttempt, plan *model.Plan) (bool, error) {
	paidAt := p.CreatedAt
	if p.CompletedAt != nil {
		paidAt = *p.CompletedAt
	}
	var termEnd time.Time
	for _, moduleCode := range plan.Modules {
		e, err := u.entitlements.FindByUserAndModule(ctx, tx, p.UserID, moduleCode)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return false, nil
			}
			return false, err
		}
		if e.ActivatedAt.Before(paidAt) {
			return false, nil
		}
		if e.ExpiresAt.After(termEnd) {
			termEnd = e.ExpiresAt
		}
	}
	if plan.RoleGranting {
		profile, err := u.teacher.profiles.FindByUser(ctx, tx, p.UserID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return false, nil
			}
			return false, err
		}
		// The provisioner writes the engine's expiration verbatim, so a
		// profile older than this order's entitlements means the profile
		// step never ran for it.
		if profile.ExpiresAt.Before(termEnd) {
			return false, nil
		}
	}
	return true, nil
}

func (u *activationUC) notifyResult(ctx context.Context, orderID string, userID int64, outcome adapter.ActivationOutcome) {
	if u.notifier == nil {
		return
	}
	if err := u.notifier.OnActivationResult(ctx, orderID, userID, outcome); err != nil {
		u.log.Warn().Err(err).Str("order_id", orderID).Msg("notify activation result failed")
	}
}
