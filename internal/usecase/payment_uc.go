// File: internal/usecase/payment_uc.go
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"ege-billing/internal/domain"
	"ege-billing/internal/domain/model"
	"ege-billing/internal/domain/ports/repository"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

type PaymentUseCase interface {
	// Initiate creates the pending payment attempt for a checkout. The
	// returned attempt carries the order id the provider will echo back in
	// webhooks.
	Initiate(ctx context.Context, userID int64, planID string) (*model.PaymentAttempt, error)
	GetByOrderID(ctx context.Context, orderID string) (*model.PaymentAttempt, error)
}

type paymentUC struct {
	payments repository.PaymentRepository
	plans    repository.PlanCatalog
	log      *zerolog.Logger
}

func NewPaymentUseCase(payments repository.PaymentRepository, plans repository.PlanCatalog, logger *zerolog.Logger) *paymentUC {
	l := logger.With().Str("component", "PaymentUC").Logger()
	return &paymentUC{payments: payments, plans: plans, log: &l}
}

func (u *paymentUC) Initiate(ctx context.Context, userID int64, planID string) (*model.PaymentAttempt, error) {
	if userID == 0 || planID == "" {
		return nil, domain.ErrInvalidArgument
	}
	plan, err := u.plans.FindByID(ctx, planID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	p := &model.PaymentAttempt{
		ID:            uuid.NewString(),
		OrderID:       ulid.Make().String(),
		UserID:        userID,
		PlanID:        plan.ID,
		AmountKopecks: plan.PriceKopecks,
		Status:        model.PaymentStatusPending,
		CreatedAt:     now,
	}
	if err := u.payments.Save(ctx, nil, p); err != nil {
		return nil, err
	}
	u.log.Info().Str("order_id", p.OrderID).Int64("user_id", userID).Str("plan_id", planID).Msg("checkout initiated")
	return p, nil
}

func (u *paymentUC) GetByOrderID(ctx context.Context, orderID string) (*model.PaymentAttempt, error) {
	return u.payments.FindByOrderID(ctx, nil, orderID)
}
