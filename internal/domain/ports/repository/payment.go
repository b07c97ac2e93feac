package repository

import (
	"context"
	"time"

	"ege-billing/internal/domain/model"
)

// PaymentRepository is the port for the payment attempt store. Attempts are
// append-and-update only; nothing ever deletes a row.
type PaymentRepository interface {
	Save(ctx context.Context, tx Tx, p *model.PaymentAttempt) error
	// FindByOrderID locks the row (FOR UPDATE) when called with a live Tx,
	// which is what serializes concurrent activations per order.
	FindByOrderID(ctx context.Context, tx Tx, orderID string) (*model.PaymentAttempt, error)
	MarkSucceeded(ctx context.Context, tx Tx, orderID string, paymentID *string, completedAt time.Time) error
	MarkFailed(ctx context.Context, tx Tx, orderID string, completedAt time.Time) error
	// ListSucceededWithoutEntitlements drives the forward reconciliation scan:
	// attempts completed within the window whose user holds no active
	// entitlement for any of the plan's modules.
	ListSucceededWithoutEntitlements(ctx context.Context, tx Tx, since time.Time, limit int) ([]*model.PaymentAttempt, error)
	// SumSucceededByPeriod returns revenue for "day"/"week"/"month" periods,
	// derived from the table rather than kept in a counter.
	SumSucceededByPeriod(ctx context.Context, tx Tx, period string) (int64, error)
	CountSucceededSince(ctx context.Context, tx Tx, since time.Time) (int, error)
}
