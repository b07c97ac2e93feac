package repository

import (
	"context"

	"ege-billing/internal/domain/model"
)

// WebhookDeliveryRepository is the append-only dedup ledger. InsertUnique is
// the single serialization point for "have we seen this delivery": it must be
// an atomic unique-constraint insert, never a check-then-insert.
type WebhookDeliveryRepository interface {
	// InsertUnique returns domain.ErrDuplicateDelivery when the
	// (order_id, status) pair is already recorded.
	InsertUnique(ctx context.Context, tx Tx, d *model.WebhookDelivery) error
	FindByOrderAndStatus(ctx context.Context, tx Tx, orderID string, status model.WebhookStatus) (*model.WebhookDelivery, error)
}
