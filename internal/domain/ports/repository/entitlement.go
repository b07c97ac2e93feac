package repository

import (
	"context"
	"time"

	"ege-billing/internal/domain/model"
)

// EntitlementRepository is the port for module entitlements.
type EntitlementRepository interface {
	// Upsert inserts or fully overwrites the (user, module) row. The caller
	// computes ExpiresAt once; the repository never adds to a stored value.
	Upsert(ctx context.Context, tx Tx, e *model.Entitlement) error
	FindByUserAndModule(ctx context.Context, tx Tx, userID int64, moduleCode string) (*model.Entitlement, error)
	ListActiveByUser(ctx context.Context, tx Tx, userID int64) ([]*model.Entitlement, error)
	// ListActiveWithoutPayment drives the inverse reconciliation scan.
	ListActiveWithoutPayment(ctx context.Context, tx Tx, limit int) ([]*model.Entitlement, error)
	// DeactivateExpired flips is_active on rows past their expiration and
	// returns how many were touched. History is retained.
	DeactivateExpired(ctx context.Context, tx Tx, now time.Time) (int, error)
	CountActiveByModule(ctx context.Context, tx Tx) (map[string]int, error)
}
