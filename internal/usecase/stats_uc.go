// File: internal/usecase/stats_uc.go
package usecase

import (
	"context"
	"time"

	"ege-billing/internal/domain/ports/repository"
)

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

// StatsUseCase derives operational counts from the payment and entitlement
// tables on demand. There are no separately maintained counters to drift.
type StatsUseCase interface {
	ActivatedToday(ctx context.Context) (int, error)
	RevenueByPeriod(ctx context.Context, period string) (int64, error)
	ActiveByModule(ctx context.Context) (map[string]int, error)
}

type statsUC struct {
	payments     repository.PaymentRepository
	entitlements repository.EntitlementRepository
}

func NewStatsUseCase(payments repository.PaymentRepository, entitlements repository.EntitlementRepository) *statsUC {
	return &statsUC{payments: payments, entitlements: entitlements}
}

func (u *statsUC) ActivatedToday(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return u.payments.CountSucceededSince(ctx, nil, midnight)
}

func (u *statsUC) RevenueByPeriod(ctx context.Context, period string) (int64, error) {
	return u.payments.SumSucceededByPeriod(ctx, nil, period)
}

func (u *statsUC) ActiveByModule(ctx context.Context) (map[string]int, error) {
	return u.entitlements.CountActiveByModule(ctx, nil)
}
