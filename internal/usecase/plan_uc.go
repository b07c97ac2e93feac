// File: internal/usecase/plan_uc.go
package usecase

import (
	"context"

	"ege-billing/internal/domain/model"
	"ege-billing/internal/domain/ports/repository"
)

// Compile-time check
var _ PlanUseCase = (*planUC)(nil)

type PlanUseCase interface {
	Get(ctx context.Context, id string) (*model.Plan, error)
	List(ctx context.Context) ([]*model.Plan, error)
	Create(ctx context.Context, id, name string, modules []string, durationDays int, priceKopecks int64, roleGranting bool, roleTier string) (*model.Plan, error)
}

type planUC struct {
	plans repository.PlanCatalog
}

func NewPlanUseCase(plans repository.PlanCatalog) *planUC {
	return &planUC{plans: plans}
}

func (u *planUC) Get(ctx context.Context, id string) (*model.Plan, error) {
	return u.plans.FindByID(ctx, id)
}

func (u *planUC) List(ctx context.Context) ([]*model.Plan, error) {
	return u.plans.ListAll(ctx)
}

func (u *planUC) Create(ctx context.Context, id, name string, modules []string, durationDays int, priceKopecks int64, roleGranting bool, roleTier string) (*model.Plan, error) {
	p, err := model.NewPlan(id, name, modules, durationDays, priceKopecks, roleGranting, roleTier)
	if err != nil {
		return nil, err
	}
	if err := u.plans.Save(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}
