package repository

import (
	"context"

	"ege-billing/internal/domain/model"
)

// PlanCatalog is the read-only port activation validates plans against.
// Writes exist only for the admin surface and seeding.
type PlanCatalog interface {
	FindByID(ctx context.Context, id string) (*model.Plan, error)
	ListAll(ctx context.Context) ([]*model.Plan, error)
	Save(ctx context.Context, plan *model.Plan) error
}
