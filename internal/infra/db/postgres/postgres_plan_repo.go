package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"ege-billing/internal/domain"
	"ege-billing/internal/domain/model"
	"ege-billing/internal/domain/ports/repository"
)

// Ensure interface compliance
var _ repository.PlanCatalog = (*PostgresPlanRepo)(nil)

type PostgresPlanRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresPlanRepo(pool *pgxpool.Pool) *PostgresPlanRepo {
	return &PostgresPlanRepo{pool: pool}
}

func (r *PostgresPlanRepo) Save(ctx context.Context, plan *model.Plan) error {
	const sql = `
INSERT INTO plans (id, name, modules, duration_days, price_kopecks, role_granting, role_tier, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE
  SET name          = EXCLUDED.name,
      modules       = EXCLUDED.modules,
      duration_days = EXCLUDED.duration_days,
      price_kopecks = EXCLUDED.price_kopecks,
      role_granting = EXCLUDED.role_granting,
      role_tier     = EXCLUDED.role_tier;
`
	_, err := r.pool.Exec(ctx, sql,
		plan.ID, plan.Name, plan.Modules, plan.DurationDays, plan.PriceKopecks, plan.RoleGranting, plan.RoleTier, plan.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Save plan: %w", err)
	}
	return nil
}

func (r *PostgresPlanRepo) FindByID(ctx context.Context, id string) (*model.Plan, error) {
	const sql = `
SELECT id, name, modules, duration_days, price_kopecks, role_granting, role_tier, created_at
  FROM plans
 WHERE id = $1;
`
	row := r.pool.QueryRow(ctx, sql, id)
	var p model.Plan
	if err := row.Scan(&p.ID, &p.Name, &p.Modules, &p.DurationDays, &p.PriceKopecks, &p.RoleGranting, &p.RoleTier, &p.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("FindByID plan: %w", err)
	}
	return &p, nil
}

func (r *PostgresPlanRepo) ListAll(ctx context.Context) ([]*model.Plan, error) {
	const sql = `
SELECT id, name, modules, duration_days, price_kopecks, role_granting, role_tier, created_at
  FROM plans;
`
	rows, err := r.pool.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("ListAll plans: %w", err)
	}
	defer rows.Close()
	var out []*model.Plan
	for rows.Next() {
		var p model.Plan
		if err := rows.Scan(&p.ID, &p.Name, &p.Modules, &p.DurationDays, &p.PriceKopecks, &p.RoleGranting, &p.RoleTier, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}
