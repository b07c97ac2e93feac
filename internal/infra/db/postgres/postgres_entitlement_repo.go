package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"ege-billing/internal/domain"
	"ege-billing/internal/domain/model"
	"ege-billing/internal/domain/ports/repository"
)

var _ repository.EntitlementRepository = (*entitlementRepo)(nil)

type entitlementRepo struct{ pool *pgxpool.Pool }

func NewEntitlementRepo(pool *pgxpool.Pool) *entitlementRepo {
	return &entitlementRepo{pool: pool}
}

const entitlementColumns = `user_id, module_code, plan_id, activated_at, expires_at, is_active`

func (r *entitlementRepo) Upsert(ctx context.Context, tx repository.Tx, e *model.Entitlement) error {
	// expires_at is overwritten verbatim, never extended here. The engine is
	// the only place an expiration is computed.
	const q = `
INSERT INTO entitlements (user_id, module_code, plan_id, activated_at, expires_at, is_active)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (user_id, module_code) DO UPDATE SET
  plan_id=$3, activated_at=$4, expires_at=$5, is_active=$6;`
	_, err := execSQL(ctx, r.pool, tx, q, e.UserID, e.ModuleCode, e.PlanID, e.ActivatedAt, e.ExpiresAt, e.IsActive)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *entitlementRepo) FindByUserAndModule(ctx context.Context, tx repository.Tx, userID int64, moduleCode string) (*model.Entitlement, error) {
	const q = `SELECT ` + entitlementColumns + ` FROM entitlements WHERE user_id=$1 AND module_code=$2;`
	row, err := pickRow(ctx, r.pool, tx, q, userID, moduleCode)
	if err != nil {
		return nil, err
	}
	e := &model.Entitlement{}
	if err := row.Scan(&e.UserID, &e.ModuleCode, &e.PlanID, &e.ActivatedAt, &e.ExpiresAt, &e.IsActive); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return e, nil
}

func (r *entitlementRepo) ListActiveByUser(ctx context.Context, tx repository.Tx, userID int64) ([]*model.Entitlement, error) {
	const q = `SELECT ` + entitlementColumns + ` FROM entitlements WHERE user_id=$1 AND is_active=TRUE ORDER BY module_code;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()
	return scanEntitlements(rows)
}

func (r *entitlementRepo) ListActiveWithoutPayment(ctx context.Context, tx repository.Tx, limit int) ([]*model.Entitlement, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `
SELECT ` + entitlementColumns + `
  FROM entitlements e
 WHERE e.is_active = TRUE
   AND NOT EXISTS (
         SELECT 1 FROM payments p
          WHERE p.user_id = e.user_id
            AND p.plan_id = e.plan_id
            AND p.status = 'succeeded'
       )
 LIMIT $1;`
	rows, err := queryRows(ctx, r.pool, tx, q, limit)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()
	return scanEntitlements(rows)
}

func (r *entitlementRepo) DeactivateExpired(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	const q = `UPDATE entitlements SET is_active=FALSE WHERE is_active=TRUE AND expires_at <= $1;`
	tag, err := execSQL(ctx, r.pool, tx, q, now)
	if err != nil {
		return 0, domain.ErrOperationFailed
	}
	return int(tag.RowsAffected()), nil
}

func (r *entitlementRepo) CountActiveByModule(ctx context.Context, tx repository.Tx) (map[string]int, error) {
	const q = `SELECT module_code, COUNT(1) FROM entitlements WHERE is_active=TRUE AND expires_at > NOW() GROUP BY module_code;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var code string
		var cnt int
		if err := rows.Scan(&code, &cnt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out[code] = cnt
	}
	return out, rows.Err()
}

func scanEntitlements(rows pgx.Rows) ([]*model.Entitlement, error) {
	var out []*model.Entitlement
	for rows.Next() {
		e := new(model.Entitlement)
		if err := rows.Scan(&e.UserID, &e.ModuleCode, &e.PlanID, &e.ActivatedAt, &e.ExpiresAt, &e.IsActive); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
