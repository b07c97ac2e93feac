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

var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

const paymentColumns = `id, order_id, payment_id, user_id, plan_id, amount_kopecks, status, created_at, completed_at`

func (r *paymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.PaymentAttempt) error {
	const q = `
INSERT INTO payments (id, order_id, payment_id, user_id, plan_id, amount_kopecks, status, created_at, completed_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (id) DO UPDATE SET
  payment_id=$3, status=$7, completed_at=$9;`

	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.OrderID, p.PaymentID, p.UserID, p.PlanID, p.AmountKopecks, p.Status, p.CreatedAt, p.CompletedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *paymentRepo) FindByOrderID(ctx context.Context, tx repository.Tx, orderID string) (*model.PaymentAttempt, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE order_id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		// Row lock keeps a concurrent activation for the same order blocked
		// until this transaction finishes.
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, orderID)
	if err != nil {
		return nil, err
	}

	p := &model.PaymentAttempt{}
	if err := row.Scan(&p.ID, &p.OrderID, &p.PaymentID, &p.UserID, &p.PlanID, &p.AmountKopecks, &p.Status, &p.CreatedAt, &p.CompletedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}

func (r *paymentRepo) MarkSucceeded(ctx context.Context, tx repository.Tx, orderID string, paymentID *string, completedAt time.Time) error {
	// completed_at must reflect the moment of success. An earlier REJECTED
	// may have stamped it already; a CONFIRMED flipping failed to succeeded
	// overwrites it, and only a repeat on an already-succeeded row keeps it.
	const q = `
UPDATE payments
   SET status='succeeded',
       payment_id=COALESCE($2, payment_id),
       completed_at=CASE WHEN status='succeeded' THEN completed_at ELSE $3 END
 WHERE order_id=$1;`
	_, err := execSQL(ctx, r.pool, tx, q, orderID, paymentID, completedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *paymentRepo) MarkFailed(ctx context.Context, tx repository.Tx, orderID string, completedAt time.Time) error {
	const q = `
UPDATE payments
   SET status='failed', completed_at=COALESCE(completed_at, $2)
 WHERE order_id=$1 AND status <> 'succeeded';`
	_, err := execSQL(ctx, r.pool, tx, q, orderID, completedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *paymentRepo) ListSucceededWithoutEntitlements(ctx context.Context, tx repository.Tx, since time.Time, limit int) ([]*model.PaymentAttempt, error) {
	if limit <= 0 {
		limit = 100
	}
	// A succeeded payment counts as under-activated when some plan module
	// lacks an entitlement row written at or after the payment completed.
	// plan_id on the row is not part of the match: a later purchase may
	// legitimately overwrite it, and that user is still fully served. A
	// payment whose plan vanished from the catalog is always reported.
	const q = `
SELECT ` + paymentColumns + `
  FROM payments p
 WHERE p.status='succeeded'
   AND p.completed_at >= $1
   AND (
         NOT EXISTS (SELECT 1 FROM plans pl WHERE pl.id = p.plan_id)
         OR EXISTS (
              SELECT 1
                FROM plans pl
                CROSS JOIN UNNEST(pl.modules) AS m(module_code)
               WHERE pl.id = p.plan_id
                 AND NOT EXISTS (
                       SELECT 1 FROM entitlements e
                        WHERE e.user_id = p.user_id
                          AND e.module_code = m.module_code
                          AND e.activated_at >= p.completed_at
                     )
            )
       )
 ORDER BY p.completed_at ASC
 LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, since, limit)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.PaymentAttempt
	for rows.Next() {
		p := new(model.PaymentAttempt)
		if err := rows.Scan(&p.ID, &p.OrderID, &p.PaymentID, &p.UserID, &p.PlanID, &p.AmountKopecks, &p.Status, &p.CreatedAt, &p.CompletedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *paymentRepo) SumSucceededByPeriod(ctx context.Context, tx repository.Tx, period string) (int64, error) {
	const q = `SELECT COALESCE(SUM(amount_kopecks),0) FROM payments WHERE status='succeeded' AND completed_at >= DATE_TRUNC($1, NOW());`
	row, err := pickRow(ctx, r.pool, tx, q, period)
	if err != nil {
		return 0, err
	}
	var sum int64
	if err := row.Scan(&sum); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return sum, nil
}

func (r *paymentRepo) CountSucceededSince(ctx context.Context, tx repository.Tx, since time.Time) (int, error) {
	const q = `SELECT COUNT(1) FROM payments WHERE status='succeeded' AND completed_at >= $1;`
	row, err := pickRow(ctx, r.pool, tx, q, since)
	if err != nil {
		return 0, err
	}
	var cnt int
	if err := row.Scan(&cnt); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return cnt, nil
}
