package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"ege-billing/internal/domain"
	"ege-billing/internal/domain/model"
	"ege-billing/internal/domain/ports/repository"
)

var _ repository.WebhookDeliveryRepository = (*webhookRepo)(nil)

type webhookRepo struct{ pool *pgxpool.Pool }

func NewWebhookRepo(pool *pgxpool.Pool) *webhookRepo {
	return &webhookRepo{pool: pool}
}

// unique_violation per Postgres error codes
const pgUniqueViolation = "23505"

func (r *webhookRepo) InsertUnique(ctx context.Context, tx repository.Tx, d *model.WebhookDelivery) error {
	// The unique constraint on (order_id, status) is the serialization point
	// for admission: two racing deliveries cannot both insert.
	const q = `
INSERT INTO webhook_deliveries (order_id, status, payment_id, payload, received_at)
VALUES ($1,$2,$3,$4,$5);`
	_, err := execSQL(ctx, r.pool, tx, q, d.OrderID, d.Status, d.PaymentID, d.Payload, d.ReceivedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return domain.ErrDuplicateDelivery
		}
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *webhookRepo) FindByOrderAndStatus(ctx context.Context, tx repository.Tx, orderID string, status model.WebhookStatus) (*model.WebhookDelivery, error) {
	const q = `SELECT order_id, status, payment_id, payload, received_at FROM webhook_deliveries WHERE order_id=$1 AND status=$2;`
	row, err := pickRow(ctx, r.pool, tx, q, orderID, status)
	if err != nil {
		return nil, err
	}
	d := &model.WebhookDelivery{}
	if err := row.Scan(&d.OrderID, &d.Status, &d.PaymentID, &d.Payload, &d.ReceivedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return d, nil
}
