// File: internal/usecase/webhook_uc.go
package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"ege-billing/internal/domain"
	"ege-billing/internal/domain/model"
	"ege-billing/internal/domain/ports/repository"
	"ege-billing/internal/infra/metrics"
)

// Compile-time check
var _ WebhookUseCase = (*webhookUC)(nil)

// WebhookEvent is a verified provider notification. Signature verification
// happens before this layer; Process assumes it already passed.
type WebhookEvent struct {
	OrderID   string
	Status    model.WebhookStatus
	PaymentID string
	Raw       []byte
}

type WebhookResult string

const (
	// ResultActivated: first delivery, activation committed.
	ResultActivated WebhookResult = "activated"
	// ResultDuplicate: delivery seen before and the prior activation was
	// verified complete (or repaired synchronously). Safe to ack.
	ResultDuplicate WebhookResult = "duplicate"
	// ResultRejected: REJECTED status recorded, payment marked failed.
	ResultRejected WebhookResult = "rejected"
)

type WebhookUseCase interface {
	// Process admits the delivery through the dedup ledger and drives
	// activation. The error, when non-nil, is retryable from the provider's
	// point of view unless it is a non-retryable ActivationError.
	Process(ctx context.Context, ev WebhookEvent) (WebhookResult, error)
}

type webhookUC struct {
	deliveries repository.WebhookDeliveryRepository
	payments   repository.PaymentRepository
	activation ActivationUseCase
	log        *zerolog.Logger
}

func NewWebhookUseCase(
	deliveries repository.WebhookDeliveryRepository,
	payments repository.PaymentRepository,
	activation ActivationUseCase,
	logger *zerolog.Logger,
) *webhookUC {
	l := logger.With().Str("component", "WebhookUC").Logger()
	return &webhookUC{deliveries: deliveries, payments: payments, activation: activation, log: &l}
}

func (u *webhookUC) Process(ctx context.Context, ev WebhookEvent) (WebhookResult, error) {
	if ev.OrderID == "" {
		return "", domain.ErrInvalidArgument
	}

	delivery := &model.WebhookDelivery{
		OrderID:    ev.OrderID,
		Status:     ev.Status,
		PaymentID:  ev.PaymentID,
		Payload:    ev.Raw,
		ReceivedAt: time.Now().UTC(),
	}
	err := u.deliveries.InsertUnique(ctx, nil, delivery)
	switch {
	case err == nil:
		metrics.IncWebhook(string(ev.Status), "admitted")
		return u.handleAdmitted(ctx, ev)
	case errors.Is(err, domain.ErrDuplicateDelivery):
		metrics.IncWebhook(string(ev.Status), "duplicate")
		return u.handleDuplicate(ctx, ev)
	default:
		// Ledger write failed: fail the whole delivery so the provider
		// resends it later.
		metrics.IncWebhook(string(ev.Status), "error")
		return "", err
	}
}

func (u *webhookUC) handleAdmitted(ctx context.Context, ev WebhookEvent) (WebhookResult, error) {
	switch ev.Status {
	case model.WebhookStatusAuthorized, model.WebhookStatusConfirmed:
		if _, err := u.activation.Activate(ctx, ev.OrderID, ev.PaymentID); err != nil {
			return "", err
		}
		return ResultActivated, nil
	case model.WebhookStatusRejected:
		return u.recordRejection(ctx, ev)
	default:
		return "", domain.ErrInvalidArgument
	}
}

// handleDuplicate runs the verify-before-ack step. "Already seen" does not
// imply "already done": a prior delivery whose activation failed mid-way must
// be re-driven before the provider gets its 200, or it never retries again.
func (u *webhookUC) handleDuplicate(ctx context.Context, ev WebhookEvent) (WebhookResult, error) {
	p, err := u.payments.FindByOrderID(ctx, nil, ev.OrderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Delivery in the ledger but no payment attempt at all: let the
			// activation path produce the UnknownOrder operator alert.
			_, aerr := u.activation.Activate(ctx, ev.OrderID, ev.PaymentID)
			return "", aerr
		}
		return "", err
	}

	switch ev.Status {
	case model.WebhookStatusAuthorized, model.WebhookStatusConfirmed:
		// Activate is re-entrant: when the prior delivery completed it
		// verifies and no-ops; when it did not, this is the synchronous
		// re-drive the ack depends on.
		if _, err := u.activation.Activate(ctx, ev.OrderID, ev.PaymentID); err != nil {
			u.log.Warn().Str("order_id", ev.OrderID).Err(err).Msg("duplicate delivery with incomplete activation")
			metrics.IncWebhook(string(ev.Status), "duplicate_incomplete")
			return "", err
		}
		return ResultDuplicate, nil
	case model.WebhookStatusRejected:
		if p.Status == model.PaymentStatusFailed {
			return ResultDuplicate, nil
		}
		return u.recordRejection(ctx, ev)
	default:
		return "", domain.ErrInvalidArgument
	}
}

func (u *webhookUC) recordRejection(ctx context.Context, ev WebhookEvent) (WebhookResult, error) {
	p, err := u.payments.FindByOrderID(ctx, nil, ev.OrderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Unknown order. Same taxonomy (and operator alert) as an
			// unknown confirmation; retrying a rejection fixes nothing.
			_, aerr := u.activation.Activate(ctx, ev.OrderID, ev.PaymentID)
			return "", aerr
		}
		return "", err
	}
	// A REJECTED arriving after CONFIRMED (out-of-order delivery) must not
	// clobber a succeeded payment.
	if p.Status == model.PaymentStatusSucceeded {
		u.log.Warn().Str("order_id", ev.OrderID).Msg("REJECTED after success ignored")
		return ResultDuplicate, nil
	}
	if p.Status != model.PaymentStatusFailed {
		if err := u.payments.MarkFailed(ctx, nil, ev.OrderID, time.Now().UTC()); err != nil {
			return "", err
		}
	}
	return ResultRejected, nil
}
