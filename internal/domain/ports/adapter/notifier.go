package adapter

import (
	"context"

	"ege-billing/internal/domain/model"
)

// ActivationOutcome is what the dispatcher is told about an activation.
// The dispatcher owns all message text; this package only types the facts.
type ActivationOutcome struct {
	Success        bool
	PlanID         string
	Modules        []string
	TeacherTouched bool
	FailureReason  string // typed reason string for operator-directed alerts
}

// Notifier is the outbound port to the notification dispatcher.
type Notifier interface {
	OnActivationResult(ctx context.Context, orderID string, userID int64, outcome ActivationOutcome) error
	OnPersistentDiscrepancy(ctx context.Context, orderID string, kind model.DiscrepancyKind, occurrences int) error
}
