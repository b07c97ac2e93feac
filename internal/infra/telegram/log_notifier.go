// File: internal/infra/telegram/log_notifier.go
package telegram

import (
	"context"

	"github.com/rs/zerolog"

	"ege-billing/internal/domain/model"
	"ege-billing/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.Notifier = (*LogNotifier)(nil)

// LogNotifier writes notifications to the log instead of sending them. Used
// when no bot token is configured, and in dev environments.
type LogNotifier struct {
	log *zerolog.Logger
}

func NewLogNotifier(logger *zerolog.Logger) *LogNotifier {
	l := logger.With().Str("component", "LogNotifier").Logger()
	return &LogNotifier{log: &l}
}

func (n *LogNotifier) OnActivationResult(ctx context.Context, orderID string, userID int64, outcome adapter.ActivationOutcome) error {
	ev := n.log.Info()
	if !outcome.Success {
		ev = n.log.Warn()
	}
	ev.Str("order_id", orderID).
		Int64("user_id", userID).
		Bool("success", outcome.Success).
		Str("plan_id", outcome.PlanID).
		Str("reason", outcome.FailureReason).
		Msg("activation result")
	return nil
}

func (n *LogNotifier) OnPersistentDiscrepancy(ctx context.Context, orderID string, kind model.DiscrepancyKind, occurrences int) error {
	n.log.Warn().
		Str("order_id", orderID).
		Str("kind", string(kind)).
		Int("occurrences", occurrences).
		Msg("persistent reconciliation discrepancy")
	return nil
}
