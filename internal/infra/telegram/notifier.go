// File: internal/infra/telegram/notifier.go
package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"ege-billing/internal/domain/model"
	"ege-billing/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.Notifier = (*Notifier)(nil)

// Notifier delivers activation results to the buyer and operator alerts to
// the payment admin chat, over the bot API.
type Notifier struct {
	bot         *tgbotapi.BotAPI
	adminChatID int64
	log         *zerolog.Logger
}

func NewNotifier(token string, adminChatID int64, logger *zerolog.Logger) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	l := logger.With().Str("component", "TelegramNotifier").Logger()
	return &Notifier{bot: bot, adminChatID: adminChatID, log: &l}, nil
}

func (n *Notifier) OnActivationResult(ctx context.Context, orderID string, userID int64, outcome adapter.ActivationOutcome) error {
	if outcome.Success {
		text := fmt.Sprintf(
			"✅ Оплата прошла успешно!\n\nПодписка активирована: %s.\nИспользуйте /status для просмотра информации о подписке.",
			strings.Join(outcome.Modules, ", "),
		)
		msg := tgbotapi.NewMessage(userID, text)
		if _, err := n.bot.Send(msg); err != nil {
			n.log.Warn().Err(err).Int64("user_id", userID).Msg("user notification failed")
		}
		if n.adminChatID != 0 {
			admin := tgbotapi.NewMessage(n.adminChatID,
				fmt.Sprintf("✅ Платёж подтверждён\nOrder: %s\nUser: %d\nПлан: %s", orderID, userID, outcome.PlanID))
			if _, err := n.bot.Send(admin); err != nil {
				return err
			}
		}
		return nil
	}

	// Non-retryable failures are a bug or a data issue, not user error:
	// the alert goes to the operator chat, not to the user.
	if n.adminChatID == 0 {
		return nil
	}
	msg := tgbotapi.NewMessage(n.adminChatID,
		fmt.Sprintf("⚠️ Активация не выполнена\nOrder: %s\nUser: %d\nПричина: %s", orderID, userID, outcome.FailureReason))
	_, err := n.bot.Send(msg)
	return err
}

func (n *Notifier) OnPersistentDiscrepancy(ctx context.Context, orderID string, kind model.DiscrepancyKind, occurrences int) error {
	if n.adminChatID == 0 {
		return nil
	}
	msg := tgbotapi.NewMessage(n.adminChatID,
		fmt.Sprintf("🔁 Расхождение платежей и подписок\nOrder: %s\nКласс: %s\nПовторов: %d", orderID, kind, occurrences))
	_, err := n.bot.Send(msg)
	return err
}
