// Package alert delivers price-change alerts to the office admin chat.
package alert

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hartline-electric/backoffice/internal/domain/materials"
)

// Telegram pushes price alerts to a Telegram chat. Delivery is best-effort;
// the caller never waits on it.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	log    *slog.Logger
}

func NewTelegram(token string, chatID int64, log *slog.Logger) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	return &Telegram{bot: bot, chatID: chatID, log: log}, nil
}

func (t *Telegram) Notify(_ context.Context, a materials.PriceAlert) error {
	icon := "⚠️"
	if a.Level == materials.AlertImmediate {
		icon = "🚨"
	}
	text := fmt.Sprintf(
		"%s %s price alert\n%s (%s)\n$%s → $%s (%s%%)",
		icon, a.Level,
		a.Material.Name, a.Material.Code,
		a.OldPrice.StringFixed(2), a.NewPrice.StringFixed(2),
		a.PercentChange.StringFixed(2),
	)

	msg := tgbotapi.NewMessage(t.chatID, text)
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	t.log.Debug("price alert delivered", "material_id", a.Material.ID, "level", string(a.Level))
	return nil
}
