// Package notify pushes operational pings to the admin Telegram chat.
// Everything here is best-effort: a failed notification is logged and
// dropped, never surfaced to the member whose action triggered it.
package notify

import (
	"context"

	"github.com/esusuhq/esusu-engine/utils"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type TelegramNotifier struct {
	bot         *tgbotapi.BotAPI
	adminChatID int64
	logger      *utils.Logger
}

func NewTelegramNotifier(token string, adminChatID int64, logger *utils.Logger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &TelegramNotifier{bot: bot, adminChatID: adminChatID, logger: logger}, nil
}

func (n *TelegramNotifier) NotifyAdmins(ctx context.Context, text string) {
	msg := tgbotapi.NewMessage(n.adminChatID, text)
	if _, err := n.bot.Send(msg); err != nil {
		n.logger.Warnf("Failed to notify admin chat: %v", err)
	}
}
