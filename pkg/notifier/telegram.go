package notifier

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/blockwatch/sentinel/internal/model"
)

// telegramNotifier sends a rendered message through the Bot API.
type telegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	webPreviewDisabled bool
}

func newTelegramNotifier(cfg model.TelegramConfig) (*telegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}
	return &telegramNotifier{bot: bot, chatID: cfg.ChatID, webPreviewDisabled: cfg.DisableWebPreview}, nil
}

func (n *telegramNotifier) Send(ctx context.Context, payload Payload) model.NotifyOutcome {
	msg := tgbotapi.NewMessage(n.chatID, payload.Body)
	msg.DisableWebPagePreview = n.webPreviewDisabled

	_, err := n.bot.Send(msg)
	if err == nil {
		return model.NotifyOk
	}
	return classifyTelegramError(err)
}

// classifyTelegramError distinguishes the Bot API's rate-limit/5xx style
// errors (Retryable) from rejected-request errors such as an unknown chat
// or blocked bot (Terminal).
func classifyTelegramError(err error) model.NotifyOutcome {
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"too many requests", "timeout", "timed out", "502", "503", "504", "bad gateway", "service unavailable"} {
		if strings.Contains(msg, marker) {
			return model.NotifyRetryable
		}
	}
	return model.NotifyTerminal
}
