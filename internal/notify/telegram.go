package notify

import (
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramNotifier mirrors change signals to a Telegram chat, for households
// that plan from the couch rather than a browser tab. It is best-effort:
// delivery failures are logged, never propagated.
type TelegramNotifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramNotifier initializes the bot API with the given token.
func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	log.Printf("Telegram notifier authorized on account %s", api.Self.UserName)
	return &TelegramNotifier{api: api, chatID: chatID}, nil
}

func (n *TelegramNotifier) Notify(userID, scope string) {
	var text string
	switch scope {
	case "suggestions":
		text = "Your meal suggestions are ready. Open the planner to review them."
	default:
		return // session-level churn is too chatty for a chat channel
	}

	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.api.Send(msg); err != nil {
		log.Printf("notify: telegram send failed: %v", err)
	}
}
