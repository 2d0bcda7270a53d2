package notify

import (
	"fmt"
	"time"

	telebot "gopkg.in/telebot.v3"

	"courierboard/internal/courier/data"
)

// TelegramSink forwards notifications to a driver's Telegram chat.
type TelegramSink struct {
	bot    *telebot.Bot
	chatID int64
}

func NewTelegramSink(token string, chatID int64) (*TelegramSink, error) {
	bot, err := telebot.NewBot(telebot.Settings{
		Token:  token,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &TelegramSink{
		bot:    bot,
		chatID: chatID,
	}, nil
}

func (t *TelegramSink) Push(item data.NotificationItem) error {
	text := item.Title
	if item.Body != "" {
		text += "\n" + item.Body
	}
	if _, err := t.bot.Send(telebot.ChatID(t.chatID), text); err != nil {
		return fmt.Errorf("failed to send telegram notification: %w", err)
	}
	return nil
}
