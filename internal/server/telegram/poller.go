package telegram

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Connect authenticates against the Bot API with token.
func Connect(token string) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect to telegram: %w", err)
	}
	return bot, nil
}

// Updates starts long polling and stops it when ctx is done, which closes
// the returned channel.
func Updates(ctx context.Context, bot *tgbotapi.BotAPI, timeout time.Duration) tgbotapi.UpdatesChannel {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = int(timeout / time.Second)
	cfg.AllowedUpdates = []string{"message"}

	updates := bot.GetUpdatesChan(cfg)
	go func() {
		<-ctx.Done()
		bot.StopReceivingUpdates()
	}()
	return updates
}
