package notify

import (
	"context"
	"fmt"
	"net/http"

	"promptiq/m/v2/app/config"
	"promptiq/m/v2/app/util"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

const telegramMessageLimit = 4096

type Telegram struct {
	bot    *telego.Bot
	chatID telego.ChatID
}

func NewTelegram(cfg *config.Config, chatID int64, options ...telego.BotOption) (*Telegram, error) {
	options = append([]telego.BotOption{botLoggerOption(cfg)}, options...)
	bot, err := telego.NewBot(cfg.TelegramSystemBotToken, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create system bot: %w", err)
	}
	return &Telegram{
		bot:    bot,
		chatID: tu.ID(chatID),
	}, nil
}

func (t *Telegram) Notify(ctx context.Context, message string) error {
	return withRetry(ctx, "telegram", func() error {
		_, err := t.bot.SendMessage(tu.Message(t.chatID, util.Truncate(message, telegramMessageLimit)))
		return err
	})
}

func botLoggerOption(cfg *config.Config) telego.BotOption {
	if cfg.Environment == "production" {
		return telego.WithDefaultLogger(false, true)
	}
	return telego.WithDefaultDebugLogger()
}

// RoundTripperFunc lets tests stand in for the Telegram API.
type RoundTripperFunc func(req *http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
