// Package notify sends operator-facing reports: placed/reversed orders,
// balance shortfalls, venue errors. Ported from web3guy0-polybot's
// internal/bot Telegram integration, standing in for the Python source's
// self.tg reporter attached to every Exchange and the Arbitrage strategy.
package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Notifier is the narrow interface the strategy and scheduler depend on,
// so tests can supply a recording stub instead of a live bot.
type Notifier interface {
	Info(msg string)
	Warning(msg string)
	Error(msg string)
}

// Telegram sends notifications to a single chat via the Telegram Bot API.
type Telegram struct {
	api    *tgbotapi.BotAPI
	chatID int64
	log    zerolog.Logger
}

// NewTelegram builds a Telegram notifier. token/chatID come from config;
// an empty token yields a notifier that only logs, for environments
// without a configured bot.
func NewTelegram(token string, chatID int64, log zerolog.Logger) (*Telegram, error) {
	if token == "" {
		return &Telegram{log: log}, nil
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("notify: create telegram bot: %w", err)
	}
	log.Info().Str("username", api.Self.UserName).Msg("telegram notifier connected")
	return &Telegram{api: api, chatID: chatID, log: log}, nil
}

func (t *Telegram) send(prefix, msg string) {
	full := prefix + msg
	if t.api == nil || t.chatID == 0 {
		t.log.Info().Str("notify", full).Msg("notification (no telegram chat configured)")
		return
	}
	out := tgbotapi.NewMessage(t.chatID, full)
	if _, err := t.api.Send(out); err != nil {
		t.log.Warn().Err(err).Msg("failed to send telegram notification")
	}
}

func (t *Telegram) Info(msg string)    { t.send("ℹ️ ", msg) }
func (t *Telegram) Warning(msg string) { t.send("⚠️ ", msg) }
func (t *Telegram) Error(msg string)   { t.send("🛑 ", msg) }

// Noop discards every notification; useful in tests.
type Noop struct{}

func (Noop) Info(string)    {}
func (Noop) Warning(string) {}
func (Noop) Error(string)   {}
