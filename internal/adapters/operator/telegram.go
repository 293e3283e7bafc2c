package operator

import (
	"context"
	"fmt"
	"megumi/internal/core/port"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const telegramTimeout = 10 * time.Second

//go:generate mockery --name TelegramBot

type TelegramBot interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// Telegram mirrors lifecycle output of another operator to a Telegram chat, for deployments without anyone
// watching the console. Prompts are answered by the wrapped operator only.
type Telegram struct {
	next   port.Operator
	bot    TelegramBot
	chatID int64
	name   string
	l      zerolog.Logger
}

func NewTelegram(next port.Operator, bot TelegramBot, chatID int64, name string) *Telegram {
	return &Telegram{
		next:   next,
		bot:    bot,
		chatID: chatID,
		name:   name,
		l:      log.With().Str("component", "telegram").Int64("chatID", chatID).Logger(),
	}
}

func (t *Telegram) Prompt(ctx context.Context, question string) (string, error) {
	t.send(fmt.Sprintf("[%s] waiting for input on the console", t.name))
	return t.next.Prompt(ctx, question)
}

func (t *Telegram) Status(message string) {
	t.next.Status(message)
	t.send(fmt.Sprintf("[%s] %s", t.name, message))
}

func (t *Telegram) ShowQR(code string) {
	t.next.ShowQR(code)
	t.send(fmt.Sprintf("[%s] a new QR code is waiting to be scanned on the console", t.name))
}

func (t *Telegram) ShowPairingCode(code string) {
	t.next.ShowPairingCode(code)
	t.send(fmt.Sprintf("[%s] pairing code: %s", t.name, code))
}

func (t *Telegram) send(text string) {
	ctx, cancel := context.WithTimeout(context.Background(), telegramTimeout)
	defer cancel()

	_, err := t.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: t.chatID,
		Text:   text,
	})
	if err != nil {
		t.l.Warn().Err(err).Msg("failed to mirror operator message")
		return
	}

	t.l.Trace().Str("text", text).Msg("mirrored operator message")
}
