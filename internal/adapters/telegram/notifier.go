package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"linuxdo-keepalive/internal/domain"
	"linuxdo-keepalive/internal/infra/metrics"
)

// Mode выбирает способ доставки.
type Mode string

const (
	// ModeSync доставляет все части до возврата из Send.
	ModeSync Mode = "sync"
	// ModeDetached отправляет части в фоне, Flush дожидается доставки.
	ModeDetached Mode = "detached"
)

// ParseMode разбирает режим из конфигурации.
func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case ModeSync, "":
		return ModeSync, nil
	case ModeDetached:
		return ModeDetached, nil
	default:
		return "", fmt.Errorf("%w: NOTIFY_MODE=%q", domain.ErrConfigInvalid, raw)
	}
}

// Sender: часть tgbotapi.BotAPI, нужная для отправки.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Options настраивает Notifier.
type Options struct {
	Enabled bool
	ChatID  string
	Mode    Mode
	Limit   int
}

// Notifier реализует domain.Notifier поверх Bot API.
type Notifier struct {
	sender  Sender
	log     zerolog.Logger
	opts    Options
	pending sync.WaitGroup
}

var _ domain.Notifier = (*Notifier)(nil)

// NewNotifier создаёт отправителя. sender может быть nil, если уведомления выключены.
func NewNotifier(sender Sender, logger zerolog.Logger, opts Options) *Notifier {
	if opts.Limit <= 0 {
		opts.Limit = MessageLimit
	}
	if opts.Mode == "" {
		opts.Mode = ModeSync
	}
	if sender == nil {
		opts.Enabled = false
	}
	return &Notifier{sender: sender, log: logger, opts: opts}
}

// NewBotAPI создаёт клиента Bot API по токену.
func NewBotAPI(token string) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("создание бота: %w", err)
	}
	return bot, nil
}

// Send режет content по строкам и отправляет части с подписью "{summary} (Part i/N)".
func (n *Notifier) Send(content, summary string) {
	if !n.opts.Enabled {
		n.log.Info().Str("summary", summary).Msg("notifier: Telegram выключен, сообщение пропущено")
		return
	}
	parts := SplitMessage(content, n.opts.Limit)
	if n.opts.Mode == ModeDetached {
		n.pending.Add(1)
		go func() {
			defer n.pending.Done()
			n.deliverAll(parts, summary)
		}()
		return
	}
	n.deliverAll(parts, summary)
}

// deliverAll отправляет части по порядку.
func (n *Notifier) deliverAll(parts []string, summary string) {
	for i, part := range parts {
		n.deliver(part, fmt.Sprintf("%s (Part %d/%d)", summary, i+1, len(parts)))
	}
}

// Flush ждёт фоновые отправки или истечения ctx.
func (n *Notifier) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		n.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *Notifier) deliver(text, label string) {
	defer func() {
		if r := recover(); r != nil {
			metrics.IncNotification("panic")
			n.log.Error().Interface("panic", r).Str("summary", label).Msg("notifier: паника при отправке")
		}
	}()

	msg := n.newMessage(text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	start := time.Now()
	_, err := n.sender.Send(msg)
	metrics.ObserveNetworkRequest("telegram_bot", "send_message", n.opts.ChatID, start, err)
	if err != nil {
		metrics.IncNotification("error")
		var tgErr *tgbotapi.Error
		if errors.As(err, &tgErr) {
			n.log.Error().Err(err).Int("code", tgErr.Code).Str("summary", label).Msg("notifier: Telegram отклонил сообщение")
			return
		}
		n.log.Error().Err(err).Str("summary", label).Msg("notifier: не удалось отправить сообщение")
		return
	}
	metrics.IncNotification("sent")
	n.log.Info().Str("summary", label).Msg("notifier: сообщение отправлено")
}

func (n *Notifier) newMessage(text string) tgbotapi.MessageConfig {
	chat := strings.TrimSpace(n.opts.ChatID)
	if id, err := strconv.ParseInt(chat, 10, 64); err == nil {
		return tgbotapi.NewMessage(id, text)
	}
	return tgbotapi.NewMessageToChannel(chat, text)
}
