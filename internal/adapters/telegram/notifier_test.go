package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu       sync.Mutex
	messages []tgbotapi.MessageConfig
	err      error
	panics   bool
	block    chan struct{}
	delay    func(text string) time.Duration
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.block != nil {
		<-f.block
	}
	if f.panics {
		panic("boom")
	}
	if f.delay != nil {
		time.Sleep(f.delay(c.(tgbotapi.MessageConfig).Text))
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, f.err
}

func (f *fakeSender) sent() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tgbotapi.MessageConfig(nil), f.messages...)
}

func longContent(lines int) string {
	out := make([]string, lines)
	for i := range out {
		out[i] = strings.Repeat("y", 49)
	}
	return strings.Join(out, "\n")
}

func TestNotifierSyncSendsAllPartsBeforeReturning(t *testing.T) {
	sender := &fakeSender{}
	n := NewNotifier(sender, zerolog.Nop(), Options{Enabled: true, ChatID: "12345", Mode: ModeSync})

	n.Send(longContent(201), "summary")

	msgs := sender.sent()
	require.Len(t, msgs, 3)
	for _, m := range msgs {
		assert.Equal(t, int64(12345), m.ChatID)
		assert.Equal(t, tgbotapi.ModeHTML, m.ParseMode)
		assert.LessOrEqual(t, len([]rune(m.Text)), MessageLimit)
	}
}

func TestNotifierDetachedDeliversAfterFlush(t *testing.T) {
	sender := &fakeSender{block: make(chan struct{})}
	n := NewNotifier(sender, zerolog.Nop(), Options{Enabled: true, ChatID: "@channel", Mode: ModeDetached})

	n.Send("<b>hello</b>", "summary")
	assert.Empty(t, sender.sent(), "detached send must not block the caller")

	close(sender.block)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, n.Flush(ctx))

	msgs := sender.sent()
	require.Len(t, msgs, 1)
	assert.Equal(t, "@channel", msgs[0].ChannelUsername)
}

func TestNotifierDetachedKeepsPartOrder(t *testing.T) {
	sender := &fakeSender{delay: func(text string) time.Duration {
		if strings.HasPrefix(text, "first") {
			return 50 * time.Millisecond
		}
		return 0
	}}
	n := NewNotifier(sender, zerolog.Nop(), Options{Enabled: true, ChatID: "1", Mode: ModeDetached})

	n.Send("first\n"+longContent(201), "summary")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, n.Flush(ctx))

	msgs := sender.sent()
	require.Len(t, msgs, 3)
	assert.True(t, strings.HasPrefix(msgs[0].Text, "first"), "slow first part still arrives first")
}

func TestNotifierFlushHonoursContext(t *testing.T) {
	sender := &fakeSender{block: make(chan struct{})}
	defer close(sender.block)
	n := NewNotifier(sender, zerolog.Nop(), Options{Enabled: true, ChatID: "1", Mode: ModeDetached})

	n.Send("text", "summary")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, n.Flush(ctx), context.DeadlineExceeded)
}

func TestNotifierDisabledSkips(t *testing.T) {
	sender := &fakeSender{}
	n := NewNotifier(sender, zerolog.Nop(), Options{Enabled: false, ChatID: "1"})
	n.Send("text", "summary")
	assert.Empty(t, sender.sent())
}

func TestNotifierNeverPropagatesFailures(t *testing.T) {
	failing := &fakeSender{err: errors.New("network down")}
	n := NewNotifier(failing, zerolog.Nop(), Options{Enabled: true, ChatID: "1"})
	assert.NotPanics(t, func() { n.Send("text", "summary") })

	rejected := &fakeSender{err: &tgbotapi.Error{Code: 400, Message: "Bad Request"}}
	n = NewNotifier(rejected, zerolog.Nop(), Options{Enabled: true, ChatID: "1"})
	assert.NotPanics(t, func() { n.Send("text", "summary") })

	panicking := &fakeSender{panics: true}
	n = NewNotifier(panicking, zerolog.Nop(), Options{Enabled: true, ChatID: "1"})
	assert.NotPanics(t, func() { n.Send("text", "summary") })
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode(" Detached ")
	require.NoError(t, err)
	assert.Equal(t, ModeDetached, m)

	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeSync, m)

	_, err = ParseMode("async")
	assert.Error(t, err)
}
