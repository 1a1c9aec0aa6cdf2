package visit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"linuxdo-keepalive/internal/domain"
	"linuxdo-keepalive/internal/usecase/pace"
)

// Селекторы кнопок на странице темы Discourse.
const (
	SelectorLikeReady    = ".discourse-reactions-reaction-button button"
	SelectorLikeButton   = ".discourse-reactions-reaction-button"
	SelectorReplyButton  = ".reply.create.btn-icon-text"
	SelectorReplyEditor  = ".d-editor-input"
	SelectorReplySubmit  = ".save-or-cancel .btn-primary.create"
	SelectorBookmarkMenu = ".btn.bookmark-menu-trigger"
)

// Actor выполняет действия на открытой странице темы.
type Actor struct {
	replies domain.ReplyProvider
	clock   pace.Clock
	timing  Timing
	log     zerolog.Logger
}

// NewActor создаёт исполнителя действий.
func NewActor(replies domain.ReplyProvider, clock pace.Clock, timing Timing, logger zerolog.Logger) *Actor {
	return &Actor{replies: replies, clock: clock, timing: timing, log: logger}
}

// Like ставит реакцию на первый пост.
func (a *Actor) Like(ctx context.Context, page domain.Page) error {
	if _, err := page.WaitFor(SelectorLikeReady, a.timing.ActionTimeout); err != nil {
		return fmt.Errorf("кнопка лайка: %w", err)
	}
	if err := a.clickFirst(page, SelectorLikeButton); err != nil {
		return fmt.Errorf("лайк: %w", err)
	}
	a.log.Info().Msg("actor: тема лайкнута")
	return nil
}

// Reply отправляет случайный ответ и возвращает точный отправленный текст.
func (a *Actor) Reply(ctx context.Context, page domain.Page) (string, error) {
	text := a.replies.RandomReply()
	if text == "" {
		return "", errors.New("корпус ответов пуст")
	}

	button, err := page.WaitFor(SelectorReplyButton, a.timing.ActionTimeout)
	if err != nil {
		return "", fmt.Errorf("кнопка ответа: %w", err)
	}
	if err := button.Click(); err != nil {
		return "", fmt.Errorf("клик по кнопке ответа: %w", err)
	}

	editor, err := page.WaitFor(SelectorReplyEditor, a.timing.ActionTimeout)
	if err != nil {
		return "", fmt.Errorf("редактор ответа: %w", err)
	}
	if err := editor.Fill(text); err != nil {
		return "", fmt.Errorf("ввод ответа: %w", err)
	}
	a.log.Info().Str("reply", text).Msg("actor: текст ответа введён")

	submit, err := page.WaitFor(SelectorReplySubmit, a.timing.ActionTimeout)
	if err != nil {
		return "", fmt.Errorf("кнопка отправки: %w", err)
	}
	if err := a.clock.Sleep(ctx, a.timing.ReplyPause); err != nil {
		return "", err
	}
	if err := submit.Click(); err != nil {
		return "", fmt.Errorf("отправка ответа: %w", err)
	}
	a.log.Info().Msg("actor: ответ отправлен")
	return text, nil
}

// Collect добавляет тему в закладки.
func (a *Actor) Collect(ctx context.Context, page domain.Page) error {
	button, err := page.WaitFor(SelectorBookmarkMenu, a.timing.ActionTimeout)
	if err != nil {
		return fmt.Errorf("кнопка закладки: %w", err)
	}
	if err := a.clock.Sleep(ctx, a.timing.BookmarkPause); err != nil {
		return err
	}
	if err := button.Click(); err != nil {
		return fmt.Errorf("закладка: %w", err)
	}
	a.log.Info().Msg("actor: тема добавлена в закладки")
	return nil
}

func (a *Actor) clickFirst(page domain.Page, selector string) error {
	el, err := page.Query(selector)
	if err != nil {
		return err
	}
	if el == nil {
		return fmt.Errorf("%w: %s", domain.ErrElementNotFound, selector)
	}
	return el.Click()
}

// Timing: паузы и таймауты визита.
type Timing struct {
	pace.Timeouts
	Settle        time.Duration
	PreClose      time.Duration
	ReplyPause    time.Duration
	BookmarkPause time.Duration
}

// DefaultTiming повторяет темп живого пользователя.
func DefaultTiming() Timing {
	return Timing{
		Timeouts:      pace.DefaultTimeouts(),
		Settle:        3 * time.Second,
		PreClose:      3 * time.Second,
		ReplyPause:    2 * time.Second,
		BookmarkPause: 2 * time.Second,
	}
}
