// Package visit открывает одну тему, читает её и выполняет выбранные действия.
package visit

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"linuxdo-keepalive/internal/domain"
	"linuxdo-keepalive/internal/infra/metrics"
	"linuxdo-keepalive/internal/usecase/pace"
)

// Visitor выполняет визит в изолированной вкладке.
type Visitor struct {
	actor    *Actor
	scroller *pace.Scroller
	clock    pace.Clock
	timing   Timing
	log      zerolog.Logger
}

// NewVisitor создаёт визитёра.
func NewVisitor(actor *Actor, scroller *pace.Scroller, clock pace.Clock, timing Timing, logger zerolog.Logger) *Visitor {
	return &Visitor{actor: actor, scroller: scroller, clock: clock, timing: timing, log: logger}
}

// Visit открывает topic в новой вкладке браузера и возвращает исход.
// Ошибки и паники не выходят за пределы визита.
func (v *Visitor) Visit(ctx context.Context, browser domain.Browser, topic domain.TopicRef, actions domain.Actions) (out domain.TopicOutcome) {
	log := v.log.With().Str("title", topic.Title).Str("url", topic.URL).Logger()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("visitor: паника во время визита")
			out = domain.Errored(topic, domain.ErrorOther, fmt.Errorf("паника: %v", r))
		}
		metrics.IncVisit(string(out.Kind))
	}()

	page, err := browser.NewPage()
	if err != nil {
		log.Error().Err(err).Msg("visitor: не удалось открыть вкладку")
		return domain.Errored(topic, domain.ErrorOther, err)
	}
	defer func() {
		if err := v.clock.Sleep(context.WithoutCancel(ctx), v.timing.PreClose); err != nil {
			log.Debug().Err(err).Msg("visitor: пауза перед закрытием прервана")
		}
		if err := page.Close(); err != nil {
			log.Warn().Err(err).Msg("visitor: ошибка закрытия вкладки")
		}
		log.Info().Msg("visitor: вкладка закрыта")
	}()

	if err := page.Goto(ctx, topic.URL, v.timing.NavTimeout); err != nil {
		if errors.Is(err, domain.ErrNavigationTimeout) {
			log.Warn().Err(err).Msg("visitor: тема не открылась вовремя, пропускаем")
			return domain.Errored(topic, domain.ErrorTimeout, err)
		}
		log.Error().Err(err).Msg("visitor: ошибка перехода на тему")
		return domain.Errored(topic, domain.ErrorOther, err)
	}

	if err := v.clock.Sleep(ctx, v.timing.Settle); err != nil {
		return domain.Errored(topic, domain.ErrorOther, err)
	}
	_ = v.scroller.Scroll(ctx, page)

	// Лайк и закладка учитываются по факту попытки, ответ только после отправки.
	if actions.Like {
		v.attempt(log, "like", func() error { return v.actor.Like(ctx, page) })
	}

	var reply string
	if actions.Reply {
		v.attempt(log, "reply", func() error {
			text, err := v.actor.Reply(ctx, page)
			if err == nil {
				reply = text
			}
			return err
		})
	}

	if actions.Collect {
		v.attempt(log, "collect", func() error { return v.actor.Collect(ctx, page) })
	}

	return domain.Visited(topic, actions.Like, reply, actions.Collect)
}

// attempt запускает одно действие. Ошибка или паника только логируется.
func (v *Visitor) attempt(log zerolog.Logger, action string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("action", action).Msg("visitor: паника в действии")
			metrics.IncAction(action, "panic")
		}
	}()

	if err := fn(); err != nil {
		if errors.Is(err, domain.ErrElementNotFound) {
			log.Warn().Err(err).Str("action", action).Msg("visitor: элемент не найден, действие пропущено")
			metrics.IncAction(action, "not_found")
			return
		}
		log.Error().Err(err).Str("action", action).Msg("visitor: действие не удалось")
		metrics.IncAction(action, "error")
		return
	}
	metrics.IncAction(action, "success")
}
