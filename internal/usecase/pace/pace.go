// Package pace задаёт темп прогона: ожидания между шагами и имитацию прокрутки страницы.
package pace

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"

	"linuxdo-keepalive/internal/domain"
)

// Clock абстрагирует время, чтобы тесты не ждали по-настоящему.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// RealClock использует системное время.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// Sleep ждёт d или отмены ctx.
func (RealClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Timeouts: таймауты браузера, общие для всех фаз прогона.
type Timeouts struct {
	NavTimeout    time.Duration
	ActionTimeout time.Duration
}

// DefaultTimeouts возвращает таймауты по умолчанию.
func DefaultTimeouts() Timeouts {
	return Timeouts{NavTimeout: 30 * time.Second, ActionTimeout: 2 * time.Second}
}

// NewRand создаёт генератор. seed == 0 означает случайное зерно.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(seed, seed^0x5bd1e995))
}

// ScrollConfig: границы случайной прокрутки.
type ScrollConfig struct {
	MinDuration time.Duration
	MaxDuration time.Duration
	MinStep     int
	MaxStep     int
	MinPause    time.Duration
	MaxPause    time.Duration
}

// DefaultScroll: 5–10 секунд, шаг 300–600 px, пауза 0.5–1.5 с.
func DefaultScroll() ScrollConfig {
	return ScrollConfig{
		MinDuration: 5 * time.Second,
		MaxDuration: 10 * time.Second,
		MinStep:     300,
		MaxStep:     600,
		MinPause:    500 * time.Millisecond,
		MaxPause:    1500 * time.Millisecond,
	}
}

// Scroller имитирует чтение страницы колесом мыши.
type Scroller struct {
	cfg   ScrollConfig
	clock Clock
	rnd   *rand.Rand
	log   zerolog.Logger
}

// NewScroller создаёт скроллер.
func NewScroller(cfg ScrollConfig, clock Clock, rnd *rand.Rand, logger zerolog.Logger) *Scroller {
	return &Scroller{cfg: cfg, clock: clock, rnd: rnd, log: logger}
}

// Duration выбирает целое число секунд в [MinDuration, MaxDuration].
func (s *Scroller) Duration() time.Duration {
	lo := int(s.cfg.MinDuration / time.Second)
	hi := int(s.cfg.MaxDuration / time.Second)
	if hi <= lo {
		return s.cfg.MinDuration
	}
	return time.Duration(lo+s.rnd.IntN(hi-lo+1)) * time.Second
}

// Step выбирает расстояние прокрутки в пикселях.
func (s *Scroller) Step() int {
	if s.cfg.MaxStep <= s.cfg.MinStep {
		return s.cfg.MinStep
	}
	return s.cfg.MinStep + s.rnd.IntN(s.cfg.MaxStep-s.cfg.MinStep+1)
}

// Pause выбирает паузу между прокрутками.
func (s *Scroller) Pause() time.Duration {
	span := s.cfg.MaxPause - s.cfg.MinPause
	if span <= 0 {
		return s.cfg.MinPause
	}
	return s.cfg.MinPause + time.Duration(s.rnd.Int64N(int64(span)+1))
}

// Scroll прокручивает страницу случайное время. Ошибки логируются и возвращаются
// только для информации: прокрутка не должна прерывать визит.
func (s *Scroller) Scroll(ctx context.Context, page domain.Page) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Msg("scroll: паника при прокрутке")
			err = fmt.Errorf("паника при прокрутке: %v", r)
		}
	}()

	duration := s.Duration()
	s.log.Info().Dur("duration", duration).Msg("scroll: случайная прокрутка страницы")
	end := s.clock.Now().Add(duration)
	for s.clock.Now().Before(end) {
		if err := page.Wheel(0, float64(s.Step())); err != nil {
			s.log.Error().Err(err).Msg("scroll: ошибка прокрутки")
			return err
		}
		if err := s.clock.Sleep(ctx, s.Pause()); err != nil {
			s.log.Warn().Err(err).Msg("scroll: прокрутка прервана")
			return err
		}
	}
	s.log.Info().Msg("scroll: прокрутка завершена")
	return nil
}
