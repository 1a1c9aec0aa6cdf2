// Package app собирает прогон из конфигурации: браузер, уведомления, хранилища и блокировку.
package app

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"linuxdo-keepalive/internal/adapters/browser"
	"linuxdo-keepalive/internal/adapters/replies"
	"linuxdo-keepalive/internal/adapters/repo"
	"linuxdo-keepalive/internal/adapters/telegram"
	"linuxdo-keepalive/internal/domain"
	"linuxdo-keepalive/internal/infra/cache"
	"linuxdo-keepalive/internal/infra/config"
	"linuxdo-keepalive/internal/infra/db"
	"linuxdo-keepalive/internal/infra/queue"
	"linuxdo-keepalive/internal/usecase/pace"
	"linuxdo-keepalive/internal/usecase/sampler"
	"linuxdo-keepalive/internal/usecase/session"
	"linuxdo-keepalive/internal/usecase/visit"
)

const (
	redisLockPrefix = "keepalive:lock:"
	redisRunsKey    = "keepalive:runs"
)

// Runner выполняет один прогон.
type Runner interface {
	Run(ctx context.Context) domain.RunRecord
}

// App: собранный прогон вместе с окружением.
type App struct {
	Runner   Runner
	Notifier *telegram.Notifier
	History  domain.RunHistory
	Lock     domain.RunLock

	lockKey string
	cfg     config.AppConfig
	log     zerolog.Logger
	closers []func()
}

// New собирает приложение. defaultMode применяется, если NOTIFY_MODE не задан.
// Недоступные необязательные хранилища логируются и пропускаются.
func New(ctx context.Context, cfg config.AppConfig, logger zerolog.Logger, defaultMode telegram.Mode) (*App, error) {
	a := &App{cfg: cfg, log: logger, lockKey: cfg.Credentials.Username}

	notifier, err := a.buildNotifier(defaultMode)
	if err != nil {
		return nil, err
	}
	a.Notifier = notifier

	memory := repo.NewMemory()
	recorders := []domain.RunRecorder{memory}
	a.History = memory
	a.Lock = cache.NewMemory()

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Error().Err(err).Str("addr", cfg.RedisAddr).Msg("app: Redis недоступен, используем память")
			_ = client.Close()
		} else {
			a.closers = append(a.closers, func() { _ = client.Close() })
			runLog := queue.NewRedisRunLog(client, redisRunsKey, queue.DefaultHistory)
			recorders = append(recorders, runLog)
			a.History = runLog
			a.Lock = cache.NewRedis(client, redisLockPrefix)
		}
	}

	if cfg.PGDSN != "" {
		pool, err := db.Connect(ctx, cfg.PGDSN)
		if err != nil {
			logger.Error().Err(err).Msg("app: Postgres недоступен, история не сохраняется")
		} else {
			a.closers = append(a.closers, pool.Close)
			pg := repo.NewPostgres(pool)
			if err := pg.EnsureSchema(ctx); err != nil {
				logger.Error().Err(err).Msg("app: не удалось создать схему")
			} else {
				recorders = append(recorders, pg)
				a.History = pg
			}
		}
	}

	if cfg.Queue.URL != "" {
		pub, err := queue.NewRabbitRunPublisher(cfg.Queue.URL, cfg.Queue.Exchange)
		if err != nil {
			logger.Error().Err(err).Msg("app: RabbitMQ недоступен, события не публикуются")
		} else {
			a.closers = append(a.closers, func() { _ = pub.Close() })
			recorders = append(recorders, pub)
		}
	}

	runner, err := a.buildRunner(recorders)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Runner = runner
	return a, nil
}

func (a *App) buildNotifier(defaultMode telegram.Mode) (*telegram.Notifier, error) {
	mode := defaultMode
	if a.cfg.Telegram.Mode != "" {
		m, err := telegram.ParseMode(a.cfg.Telegram.Mode)
		if err != nil {
			return nil, err
		}
		mode = m
	}
	log := a.log.With().Str("component", "notifier").Logger()
	opts := telegram.Options{Enabled: a.cfg.Telegram.Enabled, ChatID: a.cfg.Telegram.ChatID, Mode: mode}
	if !a.cfg.Telegram.Enabled {
		return telegram.NewNotifier(nil, log, opts), nil
	}
	bot, err := telegram.NewBotAPI(a.cfg.Telegram.Token)
	if err != nil {
		log.Error().Err(err).Msg("app: Telegram недоступен, уведомления выключены")
		return telegram.NewNotifier(nil, log, opts), nil
	}
	return telegram.NewNotifier(bot, log, opts), nil
}

func (a *App) buildRunner(recorders []domain.RunRecorder) (*session.Orchestrator, error) {
	cfg := a.cfg
	seed := cfg.Settings.Seed
	rnd := func(offset uint64) *rand.Rand {
		if seed == 0 {
			return pace.NewRand(0)
		}
		return pace.NewRand(seed + offset)
	}

	smp, err := sampler.New(sampler.Probabilities{
		Like:    cfg.Settings.LikeProbability,
		Reply:   cfg.Settings.ReplyProbability,
		Collect: cfg.Settings.CollectProbability,
	}, rnd(0))
	if err != nil {
		return nil, err
	}
	corpus, err := replies.Load(cfg.RepliesFile, rnd(1))
	if err != nil {
		return nil, err
	}
	engine, err := browser.ParseEngine(cfg.Browser.Engine)
	if err != nil {
		return nil, err
	}
	capMode, err := session.ParseCapMode(cfg.Settings.TopicCapMode)
	if err != nil {
		return nil, err
	}

	clock := pace.RealClock{}
	scroller := pace.NewScroller(pace.DefaultScroll(), clock, rnd(2),
		a.log.With().Str("component", "scroll").Logger())

	timeouts := pace.Timeouts{NavTimeout: cfg.Browser.NavTimeout, ActionTimeout: cfg.Browser.ActionTimeout}
	visitTiming := visit.DefaultTiming()
	visitTiming.Timeouts = timeouts
	visitLog := a.log.With().Str("component", "visitor").Logger()
	visitor := visit.NewVisitor(visit.NewActor(corpus, clock, visitTiming, visitLog), scroller, clock, visitTiming, visitLog)

	sessionTiming := session.DefaultTiming()
	sessionTiming.Timeouts = timeouts

	launcher := browser.NewLauncher(browser.Options{
		Engine:        engine,
		Headless:      cfg.Browser.Headless,
		Install:       cfg.Browser.Install,
		ActionTimeout: cfg.Browser.ActionTimeout,
		NavTimeout:    cfg.Browser.NavTimeout,
	}, a.log)

	return session.New(session.Config{
		Username:   cfg.Credentials.Username,
		Password:   cfg.Credentials.Password,
		HomeURL:    cfg.URLs.Home,
		ConnectURL: cfg.URLs.Connect,
		MaxTopics:  cfg.Settings.MaxTopics,
		CapMode:    capMode,
		Timing:     sessionTiming,
	}, session.Deps{
		Launcher:  launcher,
		Visitor:   visitor,
		Sampler:   smp,
		Scroller:  scroller,
		Notifier:  a.Notifier,
		Recorders: recorders,
		Clock:     clock,
		Logger:    a.log,
	})
}

// RunOnce берёт блокировку аккаунта и выполняет прогон.
// Если прогон уже идёт, возвращает domain.ErrRunLocked.
func (a *App) RunOnce(ctx context.Context) (domain.RunRecord, error) {
	ok, err := a.Lock.Acquire(ctx, a.lockKey, a.cfg.Scheduler.LockTTL)
	if err != nil {
		return domain.RunRecord{}, fmt.Errorf("блокировка прогона: %w", err)
	}
	if !ok {
		return domain.RunRecord{}, domain.ErrRunLocked
	}
	defer func() {
		if err := a.Lock.Release(context.WithoutCancel(ctx), a.lockKey); err != nil {
			a.log.Warn().Err(err).Msg("app: не удалось снять блокировку")
		}
	}()
	return a.Runner.Run(ctx), nil
}

// Close закрывает подключения в обратном порядке.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
