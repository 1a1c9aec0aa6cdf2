// Команда scheduler запускает прогоны по расписанию и по запросу через HTTP.
package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"linuxdo-keepalive/internal/adapters/telegram"
	"linuxdo-keepalive/internal/app"
	"linuxdo-keepalive/internal/domain"
	"linuxdo-keepalive/internal/infra/config"
	apphttp "linuxdo-keepalive/internal/infra/http"
	applog "linuxdo-keepalive/internal/infra/log"
	"linuxdo-keepalive/internal/infra/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("scheduler: некорректная конфигурация")
	}
	logger, logFile := applog.NewLogger(applog.Options{AppEnv: cfg.AppEnv, Format: cfg.Log.Format, File: cfg.Log.File})
	defer logFile.Close()

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger, telegram.ModeDetached)
	if err != nil {
		logger.Fatal().Err(err).Msg("scheduler: не удалось собрать прогон")
	}
	defer a.Close()

	triggers := make(chan struct{}, 1)
	trigger := func() bool {
		select {
		case triggers <- struct{}{}:
			return true
		default:
			return false
		}
	}

	srv := apphttp.NewServer(logger, a.History, trigger)
	go func() {
		if err := srv.Start(cfg.Scheduler.HTTPAddr); err != nil {
			logger.Error().Err(err).Msg("scheduler: HTTP сервер остановлен")
		}
	}()

	ticker := time.NewTicker(cfg.Scheduler.Interval)
	defer ticker.Stop()
	trigger()

	logger.Info().Dur("interval", cfg.Scheduler.Interval).Msg("scheduler: запущен")
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			runOnce(ctx, a, logger)
		case <-triggers:
			runOnce(ctx, a, logger)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("scheduler: остановка HTTP сервера")
	}
	if err := a.Notifier.Flush(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("scheduler: не все уведомления доставлены")
	}
	logger.Info().Msg("scheduler: остановлен")
}

func runOnce(ctx context.Context, a *app.App, logger zerolog.Logger) {
	rec, err := a.RunOnce(ctx)
	switch {
	case errors.Is(err, domain.ErrRunLocked):
		logger.Warn().Msg("scheduler: прогон уже выполняется, пропускаем")
	case err != nil:
		logger.Error().Err(err).Msg("scheduler: прогон не запущен")
	default:
		logger.Info().Str("run_id", rec.Session.ID).Str("state", string(rec.State)).
			Int("browsed", rec.Counts.Browsed).Msg("scheduler: прогон завершён")
	}
}
