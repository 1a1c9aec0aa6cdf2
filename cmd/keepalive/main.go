// Команда keepalive выполняет один прогон: вход, чтение тем, отчёт.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"linuxdo-keepalive/internal/adapters/telegram"
	"linuxdo-keepalive/internal/app"
	"linuxdo-keepalive/internal/domain"
	"linuxdo-keepalive/internal/infra/config"
	applog "linuxdo-keepalive/internal/infra/log"
	"linuxdo-keepalive/internal/infra/metrics"
)

const pushJob = "linuxdo_keepalive"

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		logger, _ := applog.NewLogger(applog.Options{Format: "console"})
		logger.Error().Err(err).Msg("keepalive: некорректная конфигурация")
		return 1
	}
	logger, logFile := applog.NewLogger(applog.Options{AppEnv: cfg.AppEnv, Format: cfg.Log.Format, File: cfg.Log.File})
	defer logFile.Close()

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		metrics.StartServer(ctx, logger, cfg.MetricsAddr)
	}

	a, err := app.New(ctx, cfg, logger, telegram.ModeSync)
	if err != nil {
		logger.Error().Err(err).Msg("keepalive: не удалось собрать прогон")
		return 1
	}
	defer a.Close()

	rec, err := a.RunOnce(ctx)
	switch {
	case errors.Is(err, domain.ErrRunLocked):
		logger.Warn().Str("user", cfg.Credentials.Username).Msg("keepalive: прогон уже выполняется, выходим")
	case err != nil:
		logger.Error().Err(err).Msg("keepalive: прогон не запущен")
	default:
		logger.Info().Str("run_id", rec.Session.ID).Str("state", string(rec.State)).Msg("keepalive: прогон завершён")
	}

	flush(a, logger)
	if cfg.PushgatewayURL != "" {
		pushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := metrics.Push(pushCtx, cfg.PushgatewayURL, pushJob, cfg.Credentials.Username); err != nil {
			logger.Warn().Err(err).Msg("keepalive: метрики не отправлены")
		}
	}
	return 0
}

func flush(a *app.App, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := a.Notifier.Flush(ctx); err != nil {
		logger.Warn().Err(err).Msg("keepalive: не все уведомления доставлены")
	}
}
