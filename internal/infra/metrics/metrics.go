// Package metrics описывает Prometheus-метрики прогонов.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/rs/zerolog"
)

var (
	TopicVisits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "keepalive_topic_visits_total",
		Help: "Исходы обработки тем",
	}, []string{"outcome"})

	EngagementActions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "keepalive_engagement_actions_total",
		Help: "Попытки лайка, ответа и закладки",
	}, []string{"action", "status"})

	LoginAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "keepalive_login_attempts_total",
		Help: "Попытки входа на форум",
	}, []string{"status"})

	Notifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "keepalive_notifications_total",
		Help: "Отправка уведомлений в Telegram",
	}, []string{"status"})

	Runs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "keepalive_runs_total",
		Help: "Завершённые прогоны по итоговому состоянию",
	}, []string{"state"})

	RunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "keepalive_run_duration_seconds",
		Help:    "Длительность прогона",
		Buckets: []float64{30, 60, 120, 180, 240, 300, 450, 600, 900, 1200, 1800},
	})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15, 20, 30, 45, 60},
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		TopicVisits,
		EngagementActions,
		LoginAttempts,
		Notifications,
		Runs,
		RunDuration,
		NetworkRequestDuration,
		NetworkRequestTotal,
	}
}

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(collectors()...)
}

// StartServer запускает HTTP сервер с эндпоинтом /metrics.
func StartServer(ctx context.Context, logger zerolog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownTimeout); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: graceful shutdown failed")
		}
	}()

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics: server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: server stopped")
		}
	}()
}

// Push отправляет метрики разового прогона в Pushgateway.
func Push(ctx context.Context, url, job, instance string) error {
	pusher := push.New(url, job).Grouping("instance", instance)
	for _, c := range collectors() {
		pusher = pusher.Collector(c)
	}
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}

// IncVisit учитывает исход обработки темы.
func IncVisit(outcome string) {
	TopicVisits.WithLabelValues(outcome).Inc()
}

// IncAction учитывает попытку действия на странице темы.
func IncAction(action, status string) {
	EngagementActions.WithLabelValues(action, status).Inc()
}

// IncLogin учитывает попытку входа.
func IncLogin(success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	LoginAttempts.WithLabelValues(status).Inc()
}

// IncNotification учитывает результат отправки одной части уведомления.
func IncNotification(status string) {
	Notifications.WithLabelValues(status).Inc()
}

// ObserveRun фиксирует итог прогона.
func ObserveRun(state string, elapsed time.Duration) {
	Runs.WithLabelValues(state).Inc()
	RunDuration.Observe(elapsed.Seconds())
}
