package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"linuxdo-keepalive/internal/domain"
	"linuxdo-keepalive/internal/infra/metrics"
)

// RoutingKey возвращает ключ маршрутизации события прогона.
func RoutingKey(run domain.RunRecord) string {
	return "keepalive.run." + string(run.State)
}

// RabbitRunPublisher публикует итоги прогонов в topic-exchange RabbitMQ.
type RabbitRunPublisher struct {
	url      string
	exchange string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

var _ domain.RunRecorder = (*RabbitRunPublisher)(nil)

// NewRabbitRunPublisher подключается к брокеру и объявляет exchange.
func NewRabbitRunPublisher(amqpURL, exchange string) (*RabbitRunPublisher, error) {
	if amqpURL == "" {
		return nil, errors.New("amqp url is empty")
	}
	if exchange == "" {
		return nil, errors.New("exchange name is empty")
	}
	p := &RabbitRunPublisher{url: amqpURL, exchange: exchange}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *RabbitRunPublisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(p.exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("declare exchange: %w", err)
	}
	p.conn, p.ch = conn, ch
	return nil
}

// RecordRun публикует RunRecord в JSON. Закрытое соединение переоткрывается один раз.
func (p *RabbitRunPublisher) RecordRun(ctx context.Context, run domain.RunRecord) error {
	body, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil || p.conn.IsClosed() {
		if err := p.connect(); err != nil {
			return err
		}
	}

	start := time.Now()
	err = p.ch.PublishWithContext(ctx, p.exchange, RoutingKey(run), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    run.Session.ID,
		Timestamp:    run.Session.FinishedAt,
		Body:         body,
	})
	metrics.ObserveNetworkRequest("rabbitmq", "publish", p.exchange, start, err)
	if err != nil {
		return fmt.Errorf("publish run: %w", err)
	}
	return nil
}

// Close закрывает канал и соединение.
func (p *RabbitRunPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var errs []error
	if p.ch != nil {
		errs = append(errs, p.ch.Close())
	}
	if p.conn != nil {
		errs = append(errs, p.conn.Close())
	}
	return errors.Join(errs...)
}
