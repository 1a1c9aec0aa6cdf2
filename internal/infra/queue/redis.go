package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"linuxdo-keepalive/internal/domain"
)

// DefaultHistory: сколько последних прогонов хранится в списке.
const DefaultHistory = 50

// RedisRunLog хранит последние прогоны в Redis-списке, новые в начале.
type RedisRunLog struct {
	client *redis.Client
	key    string
	keep   int64
}

var _ domain.RunRecorder = (*RedisRunLog)(nil)

// NewRedisRunLog создаёт журнал по указанному ключу.
func NewRedisRunLog(client *redis.Client, key string, keep int) *RedisRunLog {
	if keep <= 0 {
		keep = DefaultHistory
	}
	return &RedisRunLog{client: client, key: key, keep: int64(keep)}
}

// RecordRun добавляет прогон и обрезает журнал.
func (l *RedisRunLog) RecordRun(ctx context.Context, run domain.RunRecord) error {
	payload, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}
	pipe := l.client.TxPipeline()
	pipe.LPush(ctx, l.key, payload)
	pipe.LTrim(ctx, l.key, 0, l.keep-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("push run: %w", err)
	}
	return nil
}

// Last возвращает последний прогон или domain.ErrNoRuns.
func (l *RedisRunLog) Last(ctx context.Context) (domain.RunRecord, error) {
	raw, err := l.client.LIndex(ctx, l.key, 0).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.RunRecord{}, domain.ErrNoRuns
		}
		return domain.RunRecord{}, fmt.Errorf("read last run: %w", err)
	}
	var run domain.RunRecord
	if err := json.Unmarshal(raw, &run); err != nil {
		return domain.RunRecord{}, fmt.Errorf("decode run: %w", err)
	}
	return run, nil
}
