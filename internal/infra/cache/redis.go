package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"linuxdo-keepalive/internal/domain"
)

// RedisLock реализует domain.RunLock через SET NX.
type RedisLock struct {
	client *redis.Client
	prefix string
}

var _ domain.RunLock = (*RedisLock)(nil)

// NewRedis создаёт блокировку с префиксом ключей.
func NewRedis(client *redis.Client, prefix string) *RedisLock {
	return &RedisLock{client: client, prefix: prefix}
}

// Acquire занимает ключ на ttl. Истекший ключ освобождается сам, если процесс упал.
func (l *RedisLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.prefix+key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return ok, nil
}

// Release снимает блокировку.
func (l *RedisLock) Release(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, l.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
