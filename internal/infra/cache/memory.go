package cache

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"linuxdo-keepalive/internal/domain"
)

// MemoryLock: блокировка прогонов внутри одного процесса.
type MemoryLock struct {
	cache *cache.Cache
}

var _ domain.RunLock = (*MemoryLock)(nil)

// NewMemory создаёт блокировку в памяти.
func NewMemory() *MemoryLock {
	return &MemoryLock{cache: cache.New(time.Hour, 10*time.Minute)}
}

// Acquire занимает ключ. Add атомарен и не перезаписывает живой ключ.
func (l *MemoryLock) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	if err := l.cache.Add(key, time.Now(), ttl); err != nil {
		return false, nil
	}
	return true, nil
}

// Release снимает блокировку.
func (l *MemoryLock) Release(_ context.Context, key string) error {
	l.cache.Delete(key)
	return nil
}
