package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linuxdo-keepalive/internal/domain"
	"linuxdo-keepalive/internal/infra/cache"
	"linuxdo-keepalive/internal/infra/config"
)

type blockingRunner struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingRunner) Run(context.Context) domain.RunRecord {
	close(b.started)
	<-b.release
	return domain.RunRecord{State: domain.StateDone}
}

func newTestApp(r Runner) *App {
	var cfg config.AppConfig
	cfg.Credentials.Username = "alice"
	cfg.Scheduler.LockTTL = time.Minute
	return &App{Runner: r, Lock: cache.NewMemory(), cfg: cfg, log: zerolog.Nop(), lockKey: "alice"}
}

func TestRunOnceRejectsConcurrentRun(t *testing.T) {
	runner := &blockingRunner{started: make(chan struct{}), release: make(chan struct{})}
	a := newTestApp(runner)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		rec, err := a.RunOnce(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, domain.StateDone, rec.State)
	}()
	<-runner.started

	_, err := a.RunOnce(context.Background())
	assert.ErrorIs(t, err, domain.ErrRunLocked)

	close(runner.release)
	wg.Wait()

	ok, err := a.Lock.Acquire(context.Background(), "alice", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "lock released after the run")
}
