package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLockIsExclusive(t *testing.T) {
	ctx := context.Background()
	l := NewMemory()

	ok, err := l.Acquire(ctx, "alice", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Acquire(ctx, "alice", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second acquire must fail while held")

	ok, _ = l.Acquire(ctx, "bob", time.Minute)
	assert.True(t, ok, "keys are independent")

	require.NoError(t, l.Release(ctx, "alice"))
	ok, _ = l.Acquire(ctx, "alice", time.Minute)
	assert.True(t, ok)
}

func TestMemoryLockExpires(t *testing.T) {
	ctx := context.Background()
	l := NewMemory()

	ok, _ := l.Acquire(ctx, "alice", 10*time.Millisecond)
	require.True(t, ok)
	time.Sleep(30 * time.Millisecond)

	ok, _ = l.Acquire(ctx, "alice", time.Minute)
	assert.True(t, ok, "expired lock can be taken again")
}
