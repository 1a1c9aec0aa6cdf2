package repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linuxdo-keepalive/internal/domain"
)

func TestMemoryKeepsLastRun(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.Last(ctx)
	assert.ErrorIs(t, err, domain.ErrNoRuns)

	require.NoError(t, m.RecordRun(ctx, domain.RunRecord{Session: domain.Session{ID: "a"}}))
	require.NoError(t, m.RecordRun(ctx, domain.RunRecord{Session: domain.Session{ID: "b"}}))

	last, err := m.Last(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b", last.Session.ID)
}
