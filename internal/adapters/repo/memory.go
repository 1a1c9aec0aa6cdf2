package repo

import (
	"context"
	"sync"

	"linuxdo-keepalive/internal/domain"
)

// Memory хранит последний прогон в памяти процесса.
type Memory struct {
	mu   sync.RWMutex
	last *domain.RunRecord
}

var (
	_ domain.RunRecorder = (*Memory)(nil)
	_ domain.RunHistory  = (*Memory)(nil)
)

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) RecordRun(_ context.Context, run domain.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = &run
	return nil
}

func (m *Memory) Last(context.Context) (domain.RunRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.last == nil {
		return domain.RunRecord{}, domain.ErrNoRuns
	}
	return *m.last, nil
}
