package queue

import (
	"context"
	"sync"

	"github.com/codepulse/codepulse/internal/model"
)

// Memory is the degraded-mode queue used when the sqlite store cannot
// be opened. Heartbeats survive only for the process lifetime, but the
// accumulation path keeps working instead of crashing the agent.
type Memory struct {
	mu  sync.Mutex
	hbs []model.Heartbeat
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Enqueue(_ context.Context, hb model.Heartbeat) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.hbs {
		if existing.ID == hb.ID {
			return nil
		}
	}
	m.hbs = append(m.hbs, hb)
	return nil
}

func (m *Memory) NextBatch(_ context.Context, limit int) ([]model.Heartbeat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		return nil, nil
	}
	if limit > len(m.hbs) {
		limit = len(m.hbs)
	}
	batch := make([]model.Heartbeat, limit)
	copy(batch, m.hbs[:limit])
	return batch, nil
}

func (m *Memory) Remove(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := m.hbs[:0]
	for _, hb := range m.hbs {
		if _, ok := drop[hb.ID]; !ok {
			kept = append(kept, hb)
		}
	}
	m.hbs = kept
	return nil
}

func (m *Memory) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.hbs), nil
}

func (m *Memory) List(_ context.Context) ([]model.Heartbeat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Heartbeat, len(m.hbs))
	copy(out, m.hbs)
	return out, nil
}

func (m *Memory) Close() error {
	return nil
}
