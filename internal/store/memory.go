package store

import (
	"context"
	"sync"

	"github.com/unsaid-app/attune/internal/attachment"
)

// Memory is a map-backed ProfileStore. Profiles are deep-copied on both
// sides so callers never share mutable state with the store.
type Memory struct {
	mu       sync.RWMutex
	profiles map[string]*attachment.Profile
}

func NewMemory() *Memory {
	return &Memory{profiles: make(map[string]*attachment.Profile)}
}

func (m *Memory) Get(_ context.Context, userID string) (*attachment.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, attachment.ErrProfileNotFound
	}
	return p.Clone(), nil
}

func (m *Memory) Put(_ context.Context, userID string, p *attachment.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[userID] = p.Clone()
	return nil
}

func (m *Memory) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.profiles, userID)
	return nil
}

func (m *Memory) Close() {}
