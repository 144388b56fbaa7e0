package session

import (
	"context"
	"sync"
	"time"

	"storefront/cms/internal/presets"
)

// MemoryStore is the single-process fallback used when REDIS_URL is unset.
type MemoryStore struct {
	mu       sync.Mutex
	previews map[string]presets.Preview
	revoked  map[string]time.Time
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		previews: map[string]presets.Preview{},
		revoked:  map[string]time.Time{},
		now:      time.Now,
	}
}

func (m *MemoryStore) SavePreview(_ context.Context, sessionID string, preview presets.Preview) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.previews[sessionID] = preview
	return nil
}

func (m *MemoryStore) LoadPreview(_ context.Context, sessionID string) (*presets.Preview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.previews[sessionID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *MemoryStore) ClearPreview(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.previews, sessionID)
	return nil
}

func (m *MemoryStore) RevokeSession(_ context.Context, sessionID string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[sessionID] = expiresAt
	delete(m.previews, sessionID)
	return nil
}

func (m *MemoryStore) IsRevoked(_ context.Context, sessionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.revoked[sessionID]
	if !ok {
		return false, nil
	}
	if m.now().After(exp) {
		delete(m.revoked, sessionID)
		return false, nil
	}
	return true, nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }
