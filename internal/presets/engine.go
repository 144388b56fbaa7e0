package presets

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// SettingsStore persists the two-slot record. UpdateSiteSettings must apply
// fn's result atomically: either the returned Slots are stored in full or
// nothing changes.
type SettingsStore interface {
	GetSiteSettings(ctx context.Context) (Slots, error)
	UpdateSiteSettings(ctx context.Context, fn func(Slots) (Slots, error)) (Slots, error)
}

type Engine struct {
	catalog *Catalog
	store   SettingsStore
	now     func() time.Time
}

func NewEngine(catalog *Catalog, store SettingsStore) *Engine {
	return &Engine{catalog: catalog, store: store, now: time.Now}
}

func (e *Engine) Catalog() *Catalog { return e.catalog }

func (e *Engine) Live(ctx context.Context) (Settings, error) {
	slots, err := e.store.GetSiteSettings(ctx)
	if err != nil {
		return Settings{}, fmt.Errorf("load site settings: %w", err)
	}
	return slots.Current, nil
}

func (e *Engine) State(ctx context.Context) (Slots, error) {
	slots, err := e.store.GetSiteSettings(ctx)
	if err != nil {
		return Slots{}, fmt.Errorf("load site settings: %w", err)
	}
	return slots, nil
}

// Preview builds a preview record for id. It never touches stored settings.
func (e *Engine) Preview(id string) (Preview, error) {
	p, err := e.catalog.Get(id)
	if err != nil {
		return Preview{}, err
	}
	return StartPreview(p, e.now()), nil
}

// Activation reports what an activation replaced.
type Activation struct {
	Preset   Preset   `json:"preset"`
	Current  Settings `json:"current"`
	Previous Settings `json:"previous"`
	Revision int64    `json:"revision"`
}

// Activate makes preset id the live settings and snapshots the prior live
// settings for rollback, in one store update.
func (e *Engine) Activate(ctx context.Context, id string) (Activation, error) {
	p, err := e.catalog.Get(id)
	if err != nil {
		return Activation{}, err
	}
	next := p.Settings(e.now())
	slots, err := e.store.UpdateSiteSettings(ctx, func(s Slots) (Slots, error) {
		return s.Activate(next), nil
	})
	if err != nil {
		return Activation{}, fmt.Errorf("activate preset %s: %w", id, err)
	}
	return Activation{Preset: p, Current: slots.Current, Previous: *slots.Previous, Revision: slots.Revision}, nil
}

// Rollback restores the settings that were live before the last activation.
func (e *Engine) Rollback(ctx context.Context) (Settings, error) {
	slots, err := e.store.UpdateSiteSettings(ctx, func(s Slots) (Slots, error) {
		return s.Rollback()
	})
	if err != nil {
		return Settings{}, fmt.Errorf("rollback site settings: %w", err)
	}
	return slots.Current, nil
}

// Effective resolves live settings under an optional preview.
func (e *Engine) Effective(ctx context.Context, preview *Preview) (Settings, error) {
	live, err := e.Live(ctx)
	if err != nil {
		return Settings{}, err
	}
	return Effective(preview, live), nil
}

// MemoryStore is an in-process SettingsStore.
type MemoryStore struct {
	mu    sync.Mutex
	slots Slots
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) GetSiteSettings(context.Context) (Slots, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slots, nil
}

func (m *MemoryStore) UpdateSiteSettings(_ context.Context, fn func(Slots) (Slots, error)) (Slots, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next, err := fn(m.slots)
	if err != nil {
		return m.slots, err
	}
	m.slots = next
	return next, nil
}
