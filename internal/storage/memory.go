package storage

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is a map-backed Store for tests and dry runs.
type MemoryStore struct {
	mu   sync.RWMutex
	subs map[int64]Subscription
	alts map[int64]Alert
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		subs: make(map[int64]Subscription),
		alts: make(map[int64]Alert),
	}
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) PutSubscription(_ context.Context, sub Subscription) error {
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}
	m.mu.Lock()
	m.subs[sub.ChatID] = sub
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) GetSubscription(_ context.Context, chatID int64) (Subscription, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sub, ok := m.subs[chatID]
	return sub, ok, nil
}

func (m *MemoryStore) DeleteSubscription(_ context.Context, chatID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.subs[chatID]
	delete(m.subs, chatID)
	return ok, nil
}

func (m *MemoryStore) ListSubscriptions(_ context.Context) ([]Subscription, error) {
	m.mu.RLock()
	out := make([]Subscription, 0, len(m.subs))
	for _, sub := range m.subs {
		out = append(out, sub)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ChatID < out[j].ChatID })
	return out, nil
}

func (m *MemoryStore) PutAlert(_ context.Context, alert Alert) error {
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now().UTC()
	}
	m.mu.Lock()
	m.alts[alert.ChatID] = alert
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) GetAlert(_ context.Context, chatID int64) (Alert, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	alert, ok := m.alts[chatID]
	return alert, ok, nil
}

func (m *MemoryStore) DeleteAlert(_ context.Context, chatID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.alts[chatID]
	delete(m.alts, chatID)
	return ok, nil
}

func (m *MemoryStore) ListAlerts(_ context.Context) ([]Alert, error) {
	m.mu.RLock()
	out := make([]Alert, 0, len(m.alts))
	for _, alert := range m.alts {
		out = append(out, alert)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ChatID < out[j].ChatID })
	return out, nil
}

var _ Store = (*MemoryStore)(nil)
