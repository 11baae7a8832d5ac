package cache

import (
	"context"
	"sync"
	"time"
)

// Memory is a single-process TTL store. Expired keys are dropped on read.
type Memory struct {
	mu    sync.RWMutex
	items map[string]memItem
	now   func() time.Time
}

type memItem struct {
	b   []byte
	exp time.Time
}

func NewMemory() *Memory {
	return &Memory{items: make(map[string]memItem), now: time.Now}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	it, ok := m.items[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if m.expired(it) {
		m.mu.Lock()
		if cur, ok := m.items[key]; ok && m.expired(cur) {
			delete(m.items, key)
		}
		m.mu.Unlock()
		return nil, false, nil
	}
	out := make([]byte, len(it.b))
	copy(out, it.b)
	return out, true, nil
}

// Set stores data; a ttl <= 0 never expires.
func (m *Memory) Set(_ context.Context, key string, data []byte, ttl time.Duration) error {
	var exp time.Time
	if ttl > 0 {
		exp = m.now().Add(ttl)
	}
	b := make([]byte, len(data))
	copy(b, data)
	m.mu.Lock()
	m.items[key] = memItem{b: b, exp: exp}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Clear() {
	m.mu.Lock()
	clear(m.items)
	m.mu.Unlock()
}

func (m *Memory) Close() error {
	m.Clear()
	return nil
}

func (m *Memory) expired(it memItem) bool {
	return !it.exp.IsZero() && m.now().After(it.exp)
}
