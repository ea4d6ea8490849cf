package state

import (
	"context"
	"sync"
	"time"
)

type memoryEntry[T any] struct {
	value   T
	expires time.Time
}

// MemoryStore keeps sessions in process memory. Like RedisStore it refreshes the TTL on
// every Save; expired sessions read as absent. Sessions are lost on restart.
type MemoryStore[T any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[int64]memoryEntry[T]
}

// NewMemoryStore builds an empty store. A zero ttl keeps sessions until deleted.
func NewMemoryStore[T any](ttl time.Duration) *MemoryStore[T] {
	return &MemoryStore[T]{ttl: max(ttl, 0), now: time.Now, entries: make(map[int64]memoryEntry[T])}
}

// Load implements Store.
func (m *MemoryStore[T]) Load(_ context.Context, userID int64) (T, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[userID]
	if ok && m.expired(e) {
		delete(m.entries, userID)
		ok = false
	}
	return e.value, ok, nil
}

// Save implements Store.
func (m *MemoryStore[T]) Save(_ context.Context, userID int64, session T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := memoryEntry[T]{value: session}
	if m.ttl > 0 {
		e.expires = m.now().Add(m.ttl)
	}
	m.entries[userID] = e
	return nil
}

// Delete implements Store.
func (m *MemoryStore[T]) Delete(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, userID)
	return nil
}

// Len reports the live sessions and drops the expired ones.
func (m *MemoryStore[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, e := range m.entries {
		if m.expired(e) {
			delete(m.entries, id)
		}
	}
	return len(m.entries)
}

func (m *MemoryStore[T]) expired(e memoryEntry[T]) bool {
	return !e.expires.IsZero() && !m.now().Before(e.expires)
}
