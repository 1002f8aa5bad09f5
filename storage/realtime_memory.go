package storage

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryRealtime is an in-process Realtime backend. It backs local
// development without Redis and the test suites; semantics match
// RedisRealtime: full-snapshot delivery, one update per change.
type MemoryRealtime struct {
	mu          sync.Mutex
	collections map[string]Snapshot
	subscribers map[string]map[*Subscription]bool
}

func NewMemoryRealtime() *MemoryRealtime {
	return &MemoryRealtime{
		collections: map[string]Snapshot{},
		subscribers: map[string]map[*Subscription]bool{},
	}
}

func (m *MemoryRealtime) Subscribe(ctx context.Context, path string) (*Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var sub *Subscription
	sub = newSubscription(8, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if subs, ok := m.subscribers[path]; ok {
			delete(subs, sub)
		}
		close(sub.updates)
	})

	if m.subscribers[path] == nil {
		m.subscribers[path] = map[*Subscription]bool{}
	}
	m.subscribers[path][sub] = true

	// Initial delivery fires even when the collection is empty, so the
	// consumer leaves its loading state on first contact.
	sub.deliver(m.snapshotLocked(path))
	return sub, nil
}

func (m *MemoryRealtime) Push(ctx context.Context, path string, value interface{}) (string, error) {
	key := uuid.NewString()
	if err := m.Set(ctx, path, key, value); err != nil {
		return "", err
	}
	return key, nil
}

func (m *MemoryRealtime) Set(ctx context.Context, path string, key string, value interface{}) error {
	raw, err := marshalValue(value)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.collections[path] == nil {
		m.collections[path] = Snapshot{}
	}
	m.collections[path][key] = raw

	snap := m.snapshotLocked(path)
	for sub := range m.subscribers[path] {
		sub.deliver(snap)
	}
	return nil
}

func (m *MemoryRealtime) snapshotLocked(path string) Snapshot {
	snap := Snapshot{}
	for k, v := range m.collections[path] {
		snap[k] = v
	}
	return snap
}
