package storage

import (
	"context"
	"encoding/json"
	"sync"
)

// Snapshot is the full state of a collection path at one point in time,
// keyed by record key. Updates always carry the whole snapshot; consumers
// replace their local view instead of merging partial changes.
type Snapshot map[string]json.RawMessage

// Realtime is the push-based data backend the messenger core syncs against.
// Paths are slash-separated collections, e.g. users/42/chats.
type Realtime interface {
	// Subscribe delivers the current snapshot of path immediately, then one
	// snapshot per change batch until the subscription is cancelled.
	Subscribe(ctx context.Context, path string) (*Subscription, error)
	// Push stores value under a server-generated key and returns that key.
	Push(ctx context.Context, path string, value interface{}) (string, error)
	// Set stores value under a known key.
	Set(ctx context.Context, path string, key string, value interface{}) error
}

// Subscription is the cancellation handle for one Subscribe call. Cancel is
// idempotent and must be called on every exit path; after it returns no
// further snapshots are delivered and Updates is closed.
type Subscription struct {
	updates chan Snapshot
	cancel  func()
	once    sync.Once
}

func newSubscription(buffer int, cancel func()) *Subscription {
	return &Subscription{
		updates: make(chan Snapshot, buffer),
		cancel:  cancel,
	}
}

// Updates yields one full snapshot per change batch, newest last.
func (s *Subscription) Updates() <-chan Snapshot {
	return s.updates
}

func (s *Subscription) Cancel() {
	s.once.Do(s.cancel)
}

// deliver enqueues a snapshot, conflating to the latest when the consumer
// lags behind: stale intermediate snapshots are dropped, never duplicated.
func (s *Subscription) deliver(snap Snapshot) {
	for {
		select {
		case s.updates <- snap:
			return
		default:
		}
		select {
		case <-s.updates:
		default:
		}
	}
}

func marshalValue(value interface{}) (json.RawMessage, error) {
	if raw, ok := value.(json.RawMessage); ok {
		return raw, nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(b), nil
}
