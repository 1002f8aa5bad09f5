package services

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/14sf/Sfm.pay/models"
	"github.com/14sf/Sfm.pay/storage"
)

// ChatSynchronizer keeps a live, local view of one user's chat index from
// the realtime backend. Every upstream snapshot replaces the index
// atomically; there is no partial merge and no reconciliation with local
// optimistic state. The synchronizer is the sole writer of its index.
//
// Close cancels the subscription; it must run on every exit path. A closed
// synchronizer never observes further upstream changes. Resubscribing means
// constructing a new synchronizer.
type ChatSynchronizer struct {
	userID string
	sub    *storage.Subscription

	mu      sync.RWMutex
	chats   []models.Chat
	loading bool

	updates   chan []models.Chat
	closeOnce sync.Once
}

// NewChatSynchronizer subscribes to users/{userID}/chats and starts pumping
// snapshots. The synchronizer reports Loading until the first delivery,
// which fires even when the user has no chats yet.
func NewChatSynchronizer(ctx context.Context, rt storage.Realtime, userID string) (*ChatSynchronizer, error) {
	sub, err := rt.Subscribe(ctx, userChatsPath(userID))
	if err != nil {
		return nil, err
	}

	s := &ChatSynchronizer{
		userID:  userID,
		sub:     sub,
		loading: true,
		updates: make(chan []models.Chat, 1),
	}
	go s.pump()
	return s, nil
}

func (s *ChatSynchronizer) pump() {
	defer close(s.updates)
	for snap := range s.sub.Updates() {
		chats := decodeChatIndex(snap)
		sortChatsByActivity(chats)

		s.mu.Lock()
		s.chats = chats
		s.loading = false
		s.mu.Unlock()

		s.notify(chats)
	}
}

// notify hands the batch to the observer channel, conflating to the latest
// snapshot when the observer lags. Each change batch is delivered at most
// once; duplicates are never produced.
func (s *ChatSynchronizer) notify(chats []models.Chat) {
	for {
		select {
		case s.updates <- chats:
			return
		default:
		}
		select {
		case <-s.updates:
		default:
		}
	}
}

// Chats returns the current chat index, most recently active first.
func (s *ChatSynchronizer) Chats() []models.Chat {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Chat, len(s.chats))
	copy(out, s.chats)
	return out
}

// Loading reports whether the first snapshot has not arrived yet.
func (s *ChatSynchronizer) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Updates yields the refreshed index after each upstream change batch. The
// channel closes when the synchronizer is closed.
func (s *ChatSynchronizer) Updates() <-chan []models.Chat {
	return s.updates
}

// Close cancels the upstream subscription. Safe to call more than once.
func (s *ChatSynchronizer) Close() {
	s.closeOnce.Do(s.sub.Cancel)
}

func decodeChatIndex(snap storage.Snapshot) []models.Chat {
	chats := make([]models.Chat, 0, len(snap))
	for key, raw := range snap {
		var chat models.Chat
		if err := json.Unmarshal(raw, &chat); err != nil {
			log.Printf("synchronizer: dropping malformed chat %s: %v", key, err)
			continue
		}
		if chat.ID == "" {
			chat.ID = key
		}
		chats = append(chats, chat)
	}
	return chats
}
