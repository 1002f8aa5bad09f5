package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/14sf/Sfm.pay/models"
	"github.com/14sf/Sfm.pay/storage"
)

// recordingNotifier captures every toast for assertion.
type recordingNotifier struct {
	mu      sync.Mutex
	entries []struct {
		Message  string
		Severity Severity
	}
}

func (n *recordingNotifier) Notify(message string, severity Severity) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.entries = append(n.entries, struct {
		Message  string
		Severity Severity
	}{message, severity})
}

func (n *recordingNotifier) count(severity Severity) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	total := 0
	for _, e := range n.entries {
		if e.Severity == severity {
			total++
		}
	}
	return total
}

func (n *recordingNotifier) last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.entries) == 0 {
		return ""
	}
	return n.entries[len(n.entries)-1].Message
}

func (n *recordingNotifier) containing(substr string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	total := 0
	for _, e := range n.entries {
		if strings.Contains(e.Message, substr) {
			total++
		}
	}
	return total
}

func newTestStore() *MemoryStore {
	return NewMemoryStore(storage.NewMemoryRealtime())
}

func mustCreateChat(t *testing.T, store MessageStore, creatorID string, participants ...string) models.Chat {
	t.Helper()
	chat, err := store.CreateChat(context.Background(), models.Chat{
		CreatorID:    creatorID,
		Participants: participants,
	})
	if err != nil {
		t.Fatalf("creating chat: %v", err)
	}
	return chat
}

// stubGateway invokes instantly with a fixed outcome.
type stubGateway struct {
	ref string
	err error

	mu    sync.Mutex
	calls int
}

func (g *stubGateway) Invoke(ctx context.Context, amount float64, currency string) (string, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	if g.err != nil {
		return "", g.err
	}
	return g.ref, nil
}

func (g *stubGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// blockingGateway holds each Invoke until released, so tests can overlap
// concurrent payment attempts deterministically.
type blockingGateway struct {
	entered chan struct{}
	release chan struct{}
}

func newBlockingGateway() *blockingGateway {
	return &blockingGateway{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
}

func (g *blockingGateway) Invoke(ctx context.Context, amount float64, currency string) (string, error) {
	g.entered <- struct{}{}
	<-g.release
	return "tx-blocked", nil
}

// failingStore wraps a MessageStore and fails AppendMessage with a fixed
// error, leaving everything else untouched.
type failingStore struct {
	MessageStore
	appendErr error
}

func (s *failingStore) AppendMessage(ctx context.Context, chatID string, msg models.Message) (models.Message, error) {
	return models.Message{}, s.appendErr
}

var errGatewayDown = errors.New("gateway unreachable")

func waitChatUpdate(t *testing.T, sync *ChatSynchronizer) []models.Chat {
	t.Helper()
	select {
	case chats, ok := <-sync.Updates():
		if !ok {
			t.Fatal("synchronizer closed before update arrived")
		}
		return chats
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for chat update")
	}
	return nil
}
