package services

import (
	"context"
	"log"
	"time"

	"golang.org/x/exp/slices"

	"github.com/14sf/Sfm.pay/models"
	"github.com/14sf/Sfm.pay/storage"
)

// MessageStore is the authoritative log of messages per chat plus the chat
// index itself. Implementations publish the affected users' chat index
// through the Realtime bus after every mutation, so implementations are the
// single publication point and chat synchronizers never poll.
//
// MemoryStore keeps everything in process; DBStore persists to Postgres.
type MessageStore interface {
	// GetChats returns userID's chats sorted by UpdatedAt descending.
	GetChats(ctx context.Context, userID string) ([]models.Chat, error)
	GetChat(ctx context.Context, chatID string) (models.Chat, error)
	// GetMessages returns chatID's messages ordered by Timestamp ascending,
	// send order preserved within a millisecond.
	GetMessages(ctx context.Context, chatID string) ([]models.Message, error)
	GetMessage(ctx context.Context, chatID, messageID string) (models.Message, error)
	// AppendMessage assigns ID and timestamp when absent, forces initial
	// status to sent and advances the chat's LastMessage/UpdatedAt.
	AppendMessage(ctx context.Context, chatID string, msg models.Message) (models.Message, error)
	// CreateChat persists the chat, minting its ID through the realtime
	// backend's push key when absent.
	CreateChat(ctx context.Context, chat models.Chat) (models.Chat, error)
	// FindSharedChat returns an existing chat involving both users, if any.
	FindSharedChat(ctx context.Context, userID, otherID string) (models.Chat, bool, error)
	// SetMessageStatus applies the delivery transition to each message,
	// ignoring regressions (read never goes back to delivered).
	SetMessageStatus(ctx context.Context, chatID string, messageIDs []string, status models.MessageStatus) error
	// MarkChatRead resets the chat's unread counter.
	MarkChatRead(ctx context.Context, chatID, userID string) error
	// SetPaymentStatus transitions a payment message's payload state; only
	// pending payments may transition.
	SetPaymentStatus(ctx context.Context, chatID, messageID string, status models.PaymentStatus) error
}

const (
	chatsPath = "chats"
)

func userChatsPath(userID string) string { return "users/" + userID + "/chats" }
func chatMessagesPath(chatID string) string {
	return chatsPath + "/" + chatID + "/messages"
}

func nowMillis() int64 { return time.Now().UnixMilli() }

// publishChatIndex pushes the chat's current index entry to every user in
// its audience. Publication is best effort: the store already holds the
// authoritative state, a dropped push only delays the next snapshot.
func publishChatIndex(ctx context.Context, rt storage.Realtime, chat models.Chat) {
	for _, userID := range chat.Audience() {
		if err := rt.Set(ctx, userChatsPath(userID), chat.ID, chat); err != nil {
			log.Printf("store: publishing chat %s to user %s failed: %v", chat.ID, userID, err)
		}
	}
}

func publishMessage(ctx context.Context, rt storage.Realtime, msg models.Message) {
	if err := rt.Set(ctx, chatMessagesPath(msg.ChatID), msg.ID, msg); err != nil {
		log.Printf("store: publishing message %s failed: %v", msg.ID, err)
	}
}

func sortChatsByActivity(chats []models.Chat) {
	slices.SortStableFunc(chats, func(a, b models.Chat) int {
		switch {
		case a.UpdatedAt > b.UpdatedAt:
			return -1
		case a.UpdatedAt < b.UpdatedAt:
			return 1
		default:
			return 0
		}
	})
}

// stampMessage fills server-assigned fields on an incoming message.
func stampMessage(chatID string, msg models.Message) models.Message {
	msg.ChatID = chatID
	if msg.Timestamp == 0 {
		msg.Timestamp = nowMillis()
	}
	if msg.Type == "" {
		msg.Type = models.MessageTypeText
	}
	msg.Status = models.MessageStatusSent
	return msg
}

// touchChat advances the chat after msg was appended, keeping the
// LastMessage = max-timestamp invariant and UpdatedAt >= msg.Timestamp.
func touchChat(chat *models.Chat, msg models.Message) {
	if chat.LastMessage == nil || msg.Timestamp >= chat.LastMessage.Timestamp {
		m := msg
		chat.LastMessage = &m
	}
	updated := nowMillis()
	if msg.Timestamp > updated {
		updated = msg.Timestamp
	}
	if updated <= chat.UpdatedAt {
		updated = chat.UpdatedAt + 1
	}
	chat.UpdatedAt = updated
	chat.UnreadCount++
}
