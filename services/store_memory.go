package services

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/14sf/Sfm.pay/models"
	"github.com/14sf/Sfm.pay/storage"
)

// MemoryStore is the in-memory MessageStore. All mutation funnels through
// its mutex, so the append-only, single-writer-per-chat policy needs no
// further coordination.
type MemoryStore struct {
	mu       sync.RWMutex
	rt       storage.Realtime
	chats    map[string]*models.Chat
	messages map[string][]models.Message
	seq      int64
}

func NewMemoryStore(rt storage.Realtime) *MemoryStore {
	return &MemoryStore{
		rt:       rt,
		chats:    map[string]*models.Chat{},
		messages: map[string][]models.Message{},
	}
}

func (s *MemoryStore) GetChats(ctx context.Context, userID string) ([]models.Chat, error) {
	s.mu.RLock()
	out := make([]models.Chat, 0)
	for _, chat := range s.chats {
		if chat.Involves(userID) {
			out = append(out, *chat)
		}
	}
	s.mu.RUnlock()

	sortChatsByActivity(out)
	return out, nil
}

func (s *MemoryStore) GetChat(ctx context.Context, chatID string) (models.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chat, ok := s.chats[chatID]
	if !ok {
		return models.Chat{}, &NotFoundError{Resource: "chat", ID: chatID}
	}
	return *chat, nil
}

func (s *MemoryStore) GetMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.chats[chatID]; !ok {
		return nil, &NotFoundError{Resource: "chat", ID: chatID}
	}
	msgs := s.messages[chatID]
	out := make([]models.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (s *MemoryStore) GetMessage(ctx context.Context, chatID, messageID string) (models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.messages[chatID] {
		if m.ID == messageID {
			return m, nil
		}
	}
	return models.Message{}, &NotFoundError{Resource: "message", ID: messageID}
}

func (s *MemoryStore) AppendMessage(ctx context.Context, chatID string, msg models.Message) (models.Message, error) {
	s.mu.Lock()
	chat, ok := s.chats[chatID]
	if !ok {
		s.mu.Unlock()
		return models.Message{}, &NotFoundError{Resource: "chat", ID: chatID}
	}

	msg = stampMessage(chatID, msg)
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	s.seq++
	msg.Seq = s.seq

	s.messages[chatID] = append(s.messages[chatID], msg)
	touchChat(chat, msg)
	chatCopy := *chat
	s.mu.Unlock()

	publishMessage(ctx, s.rt, msg)
	publishChatIndex(ctx, s.rt, chatCopy)
	return msg, nil
}

func (s *MemoryStore) CreateChat(ctx context.Context, chat models.Chat) (models.Chat, error) {
	if chat.ID == "" {
		// Mint the identifier through the realtime backend, firebase-style:
		// push yields the server-generated key, set stores the final record.
		key, err := s.rt.Push(ctx, chatsPath, chat)
		if err != nil {
			return models.Chat{}, err
		}
		chat.ID = key
	}
	now := nowMillis()
	if chat.CreatedAt == 0 {
		chat.CreatedAt = now
	}
	if chat.UpdatedAt == 0 {
		chat.UpdatedAt = now
	}
	if err := s.rt.Set(ctx, chatsPath, chat.ID, chat); err != nil {
		return models.Chat{}, err
	}

	s.mu.Lock()
	stored := chat
	s.chats[chat.ID] = &stored
	s.mu.Unlock()

	publishChatIndex(ctx, s.rt, chat)
	return chat, nil
}

func (s *MemoryStore) FindSharedChat(ctx context.Context, userID, otherID string) (models.Chat, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, chat := range s.chats {
		if chat.Involves(userID) && chat.Involves(otherID) {
			return *chat, true, nil
		}
	}
	return models.Chat{}, false, nil
}

func (s *MemoryStore) SetMessageStatus(ctx context.Context, chatID string, messageIDs []string, status models.MessageStatus) error {
	wanted := map[string]bool{}
	for _, id := range messageIDs {
		wanted[id] = true
	}

	s.mu.Lock()
	if _, ok := s.chats[chatID]; !ok {
		s.mu.Unlock()
		return &NotFoundError{Resource: "chat", ID: chatID}
	}
	var changed []models.Message
	msgs := s.messages[chatID]
	for i := range msgs {
		if wanted[msgs[i].ID] && models.StatusAdvances(msgs[i].Status, status) {
			msgs[i].Status = status
			changed = append(changed, msgs[i])
		}
	}
	s.mu.Unlock()

	for _, m := range changed {
		publishMessage(ctx, s.rt, m)
	}
	return nil
}

func (s *MemoryStore) MarkChatRead(ctx context.Context, chatID, userID string) error {
	s.mu.Lock()
	chat, ok := s.chats[chatID]
	if !ok {
		s.mu.Unlock()
		return &NotFoundError{Resource: "chat", ID: chatID}
	}
	chat.UnreadCount = 0
	chatCopy := *chat
	s.mu.Unlock()

	publishChatIndex(ctx, s.rt, chatCopy)
	return nil
}

func (s *MemoryStore) SetPaymentStatus(ctx context.Context, chatID, messageID string, status models.PaymentStatus) error {
	s.mu.Lock()
	msgs := s.messages[chatID]
	idx := -1
	for i := range msgs {
		if msgs[i].ID == messageID {
			idx = i
			break
		}
	}
	if idx < 0 || msgs[idx].Type != models.MessageTypePayment || msgs[idx].Payment == nil {
		s.mu.Unlock()
		return &NotFoundError{Resource: "payment message", ID: messageID}
	}
	if msgs[idx].Payment.Status != models.PaymentStatusPending {
		s.mu.Unlock()
		return &PaymentError{MessageID: messageID, Err: ErrAlreadySettled}
	}
	payment := *msgs[idx].Payment
	payment.Status = status
	msgs[idx].Payment = &payment
	updated := msgs[idx]
	s.mu.Unlock()

	publishMessage(ctx, s.rt, updated)
	return nil
}
