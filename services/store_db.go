package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/14sf/Sfm.pay/models"
	"github.com/14sf/Sfm.pay/storage"
)

// DBStore is the Postgres-backed MessageStore. Rows are the source of
// truth; the realtime bus only carries the derived per-user chat index and
// message stream snapshots published after each committed write.
type DBStore struct {
	db *gorm.DB
	rt storage.Realtime
}

func NewDBStore(db *gorm.DB, rt storage.Realtime) *DBStore {
	return &DBStore{db: db, rt: rt}
}

func (s *DBStore) GetChats(ctx context.Context, userID string) ([]models.Chat, error) {
	var chats []models.Chat
	err := s.db.WithContext(ctx).
		Where("creator_id = ? OR participants @> ?", userID, fmt.Sprintf("%q", userID)).
		Order("updated_at DESC").
		Find(&chats).Error
	if err != nil {
		return nil, err
	}
	return chats, nil
}

func (s *DBStore) GetChat(ctx context.Context, chatID string) (models.Chat, error) {
	var chat models.Chat
	err := s.db.WithContext(ctx).First(&chat, "id = ?", chatID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Chat{}, &NotFoundError{Resource: "chat", ID: chatID}
	}
	if err != nil {
		return models.Chat{}, err
	}
	return chat, nil
}

func (s *DBStore) GetMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	if _, err := s.GetChat(ctx, chatID); err != nil {
		return nil, err
	}
	var msgs []models.Message
	err := s.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("timestamp ASC").Order("seq ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

func (s *DBStore) GetMessage(ctx context.Context, chatID, messageID string) (models.Message, error) {
	var msg models.Message
	err := s.db.WithContext(ctx).
		First(&msg, "chat_id = ? AND id = ?", chatID, messageID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Message{}, &NotFoundError{Resource: "message", ID: messageID}
	}
	if err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

func (s *DBStore) AppendMessage(ctx context.Context, chatID string, msg models.Message) (models.Message, error) {
	var chat models.Chat

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&chat, "id = ?", chatID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Resource: "chat", ID: chatID}
			}
			return err
		}

		msg = stampMessage(chatID, msg)
		if msg.ID == "" {
			key, err := s.rt.Push(ctx, chatMessagesPath(chatID), msg)
			if err != nil {
				return err
			}
			msg.ID = key
		}
		if err := tx.Create(&msg).Error; err != nil {
			return err
		}

		touchChat(&chat, msg)
		return tx.Model(&models.Chat{}).Where("id = ?", chatID).
			Updates(map[string]interface{}{
				"last_message": chat.LastMessage,
				"updated_at":   chat.UpdatedAt,
				"unread_count": chat.UnreadCount,
			}).Error
	})
	if err != nil {
		return models.Message{}, err
	}

	publishMessage(ctx, s.rt, msg)
	publishChatIndex(ctx, s.rt, chat)
	return msg, nil
}

func (s *DBStore) CreateChat(ctx context.Context, chat models.Chat) (models.Chat, error) {
	if chat.ID == "" {
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

	if err := s.db.WithContext(ctx).Create(&chat).Error; err != nil {
		return models.Chat{}, err
	}
	if err := s.rt.Set(ctx, chatsPath, chat.ID, chat); err != nil {
		return models.Chat{}, err
	}

	publishChatIndex(ctx, s.rt, chat)
	return chat, nil
}

func (s *DBStore) FindSharedChat(ctx context.Context, userID, otherID string) (models.Chat, bool, error) {
	var chats []models.Chat
	err := s.db.WithContext(ctx).
		Where("creator_id = ? OR participants @> ?", userID, fmt.Sprintf("%q", userID)).
		Find(&chats).Error
	if err != nil {
		return models.Chat{}, false, err
	}
	for _, chat := range chats {
		if chat.Involves(otherID) {
			return chat, true, nil
		}
	}
	return models.Chat{}, false, nil
}

func (s *DBStore) SetMessageStatus(ctx context.Context, chatID string, messageIDs []string, status models.MessageStatus) error {
	if _, err := s.GetChat(ctx, chatID); err != nil {
		return err
	}

	var changed []models.Message
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var msgs []models.Message
		if err := tx.Where("chat_id = ? AND id IN ?", chatID, messageIDs).Find(&msgs).Error; err != nil {
			return err
		}
		for i := range msgs {
			if !models.StatusAdvances(msgs[i].Status, status) {
				continue
			}
			msgs[i].Status = status
			if err := tx.Model(&models.Message{}).Where("id = ?", msgs[i].ID).
				Update("status", status).Error; err != nil {
				return err
			}
			changed = append(changed, msgs[i])
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, m := range changed {
		publishMessage(ctx, s.rt, m)
	}
	return nil
}

func (s *DBStore) MarkChatRead(ctx context.Context, chatID, userID string) error {
	chat, err := s.GetChat(ctx, chatID)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Model(&models.Chat{}).
		Where("id = ?", chatID).Update("unread_count", 0).Error; err != nil {
		return err
	}
	chat.UnreadCount = 0
	publishChatIndex(ctx, s.rt, chat)
	return nil
}

func (s *DBStore) SetPaymentStatus(ctx context.Context, chatID, messageID string, status models.PaymentStatus) error {
	var updated models.Message
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var msg models.Message
		if err := tx.First(&msg, "chat_id = ? AND id = ?", chatID, messageID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Resource: "payment message", ID: messageID}
			}
			return err
		}
		if msg.Type != models.MessageTypePayment || msg.Payment == nil {
			return &NotFoundError{Resource: "payment message", ID: messageID}
		}
		if msg.Payment.Status != models.PaymentStatusPending {
			return &PaymentError{MessageID: messageID, Err: ErrAlreadySettled}
		}
		payment := *msg.Payment
		payment.Status = status
		msg.Payment = &payment
		updated = msg
		return tx.Model(&models.Message{}).Where("id = ?", messageID).
			Update("payment", &payment).Error
	})
	if err != nil {
		return err
	}

	publishMessage(ctx, s.rt, updated)
	return nil
}
