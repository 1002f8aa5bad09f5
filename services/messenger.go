package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/datatypes"

	"github.com/14sf/Sfm.pay/models"
)

// OutgoingMessage is a high-level send intent before the store stamps it.
// Type defaults to text; File and Payment belong to their matching types.
type OutgoingMessage struct {
	Content string
	Type    models.MessageType
	File    *models.FileInfo
	Payment *models.PaymentInfo
}

// Messenger is the write path of the messaging core: it is the sole writer
// of messages, so per-chat send order is whatever order its callers invoke
// it in. Identity is explicit on every call; there is no ambient current
// user.
type Messenger struct {
	store  MessageStore
	notify Notifier
}

func NewMessenger(store MessageStore, notify Notifier) *Messenger {
	if notify == nil {
		notify = LogNotifier{}
	}
	return &Messenger{store: store, notify: notify}
}

// SendMessage appends a message to chatID on behalf of senderID. On store
// failure nothing is mutated locally and the caller owns the retry; the
// core never retries silently. Exactly one notification is emitted either
// way.
func (m *Messenger) SendMessage(ctx context.Context, senderID, chatID string, out OutgoingMessage) (models.Message, error) {
	return m.send(ctx, senderID, chatID, out, true)
}

func (m *Messenger) send(ctx context.Context, senderID, chatID string, out OutgoingMessage, notify bool) (models.Message, error) {
	msg := models.Message{
		SenderID: senderID,
		Content:  out.Content,
		Type:     out.Type,
		File:     out.File,
		Payment:  out.Payment,
	}

	stored, err := m.store.AppendMessage(ctx, chatID, msg)
	if err != nil {
		var notFound *NotFoundError
		if notify {
			m.notify.Notify("Failed to send message", SeverityError)
		}
		if errors.As(err, &notFound) {
			return models.Message{}, err
		}
		return models.Message{}, &SendError{ChatID: chatID, Err: err}
	}

	if notify {
		m.notify.Notify("Message sent successfully!", SeveritySuccess)
	}
	return stored, nil
}

// CreateChat persists a new chat between creatorID and participantIDs and
// returns the generated identifier. Metadata optionally links the chat to
// the marketplace object it was started about.
func (m *Messenger) CreateChat(ctx context.Context, creatorID string, participantIDs []string, metadata datatypes.JSON) (string, error) {
	if len(participantIDs) == 0 {
		m.notify.Notify("Failed to create chat", SeverityError)
		return "", &CreateError{Err: errors.New("participants must not be empty")}
	}

	chat := models.Chat{
		CreatorID:    creatorID,
		Participants: participantIDs,
		LastMessage:  nil,
		UnreadCount:  0,
		Metadata:     metadata,
	}
	created, err := m.store.CreateChat(ctx, chat)
	if err != nil {
		m.notify.Notify("Failed to create chat", SeverityError)
		return "", &CreateError{Err: err}
	}

	m.notify.Notify("Chat created successfully!", SeveritySuccess)
	return created.ID, nil
}

// StartChatWithContact reuses an existing chat shared with the contact or
// creates one. Only contact selection originates chats this way.
func (m *Messenger) StartChatWithContact(ctx context.Context, userID string, contact models.Contact) (string, error) {
	if contact.ID == "" {
		return "", &NotFoundError{Resource: "contact", ID: contact.ID}
	}

	existing, found, err := m.store.FindSharedChat(ctx, userID, contact.ID)
	if err != nil {
		m.notify.Notify("Failed to create chat", SeverityError)
		return "", &CreateError{Err: err}
	}
	if found {
		return existing.ID, nil
	}

	return m.CreateChat(ctx, userID, []string{contact.ID}, nil)
}

// RequestPayment sends a payment-typed message asking the other party to
// pay amount in currency. The request starts pending; the payment flow
// settles it.
func (m *Messenger) RequestPayment(ctx context.Context, senderID, chatID string, amount float64, currency string) (models.Message, error) {
	if amount <= 0 || currency == "" {
		m.notify.Notify("Failed to send message", SeverityError)
		return models.Message{}, &SendError{ChatID: chatID, Err: errors.New("payment request requires a positive amount and a currency")}
	}
	return m.SendMessage(ctx, senderID, chatID, OutgoingMessage{
		Content: fmt.Sprintf("Payment request of %s %s", formatAmount(amount), currency),
		Type:    models.MessageTypePayment,
		Payment: &models.PaymentInfo{
			Amount:   amount,
			Currency: currency,
			Status:   models.PaymentStatusPending,
		},
	})
}

// formatAmount renders an amount without a trailing .00 for whole values.
func formatAmount(amount float64) string {
	if amount == float64(int64(amount)) {
		return fmt.Sprintf("%d", int64(amount))
	}
	return fmt.Sprintf("%.2f", amount)
}
