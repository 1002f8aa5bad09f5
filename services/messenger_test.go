package services

import (
	"context"
	"errors"
	"testing"

	"github.com/14sf/Sfm.pay/models"
)

func TestSendMessageSuccess(t *testing.T) {
	store := newTestStore()
	notifier := &recordingNotifier{}
	messenger := NewMessenger(store, notifier)
	ctx := context.Background()

	chat := mustCreateChat(t, store, "u1", "u2")
	msg, err := messenger.SendMessage(ctx, "u1", chat.ID, OutgoingMessage{Content: "hello"})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if msg.SenderID != "u1" {
		t.Fatalf("expected sender u1, got %q", msg.SenderID)
	}
	if msg.Status != models.MessageStatusSent {
		t.Fatalf("expected status sent, got %q", msg.Status)
	}

	if got := notifier.containing("Message sent successfully!"); got != 1 {
		t.Fatalf("expected exactly one success toast, got %d", got)
	}
	if got := notifier.count(SeverityError); got != 0 {
		t.Fatalf("unexpected error toasts: %d", got)
	}
}

func TestSendMessagePreservesOrder(t *testing.T) {
	store := newTestStore()
	messenger := NewMessenger(store, &recordingNotifier{})
	ctx := context.Background()
	chat := mustCreateChat(t, store, "u1", "u2")

	for _, c := range []string{"first", "second", "third"} {
		if _, err := messenger.SendMessage(ctx, "u1", chat.ID, OutgoingMessage{Content: c}); err != nil {
			t.Fatalf("send %q: %v", c, err)
		}
	}

	msgs, err := store.GetMessages(ctx, chat.ID)
	if err != nil {
		t.Fatalf("get messages: %v", err)
	}
	for i, want := range []string{"first", "second", "third"} {
		if msgs[i].Content != want {
			t.Fatalf("position %d: expected %q, got %q", i, want, msgs[i].Content)
		}
	}
}

func TestSendMessageUnknownChat(t *testing.T) {
	store := newTestStore()
	notifier := &recordingNotifier{}
	messenger := NewMessenger(store, notifier)

	_, err := messenger.SendMessage(context.Background(), "u1", "missing", OutgoingMessage{Content: "hi"})
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if got := notifier.containing("Failed to send message"); got != 1 {
		t.Fatalf("expected exactly one failure toast, got %d", got)
	}
}

func TestSendMessageStoreFailureLeavesNoState(t *testing.T) {
	backing := newTestStore()
	chat := mustCreateChat(t, backing, "u1", "u2")
	notifier := &recordingNotifier{}
	messenger := NewMessenger(&failingStore{MessageStore: backing, appendErr: errors.New("disk full")}, notifier)

	_, err := messenger.SendMessage(context.Background(), "u1", chat.ID, OutgoingMessage{Content: "hi"})
	var sendErr *SendError
	if !errors.As(err, &sendErr) {
		t.Fatalf("expected SendError, got %v", err)
	}

	// Caller owns the retry: nothing was persisted.
	msgs, err := backing.GetMessages(context.Background(), chat.ID)
	if err != nil {
		t.Fatalf("get messages: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("failed send left %d messages behind", len(msgs))
	}
	if got := notifier.containing("Failed to send message"); got != 1 {
		t.Fatalf("expected exactly one failure toast, got %d", got)
	}
}

func TestCreateChat(t *testing.T) {
	store := newTestStore()
	notifier := &recordingNotifier{}
	messenger := NewMessenger(store, notifier)
	ctx := context.Background()

	chatID, err := messenger.CreateChat(ctx, "u1", []string{"u2", "u3"}, nil)
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}
	if chatID == "" {
		t.Fatal("expected a generated chat ID")
	}

	chat, err := store.GetChat(ctx, chatID)
	if err != nil {
		t.Fatalf("get chat: %v", err)
	}
	if chat.CreatorID != "u1" {
		t.Fatalf("expected creator u1, got %q", chat.CreatorID)
	}
	if len(chat.Participants) != 2 {
		t.Fatalf("participants mutated: %v", chat.Participants)
	}
	if chat.LastMessage != nil {
		t.Fatal("new chat must have no last message")
	}
	if got := notifier.containing("Chat created successfully!"); got != 1 {
		t.Fatalf("expected exactly one success toast, got %d", got)
	}
}

func TestCreateChatRequiresParticipants(t *testing.T) {
	store := newTestStore()
	notifier := &recordingNotifier{}
	messenger := NewMessenger(store, notifier)

	_, err := messenger.CreateChat(context.Background(), "u1", nil, nil)
	var createErr *CreateError
	if !errors.As(err, &createErr) {
		t.Fatalf("expected CreateError, got %v", err)
	}
	if got := notifier.containing("Failed to create chat"); got != 1 {
		t.Fatalf("expected exactly one failure toast, got %d", got)
	}
}

func TestStartChatWithContactReusesSharedChat(t *testing.T) {
	store := newTestStore()
	messenger := NewMessenger(store, &recordingNotifier{})
	ctx := context.Background()
	contact := models.Contact{ID: "c2", Name: "Jane Smith"}

	first, err := messenger.StartChatWithContact(ctx, "u1", contact)
	if err != nil {
		t.Fatalf("first start: %v", err)
	}
	second, err := messenger.StartChatWithContact(ctx, "u1", contact)
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if first != second {
		t.Fatalf("expected the shared chat to be reused, got %s then %s", first, second)
	}

	chats, err := store.GetChats(ctx, "u1")
	if err != nil {
		t.Fatalf("get chats: %v", err)
	}
	if len(chats) != 1 {
		t.Fatalf("expected a single chat with the contact, got %d", len(chats))
	}
}

func TestRequestPayment(t *testing.T) {
	store := newTestStore()
	messenger := NewMessenger(store, &recordingNotifier{})
	ctx := context.Background()
	chat := mustCreateChat(t, store, "u1", "u2")

	msg, err := messenger.RequestPayment(ctx, "u1", chat.ID, 100, "SFM")
	if err != nil {
		t.Fatalf("request payment: %v", err)
	}
	if msg.Type != models.MessageTypePayment {
		t.Fatalf("expected payment type, got %q", msg.Type)
	}
	if msg.Payment == nil || msg.Payment.Status != models.PaymentStatusPending {
		t.Fatal("payment request must start pending")
	}
	if msg.Payment.Amount != 100 || msg.Payment.Currency != "SFM" {
		t.Fatalf("payment payload wrong: %+v", msg.Payment)
	}
	if msg.Content != "Payment request of 100 SFM" {
		t.Fatalf("unexpected content %q", msg.Content)
	}
}

func TestRequestPaymentRejectsInvalidInput(t *testing.T) {
	store := newTestStore()
	notifier := &recordingNotifier{}
	messenger := NewMessenger(store, notifier)
	ctx := context.Background()
	chat := mustCreateChat(t, store, "u1", "u2")

	var sendErr *SendError
	if _, err := messenger.RequestPayment(ctx, "u1", chat.ID, 0, "SFM"); !errors.As(err, &sendErr) {
		t.Fatalf("expected SendError for zero amount, got %v", err)
	}
	if _, err := messenger.RequestPayment(ctx, "u1", chat.ID, 50, ""); !errors.As(err, &sendErr) {
		t.Fatalf("expected SendError for empty currency, got %v", err)
	}

	msgs, err := store.GetMessages(ctx, chat.ID)
	if err != nil {
		t.Fatalf("get messages: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("invalid request was appended: %d messages", len(msgs))
	}
	if got := notifier.containing("Failed to send message"); got != 2 {
		t.Fatalf("expected one failure toast per attempt, got %d", got)
	}
}

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		amount float64
		want   string
	}{
		{100, "100"},
		{99.5, "99.50"},
		{0.01, "0.01"},
	}
	for _, c := range cases {
		if got := formatAmount(c.amount); got != c.want {
			t.Errorf("formatAmount(%v) = %q, want %q", c.amount, got, c.want)
		}
	}
}
