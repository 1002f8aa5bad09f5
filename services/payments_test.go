package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/14sf/Sfm.pay/models"
)

func newPaymentFixture(t *testing.T, gateway Gateway) (*MemoryStore, *PaymentFlow, *recordingNotifier, models.Chat, models.Message) {
	t.Helper()
	store := newTestStore()
	notifier := &recordingNotifier{}
	messenger := NewMessenger(store, notifier)
	flow := NewPaymentFlow(store, messenger, gateway, notifier)

	chat := mustCreateChat(t, store, "u1", "u2")
	request, err := messenger.RequestPayment(context.Background(), "u1", chat.ID, 100, "SFM")
	if err != nil {
		t.Fatalf("request payment: %v", err)
	}
	return store, flow, notifier, chat, request
}

func TestPaySettlesRequestAndConfirms(t *testing.T) {
	gateway := &stubGateway{ref: "tx-123"}
	store, flow, notifier, chat, request := newPaymentFixture(t, gateway)
	ctx := context.Background()

	if err := flow.Pay(ctx, "u2", chat.ID, request.ID); err != nil {
		t.Fatalf("pay failed: %v", err)
	}
	if gateway.callCount() != 1 {
		t.Fatalf("expected one gateway call, got %d", gateway.callCount())
	}

	settled, err := store.GetMessage(ctx, chat.ID, request.ID)
	if err != nil {
		t.Fatalf("get message: %v", err)
	}
	if settled.Payment.Status != models.PaymentStatusCompleted {
		t.Fatalf("request not completed: %q", settled.Payment.Status)
	}

	msgs, err := store.GetMessages(ctx, chat.ID)
	if err != nil {
		t.Fatalf("get messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected request + confirmation, got %d messages", len(msgs))
	}
	confirmation := msgs[1]
	if confirmation.SenderID != "u2" {
		t.Fatalf("confirmation sender should be the payer, got %q", confirmation.SenderID)
	}
	if !strings.Contains(confirmation.Content, "100") || !strings.Contains(confirmation.Content, "SFM") {
		t.Fatalf("confirmation missing amount or currency: %q", confirmation.Content)
	}
	if !strings.Contains(confirmation.Content, "tx-123") {
		t.Fatalf("confirmation missing gateway reference: %q", confirmation.Content)
	}

	if got := notifier.containing("Payment of 100 SFM completed"); got != 1 {
		t.Fatalf("expected exactly one completion toast, got %d", got)
	}
}

func TestPayGatewayFailure(t *testing.T) {
	gateway := &stubGateway{err: errGatewayDown}
	store, flow, notifier, chat, request := newPaymentFixture(t, gateway)
	ctx := context.Background()

	err := flow.Pay(ctx, "u2", chat.ID, request.ID)
	var payErr *PaymentError
	if !errors.As(err, &payErr) {
		t.Fatalf("expected PaymentError, got %v", err)
	}

	// Nothing committed: request still pending, no confirmation appended.
	got, err := store.GetMessage(ctx, chat.ID, request.ID)
	if err != nil {
		t.Fatalf("get message: %v", err)
	}
	if got.Payment.Status != models.PaymentStatusPending {
		t.Fatalf("failed payment mutated the request: %q", got.Payment.Status)
	}
	msgs, err := store.GetMessages(ctx, chat.ID)
	if err != nil {
		t.Fatalf("get messages: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("failed payment appended messages: %d", len(msgs))
	}
	if got := notifier.containing("Payment failed"); got != 1 {
		t.Fatalf("expected exactly one failure toast, got %d", got)
	}

	// A retry after failure is a fresh attempt and may succeed.
	gateway.err = nil
	gateway.ref = "tx-retry"
	if err := flow.Pay(ctx, "u2", chat.ID, request.ID); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
}

func TestPayRejectsSettledRequest(t *testing.T) {
	gateway := &stubGateway{ref: "tx-1"}
	_, flow, _, chat, request := newPaymentFixture(t, gateway)
	ctx := context.Background()

	if err := flow.Pay(ctx, "u2", chat.ID, request.ID); err != nil {
		t.Fatalf("first pay: %v", err)
	}
	err := flow.Pay(ctx, "u2", chat.ID, request.ID)
	var payErr *PaymentError
	if !errors.As(err, &payErr) {
		t.Fatalf("expected PaymentError for settled request, got %v", err)
	}
	if gateway.callCount() != 1 {
		t.Fatalf("settled request reached the gateway again: %d calls", gateway.callCount())
	}
}

func TestPayRejectsNonPaymentMessage(t *testing.T) {
	store := newTestStore()
	notifier := &recordingNotifier{}
	messenger := NewMessenger(store, notifier)
	flow := NewPaymentFlow(store, messenger, &stubGateway{ref: "tx"}, notifier)
	ctx := context.Background()

	chat := mustCreateChat(t, store, "u1", "u2")
	msg, err := messenger.SendMessage(ctx, "u1", chat.ID, OutgoingMessage{Content: "just text"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	err = flow.Pay(ctx, "u2", chat.ID, msg.ID)
	var payErr *PaymentError
	if !errors.As(err, &payErr) {
		t.Fatalf("expected PaymentError, got %v", err)
	}
}

func TestPayConfirmationFailureNotifiesOnce(t *testing.T) {
	ctx := context.Background()
	backing := newTestStore()
	chat := mustCreateChat(t, backing, "u1", "u2")
	request, err := backing.AppendMessage(ctx, chat.ID, models.Message{
		SenderID: "u1",
		Content:  "Payment request of 100 SFM",
		Type:     models.MessageTypePayment,
		Payment:  &models.PaymentInfo{Amount: 100, Currency: "SFM", Status: models.PaymentStatusPending},
	})
	if err != nil {
		t.Fatalf("append request: %v", err)
	}

	// The charge succeeds but the confirmation append does not.
	notifier := &recordingNotifier{}
	broken := &failingStore{MessageStore: backing, appendErr: errors.New("disk full")}
	flow := NewPaymentFlow(broken, NewMessenger(broken, notifier), &stubGateway{ref: "tx-9"}, notifier)

	if err := flow.Pay(ctx, "u2", chat.ID, request.ID); err == nil {
		t.Fatal("expected the failed confirmation to surface")
	}

	if got := notifier.count(SeverityError); got != 1 {
		t.Fatalf("expected exactly one failure toast, got %d", got)
	}
	if got := notifier.count(SeveritySuccess); got != 0 {
		t.Fatalf("unexpected success toasts: %d", got)
	}

	// The settled transition itself committed before the append failed.
	got, err := backing.GetMessage(ctx, chat.ID, request.ID)
	if err != nil {
		t.Fatalf("get message: %v", err)
	}
	if got.Payment.Status != models.PaymentStatusCompleted {
		t.Fatalf("expected completed request, got %q", got.Payment.Status)
	}
}

func TestPayDeduplicatesConcurrentAttempts(t *testing.T) {
	gateway := newBlockingGateway()
	_, flow, _, chat, request := newPaymentFixture(t, gateway)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	firstErr := make(chan error, 1)
	go func() {
		defer wg.Done()
		firstErr <- flow.Pay(ctx, "u2", chat.ID, request.ID)
	}()

	// Wait until the first attempt holds the gateway, then overlap a second.
	select {
	case <-gateway.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first attempt never reached the gateway")
	}

	err := flow.Pay(ctx, "u2", chat.ID, request.ID)
	var payErr *PaymentError
	if !errors.As(err, &payErr) {
		t.Fatalf("expected in-flight rejection, got %v", err)
	}

	close(gateway.release)
	wg.Wait()
	if err := <-firstErr; err != nil {
		t.Fatalf("first attempt failed: %v", err)
	}
}
