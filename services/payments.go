package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/14sf/Sfm.pay/models"
)

// Gateway is the external payment capability. Invoke resolves with a
// transaction reference on success; the flow treats it identically
// regardless of call site.
type Gateway interface {
	Invoke(ctx context.Context, amount float64, currency string) (string, error)
}

// PaymentFlow settles payment-typed messages: it invokes the gateway for
// the requested amount, transitions the request pending -> completed in
// place and appends one confirmation message to the same chat. On gateway
// failure nothing is committed and exactly one failure notification fires.
//
// Concurrent attempts against the same message are de-duplicated: while one
// invocation is outstanding, further Pay calls return immediately without
// reaching the gateway.
type PaymentFlow struct {
	store     MessageStore
	messenger *Messenger
	gateway   Gateway
	notify    Notifier

	mu       sync.Mutex
	inFlight map[string]bool
}

func NewPaymentFlow(store MessageStore, messenger *Messenger, gateway Gateway, notify Notifier) *PaymentFlow {
	if notify == nil {
		notify = LogNotifier{}
	}
	return &PaymentFlow{
		store:     store,
		messenger: messenger,
		gateway:   gateway,
		notify:    notify,
		inFlight:  map[string]bool{},
	}
}

// Pay runs the payment attempt for one payment message on behalf of
// payerID. Each call is an independent attempt against a still-pending
// request; settled requests are rejected without dispatching the gateway.
func (f *PaymentFlow) Pay(ctx context.Context, payerID, chatID, messageID string) error {
	if !f.acquire(messageID) {
		return &PaymentError{MessageID: messageID, Err: ErrPaymentInFlight}
	}
	defer f.release(messageID)

	msg, err := f.store.GetMessage(ctx, chatID, messageID)
	if err != nil {
		return err
	}
	if msg.Type != models.MessageTypePayment || msg.Payment == nil {
		return &PaymentError{MessageID: messageID, Err: ErrNotPayment}
	}
	if msg.Payment.Status != models.PaymentStatusPending {
		return &PaymentError{MessageID: messageID, Err: ErrAlreadySettled}
	}

	txRef, err := f.gateway.Invoke(ctx, msg.Payment.Amount, msg.Payment.Currency)
	if err != nil {
		f.notify.Notify("Payment failed", SeverityError)
		return &PaymentError{MessageID: messageID, Err: err}
	}

	if err := f.store.SetPaymentStatus(ctx, chatID, messageID, models.PaymentStatusCompleted); err != nil {
		// The gateway charged but the transition raced another writer;
		// surface it, the confirmation below must not duplicate.
		var payErr *PaymentError
		if errors.As(err, &payErr) {
			return err
		}
		return &PaymentError{MessageID: messageID, Err: err}
	}

	content := fmt.Sprintf("Payment of %s %s completed (ref %s)",
		formatAmount(msg.Payment.Amount), msg.Payment.Currency, txRef)
	if _, err := f.messenger.send(ctx, payerID, chatID, OutgoingMessage{Content: content}, false); err != nil {
		// The charge settled but the confirmation append failed; the caller
		// still gets exactly one notification for the attempt.
		f.notify.Notify("Failed to send message", SeverityError)
		return err
	}

	f.notify.Notify(fmt.Sprintf("Payment of %s %s completed",
		formatAmount(msg.Payment.Amount), msg.Payment.Currency), SeveritySuccess)
	return nil
}

func (f *PaymentFlow) acquire(messageID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inFlight[messageID] {
		return false
	}
	f.inFlight[messageID] = true
	return true
}

func (f *PaymentFlow) release(messageID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.inFlight, messageID)
}
