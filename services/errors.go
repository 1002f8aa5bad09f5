package services

import (
	"errors"
	"fmt"
)

// Payment rejection causes. These mark attempts refused before the gateway
// was dispatched, as opposed to a gateway call that failed upstream.
var (
	ErrAlreadySettled  = errors.New("payment already settled")
	ErrPaymentInFlight = errors.New("payment already in progress")
	ErrNotPayment      = errors.New("message is not a payment request")
)

// NotFoundError reports an operation that referenced a chat, message or
// contact identifier not present in the store.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// SendError reports a failed message write. The local state is untouched;
// recovery is a user-initiated retry, the core never retries on its own.
type SendError struct {
	ChatID string
	Err    error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send to chat %q failed: %v", e.ChatID, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// CreateError reports a failed chat creation write.
type CreateError struct {
	Err error
}

func (e *CreateError) Error() string {
	return fmt.Sprintf("chat creation failed: %v", e.Err)
}

func (e *CreateError) Unwrap() error { return e.Err }

// PaymentError reports a failed or rejected payment attempt. No partial
// state is committed when it is returned.
type PaymentError struct {
	MessageID string
	Err       error
}

func (e *PaymentError) Error() string {
	return fmt.Sprintf("payment for message %q failed: %v", e.MessageID, e.Err)
}

func (e *PaymentError) Unwrap() error { return e.Err }
