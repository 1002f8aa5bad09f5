package services

// Package-level instances wired once at startup (main.go) and shared by the
// route handlers, mirroring the storage.DB singleton pattern.
var (
	DefaultStore       MessageStore
	DefaultMessenger   *Messenger
	DefaultPaymentFlow *PaymentFlow
)

// Initialize wires the default messaging core against the given store and
// payment gateway.
func Initialize(store MessageStore, gateway Gateway, notify Notifier) {
	DefaultStore = store
	DefaultMessenger = NewMessenger(store, notify)
	DefaultPaymentFlow = NewPaymentFlow(store, DefaultMessenger, gateway, notify)
}
