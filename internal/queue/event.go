// Package queue defines message payloads exchanged over the message broker
// and the publish capability handlers depend on.
package queue

import "context"

// NotificationEvent is published whenever the auth subsystem completes a
// state change somebody should hear about (signup, email verified, password
// reset). Downstream consumers fan it out to clients without querying the
// primary database.
type NotificationEvent struct {
	AccountID uint64 `json:"account_id"`
	Kind      string `json:"kind"` // e.g. "account.registered", "account.verified"
	Message   string `json:"message"`
	At        string `json:"at"` // RFC 3339 UTC timestamp
}

// Event kinds emitted by the auth handlers.
const (
	KindRegistered    = "account.registered"
	KindVerified      = "account.verified"
	KindPasswordReset = "account.password_reset"
)

// Publisher is the injected publish capability. Rooms address delivery
// (one room per account, "user_<id>"); implementations decide transport.
// Handlers hold this interface, never a broker client, so the real-time
// channel is swappable and absent in tests.
type Publisher interface {
	Publish(ctx context.Context, room string, event NotificationEvent) error
}
