package channels

import (
	"context"
	"time"

	"campusflow/internal/policy"
)

// Status tracks a dispatched notification through its lifecycle.
//
//	Pending -> Sent    (adapter succeeded)
//	Pending -> Failed  (adapter errored)
//	any     -> Expired (TTL sweep)
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
	StatusExpired Status = "expired"
)

// Notification is a concrete, channel-bound message produced by the
// dispatcher once a candidate has been admitted.
type Notification struct {
	ID          string
	Fingerprint string
	Channel     policy.Channel
	Priority    policy.Priority
	Title       string
	Body        string
	CreatedAt   time.Time
	ExpiresAt   time.Time
	Status      Status
}

// Ack is the delivery receipt returned by a sender.
type Ack struct {
	Channel policy.Channel
	SentAt  time.Time
	// Ref is an adapter-specific delivery reference (message id, queue offset).
	Ref string
}

// Sender delivers notifications for one channel. Implementations own their
// transport details; the dispatcher neither knows nor cares how delivery
// happens, and senders are swappable without touching dispatch logic.
//
// Send may block on I/O. It must honor ctx cancellation. A send, once
// issued, is not cancellable by the engine.
type Sender interface {
	Channel() policy.Channel
	Send(ctx context.Context, n Notification) (Ack, error)
}
