// Package notify carries the best-effort "a job became claimable" signal.
// Delivery is not guaranteed; workers must keep polling.
package notify

import (
	"context"
	"time"
)

// Reason says why a job entered the queued state.
type Reason string

const (
	ReasonEnqueued   Reason = "enqueued"
	ReasonRetried    Reason = "retried"
	ReasonStaleReset Reason = "stale_reset"
)

// WakeEvent is published whenever a job transitions into queued.
type WakeEvent struct {
	JobID   string    `json:"job_id"`
	OwnerID string    `json:"owner_id"`
	Reason  Reason    `json:"reason"`
	At      time.Time `json:"at"`
}

// Notifier publishes wake events.
type Notifier interface {
	NotifyQueued(ctx context.Context, event WakeEvent) error
}

// Subscriber delivers wake events to an idle worker. The returned func
// unsubscribes and closes the channel.
type Subscriber interface {
	Subscribe() (<-chan WakeEvent, func(), error)
}

// Noop discards every event and never delivers any.
type Noop struct{}

func (Noop) NotifyQueued(context.Context, WakeEvent) error { return nil }

func (Noop) Subscribe() (<-chan WakeEvent, func(), error) {
	ch := make(chan WakeEvent)
	return ch, func() { close(ch) }, nil
}
