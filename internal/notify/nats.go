package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

const DefaultSubject = "dailygist.jobs.queued"

// subscriberBuffer bounds each subscriber channel; overflow is dropped.
const subscriberBuffer = 64

// NATSNotifier publishes wake events over NATS core pub/sub.
type NATSNotifier struct {
	nc      *nats.Conn
	subject string
	owned   bool

	mu   sync.Mutex
	subs []*nats.Subscription
}

// ConnectNATS dials url and returns a notifier that owns the connection.
func ConnectNATS(url, subject string) (*NATSNotifier, error) {
	nc, err := nats.Connect(url,
		nats.Name("dailygist"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}
	n := NewNATSNotifier(nc, subject)
	n.owned = true
	return n, nil
}

// NewNATSNotifier wraps an existing connection.
func NewNATSNotifier(nc *nats.Conn, subject string) *NATSNotifier {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSNotifier{nc: nc, subject: subject}
}

func (n *NATSNotifier) NotifyQueued(_ context.Context, event WakeEvent) error {
	data, err := encodeEvent(event)
	if err != nil {
		return err
	}
	if err := n.nc.Publish(n.subject, data); err != nil {
		return fmt.Errorf("publish wake event: %w", err)
	}
	return nil
}

func (n *NATSNotifier) Subscribe() (<-chan WakeEvent, func(), error) {
	ch := make(chan WakeEvent, subscriberBuffer)

	// guards ch against a send racing the close in unsubscribe
	var chMu sync.Mutex
	closed := false

	sub, err := n.nc.Subscribe(n.subject, func(msg *nats.Msg) {
		event, err := decodeEvent(msg.Data)
		if err != nil {
			slog.Error("failed to decode wake event", "error", err)
			return
		}
		chMu.Lock()
		defer chMu.Unlock()
		if closed {
			return
		}
		select {
		case ch <- event:
		default:
			slog.Warn("dropping wake event, subscriber channel full", "job_id", event.JobID)
		}
	})
	if err != nil {
		close(ch)
		return nil, nil, fmt.Errorf("subscribe to %s: %w", n.subject, err)
	}

	n.mu.Lock()
	n.subs = append(n.subs, sub)
	n.mu.Unlock()

	unsubscribe := func() {
		_ = sub.Unsubscribe()
		chMu.Lock()
		defer chMu.Unlock()
		if !closed {
			closed = true
			close(ch)
		}
	}
	return ch, unsubscribe, nil
}

// Close drops every subscription and, if the notifier dialed it, the connection.
func (n *NATSNotifier) Close() {
	n.mu.Lock()
	for _, sub := range n.subs {
		_ = sub.Unsubscribe()
	}
	n.subs = nil
	n.mu.Unlock()

	if n.owned {
		n.nc.Close()
	}
}

func encodeEvent(event WakeEvent) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal wake event: %w", err)
	}
	return data, nil
}

func decodeEvent(data []byte) (WakeEvent, error) {
	var event WakeEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return WakeEvent{}, fmt.Errorf("unmarshal wake event: %w", err)
	}
	if event.JobID == "" {
		return WakeEvent{}, fmt.Errorf("wake event without job id")
	}
	return event, nil
}
