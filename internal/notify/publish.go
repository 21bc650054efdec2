package notify

import (
	"context"
	"log/slog"
	"time"
)

// Publish sends a wake event and logs, rather than returns, any failure.
func Publish(ctx context.Context, n Notifier, jobID, ownerID string, reason Reason) {
	if n == nil {
		return
	}
	event := WakeEvent{JobID: jobID, OwnerID: ownerID, Reason: reason, At: time.Now().UTC()}
	if err := n.NotifyQueued(ctx, event); err != nil {
		slog.Warn("wake notification failed", "job_id", jobID, "reason", reason, "error", err)
	}
}
