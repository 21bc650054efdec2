package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Reconciler resets jobs that have been processing for longer than timeout.
type Reconciler interface {
	Reconcile(ctx context.Context, timeout time.Duration) (int, error)
}

// Cron drives the scheduler and the stale reconciler from in-process cron
// expressions, for deployments without an external trigger.
type Cron struct {
	cron *cron.Cron
}

// NewCron registers a scheduler pass on scheduleSpec and a reconcile pass on
// reconcileSpec. An empty spec disables that entry. Overlapping runs of the
// same entry are skipped.
func NewCron(runner Runner, reconciler Reconciler, scheduleSpec, reconcileSpec string, staleTimeout, runTimeout time.Duration) (*Cron, error) {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)),
	)

	if scheduleSpec != "" {
		if _, err := c.AddFunc(scheduleSpec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
			defer cancel()

			resp, err := runner.Run(ctx)
			if err != nil {
				slog.Error("scheduled pass failed", "error", err)
				return
			}
			slog.Info("scheduled pass", "triggered", resp.Triggered, "retried", resp.Retried, "errors", len(resp.Errors))
		}); err != nil {
			return nil, fmt.Errorf("invalid schedule cron %q: %w", scheduleSpec, err)
		}
	}

	if reconcileSpec != "" {
		if _, err := c.AddFunc(reconcileSpec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
			defer cancel()

			n, err := reconciler.Reconcile(ctx, staleTimeout)
			if err != nil {
				slog.Error("scheduled reconcile failed", "error", err)
				return
			}
			slog.Info("scheduled reconcile", "reset", n)
		}); err != nil {
			return nil, fmt.Errorf("invalid reconcile cron %q: %w", reconcileSpec, err)
		}
	}

	return &Cron{cron: c}, nil
}

func (c *Cron) Start() {
	c.cron.Start()
}

// Stop halts the cron and waits for running entries, or until ctx is done.
func (c *Cron) Stop(ctx context.Context) error {
	done := c.cron.Stop().Done()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Entries reports how many schedules are registered.
func (c *Cron) Entries() int {
	return len(c.cron.Entries())
}
