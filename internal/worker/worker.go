package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/joshu-sajeev/dailygist/internal/config"
	"github.com/joshu-sajeev/dailygist/internal/dto"
	"github.com/joshu-sajeev/dailygist/internal/notify"
)

// Queue is the claim and completion surface a worker talks to, either the
// job service directly or the HTTP API.
type Queue interface {
	Claim(ctx context.Context, workerID string) (*dto.ClaimedJobDTO, error)
	MarkReady(ctx context.Context, id, workerID, resultRef string) (bool, error)
	MarkFailed(ctx context.Context, id, workerID, detail string) (bool, error)
	ReportProgress(ctx context.Context, id, workerID, stage string) (bool, error)
}

// Generator turns a claimed job into an artifact and returns its reference.
type Generator interface {
	Generate(ctx context.Context, job *dto.ClaimedJobDTO, progress func(stage string)) (string, error)
}

type Options struct {
	MinDelay          time.Duration
	MaxDelay          time.Duration
	GenerationTimeout time.Duration

	// Wake, when set, cuts the idle wait short on every wake event.
	Wake notify.Subscriber
}

func (o Options) withDefaults() Options {
	if o.MinDelay <= 0 {
		o.MinDelay = time.Second
	}
	if o.MaxDelay < o.MinDelay {
		o.MaxDelay = max(60*time.Second, o.MinDelay)
	}
	if o.GenerationTimeout <= 0 {
		o.GenerationTimeout = config.DefaultGenerationTimeout
	}
	return o
}

type Worker struct {
	ID        string
	queue     Queue
	generator Generator
	opts      Options
	quit      chan struct{}
	stopOnce  sync.Once
}

func NewWorker(id string, q Queue, g Generator, opts Options) *Worker {
	return &Worker{
		ID:        id,
		queue:     q,
		generator: g,
		opts:      opts.withDefaults(),
		quit:      make(chan struct{}),
	}
}

func (w *Worker) Start(ctx context.Context) {
	go w.Run(ctx)
}

// Run polls until ctx is done or Stop is called. An empty claim doubles the
// wait up to MaxDelay; a processed job or a wake event resets it.
func (w *Worker) Run(ctx context.Context) {
	var wake <-chan notify.WakeEvent
	if w.opts.Wake != nil {
		events, unsubscribe, err := w.opts.Wake.Subscribe()
		if err != nil {
			slog.Warn("wake subscription failed, polling only", "worker_id", w.ID, "error", err)
		} else {
			wake = events
			defer unsubscribe()
		}
	}

	slog.Info("worker started", "worker_id", w.ID)
	defer slog.Info("worker stopped", "worker_id", w.ID)

	currentDelay := w.opts.MinDelay
	for {
		select {
		case <-w.quit:
			return
		case <-ctx.Done():
			return
		default:
		}

		processed, err := w.RunOnce(ctx)
		switch {
		case err != nil:
			slog.Warn("claim failed", "worker_id", w.ID, "error", err)
			currentDelay = min(currentDelay*2, w.opts.MaxDelay)
		case processed:
			currentDelay = w.opts.MinDelay
			continue
		default:
			currentDelay = min(currentDelay*2, w.opts.MaxDelay)
		}

		timer := time.NewTimer(currentDelay)
		select {
		case <-timer.C:
		case _, ok := <-wake:
			timer.Stop()
			if !ok {
				wake = nil
			}
			currentDelay = w.opts.MinDelay
		case <-w.quit:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

// RunOnce claims and processes at most one job. It reports whether a job was
// claimed.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	job, err := w.queue.Claim(ctx, w.ID)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}

	w.process(ctx, job)
	return true, nil
}

func (w *Worker) process(ctx context.Context, job *dto.ClaimedJobDTO) {
	log := slog.With("worker_id", w.ID, "job_id", job.ID, "owner_id", job.OwnerID, "scheduling_day", job.SchedulingDay)
	log.Info("processing job")

	genCtx, cancel := context.WithTimeout(ctx, w.opts.GenerationTimeout)
	defer cancel()

	progress := func(stage string) {
		applied, err := w.queue.ReportProgress(ctx, job.ID, w.ID, stage)
		if err != nil {
			log.Warn("progress report failed", "stage", stage, "error", err)
			return
		}
		if !applied {
			log.Warn("progress ignored, job no longer held", "stage", stage)
		}
	}

	start := time.Now()
	ref, err := w.generator.Generate(genCtx, job, progress)

	// On shutdown the claim is left for the reconciler.
	if ctx.Err() != nil {
		log.Warn("shutdown interrupted job", "error", ctx.Err())
		return
	}

	if err != nil {
		detail := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			detail = fmt.Sprintf("generation timed out after %s", w.opts.GenerationTimeout)
		}
		applied, reportErr := w.queue.MarkFailed(ctx, job.ID, w.ID, detail)
		if reportErr != nil {
			log.Error("failed to report failure", "error", reportErr)
			return
		}
		log.Warn("job failed", "error", detail, "applied", applied, "elapsed", time.Since(start))
		return
	}

	applied, err := w.queue.MarkReady(ctx, job.ID, w.ID, ref)
	if err != nil {
		log.Error("failed to report success", "error", err)
		return
	}
	if !applied {
		log.Warn("ready report ignored, job was reclaimed", "result_ref", ref)
		return
	}
	log.Info("job ready", "result_ref", ref, "elapsed", time.Since(start))
}

// Stop asks Run to return after the job in hand, if any. It is safe to call
// more than once.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.quit) })
}
