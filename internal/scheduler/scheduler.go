// Package scheduler decides which owners are due a job right now, snapshots
// their unprocessed input into a payload, and re-enqueues same-day failures
// that still have retry budget.
package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joshu-sajeev/dailygist/internal/config"
	"github.com/joshu-sajeev/dailygist/internal/dto"
	"github.com/joshu-sajeev/dailygist/internal/metrics"
	"github.com/joshu-sajeev/dailygist/internal/models"
	"github.com/joshu-sajeev/dailygist/internal/notify"
	"github.com/joshu-sajeev/dailygist/internal/tz"
	"gorm.io/datatypes"
)

// JobStore is the slice of the job store the scheduler writes through.
type JobStore interface {
	Enqueue(ctx context.Context, ownerID, day string, payload datatypes.JSON) (*models.Job, models.EnqueueOutcome, error)
	ListRetryCandidates(ctx context.Context, maxRetries int, fromDay, toDay string) ([]models.Job, error)
	Requeue(ctx context.Context, id string, expectedRetries, maxRetries int, payload datatypes.JSON) (bool, error)
}

// TenantDirectory reads account settings.
type TenantDirectory interface {
	GetTenant(ctx context.Context, id string) (*models.Tenant, error)
}

// InputSource reads ingested input that no ready job has consumed yet.
type InputSource interface {
	OwnersWithUnprocessed(ctx context.Context) ([]string, error)
	ListUnprocessed(ctx context.Context, ownerID string) ([]models.RawInput, error)
}

var ErrNoInput = errors.New("no unprocessed input")

type Scheduler struct {
	jobs       JobStore
	tenants    TenantDirectory
	inputs     InputSource
	notifier   notify.Notifier
	maxRetries int
	now        func() time.Time
}

type Option func(*Scheduler)

// WithClock overrides the wall clock used for eligibility.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

func WithMaxRetries(n int) Option {
	return func(s *Scheduler) { s.maxRetries = n }
}

func New(jobs JobStore, tenants TenantDirectory, inputs InputSource, notifier notify.Notifier, opts ...Option) *Scheduler {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	s := &Scheduler{
		jobs:       jobs,
		tenants:    tenants,
		inputs:     inputs,
		notifier:   notifier,
		maxRetries: config.DefaultMaxRetryAttempts,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// owner is a tenant with its resolved location, cached for one pass.
type owner struct {
	tenant *models.Tenant
	loc    *time.Location
}

type pass struct {
	now    time.Time
	owners map[string]*owner
	errors []dto.OwnerErrorDTO
}

func (p *pass) fail(ownerID, phase string, err error) {
	metrics.SchedulerErrors.WithLabelValues(phase).Inc()
	slog.Warn("scheduler skipped owner", "owner_id", ownerID, "phase", phase, "error", err)
	p.errors = append(p.errors, dto.OwnerErrorDTO{OwnerID: ownerID, Error: err.Error()})
}

// Run performs one enqueue phase and one retry phase. Per-owner errors are
// collected in the result and never stop the rest of the batch.
func (s *Scheduler) Run(ctx context.Context) (*dto.TriggerResponseDTO, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() { metrics.SchedulerRunSeconds.Observe(time.Since(start).Seconds()) }()

	p := &pass{now: s.now().UTC(), owners: map[string]*owner{}}

	triggered := s.enqueuePhase(ctx, p)
	retried := s.retryPhase(ctx, p)

	slog.Info("scheduler pass complete",
		"triggered", triggered, "retried", retried, "errors", len(p.errors))

	errs := p.errors
	if errs == nil {
		errs = []dto.OwnerErrorDTO{}
	}
	return &dto.TriggerResponseDTO{Triggered: triggered, Retried: retried, Errors: errs}, nil
}

func (s *Scheduler) enqueuePhase(ctx context.Context, p *pass) int {
	owners, err := s.inputs.OwnersWithUnprocessed(ctx)
	if err != nil {
		p.fail("", "enqueue", fmt.Errorf("list owners with input: %w", err))
		return 0
	}

	triggered := 0
	for _, ownerID := range owners {
		if ctx.Err() != nil {
			p.fail(ownerID, "enqueue", ctx.Err())
			break
		}

		queued, err := s.enqueueOwner(ctx, p, ownerID)
		if err != nil {
			p.fail(ownerID, "enqueue", err)
			continue
		}
		if queued {
			triggered++
		}
	}
	return triggered
}

// enqueueOwner upserts today's job for ownerID if it is the owner's delivery
// hour. It reports whether a queued job now carries the fresh snapshot.
func (s *Scheduler) enqueueOwner(ctx context.Context, p *pass, ownerID string) (bool, error) {
	o, err := s.resolve(ctx, p, ownerID)
	if err != nil {
		return false, err
	}

	if !tz.IsEligible(p.now, o.loc, o.tenant.DeliveryHour) {
		return false, nil
	}

	day := tz.LocalDay(p.now, o.loc)
	payload, err := s.snapshot(ctx, p, o, day)
	if errors.Is(err, ErrNoInput) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	j, outcome, err := s.jobs.Enqueue(ctx, ownerID, day, payload)
	if err != nil {
		return false, err
	}

	metrics.JobsEnqueued.WithLabelValues(string(outcome)).Inc()
	slog.Info("scheduler enqueue", "owner_id", ownerID, "scheduling_day", day, "job_id", j.ID, "outcome", outcome)

	if !outcome.Queued() {
		return false, nil
	}
	notify.Publish(ctx, s.notifier, j.ID, ownerID, notify.ReasonEnqueued)
	return true, nil
}

func (s *Scheduler) retryPhase(ctx context.Context, p *pass) int {
	// Every owner's local date lies within a day of the UTC date.
	fromDay := p.now.AddDate(0, 0, -1).Format(tz.DayLayout)
	toDay := p.now.AddDate(0, 0, 1).Format(tz.DayLayout)

	candidates, err := s.jobs.ListRetryCandidates(ctx, s.maxRetries, fromDay, toDay)
	if err != nil {
		p.fail("", "retry", fmt.Errorf("list retry candidates: %w", err))
		return 0
	}

	retried := 0
	for _, j := range candidates {
		if ctx.Err() != nil {
			p.fail(j.OwnerID, "retry", ctx.Err())
			break
		}

		ok, err := s.retryJob(ctx, p, j)
		if err != nil {
			p.fail(j.OwnerID, "retry", err)
			continue
		}
		if ok {
			retried++
		}
	}
	return retried
}

func (s *Scheduler) retryJob(ctx context.Context, p *pass, j models.Job) (bool, error) {
	o, err := s.resolve(ctx, p, j.OwnerID)
	if err != nil {
		return false, err
	}

	// Failures from an earlier local day stay failed.
	if j.SchedulingDay != tz.LocalDay(p.now, o.loc) {
		return false, nil
	}

	payload, err := s.snapshot(ctx, p, o, j.SchedulingDay)
	if err != nil {
		return false, fmt.Errorf("retry job %s: %w", j.ID, err)
	}

	ok, err := s.jobs.Requeue(ctx, j.ID, j.RetryCount, s.maxRetries, payload)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	metrics.JobsRetried.Inc()
	slog.Info("scheduler retry", "owner_id", j.OwnerID, "job_id", j.ID, "retry_count", j.RetryCount+1)
	notify.Publish(ctx, s.notifier, j.ID, j.OwnerID, notify.ReasonRetried)
	return true, nil
}

func (s *Scheduler) resolve(ctx context.Context, p *pass, ownerID string) (*owner, error) {
	if o, ok := p.owners[ownerID]; ok {
		return o, nil
	}

	t, err := s.tenants.GetTenant(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if !tz.ValidHour(t.DeliveryHour) {
		return nil, fmt.Errorf("invalid delivery hour %d", t.DeliveryHour)
	}
	loc, err := tz.Load(t.Timezone)
	if err != nil {
		return nil, err
	}

	o := &owner{tenant: t, loc: loc}
	p.owners[ownerID] = o
	return o, nil
}

// snapshot captures every unprocessed input of the owner as a payload.
func (s *Scheduler) snapshot(ctx context.Context, p *pass, o *owner, day string) (datatypes.JSON, error) {
	inputs, err := s.inputs.ListUnprocessed(ctx, o.tenant.ID)
	if err != nil {
		return nil, fmt.Errorf("list unprocessed input: %w", err)
	}
	if len(inputs) == 0 {
		return nil, ErrNoInput
	}

	length := o.tenant.TargetLengthMinutes
	if length <= 0 {
		length = config.DefaultTargetLength
	}

	payload := dto.GenerationPayload{
		OwnerID:             o.tenant.ID,
		SchedulingDay:       day,
		Timezone:            o.tenant.Timezone,
		UserEmail:           o.tenant.Email,
		TargetLengthMinutes: length,
		InputIDs:            make([]string, len(inputs)),
		Inputs:              make([]dto.InputSnapshot, len(inputs)),
		SnapshotAt:          p.now,
	}
	for i, in := range inputs {
		payload.InputIDs[i] = in.ID
		payload.Inputs[i] = dto.InputSnapshot{
			ID:         in.ID,
			Sender:     in.Sender,
			Subject:    in.Subject,
			Body:       in.Body,
			ReceivedAt: in.ReceivedAt.UTC(),
		}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return datatypes.JSON(raw), nil
}
