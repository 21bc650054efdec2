package pool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/joshu-sajeev/dailygist/internal/worker"
)

// Reconciler returns jobs stuck in processing for longer than timeout to the
// queue.
type Reconciler interface {
	Reconcile(ctx context.Context, timeout time.Duration) (int, error)
}

type WorkerPool struct {
	workers        []*worker.Worker
	reconciler     Reconciler
	reconcileEvery time.Duration
	staleTimeout   time.Duration
	wg             sync.WaitGroup
	ctx            context.Context
	cancel         context.CancelFunc
}

// NewWorkerPool builds count workers named baseID-1 through baseID-count
// sharing one queue and generator.
func NewWorkerPool(count int, baseID string, q worker.Queue, g worker.Generator, opts worker.Options) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())
	p := &WorkerPool{ctx: ctx, cancel: cancel}

	for i := 1; i <= count; i++ {
		p.workers = append(p.workers, worker.NewWorker(fmt.Sprintf("%s-%d", baseID, i), q, g, opts))
	}
	return p
}

// WithJanitor makes the pool reset stale jobs every interval. A zero
// interval leaves recovery to an external reconcile call.
func (p *WorkerPool) WithJanitor(r Reconciler, every, staleTimeout time.Duration) *WorkerPool {
	p.reconciler = r
	p.reconcileEvery = every
	p.staleTimeout = staleTimeout
	return p
}

func (p *WorkerPool) Size() int { return len(p.workers) }

func (p *WorkerPool) Start() {
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *worker.Worker) {
			defer p.wg.Done()
			w.Run(p.ctx)
		}(w)
	}

	if p.reconciler != nil && p.reconcileEvery > 0 {
		p.wg.Add(1)
		go p.janitor()
	}
}

func (p *WorkerPool) janitor() {
	defer p.wg.Done()
	ticker := time.NewTicker(p.reconcileEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			n, err := p.reconciler.Reconcile(p.ctx, p.staleTimeout)
			if err != nil {
				slog.Warn("janitor reconcile failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("janitor recovered stale jobs", "count", n)
			}
		case <-p.ctx.Done():
			return
		}
	}
}

// Stop cancels every worker and waits for in-flight jobs to return.
func (p *WorkerPool) Stop() {
	p.cancel()
	p.wg.Wait()
}
