package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joshu-sajeev/dailygist/internal/client"
	"github.com/joshu-sajeev/dailygist/internal/config"
	"github.com/joshu-sajeev/dailygist/internal/generator"
	"github.com/joshu-sajeev/dailygist/internal/job"
	"github.com/joshu-sajeev/dailygist/internal/notify"
	"github.com/joshu-sajeev/dailygist/internal/pool"
	"github.com/joshu-sajeev/dailygist/internal/storage/postgres"
	"github.com/joshu-sajeev/dailygist/internal/worker"
)

// queue is what the pool needs from its backend, whether the api or the
// database directly.
type queue interface {
	worker.Queue
	pool.Reconciler
}

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := run(); err != nil {
		slog.Error("worker exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadAppConfig(ctx)
	if err != nil {
		return err
	}
	if cfg.GeneratorURL == "" {
		return errors.New("GENERATOR_URL is required")
	}

	var wake notify.Subscriber
	var notifier notify.Notifier = notify.Noop{}
	if cfg.NatsURL != "" {
		nn, err := notify.ConnectNATS(cfg.NatsURL, cfg.NatsSubject)
		if err != nil {
			slog.Warn("nats unavailable, polling only", "error", err)
		} else {
			defer nn.Close()
			wake = nn
			notifier = nn
		}
	}

	q, cleanup, err := openQueue(ctx, cfg, notifier)
	if err != nil {
		return err
	}
	defer cleanup()

	gen := generator.NewHTTPGenerator(cfg.GeneratorURL, cfg.GeneratorAPIKey, cfg.ArtifactDir, &http.Client{
		Timeout: cfg.GenerationTimeout + time.Minute,
	})

	p := pool.NewWorkerPool(cfg.MaxWorkers, cfg.WorkerID, q, gen, worker.Options{
		MinDelay:          cfg.PollMinDelay,
		MaxDelay:          cfg.PollMaxDelay,
		GenerationTimeout: cfg.GenerationTimeout,
		Wake:              wake,
	}).WithJanitor(q, cfg.ReconcileEvery, cfg.StaleTimeout())

	p.Start()
	slog.Info("worker pool active", "workers", p.Size(), "base_id", cfg.WorkerID)

	<-ctx.Done()
	slog.Info("stopping worker pool")
	p.Stop()
	slog.Info("shutdown complete")
	return nil
}

// openQueue talks to the api when API_URL is set and to the database
// otherwise.
func openQueue(ctx context.Context, cfg *config.AppConfig, notifier notify.Notifier) (queue, func(), error) {
	if cfg.APIURL != "" {
		slog.Info("using api queue", "url", cfg.APIURL)
		return client.New(cfg.APIURL, cfg.CronSecret, &http.Client{Timeout: 30 * time.Second}), func() {}, nil
	}

	dbCfg, err := postgres.LoadConfigFromEnv(ctx)
	if err != nil {
		return nil, nil, err
	}
	db, err := postgres.ConnectDB(ctx, dbCfg)
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}

	return job.NewJobService(postgres.NewJobRepository(db), notifier), func() { _ = sqlDB.Close() }, nil
}
