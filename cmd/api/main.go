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

	"github.com/joshu-sajeev/dailygist/internal/config"
	"github.com/joshu-sajeev/dailygist/internal/job"
	"github.com/joshu-sajeev/dailygist/internal/notify"
	"github.com/joshu-sajeev/dailygist/internal/scheduler"
	"github.com/joshu-sajeev/dailygist/internal/server"
	"github.com/joshu-sajeev/dailygist/internal/storage/postgres"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := run(); err != nil {
		slog.Error("api exited", "error", err)
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
	dbCfg, err := postgres.LoadConfigFromEnv(ctx)
	if err != nil {
		return err
	}

	db, err := postgres.ConnectDB(ctx, dbCfg)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := postgres.Migrate(ctx, sqlDB); err != nil {
		return err
	}

	var notifier notify.Notifier = notify.Noop{}
	if cfg.NatsURL != "" {
		nn, err := notify.ConnectNATS(cfg.NatsURL, cfg.NatsSubject)
		if err != nil {
			// wake events are best effort; workers still poll
			slog.Warn("nats unavailable, wake events disabled", "error", err)
		} else {
			defer nn.Close()
			notifier = nn
		}
	}

	jobs := postgres.NewJobRepository(db)
	svc := job.NewJobService(jobs, notifier)
	sched := scheduler.New(jobs,
		postgres.NewTenantRepository(db),
		postgres.NewInputRepository(db),
		notifier,
		scheduler.WithMaxRetries(cfg.MaxRetryAttempts),
	)

	router := server.NewRouter(server.Deps{
		Jobs:       job.NewJobHandler(svc, cfg.StaleTimeout()),
		Scheduler:  scheduler.NewHandler(sched),
		CronSecret: cfg.CronSecret,
		Health:     sqlDB.PingContext,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("api listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down api")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
