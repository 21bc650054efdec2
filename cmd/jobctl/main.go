package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joshu-sajeev/dailygist/internal/client"
	"github.com/joshu-sajeev/dailygist/internal/config"
	"github.com/joshu-sajeev/dailygist/internal/job"
	"github.com/joshu-sajeev/dailygist/internal/notify"
	"github.com/joshu-sajeev/dailygist/internal/scheduler"
	"github.com/joshu-sajeev/dailygist/internal/storage/postgres"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	apiURL  string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:           "jobctl",
	Short:         "Operate the daily generation job queue",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", os.Getenv("API_URL"), "talk to a running api instead of the database")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd)
	jobCmd.AddCommand(jobGetCmd, jobListCmd)
	reconcileCmd.Flags().Duration("timeout", 0, "stale window (default STALE_TIMEOUT_MINUTES)")
	cronCmd.Flags().Duration("run-timeout", 5*time.Minute, "deadline for each scheduled run")

	rootCmd.AddCommand(migrateCmd, scheduleCmd, reconcileCmd, cronCmd, jobCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// backend holds whatever a command needs to reach the queue. Exactly one of
// db or api is set.
type backend struct {
	cfg      *config.AppConfig
	db       *gorm.DB
	sqlDB    *sql.DB
	api      *client.Client
	notifier notify.Notifier
	nats     *notify.NATSNotifier
}

func openBackend(ctx context.Context, needDB bool) (*backend, error) {
	cfg, err := config.LoadAppConfig(ctx)
	if err != nil {
		return nil, err
	}
	b := &backend{cfg: cfg, notifier: notify.Noop{}}

	if apiURL != "" && !needDB {
		b.api = client.New(apiURL, cfg.CronSecret, &http.Client{Timeout: time.Minute})
		return b, nil
	}

	dbCfg, err := postgres.LoadConfigFromEnv(ctx)
	if err != nil {
		return nil, err
	}
	b.db, err = postgres.ConnectDB(ctx, dbCfg)
	if err != nil {
		return nil, err
	}
	b.sqlDB, err = b.db.DB()
	if err != nil {
		return nil, err
	}

	if cfg.NatsURL != "" {
		nn, err := notify.ConnectNATS(cfg.NatsURL, cfg.NatsSubject)
		if err != nil {
			slog.Warn("nats unavailable, wake events disabled", "error", err)
		} else {
			b.nats = nn
			b.notifier = nn
		}
	}
	return b, nil
}

func (b *backend) Close() {
	if b.nats != nil {
		b.nats.Close()
	}
	if b.sqlDB != nil {
		_ = b.sqlDB.Close()
	}
}

func (b *backend) jobService() *job.JobService {
	return job.NewJobService(postgres.NewJobRepository(b.db), b.notifier)
}

func (b *backend) scheduler() *scheduler.Scheduler {
	return scheduler.New(postgres.NewJobRepository(b.db),
		postgres.NewTenantRepository(b.db),
		postgres.NewInputRepository(b.db),
		b.notifier,
		scheduler.WithMaxRetries(b.cfg.MaxRetryAttempts),
	)
}

// runner and reconciler pick the api client when one is configured.
func (b *backend) runner() scheduler.Runner {
	if b.api != nil {
		return b.api
	}
	return b.scheduler()
}

func (b *backend) reconciler() scheduler.Reconciler {
	if b.api != nil {
		return b.api
	}
	return b.jobService()
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
