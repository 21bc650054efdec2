package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// AppConfig holds the process-level settings shared by the api, worker and
// jobctl binaries. Database settings live in postgres.Config.
type AppConfig struct {
	APIPort           string        `env:"API_PORT,default=8080"`
	CronSecret        string        `env:"CRON_SECRET"`
	MaxRetryAttempts  int           `env:"MAX_RETRY_ATTEMPTS,default=3"`
	StaleTimeoutMins  int           `env:"STALE_TIMEOUT_MINUTES,default=15"`
	NatsURL           string        `env:"NATS_URL"`
	NatsSubject       string        `env:"NATS_SUBJECT,default=dailygist.jobs.queued"`
	WorkerID          string        `env:"WORKER_ID"`
	MaxWorkers        int           `env:"MAX_WORKERS,default=3"`
	PollMinDelay      time.Duration `env:"POLL_MIN_DELAY,default=1s"`
	PollMaxDelay      time.Duration `env:"POLL_MAX_DELAY,default=60s"`
	ReconcileEvery    time.Duration `env:"RECONCILE_EVERY,default=0s"`
	ScheduleCron      string        `env:"SCHEDULE_CRON,default=*/5 * * * *"`
	ReconcileCron     string        `env:"RECONCILE_CRON,default=*/5 * * * *"`
	GeneratorURL      string        `env:"GENERATOR_URL"`
	GeneratorAPIKey   string        `env:"GENERATOR_API_KEY"`
	GenerationTimeout time.Duration `env:"GENERATION_TIMEOUT,default=12m"`
	ArtifactDir       string        `env:"ARTIFACT_DIR,default=./artifacts"`
	APIURL            string        `env:"API_URL"`
}

var envProcess = envconfig.Process

func LoadAppConfig(ctx context.Context) (*AppConfig, error) {
	var cfg AppConfig
	if err := envProcess(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}

	if err := validateAppConfig(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	if cfg.WorkerID == "" {
		host, _ := os.Hostname()
		if host == "" {
			host = "worker"
		}
		cfg.WorkerID = fmt.Sprintf("%s-%d", host, os.Getpid())
	}
	return &cfg, nil
}

// StaleTimeout is the reconcile window as a duration.
func (c *AppConfig) StaleTimeout() time.Duration {
	return time.Duration(c.StaleTimeoutMins) * time.Minute
}

func validateAppConfig(cfg *AppConfig) error {
	var errors []string

	if cfg.MaxRetryAttempts < 0 {
		errors = append(errors, "MAX_RETRY_ATTEMPTS must be non-negative")
	}
	if cfg.StaleTimeoutMins <= 0 {
		errors = append(errors, "STALE_TIMEOUT_MINUTES must be positive")
	}
	if cfg.MaxWorkers < 1 {
		errors = append(errors, "MAX_WORKERS must be at least 1")
	}
	if cfg.PollMinDelay <= 0 {
		errors = append(errors, "POLL_MIN_DELAY must be positive")
	}
	if cfg.PollMaxDelay < cfg.PollMinDelay {
		errors = append(errors, "POLL_MAX_DELAY must not be below POLL_MIN_DELAY")
	}
	if cfg.ReconcileEvery < 0 {
		errors = append(errors, "RECONCILE_EVERY must be non-negative")
	}
	if cfg.GenerationTimeout <= 0 {
		errors = append(errors, "GENERATION_TIMEOUT must be positive")
	}
	// a worker still generating when its claim goes stale loses the job to
	// another worker
	if cfg.StaleTimeoutMins > 0 && cfg.GenerationTimeout >= cfg.StaleTimeout() {
		errors = append(errors, "GENERATION_TIMEOUT must be shorter than STALE_TIMEOUT_MINUTES")
	}

	if len(errors) > 0 {
		return fmt.Errorf("%s", strings.Join(errors, "; "))
	}
	return nil
}
