package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/joshu-sajeev/dailygist/internal/scheduler"
	"github.com/joshu-sajeev/dailygist/internal/storage/postgres"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(ctx context.Context, b *backend) error {
			if err := postgres.Migrate(ctx, b.sqlDB); err != nil {
				return err
			}
			v, err := postgres.SchemaVersion(ctx, b.sqlDB)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", v)
			return nil
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(ctx context.Context, b *backend) error {
			return postgres.MigrateDown(ctx, b.sqlDB)
		})
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied and pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(ctx context.Context, b *backend) error {
			return postgres.MigrationStatus(ctx, b.sqlDB)
		})
	},
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run one scheduler pass now",
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := openBackend(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer b.Close()

		resp, err := b.runner().Run(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd, resp)
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Return stale processing jobs to the queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := openBackend(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer b.Close()

		timeout, err := cmd.Flags().GetDuration("timeout")
		if err != nil {
			return err
		}
		if timeout <= 0 {
			timeout = b.cfg.StaleTimeout()
		}

		n, err := b.reconciler().Reconcile(cmd.Context(), timeout)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "reset %d stale job(s)\n", n)
		return nil
	},
}

var cronCmd = &cobra.Command{
	Use:   "cron",
	Short: "Run the scheduler and reconciler on SCHEDULE_CRON and RECONCILE_CRON",
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := openBackend(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer b.Close()

		runTimeout, err := cmd.Flags().GetDuration("run-timeout")
		if err != nil {
			return err
		}

		c, err := scheduler.NewCron(b.runner(), b.reconciler(), b.cfg.ScheduleCron, b.cfg.ReconcileCron, b.cfg.StaleTimeout(), runTimeout)
		if err != nil {
			return err
		}
		if c.Entries() == 0 {
			return errors.New("both SCHEDULE_CRON and RECONCILE_CRON are empty")
		}

		c.Start()
		slog.Info("cron started", "schedule", b.cfg.ScheduleCron, "reconcile", b.cfg.ReconcileCron)
		<-cmd.Context().Done()

		slog.Info("stopping cron")
		stopCtx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()
		return c.Stop(stopCtx)
	},
}

var jobCmd = &cobra.Command{
	Use:   "job",
	Short: "Inspect generation jobs",
}

var jobGetCmd = &cobra.Command{
	Use:   "get job-id",
	Short: "Show one job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(ctx context.Context, b *backend) error {
			resp, err := b.jobService().GetJobByID(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		})
	},
}

var jobListCmd = &cobra.Command{
	Use:   "list owner-id",
	Short: "List an owner's recent jobs, newest day first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(ctx context.Context, b *backend) error {
			jobs, err := b.jobService().ListOwnerJobs(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, jobs)
		})
	},
}

func withDB(cmd *cobra.Command, fn func(ctx context.Context, b *backend) error) error {
	b, err := openBackend(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer b.Close()
	return fn(cmd.Context(), b)
}
