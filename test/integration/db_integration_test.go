//go:build integration

package integration

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/joshu-sajeev/dailygist/internal/storage/postgres"
	_ "github.com/lib/pq"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	testDB   *sql.DB
	testPort string
)

func TestMain(m *testing.M) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		log.Fatalf("Could not construct pool: %s", err)
	}

	pool.MaxWait = 60 * time.Second

	if err := pool.Client.Ping(); err != nil {
		log.Fatalf("Could not connect to Docker: %s", err)
	}

	pg, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "17-alpine",
		Env: []string{
			"POSTGRES_USER=testuser",
			"POSTGRES_PASSWORD=testpass",
			"POSTGRES_DB=dailygist",
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		log.Fatalf("Could not start postgres container: %s", err)
	}

	testPort = pg.GetPort("5432/tcp")
	dsn := fmt.Sprintf(
		"host=localhost user=testuser password=testpass dbname=dailygist port=%s sslmode=disable TimeZone=UTC",
		testPort,
	)

	if err := pool.Retry(func() error {
		var err error
		testDB, err = sql.Open("postgres", dsn)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := testDB.PingContext(ctx); err != nil {
			testDB.Close()
			return err
		}

		if err := postgres.Migrate(ctx, testDB); err != nil {
			log.Printf("Failed to run migrations: %v", err)
			testDB.Close()
			return err
		}
		return nil
	}); err != nil {
		log.Fatalf("Could not connect to postgres: %s", err)
	}

	os.Setenv("POSTGRES_USER", "testuser")
	os.Setenv("POSTGRES_PASSWORD", "testpass")
	os.Setenv("POSTGRES_DB", "dailygist")
	os.Setenv("POSTGRES_HOST", "localhost")
	os.Setenv("POSTGRES_PORT", testPort)
	os.Setenv("DB_MAX_RETRIES", "3")
	os.Setenv("DB_RETRY_DELAY", "100ms")
	os.Setenv("DB_LOG_LEVEL", "silent")

	code := m.Run()

	if testDB != nil {
		testDB.Close()
	}

	if err := pool.Purge(pg); err != nil {
		log.Fatalf("Could not purge postgres container: %s", err)
	}

	os.Exit(code)
}

func testConfig() *postgres.Config {
	return &postgres.Config{
		User:       "testuser",
		Password:   "testpass",
		Host:       "localhost",
		Port:       testPort,
		Database:   "dailygist",
		MaxRetries: 3,
		RetryDelay: 100 * time.Millisecond,
		LogLevel:   logger.Silent,
	}
}

func TestConnectDB(t *testing.T) {
	tests := []struct {
		name        string
		config      func() *postgres.Config
		wantErr     bool
		errContains string
	}{
		{
			name:   "load from environment",
			config: func() *postgres.Config { return nil },
		},
		{
			name:   "explicit config",
			config: testConfig,
		},
		{
			name: "connection refused",
			config: func() *postgres.Config {
				c := testConfig()
				c.Port = "19999"
				c.MaxRetries = 2
				c.RetryDelay = 5 * time.Millisecond
				c.ConnectTimeout = 1
				return c
			},
			wantErr:     true,
			errContains: "database connection failed after 2 attempts",
		},
		{
			name: "invalid credentials",
			config: func() *postgres.Config {
				c := testConfig()
				c.Password = "wrongpass"
				c.MaxRetries = 2
				c.RetryDelay = 5 * time.Millisecond
				c.ConnectTimeout = 1
				return c
			},
			wantErr:     true,
			errContains: "database connection failed after 2 attempts",
		},
		{
			name: "zero retries fails immediately",
			config: func() *postgres.Config {
				c := testConfig()
				c.MaxRetries = 0
				return c
			},
			wantErr:     true,
			errContains: "database connection failed after 0 attempts",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			db, err := postgres.ConnectDB(ctx, tt.config())

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				assert.Nil(t, db)
				return
			}

			require.NoError(t, err)
			defer closeTestDB(db)

			var dbName string
			require.NoError(t, db.Raw("SELECT current_database()").Scan(&dbName).Error)
			assert.Equal(t, "dailygist", dbName)

			sqlDB, err := db.DB()
			require.NoError(t, err)
			assert.Equal(t, 50, sqlDB.Stats().MaxOpenConnections)
		})
	}
}

func TestMigrations(t *testing.T) {
	ctx := context.Background()

	v, err := postgres.SchemaVersion(ctx, testDB)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	require.NoError(t, postgres.MigrateDown(ctx, testDB))
	v, err = postgres.SchemaVersion(ctx, testDB)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	require.NoError(t, postgres.Migrate(ctx, testDB))
	v, err = postgres.SchemaVersion(ctx, testDB)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
}

// setupTestDB returns a fresh connection over empty tables.
func setupTestDB(tb testing.TB) (*gorm.DB, context.Context) {
	tb.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	tb.Cleanup(cancel)

	db, err := postgres.ConnectDB(ctx, testConfig())
	require.NoError(tb, err)

	for _, table := range []string{"generation_jobs", "raw_inputs", "tenants"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			tb.Logf("Warning: Failed to clean %s: %v", table, err)
		}
	}

	tb.Cleanup(func() {
		closeTestDB(db)
	})

	return db, ctx
}

func closeTestDB(db *gorm.DB) {
	if db == nil {
		return
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}
