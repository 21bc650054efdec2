package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func validConfig() *Config {
	return &Config{
		User:         "user",
		Password:     "pass",
		Host:         "localhost",
		Port:         "5432",
		Database:     "db",
		MaxOpenConns: 50,
		MaxRetries:   10,
		RetryDelay:   2 * time.Second,
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	tests := []struct {
		name          string
		setupEnv      func(context.Context, any) error
		expectError   bool
		errorContains string
		validate      func(*testing.T, *Config)
	}{
		{
			name: "valid configuration with defaults",
			setupEnv: func(ctx context.Context, v any) error {
				cfg := v.(*Config)
				*cfg = *validConfig()
				cfg.ConnectTimeout = 5
				cfg.LogLevelString = "warn"
				return nil
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "user", cfg.User)
				assert.Equal(t, 10, cfg.MaxRetries)
				assert.Equal(t, 2*time.Second, cfg.RetryDelay)
				assert.Equal(t, logger.Warn, cfg.LogLevel)
			},
		},
		{
			name: "env processing error",
			setupEnv: func(ctx context.Context, v any) error {
				return errors.New("env: POSTGRES_PORT must be an int")
			},
			expectError:   true,
			errorContains: "failed to process env config",
		},
		{
			name: "custom values override defaults",
			setupEnv: func(ctx context.Context, v any) error {
				cfg := v.(*Config)
				*cfg = *validConfig()
				cfg.Host = "db.example.com"
				cfg.MaxRetries = 5
				cfg.RetryDelay = 5 * time.Second
				cfg.LogLevelString = "info"
				return nil
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "db.example.com", cfg.Host)
				assert.Equal(t, 5, cfg.MaxRetries)
				assert.Equal(t, 5*time.Second, cfg.RetryDelay)
				assert.Equal(t, logger.Info, cfg.LogLevel)
			},
		},
		{
			name: "validation error after successful env processing",
			setupEnv: func(ctx context.Context, v any) error {
				cfg := v.(*Config)
				*cfg = *validConfig()
				cfg.User = ""
				return nil
			},
			expectError:   true,
			errorContains: "config validation failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			originalEnvProcess := envProcess
			defer func() { envProcess = originalEnvProcess }()

			envProcess = func(ctx context.Context, v any, mus ...envconfig.Mutator) error {
				return tt.setupEnv(ctx, v)
			}

			cfg, err := LoadConfigFromEnv(context.Background())

			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
				return
			}

			require.NoError(t, err)
			if tt.validate != nil {
				tt.validate(t, cfg)
			}
		})
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name          string
		mutate        func(*Config)
		errorContains []string
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
		},
		{
			name:          "empty user",
			mutate:        func(c *Config) { c.User = "" },
			errorContains: []string{"POSTGRES_USER is required"},
		},
		{
			name:          "non numeric port",
			mutate:        func(c *Config) { c.Port = "pg" },
			errorContains: []string{"POSTGRES_PORT must be a valid number"},
		},
		{
			name:          "port out of range",
			mutate:        func(c *Config) { c.Port = "70000" },
			errorContains: []string{"POSTGRES_PORT must be between 1 and 65535"},
		},
		{
			name: "multiple errors are joined",
			mutate: func(c *Config) {
				c.Host = ""
				c.MaxOpenConns = 0
				c.RetryDelay = 0
			},
			errorContains: []string{
				"POSTGRES_HOST is required",
				"DB_MAX_OPEN_CONNS must be at least 1",
				"DB_RETRY_DELAY must be positive",
			},
		},
		{
			name:          "retry delay too large",
			mutate:        func(c *Config) { c.RetryDelay = time.Hour },
			errorContains: []string{"DB_RETRY_DELAY must not exceed 10 minutes"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := validateConfig(cfg)

			if len(tt.errorContains) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, substr := range tt.errorContains {
				assert.Contains(t, err.Error(), substr)
			}
		})
	}
}

func TestSimplifyDBError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"password authentication failed", errors.New("pq: password authentication failed for user"), "invalid database credentials"},
		{"i/o timeout", errors.New("dial tcp: i/o timeout"), "database connection timed out"},
		{"connection refused", errors.New("connect: connection refused"), "cannot reach database server"},
		{"SASL authentication error", errors.New("SASL authentication failed"), "authentication error"},
		{"empty error message", errors.New(""), "database error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, simplifyDBError(tt.err))
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected logger.LogLevel
	}{
		{"warn", logger.Warn},
		{"INFO", logger.Info},
		{"silent", logger.Silent},
		{"error", logger.Error},
		{"bogus", logger.Warn},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLogLevel(tt.input))
		})
	}
}

func TestConfig_DSN(t *testing.T) {
	cfg := &Config{
		User:           "myuser",
		Password:       "mypassword",
		Host:           "db.example.com",
		Port:           "5432",
		Database:       "mydb",
		ConnectTimeout: 5,
	}
	assert.Equal(t,
		"host=db.example.com user=myuser password=mypassword dbname=mydb port=5432 sslmode=disable connect_timeout=5 TimeZone=UTC",
		cfg.DSN())

	cfg.SSLMode = "require"
	assert.Contains(t, cfg.DSN(), "sslmode=require")
}

func TestConnectDB(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	t.Run("context canceled before connection", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		cfg := validConfig()
		cfg.MaxRetries = 3
		cfg.RetryDelay = 100 * time.Millisecond
		cfg.LogLevel = logger.Silent

		_, err := ConnectDB(ctx, cfg)

		assert.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("context timeout during retries", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		cfg := validConfig()
		cfg.Host = "invalid-host-that-does-not-exist"
		cfg.RetryDelay = 100 * time.Millisecond
		cfg.ConnectTimeout = 1
		cfg.LogLevel = logger.Silent

		_, err := ConnectDB(ctx, cfg)

		assert.Error(t, err)
	})
}
