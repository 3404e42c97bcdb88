package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadAPIConfig(t *testing.T) {
	tests := []struct {
		name        string
		configFile  string
		expectError bool
		validate    func(*testing.T, *APIConfig)
	}{
		{
			name: "valid config file",
			configFile: `
debug: true
sentry_dsn: "https://sentry.example.com"
server:
  host: 127.0.0.1
  port: 9090
  read_timeout: 15
database:
  host: localhost
  port: 5432
  user: testuser
  password: testpass
  dbname: testdb
  sslmode: require
nats:
  url: "nats://localhost:4222"
  subject_prefix: "test.events"
  max_reconnects: 5
  reconnect_wait: "5s"
  connection_name: "test-connection"
engine:
  platform_account: "treasury"
  admins:
    - root
auth:
  api_keys:
    - key-1
webhook:
  max_concurrency: 4
  request_timeout: "3s"
  endpoints:
    - url: "https://hooks.example.org/a"
      secret: "s3cret"
      event_types: ["token.sold"]
`,
			expectError: false,
			validate: func(t *testing.T, cfg *APIConfig) {
				assert.True(t, cfg.Debug)
				assert.Equal(t, "https://sentry.example.com", cfg.SentryDSN)
				assert.Equal(t, "127.0.0.1", cfg.Server.Host)
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, 15, cfg.Server.ReadTimeout)
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, "require", cfg.Database.SSLMode)
				assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
				assert.Equal(t, "test.events", cfg.NATS.SubjectPrefix)
				assert.Equal(t, 5*time.Second, cfg.NATS.ReconnectWait)
				assert.Equal(t, "treasury", cfg.Engine.PlatformAccount)
				assert.Equal(t, []string{"root"}, cfg.Engine.Admins)
				assert.Equal(t, []string{"key-1"}, cfg.Auth.APIKeys)
				assert.Equal(t, 4, cfg.Webhook.MaxConcurrency)
				require.Len(t, cfg.Webhook.Endpoints, 1)
				assert.Equal(t, "https://hooks.example.org/a", cfg.Webhook.Endpoints[0].URL)
				assert.Equal(t, []string{"token.sold"}, cfg.Webhook.Endpoints[0].EventTypes)
			},
		},
		{
			name: "config with defaults",
			configFile: `
database:
  host: localhost
  user: testuser
  password: testpass
  dbname: testdb
`,
			expectError: false,
			validate: func(t *testing.T, cfg *APIConfig) {
				// Check defaults
				assert.Equal(t, "0.0.0.0", cfg.Server.Host)
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 120, cfg.Server.IdleTimeout)
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, "disable", cfg.Database.SSLMode)
				assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
				assert.Equal(t, "engine.events", cfg.NATS.SubjectPrefix)
				assert.Equal(t, 10, cfg.NATS.MaxReconnects)
				assert.Equal(t, 2*time.Second, cfg.NATS.ReconnectWait)
				assert.Equal(t, "credit-engine-api", cfg.NATS.ConnectionName)
				assert.Equal(t, uint64(3), cfg.NATS.PublishRetries)
				assert.Equal(t, "platform:fees", cfg.Engine.PlatformAccount)
				assert.Equal(t, 8, cfg.Webhook.MaxConcurrency)
				assert.Equal(t, 10*time.Second, cfg.Webhook.RequestTimeout)
			},
		},
		{
			name: "invalid yaml",
			configFile: `
debug: [unclosed
`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfigFile(t, tt.configFile)

			cfg, err := LoadAPIConfig(path, t.TempDir())
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.validate != nil {
				tt.validate(t, cfg)
			}
		})
	}
}

func TestLoadAPIConfigFromEnv(t *testing.T) {
	t.Run("environment variables override the file", func(t *testing.T) {
		path := writeConfigFile(t, `
database:
  host: filehost
  user: fileuser
  password: filepass
  dbname: filedb
`)

		t.Setenv("GREENLINK_DATABASE_HOST", "envhost")
		t.Setenv("GREENLINK_SERVER_PORT", "9999")
		t.Setenv("GREENLINK_NATS_URL", "nats://env:4222")

		cfg, err := LoadAPIConfig(path, t.TempDir())
		require.NoError(t, err)

		assert.Equal(t, "envhost", cfg.Database.Host)
		assert.Equal(t, 9999, cfg.Server.Port)
		assert.Equal(t, "nats://env:4222", cfg.NATS.URL)
		assert.Equal(t, "fileuser", cfg.Database.User)
	})

	t.Run("works without any config file", func(t *testing.T) {
		t.Setenv("GREENLINK_DATABASE_HOST", "envonly")

		cfg, err := LoadAPIConfig("", t.TempDir())
		require.NoError(t, err)

		assert.Equal(t, "envonly", cfg.Database.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
	})
}

func TestDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "engine",
		Password: "secret",
		DBName:   "credits",
		SSLMode:  "disable",
	}
	assert.Equal(t,
		"host=localhost port=5432 user=engine password=secret dbname=credits sslmode=disable",
		cfg.DSN())
}
