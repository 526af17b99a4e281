package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestLoad_Valid(t *testing.T) {
	t.Setenv("DATABASE_URL", "/var/lib/partscope/parts.db")

	cfg, err := Load(Overrides{})
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/partscope/parts.db", cfg.DatabaseURL)
	assert.Equal(t, 100, cfg.MaxRows)
	assert.Equal(t, 1000, cfg.ReportRowLimit)
	assert.Equal(t, 10*time.Second, cfg.QueryTimeout)
	assert.Equal(t, "stdio", cfg.Transport)
	assert.Equal(t, "gpt-3.5-turbo", cfg.NL2SQLModel)
	assert.False(t, cfg.NL2SQLEnabled())
	assert.Equal(t, BackendSQLite, cfg.Backend())
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := Load(Overrides{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoad_EnvVars(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/parts")
	t.Setenv("MAX_ROWS", "500")
	t.Setenv("REPORT_ROW_LIMIT", "250")
	t.Setenv("QUERY_TIMEOUT", "30s")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SCHEMAS", "public, app")
	t.Setenv("POLICY_FILE", "/tmp/policy.yaml")
	t.Setenv("CORS_ORIGINS", "http://localhost:5173, https://dash.example.com")
	t.Setenv("NL2SQL_ENDPOINT", "http://localhost:11434/v1/chat/completions")
	t.Setenv("NL2SQL_API_KEY", "sk-test")
	t.Setenv("NL2SQL_MODEL", "qwen2.5-coder")
	t.Setenv("NL2SQL_TIMEOUT", "1m")

	cfg, err := Load(Overrides{})
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.MaxRows)
	assert.Equal(t, 250, cfg.ReportRowLimit)
	assert.Equal(t, 30*time.Second, cfg.QueryTimeout)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, []string{"public", "app"}, cfg.Schemas)
	assert.Equal(t, "/tmp/policy.yaml", cfg.PolicyFile)
	assert.Equal(t, []string{"http://localhost:5173", "https://dash.example.com"}, cfg.CORSOrigins)
	assert.True(t, cfg.NL2SQLEnabled())
	assert.Equal(t, "sk-test", cfg.NL2SQLAPIKey)
	assert.Equal(t, "qwen2.5-coder", cfg.NL2SQLModel)
	assert.Equal(t, time.Minute, cfg.NL2SQLTimeout)
	assert.Equal(t, BackendPostgres, cfg.Backend())
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "/env/parts.db")
	t.Setenv("MAX_ROWS", "500")
	t.Setenv("NL2SQL_MODEL", "env-model")

	cfg, err := Load(Overrides{
		DatabaseURL:    ptr("/flag/parts.db"),
		MaxRows:        ptr(20),
		ReportRowLimit: ptr(50),
		LogLevel:       ptr("warn"),
		NL2SQLEndpoint: ptr("http://translator/v1/chat/completions"),
		NL2SQLModel:    ptr("flag-model"),
		AuditLog:       "/tmp/audit.ndjson",
		OTelEnabled:    true,
	})
	require.NoError(t, err)

	assert.Equal(t, "/flag/parts.db", cfg.DatabaseURL)
	assert.Equal(t, 20, cfg.MaxRows)
	assert.Equal(t, 50, cfg.ReportRowLimit)
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel)
	assert.Equal(t, "flag-model", cfg.NL2SQLModel)
	assert.True(t, cfg.NL2SQLEnabled())
	assert.Equal(t, "/tmp/audit.ndjson", cfg.AuditLog)
	assert.True(t, cfg.OTelEnabled)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"max rows", map[string]string{"MAX_ROWS": "-1"}, "MAX_ROWS"},
		{"report row limit", map[string]string{"REPORT_ROW_LIMIT": "zero"}, "REPORT_ROW_LIMIT"},
		{"query timeout", map[string]string{"QUERY_TIMEOUT": "not-a-duration"}, "QUERY_TIMEOUT"},
		{"log level", map[string]string{"LOG_LEVEL": "invalid"}, "LOG_LEVEL"},
		{"otel", map[string]string{"OTEL_ENABLED": "maybe"}, "OTEL_ENABLED"},
		{"nl2sql timeout", map[string]string{"NL2SQL_TIMEOUT": "-5s"}, "NL2SQL_TIMEOUT"},
		{"pool max", map[string]string{"POOL_MAX_CONNS": "0"}, "POOL_MAX_CONNS"},
		{"pool min above max", map[string]string{"POOL_MIN_CONNS": "9", "POOL_MAX_CONNS": "2"}, "POOL_MIN_CONNS"},
		{"transport", map[string]string{"TRANSPORT": "grpc"}, "TRANSPORT"},
		{"http without token", map[string]string{"TRANSPORT": "http"}, "HTTP_BEARER_TOKEN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "parts.db")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load(Overrides{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_InvalidOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "parts.db")

	_, err := Load(Overrides{MaxRows: ptr(0)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--max-rows")

	_, err = Load(Overrides{ReportRowLimit: ptr(-3)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--report-row-limit")
}

func TestConfig_Backend(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url  string
		want Backend
	}{
		{"parts.db", BackendSQLite},
		{"/data/parts_database.db", BackendSQLite},
		{"file:parts.db?cache=shared", BackendSQLite},
		{"postgres://user:pw@localhost:5432/parts", BackendPostgres},
		{"postgresql://localhost/parts", BackendPostgres},
		{"POSTGRES://LOCALHOST/parts", BackendPostgres},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			t.Parallel()
			cfg := &Config{DatabaseURL: tt.url}
			assert.Equal(t, tt.want, cfg.Backend())
		})
	}
}
