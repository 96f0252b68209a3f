package configs_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i2y/reportbridge/configs"
)

const sampleYAML = `
api_base_url: http://pos.local:8080/api
document_url: http://pos.local:8080/api/v3/api-docs
document_headers:
  Authorization: Bearer abc
operations:
  invoices.get:
    operation_id: listInvoices
  sales.pdf:
    operation_id: ""
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reportbridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_FromFile(t *testing.T) {
	t.Setenv("REPORTBRIDGE_CONFIG_FILE", writeConfig(t, sampleYAML))

	cfg, err := configs.Load()
	require.NoError(t, err)

	assert.Equal(t, "http://pos.local:8080/api", cfg.APIBaseURL)
	assert.Equal(t, "http://pos.local:8080/api/v3/api-docs", cfg.DocumentURL)
	assert.Equal(t, map[string]string{"Authorization": "Bearer abc"}, cfg.DocumentHeaders)
	assert.Equal(t, map[string]string{"invoices.get": "listInvoices"}, cfg.Operations)

	// Defaults
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, ":8081", cfg.AdminAddr)
	assert.Equal(t, 30*time.Second, cfg.HTTPClientTimeout)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	assert.True(t, cfg.OtelExporterOtlpInsecure)
	assert.Equal(t, slog.LevelInfo, cfg.ParsedLogLevel())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("REPORTBRIDGE_CONFIG_FILE", writeConfig(t, sampleYAML))
	t.Setenv("REPORTBRIDGE_API_BASE_URL", "https://pos.example.com")
	t.Setenv("REPORTBRIDGE_OPERATIONS", "sales.get:listSales")
	t.Setenv("REPORTBRIDGE_HTTP_CLIENT_TIMEOUT", "3s")
	t.Setenv("REPORTBRIDGE_LOG_LEVEL", "DEBUG")

	cfg, err := configs.Load()
	require.NoError(t, err)

	assert.Equal(t, "https://pos.example.com", cfg.APIBaseURL)
	assert.Equal(t, "http://pos.local:8080/api/v3/api-docs", cfg.DocumentURL)
	assert.Equal(t, map[string]string{"sales.get": "listSales"}, cfg.Operations)
	assert.Equal(t, 3*time.Second, cfg.HTTPClientTimeout)
	assert.Equal(t, slog.LevelDebug, cfg.ParsedLogLevel())
}

func TestLoad_EnvOnly(t *testing.T) {
	t.Setenv("REPORTBRIDGE_CONFIG_FILE", "")
	t.Setenv("REPORTBRIDGE_API_BASE_URL", "http://localhost:9000")

	cfg, err := configs.Load()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000", cfg.APIBaseURL)
	assert.Empty(t, cfg.DocumentURL)
	assert.Empty(t, cfg.Operations)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing base URL",
			env:     map[string]string{},
			wantErr: "APIBaseURL",
		},
		{
			name:    "base URL not a URL",
			env:     map[string]string{"REPORTBRIDGE_API_BASE_URL": "pos-server"},
			wantErr: "APIBaseURL",
		},
		{
			name:    "unknown log level",
			env:     map[string]string{"REPORTBRIDGE_API_BASE_URL": "http://pos", "REPORTBRIDGE_LOG_LEVEL": "verbose"},
			wantErr: "LogLevel",
		},
		{
			name:    "malformed duration",
			env:     map[string]string{"REPORTBRIDGE_API_BASE_URL": "http://pos", "REPORTBRIDGE_SHUTDOWN_TIMEOUT": "soon"},
			wantErr: "SHUTDOWN_TIMEOUT",
		},
		{
			name:    "missing config file",
			env:     map[string]string{"REPORTBRIDGE_CONFIG_FILE": "/nonexistent/reportbridge.yaml"},
			wantErr: "failed to read config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("REPORTBRIDGE_CONFIG_FILE", "")
			t.Setenv("REPORTBRIDGE_API_BASE_URL", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := configs.Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParsedLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARNING": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"trace":   slog.LevelInfo,
	}
	for in, want := range tests {
		cfg := configs.Config{LogLevel: in}
		assert.Equal(t, want, cfg.ParsedLogLevel(), in)
	}
}
