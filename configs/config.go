package configs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/i2y/reportbridge/internal/adapter/outbound/github"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "REPORTBRIDGE"

// OperationOverride pins a logical operation key to an explicit operationId.
type OperationOverride struct {
	OperationID string `yaml:"operation_id"`
}

// FileConfig defines the structure loaded from the YAML configuration file.
type FileConfig struct {
	APIBaseURL      string                       `yaml:"api_base_url"`
	DocumentURL     string                       `yaml:"document_url"`
	DocumentHeaders map[string]string            `yaml:"document_headers"`
	Operations      map[string]OperationOverride `yaml:"operations"`
}

// Config holds the final application configuration, merged from file and environment variables.
// Fields are loaded from environment variables with the prefix "REPORTBRIDGE_", overriding file settings.
type Config struct {
	// Config File Path (Loaded first from env)
	ConfigFilePath string `envconfig:"CONFIG_FILE"`

	// Backend
	APIBaseURL      string            `envconfig:"API_BASE_URL" validate:"required,url"`
	DocumentURL     string            `envconfig:"DOCUMENT_URL"`
	DocumentHeaders map[string]string `envconfig:"DOCUMENT_HEADERS"`
	// Operations maps logical keys to operationIds (env form: "invoices.get:listInvoices,...").
	Operations map[string]string `envconfig:"OPERATIONS"`

	// Environment-overridable fields
	ListenAddr               string        `envconfig:"LISTEN_ADDR" default:":8080" validate:"required"`
	AdminAddr                string        `envconfig:"ADMIN_ADDR" default:":8081" validate:"required"`
	HTTPClientTimeout        time.Duration `envconfig:"HTTP_CLIENT_TIMEOUT" default:"30s" validate:"gt=0"`
	ShutdownTimeout          time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s" validate:"gt=0"`
	OtelExporterOtlpEndpoint string        `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OtelExporterOtlpInsecure bool          `envconfig:"OTEL_EXPORTER_OTLP_INSECURE" default:"true"`
	LogLevel                 string        `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn warning error"`
}

// ParsedLogLevel returns the slog.Level based on the configured LogLevel string.
func (c *Config) ParsedLogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "info":
		fallthrough
	default:
		return slog.LevelInfo
	}
}

// Validate checks the merged configuration.
func (c *Config) Validate() error {
	c.LogLevel = strings.ToLower(c.LogLevel)
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s fails %q (value %v)", fe.Field(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Option overrides a configuration value after file and environment are merged.
type Option func(*Config)

// WithAPIBaseURL overrides the API base URL when url is not empty.
func WithAPIBaseURL(url string) Option {
	return func(c *Config) {
		if url != "" {
			c.APIBaseURL = url
		}
	}
}

// WithDocumentURL overrides the API document location when url is not empty.
func WithDocumentURL(url string) Option {
	return func(c *Config) {
		if url != "" {
			c.DocumentURL = url
		}
	}
}

// Load loads configuration first from environment variables (to get file path),
// then from the specified YAML file, and finally merges/overrides with environment variables again.
// Options are applied last, before validation.
func Load(opts ...Option) (*Config, error) {
	// 1. Load initial config from Env (primarily to get ConfigFilePath)
	var initialCfg Config
	if err := envconfig.Process(EnvPrefix, &initialCfg); err != nil {
		return nil, fmt.Errorf("failed to process initial environment variables: %w", err)
	}

	// 2. Load config from YAML file if path is specified
	fileCfg := FileConfig{}
	if initialCfg.ConfigFilePath != "" {
		raw, err := readConfigFile(initialCfg.ConfigFilePath)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file '%s': %w", initialCfg.ConfigFilePath, err)
		}
	} else {
		slog.Info("No config file path specified (REPORTBRIDGE_CONFIG_FILE), using defaults/env vars only.")
	}

	// 3. Create final config, starting with file values, then process Env vars again for overrides.
	finalCfg := initialCfg
	finalCfg.APIBaseURL = fileCfg.APIBaseURL
	finalCfg.DocumentURL = fileCfg.DocumentURL
	finalCfg.DocumentHeaders = fileCfg.DocumentHeaders
	finalCfg.Operations = make(map[string]string, len(fileCfg.Operations))
	for key, override := range fileCfg.Operations {
		if override.OperationID == "" {
			slog.Warn("Ignoring operation override without operation_id", "key", key)
			continue
		}
		finalCfg.Operations[key] = override.OperationID
	}

	if err := envconfig.Process(EnvPrefix, &finalCfg); err != nil {
		return nil, fmt.Errorf("failed to process overriding environment variables: %w", err)
	}
	for _, opt := range opts {
		opt(&finalCfg)
	}

	if err := finalCfg.Validate(); err != nil {
		return nil, err
	}
	return &finalCfg, nil
}

func readConfigFile(path string) ([]byte, error) {
	if github.IsGitHubURL(path) {
		raw, err := github.LoadFile(context.Background(), path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from GitHub '%s': %w", path, err)
		}
		slog.Info("Loaded configuration from GitHub.", "url", path)
		return raw, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}
	slog.Info("Loaded configuration from file.", "path", path)
	return raw, nil
}
