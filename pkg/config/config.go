package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/platinummonkey/backwindow/pkg/observability"
)

// Registry backend types
const (
	RegistryPostgres = "postgres"
	RegistrySQLite   = "sqlite"
	RegistryStatic   = "static"
	RegistryEnv      = "env"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Salesforce    SalesforceConfig
	Google        GoogleConfig
	Session       SessionConfig
	Registry      RegistryConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string

	// SecureCookies marks session cookies Secure; enable behind TLS
	SecureCookies bool
}

// SalesforceConfig holds the broker's own Connected App used for the
// Salesforce login flow (not the per-org DevHub apps).
type SalesforceConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	LoginURL     string
	SandboxURL   string
	APIVersion   string
}

// GoogleConfig holds the Google Sign-In client
type GoogleConfig struct {
	ClientID string
}

// SessionConfig holds session store configuration. An empty RedisURL
// selects the in-memory store (single-node only).
type SessionConfig struct {
	RedisURL string
	TTL      time.Duration
}

// RegistryConfig selects and configures the org registry backend
type RegistryConfig struct {
	Type        string
	PostgresURL string
	SQLitePath  string
	StaticFile  string

	// Single-org env mode (Type == "env")
	DevHubOrgID            string
	DevHubClientID         string
	DevHubPrivateKeyBase64 string
	AllowedEmails          string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel observability.LogLevel

	MetricsEnabled bool

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("BACKWINDOW_HOST", "0.0.0.0"),
			Port:            getEnv("BACKWINDOW_PORT", "3000"),
			ReadTimeout:     getEnvDuration("BACKWINDOW_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("BACKWINDOW_WRITE_TIMEOUT", 60*time.Second),
			IdleTimeout:     getEnvDuration("BACKWINDOW_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("BACKWINDOW_SHUTDOWN_TIMEOUT", 30*time.Second),
			HealthPort:      getEnv("BACKWINDOW_HEALTH_PORT", "9090"),
			SecureCookies:   getEnvBool("BACKWINDOW_SECURE_COOKIES", false),
		},
		Salesforce: SalesforceConfig{
			ClientID:     getEnv("BACKWINDOW_SF_CLIENT_ID", ""),
			ClientSecret: getEnv("BACKWINDOW_SF_CLIENT_SECRET", ""),
			RedirectURL:  getEnv("BACKWINDOW_SF_REDIRECT_URI", ""),
			LoginURL:     getEnv("BACKWINDOW_SF_LOGIN_URL", "https://login.salesforce.com"),
			SandboxURL:   getEnv("BACKWINDOW_SF_SANDBOX_LOGIN_URL", "https://test.salesforce.com"),
			APIVersion:   getEnv("BACKWINDOW_SF_API_VERSION", "v59.0"),
		},
		Google: GoogleConfig{
			ClientID: getEnv("BACKWINDOW_GL_CLIENT_ID", ""),
		},
		Session: SessionConfig{
			RedisURL: getEnv("BACKWINDOW_REDIS_URL", ""),
			TTL:      getEnvDuration("BACKWINDOW_SESSION_TTL", 24*time.Hour),
		},
		Registry: RegistryConfig{
			Type:                   getEnv("BACKWINDOW_REGISTRY_TYPE", RegistryEnv),
			PostgresURL:            getEnv("BACKWINDOW_POSTGRES_URL", ""),
			SQLitePath:             getEnv("BACKWINDOW_SQLITE_PATH", ""),
			StaticFile:             getEnv("BACKWINDOW_REGISTRY_FILE", ""),
			DevHubOrgID:            getEnv("BACKWINDOW_DEVHUB_ORG_ID", ""),
			DevHubClientID:         getEnv("BACKWINDOW_DEVHUB_CLIENT_ID", ""),
			DevHubPrivateKeyBase64: getEnv("BACKWINDOW_DEVHUB_PRIVATE_KEY_BASE64", ""),
			AllowedEmails:          getEnv("BACKWINDOW_ALLOWED_EMAILS", ""),
		},
		Observability: ObservabilityConfig{
			LogLevel:           observability.ParseLogLevel(getEnv("BACKWINDOW_LOG_LEVEL", "info")),
			MetricsEnabled:     getEnvBool("BACKWINDOW_METRICS_ENABLED", true),
			OTelEnabled:        getEnvBool("BACKWINDOW_OTEL_ENABLED", false),
			OTelEndpoint:       getEnv("BACKWINDOW_OTEL_ENDPOINT", "localhost:4317"),
			OTelServiceName:    getEnv("BACKWINDOW_OTEL_SERVICE_NAME", "backwindow"),
			OTelServiceVersion: getEnv("BACKWINDOW_OTEL_SERVICE_VERSION", "dev"),
			OTelInsecure:       getEnvBool("BACKWINDOW_OTEL_INSECURE", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks required settings
func (c *Config) Validate() error {
	if c.Salesforce.ClientID == "" {
		return fmt.Errorf("BACKWINDOW_SF_CLIENT_ID is required")
	}
	if c.Salesforce.ClientSecret == "" {
		return fmt.Errorf("BACKWINDOW_SF_CLIENT_SECRET is required")
	}
	if c.Salesforce.RedirectURL == "" {
		return fmt.Errorf("BACKWINDOW_SF_REDIRECT_URI is required")
	}
	if c.Google.ClientID == "" {
		return fmt.Errorf("BACKWINDOW_GL_CLIENT_ID is required")
	}

	switch c.Registry.Type {
	case RegistryPostgres:
		if c.Registry.PostgresURL == "" {
			return fmt.Errorf("BACKWINDOW_POSTGRES_URL is required for the postgres registry")
		}
	case RegistrySQLite:
		if c.Registry.SQLitePath == "" {
			return fmt.Errorf("BACKWINDOW_SQLITE_PATH is required for the sqlite registry")
		}
	case RegistryStatic:
		if c.Registry.StaticFile == "" {
			return fmt.Errorf("BACKWINDOW_REGISTRY_FILE is required for the static registry")
		}
	case RegistryEnv:
		if c.Registry.DevHubOrgID == "" {
			return fmt.Errorf("BACKWINDOW_DEVHUB_ORG_ID is required for the env registry")
		}
	default:
		return fmt.Errorf("unknown registry type: %s", c.Registry.Type)
	}

	return nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration gets a duration environment variable with a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
