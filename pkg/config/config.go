package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for kaiten-billing.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, tokens) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// Kaiten API client configuration
	Kaiten KaitenConfig `yaml:"kaiten"`

	// Rate scaffold synchronization
	Sync SyncConfig `yaml:"sync"`

	// Report formatting and fetching
	Report ReportConfig `yaml:"report"`

	// Per-client throttling of the sync and report endpoints
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"billing"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"kaiten_billing"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"10"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// KaitenConfig holds the remote API settings.
type KaitenConfig struct {
	// Domain is the tenant sub-domain: https://{domain}.kaiten.ru
	Domain string `yaml:"domain" env:"KAITEN_DOMAIN"`
	// BaseURL overrides the URL derived from Domain (used by tests and proxies).
	BaseURL string `yaml:"base_url" env:"KAITEN_BASE_URL" env-default:""`
	Token   string `yaml:"-" env:"KAITEN_TOKEN"` // Secret - not in YAML

	// Billing custom property used to select billable cards.
	BillingFieldID    string `yaml:"billing_field_id" env:"KAITEN_BILLING_FIELD_ID"`
	BillingFieldValue string `yaml:"billing_field_value" env:"KAITEN_BILLING_FIELD_VALUE"`

	MinInterval   time.Duration `yaml:"min_interval" env:"KAITEN_MIN_INTERVAL" env-default:"350ms"`
	MaxRetries    int           `yaml:"max_retries" env:"KAITEN_MAX_RETRIES" env-default:"6"`
	BackoffBase   time.Duration `yaml:"backoff_base" env:"KAITEN_BACKOFF_BASE" env-default:"1200ms"`
	BackoffCap    time.Duration `yaml:"backoff_cap" env:"KAITEN_BACKOFF_CAP" env-default:"16s"`
	Timeout       time.Duration `yaml:"timeout" env:"KAITEN_TIMEOUT" env-default:"60s"`
	LookupTimeout time.Duration `yaml:"lookup_timeout" env:"KAITEN_LOOKUP_TIMEOUT" env-default:"10s"`

	// Debug enables full request/response logging.
	Debug bool `yaml:"debug" env:"KAITEN_DEBUG" env-default:"false"`
	// ShowSecrets disables header masking in debug logs.
	ShowSecrets bool `yaml:"show_secrets" env:"KAITEN_LOG_SHOW_SECRETS" env-default:"false"`
}

// SyncConfig controls the rate scaffold reconciliation.
type SyncConfig struct {
	// StaleAfter is how long a record absent from the remote system is kept.
	StaleAfter time.Duration `yaml:"stale_after" env:"SYNC_STALE_AFTER" env-default:"168h"`
	// TouchInterval is the minimum age of last_sync before an unchanged record is refreshed.
	TouchInterval time.Duration `yaml:"touch_interval" env:"SYNC_TOUCH_INTERVAL" env-default:"1h"`
	// Schedule is a cron expression (with seconds) for background sync. Empty disables it.
	Schedule string        `yaml:"schedule" env:"SYNC_SCHEDULE" env-default:"0 0 */6 * * *"`
	Timeout  time.Duration `yaml:"timeout" env:"SYNC_TIMEOUT" env-default:"30m"`
}

// ReportConfig holds presentation settings for the report dataset.
type ReportConfig struct {
	Currency          string `yaml:"currency" env:"REPORT_CURRENCY" env-default:"₽"`
	HoursUnit         string `yaml:"hours_unit" env:"REPORT_HOURS_UNIT" env-default:"ч"`
	UnknownSpecialist string `yaml:"unknown_specialist" env:"REPORT_UNKNOWN_SPECIALIST" env-default:"Неизвестно"`
	ZeroRateLabel     string `yaml:"zero_rate_label" env:"REPORT_ZERO_RATE_LABEL" env-default:"Сотрудник (нулевая ставка)"`
	Timezone          string `yaml:"timezone" env:"REPORT_TIMEZONE" env-default:"Europe/Moscow"`
	FetchConcurrency  int    `yaml:"fetch_concurrency" env:"REPORT_FETCH_CONCURRENCY" env-default:"4"`
}

// RateLimitConfig bounds how often one client may trigger expensive work.
type RateLimitConfig struct {
	PerMinute float64 `yaml:"per_minute" env:"RATE_LIMIT_PER_MINUTE" env-default:"6"`
	Burst     int     `yaml:"burst" env:"RATE_LIMIT_BURST" env-default:"3"`
}

// Load reads configuration from the given YAML file with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
// An empty path reads environment variables and defaults only.
func Load(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if path != "" {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	cfg.Kaiten.Domain = strings.TrimSpace(cfg.Kaiten.Domain)
	cfg.Kaiten.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.Kaiten.BaseURL), "/")

	return cfg, nil
}

// Validate checks the settings required to talk to Kaiten.
func (c *Config) Validate() error {
	if c.Kaiten.Domain == "" && c.Kaiten.BaseURL == "" {
		return fmt.Errorf("kaiten.domain or kaiten.base_url must be set")
	}
	if c.Kaiten.Token == "" {
		return fmt.Errorf("KAITEN_TOKEN must be set")
	}
	if c.Kaiten.MaxRetries < 0 {
		return fmt.Errorf("kaiten.max_retries must not be negative")
	}
	if c.Kaiten.MinInterval < 0 {
		return fmt.Errorf("kaiten.min_interval must not be negative")
	}
	return nil
}

// ConnectionString returns a PostgreSQL connection URL.
func (c *DatabaseConfig) ConnectionString() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Database,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

// APIBaseURL returns the Kaiten API root, e.g. https://acme.kaiten.ru/api/latest.
func (k *KaitenConfig) APIBaseURL() string {
	if k.BaseURL != "" {
		return k.BaseURL
	}
	return fmt.Sprintf("https://%s.kaiten.ru/api/latest", k.Domain)
}

// BillingFilterConfigured reports whether both billing filter settings are present.
func (k *KaitenConfig) BillingFilterConfigured() bool {
	return k.BillingFieldID != "" && k.BillingFieldValue != ""
}
