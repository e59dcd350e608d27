// Package config loads application configuration from an optional YAML file
// with environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/rapscallion45/tradernet/internal/loginflow"
)

// Config is the shared configuration for the CLI and tradernetd.
type Config struct {
	// BaseURL is where the auth collaborators live.
	BaseURL string        `yaml:"base_url" env:"TRADERNET_BASE_URL"`
	Timeout time.Duration `yaml:"timeout" env:"TRADERNET_TIMEOUT"`

	// NotificationsPath is the bbolt file backing the notification drawer.
	NotificationsPath string `yaml:"notifications_path" env:"TRADERNET_NOTIFICATIONS_PATH"`

	// TrustCachedIdentity enables the unvalidated cached-identity fast
	// path. Off by default; only for non-sensitive contexts.
	TrustCachedIdentity bool   `yaml:"trust_cached_identity" env:"TRADERNET_TRUST_CACHED_IDENTITY"`
	IdentityCachePath   string `yaml:"identity_cache_path" env:"TRADERNET_IDENTITY_CACHE_PATH"`

	LogLevel string `yaml:"log_level" env:"TRADERNET_LOG_LEVEL"`
	LogJSON  bool   `yaml:"log_json" env:"TRADERNET_LOG_JSON"`

	Janitor JanitorConfig `yaml:"janitor"`
	Server  ServerConfig  `yaml:"server"`
}

// JanitorConfig schedules the notification retention sweep.
type JanitorConfig struct {
	Schedule string        `yaml:"schedule" env:"TRADERNET_JANITOR_SCHEDULE"`
	MaxAge   time.Duration `yaml:"max_age" env:"TRADERNET_JANITOR_MAX_AGE"`
}

// ServerConfig configures tradernetd.
type ServerConfig struct {
	Addr       string        `yaml:"addr" env:"TRADERNETD_ADDR"`
	SigningKey string        `yaml:"signing_key" env:"TRADERNETD_SIGNING_KEY"`
	SessionTTL time.Duration `yaml:"session_ttl" env:"TRADERNETD_SESSION_TTL"`
	// DatabaseURL selects the Postgres user store; empty runs in memory.
	DatabaseURL string `yaml:"database_url" env:"TRADERNETD_DATABASE_URL"`
	// RedisAddr selects the redis token store; empty runs in memory.
	RedisAddr string `yaml:"redis_addr" env:"TRADERNETD_REDIS_ADDR"`

	// AllowedOrigins enables CORS for the dashboard dev origin.
	AllowedOrigins []string `yaml:"allowed_origins" env:"TRADERNETD_ALLOWED_ORIGINS"`
	// LoginRatePerSecond throttles credential endpoints per client IP;
	// zero disables throttling.
	LoginRatePerSecond float64 `yaml:"login_rate_per_second" env:"TRADERNETD_LOGIN_RATE"`
	LoginBurst         int     `yaml:"login_burst" env:"TRADERNETD_LOGIN_BURST"`

	Password loginflow.PasswordSettings `yaml:"password"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		BaseURL:           "http://localhost:8480",
		Timeout:           30 * time.Second,
		NotificationsPath: "tradernet-notifications.db",
		IdentityCachePath: "tradernet-identity.json",
		LogLevel:          "info",
		Janitor: JanitorConfig{
			Schedule: "@hourly",
		},
		Server: ServerConfig{
			Addr:       ":8480",
			SessionTTL: 24 * time.Hour,
			Password:   loginflow.DefaultPasswordSettings(),
		},
	}
}

// Load reads the YAML file at path (a missing file yields defaults) and then
// applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		payload, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// fall through to defaults
		case err != nil:
			return Config{}, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(payload, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.BaseURL == "" {
		return Config{}, fmt.Errorf("base_url is required")
	}
	return cfg, nil
}
