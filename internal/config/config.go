// Package config defines service configuration and its layered loader.
package config

import (
	"fmt"
	"time"
	_ "time/tzdata" // calendar_timezone must resolve on hosts without zoneinfo
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Dedupe backends.
const (
	DedupeMemory = "memory"
	DedupeRedis  = "redis"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is "text" or "json".
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	DatabaseDriver string `koanf:"database_driver"`
	DatabaseDSN    string `koanf:"database_dsn"`

	// WebhookSecret, when set, makes X-Hub-Signature-256 mandatory.
	WebhookSecret string `koanf:"webhook_secret"`
	// AllowedRepos lists "owner/repo" names that earn XP. Empty allows all.
	AllowedRepos []string `koanf:"allowed_repos"`

	JWTSecret string `koanf:"jwt_secret"`
	JWTIssuer string `koanf:"jwt_issuer"`

	// CalendarTimezone is the IANA zone used to bucket contributions into days.
	CalendarTimezone   string `koanf:"calendar_timezone"`
	CalendarWindowDays int    `koanf:"calendar_window_days"`

	LeaderboardLimit      int `koanf:"leaderboard_limit"`
	ContributionsPageSize int `koanf:"contributions_page_size"`
	MessagesPageSize      int `koanf:"messages_page_size"`
	MaxMessageLength      int `koanf:"max_message_length"`

	ChatRatePerSecond float64 `koanf:"chat_rate_per_second"`
	ChatBurst         int     `koanf:"chat_burst"`

	DedupeBackend  string `koanf:"dedupe_backend"`
	DedupeSize     int    `koanf:"dedupe_size"`
	DedupeTTLHours int    `koanf:"dedupe_ttl_hours"`
	RedisURL       string `koanf:"redis_url"`
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		LogFormat:             "text",
		Addr:                  ":9080",
		DatabaseDriver:        DriverSQLite,
		DatabaseDSN:           "file:commitquest.db",
		JWTIssuer:             "commitquest",
		CalendarTimezone:      "UTC",
		CalendarWindowDays:    365,
		LeaderboardLimit:      20,
		ContributionsPageSize: 50,
		MessagesPageSize:      50,
		MaxMessageLength:      1000,
		ChatRatePerSecond:     1,
		ChatBurst:             5,
		DedupeBackend:         DedupeMemory,
		DedupeSize:            50_000,
		DedupeTTLHours:        72,
	}
}

// Location resolves CalendarTimezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.CalendarTimezone)
	if err != nil {
		return nil, fmt.Errorf("%w: calendar_timezone %q: %v", ErrInvalidConfig, c.CalendarTimezone, err)
	}
	return loc, nil
}

// DedupeTTL returns the dedupe retention as a duration.
func (c *Config) DedupeTTL() time.Duration {
	return time.Duration(c.DedupeTTLHours) * time.Hour
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.DatabaseDriver != DriverSQLite && c.DatabaseDriver != DriverPostgres:
		return fmt.Errorf("%w: unknown database_driver %q", ErrInvalidConfig, c.DatabaseDriver)
	case c.DatabaseDSN == "":
		return fmt.Errorf("%w: database_dsn must not be empty", ErrInvalidConfig)
	case c.JWTSecret == "":
		return fmt.Errorf("%w: jwt_secret must not be empty", ErrInvalidConfig)
	case c.CalendarWindowDays <= 0:
		return fmt.Errorf("%w: calendar_window_days must be positive", ErrInvalidConfig)
	case c.LeaderboardLimit <= 0, c.ContributionsPageSize <= 0, c.MessagesPageSize <= 0, c.MaxMessageLength <= 0:
		return fmt.Errorf("%w: page sizes and limits must be positive", ErrInvalidConfig)
	case c.ChatRatePerSecond <= 0 || c.ChatBurst <= 0:
		return fmt.Errorf("%w: chat rate and burst must be positive", ErrInvalidConfig)
	case c.DedupeTTLHours <= 0:
		return fmt.Errorf("%w: dedupe_ttl_hours must be positive", ErrInvalidConfig)
	}
	switch c.DedupeBackend {
	case DedupeMemory:
	case DedupeRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("%w: redis_url is required for the redis dedupe backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown dedupe_backend %q", ErrInvalidConfig, c.DedupeBackend)
	}
	_, err := c.Location()
	return err
}
