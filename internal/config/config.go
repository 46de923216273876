// Package config defines the top-level configuration for feedconv and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/feedconv/internal/domain"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by FEEDCONV_* environment variables.
type Config struct {
	Chain    ChainConfig    `toml:"chain"`
	Feeds    FeedsConfig    `toml:"feeds"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Server   ServerConfig   `toml:"server"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`

	// LogFile, when set, receives a copy of the log stream and is rotated
	// by size and age.
	LogFile       string `toml:"log_file"`
	LogMaxSizeMB  int    `toml:"log_max_size_mb"`
	LogMaxAgeDays int    `toml:"log_max_age_days"`
}

// ChainConfig holds the JSON-RPC endpoint used for oracle reads.
type ChainConfig struct {
	Endpoint    string   `toml:"endpoint"`
	CallTimeout duration `toml:"call_timeout"`
}

// FeedsConfig selects where the feed list comes from.
type FeedsConfig struct {
	// Source is one of "config", "postgres" or "s3".
	Source string       `toml:"source"`
	S3Key  string       `toml:"s3_key"`
	Feed   []FeedConfig `toml:"feed"`
}

// FeedConfig is one inline [[feeds.feed]] entry.
type FeedConfig struct {
	ID       int    `toml:"id"`
	From     string `toml:"from"`
	To       string `toml:"to"`
	Address  string `toml:"address"`
	Decimals uint8  `toml:"decimals"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
	RateLimit   int      `toml:"rate_limit"`
	RateWindow  duration `toml:"rate_window"`

	// Metrics exposes GET /metrics in the Prometheus format.
	Metrics bool `toml:"metrics"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Chain: ChainConfig{
			Endpoint:    "",
			CallTimeout: duration{10 * time.Second},
		},
		Feeds: FeedsConfig{
			Source: "config",
			S3Key:  "feeds/feeds.json",
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "feedconv",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  1,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "feedconv",
			ForcePathStyle: true,
		},
		Server: ServerConfig{
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000"},
			RateLimit:   60,
			RateWindow:  duration{time.Minute},
			Metrics:     true,
		},
		Mode:          "server",
		LogLevel:      "info",
		LogMaxSizeMB:  100,
		LogMaxAgeDays: 7,
	}
}

// FeedList converts the inline feed entries into domain feeds, validating
// each one.
func (c *Config) FeedList() ([]domain.Feed, error) {
	feeds := make([]domain.Feed, 0, len(c.Feeds.Feed))
	for _, fc := range c.Feeds.Feed {
		if !common.IsHexAddress(fc.Address) {
			return nil, fmt.Errorf("config: feed %d: %w: bad address %q", fc.ID, domain.ErrInvalidFeed, fc.Address)
		}
		f := domain.Feed{
			ID:       fc.ID,
			From:     domain.AssetCode(strings.TrimSpace(fc.From)),
			To:       domain.AssetCode(strings.TrimSpace(fc.To)),
			Address:  common.HexToAddress(fc.Address),
			Decimals: fc.Decimals,
		}
		if err := f.Validate(); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		feeds = append(feeds, f)
	}
	return feeds, nil
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"server":        true,
	"convert":       true,
	"assets":        true,
	"feeds-publish": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validFeedSources enumerates the accepted values for FeedsConfig.Source.
var validFeedSources = map[string]bool{
	"config":   true,
	"postgres": true,
	"s3":       true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	mode := strings.ToLower(c.Mode)
	if !validModes[mode] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: server, convert, assets, feeds-publish)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Chain
	if (mode == "server" || mode == "convert") && strings.TrimSpace(c.Chain.Endpoint) == "" {
		errs = append(errs, "chain: endpoint must be set for mode "+mode)
	}
	if c.Chain.CallTimeout.Duration < 0 {
		errs = append(errs, "chain: call_timeout must not be negative")
	}

	// Feeds
	source := strings.ToLower(c.Feeds.Source)
	if !validFeedSources[source] {
		errs = append(errs, fmt.Sprintf("feeds: unknown source %q (valid: config, postgres, s3)", c.Feeds.Source))
	}
	if source == "postgres" && !c.Postgres.Enabled {
		errs = append(errs, "feeds: source postgres requires postgres.enabled")
	}
	if (source == "s3" || mode == "feeds-publish") && !c.S3.Enabled {
		errs = append(errs, "feeds: source s3 and mode feeds-publish require s3.enabled")
	}
	if (source == "s3" || mode == "feeds-publish") && c.Feeds.S3Key == "" {
		errs = append(errs, "feeds: s3_key must not be empty")
	}
	if _, err := c.FeedList(); err != nil {
		errs = append(errs, err.Error())
	}

	// Postgres
	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 || c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must be between 0 and pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty")
		}
	}

	// Server
	if mode == "server" {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimit < 0 {
			errs = append(errs, "server: rate_limit must be >= 0")
		}
		if c.Server.RateLimit > 0 && c.Server.RateWindow.Duration <= 0 {
			errs = append(errs, "server: rate_window must be > 0 when rate_limit is set")
		}
	}

	// Log file
	if c.LogFile != "" {
		if c.LogMaxSizeMB < 1 {
			errs = append(errs, "log_max_size_mb must be >= 1 when log_file is set")
		}
		if c.LogMaxAgeDays < 0 {
			errs = append(errs, "log_max_age_days must be >= 0")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
