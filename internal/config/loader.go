package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies FEEDCONV_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load. An empty path skips the
// file and yields defaults plus environment overrides.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known FEEDCONV_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Chain ──
	setStr(&cfg.Chain.Endpoint, "FEEDCONV_CHAIN_ENDPOINT")
	setDuration(&cfg.Chain.CallTimeout, "FEEDCONV_CHAIN_CALL_TIMEOUT")

	// ── Feeds ──
	setStr(&cfg.Feeds.Source, "FEEDCONV_FEEDS_SOURCE")
	setStr(&cfg.Feeds.S3Key, "FEEDCONV_FEEDS_S3_KEY")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "FEEDCONV_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "FEEDCONV_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.Host, "FEEDCONV_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "FEEDCONV_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "FEEDCONV_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "FEEDCONV_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "FEEDCONV_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "FEEDCONV_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "FEEDCONV_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "FEEDCONV_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "FEEDCONV_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "FEEDCONV_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "FEEDCONV_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "FEEDCONV_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "FEEDCONV_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "FEEDCONV_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "FEEDCONV_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "FEEDCONV_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "FEEDCONV_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "FEEDCONV_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "FEEDCONV_S3_REGION")
	setStr(&cfg.S3.Bucket, "FEEDCONV_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "FEEDCONV_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "FEEDCONV_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "FEEDCONV_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "FEEDCONV_S3_FORCE_PATH_STYLE")

	// ── Server ──
	setInt(&cfg.Server.Port, "FEEDCONV_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "FEEDCONV_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "FEEDCONV_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "FEEDCONV_SERVER_RATE_LIMIT")
	setBool(&cfg.Server.Metrics, "FEEDCONV_SERVER_METRICS")
	setDuration(&cfg.Server.RateWindow, "FEEDCONV_SERVER_RATE_WINDOW")

	// ── Top-level ──
	setStr(&cfg.Mode, "FEEDCONV_MODE")
	setStr(&cfg.LogLevel, "FEEDCONV_LOG_LEVEL")
	setStr(&cfg.LogFile, "FEEDCONV_LOG_FILE")
	setInt(&cfg.LogMaxSizeMB, "FEEDCONV_LOG_MAX_SIZE_MB")
	setInt(&cfg.LogMaxAgeDays, "FEEDCONV_LOG_MAX_AGE_DAYS")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
