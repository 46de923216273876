package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	s3blob "github.com/alanyoungcy/feedconv/internal/blob/s3"
	"github.com/alanyoungcy/feedconv/internal/cache/redis"
	"github.com/alanyoungcy/feedconv/internal/config"
	"github.com/alanyoungcy/feedconv/internal/domain"
	"github.com/alanyoungcy/feedconv/internal/server/handler"
	"github.com/alanyoungcy/feedconv/internal/store/postgres"
)

// Dependencies bundles the backing services the modes need. Optional
// backends are nil when disabled in configuration.
type Dependencies struct {
	// Feeds is the catalog conversions route over, chosen by feeds.source.
	Feeds domain.FeedSource

	FeedStore       domain.FeedStore
	ConversionStore domain.ConversionStore

	RateLimiter domain.RateLimiter
	SignalBus   domain.SignalBus

	BlobReader domain.BlobReader
	BlobWriter domain.BlobWriter

	// Health holds a probe per connected backend.
	Health map[string]handler.Pinger
}

// Wire constructs the enabled backends and returns them together with a
// cleanup function that releases them in reverse order.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{Health: map[string]handler.Pinger{}}

	// --- PostgreSQL ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.FeedStore = postgres.NewFeedStore(pool)
		deps.ConversionStore = postgres.NewConversionStore(pool)
		deps.Health["postgres"] = handler.PingFunc(pool.Ping)
	}

	// --- Redis ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient)
		deps.Health["redis"] = redisClient
	}

	// --- S3 blob storage ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}

		deps.BlobReader = s3blob.NewReader(s3Client)
		deps.BlobWriter = s3blob.NewWriter(s3Client)
		deps.Health["s3"] = handler.PingFunc(s3Client.Health)
	}

	feeds, err := selectFeedSource(ctx, cfg, deps, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	deps.Feeds = feeds

	return deps, cleanup, nil
}

// selectFeedSource picks the catalog named by feeds.source. With the
// postgres source, inline [[feeds.feed]] entries are upserted first so a
// fresh database starts with the configured catalog.
func selectFeedSource(ctx context.Context, cfg *config.Config, deps *Dependencies, logger *slog.Logger) (domain.FeedSource, error) {
	inline, err := cfg.FeedList()
	if err != nil {
		return nil, fmt.Errorf("wire: feeds: %w", err)
	}

	switch source := strings.ToLower(cfg.Feeds.Source); source {
	case "", "config":
		return domain.StaticFeeds(inline), nil

	case "postgres":
		if deps.FeedStore == nil {
			return nil, fmt.Errorf("wire: feeds: source postgres requires postgres.enabled")
		}
		for _, f := range inline {
			if err := deps.FeedStore.Upsert(ctx, f); err != nil {
				return nil, fmt.Errorf("wire: seed feeds: %w", err)
			}
		}
		if len(inline) > 0 {
			logger.InfoContext(ctx, "seeded feed catalog", slog.Int("feeds", len(inline)))
		}
		return deps.FeedStore, nil

	case "s3":
		if deps.BlobReader == nil {
			return nil, fmt.Errorf("wire: feeds: source s3 requires s3.enabled")
		}
		return s3blob.NewFeedSource(deps.BlobReader, cfg.Feeds.S3Key), nil

	default:
		return nil, fmt.Errorf("wire: feeds: unknown source %q", source)
	}
}
