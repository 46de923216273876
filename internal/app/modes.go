package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/feedconv/internal/assets"
	s3blob "github.com/alanyoungcy/feedconv/internal/blob/s3"
	"github.com/alanyoungcy/feedconv/internal/chainlink"
	"github.com/alanyoungcy/feedconv/internal/converter"
	"github.com/alanyoungcy/feedconv/internal/domain"
	"github.com/alanyoungcy/feedconv/internal/metrics"
	"github.com/alanyoungcy/feedconv/internal/server"
	"github.com/alanyoungcy/feedconv/internal/server/handler"
	"github.com/alanyoungcy/feedconv/internal/server/middleware"
	"github.com/alanyoungcy/feedconv/internal/server/ws"
	"github.com/alanyoungcy/feedconv/internal/service"
)

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 10 * time.Second

// ServerMode serves the HTTP API until ctx is cancelled. The chain endpoint
// is dialled once and shared by every request.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	oracle, release, err := chainlink.Dial(ctx, a.cfg.Chain.Endpoint)
	if err != nil {
		return fmt.Errorf("server mode: %w", err)
	}
	a.closers = append(a.closers, release)

	var m *metrics.Metrics
	if a.cfg.Server.Metrics {
		m = metrics.New()
		oracle = m.InstrumentOracle(oracle)
	}

	transport, err := converter.TransportFrom(oracle, "")
	if err != nil {
		return fmt.Errorf("server mode: %w", err)
	}
	svc := a.newConversionService(deps, transport)
	if m != nil {
		svc.WithObserver(m)
	}

	var limiter domain.RateLimiter = middleware.NewLocalLimiter()
	if deps.RateLimiter != nil {
		limiter = deps.RateLimiter
	}

	g, ctx := errgroup.WithContext(ctx)

	var hub *ws.Hub
	if deps.SignalBus != nil {
		hub = ws.NewHub(deps.SignalBus, service.ConversionsChannel, a.logger)
		g.Go(func() error {
			return hub.Run(ctx)
		})
	}

	var editor handler.FeedEditor
	if deps.FeedStore != nil && strings.EqualFold(a.cfg.Feeds.Source, "postgres") {
		editor = deps.FeedStore
	}

	handlers := server.Handlers{
		Health: handler.NewHealthHandler(deps.Health, a.logger),
		Status: &handler.StatusHandler{
			Mode:       "server",
			FeedSource: strings.ToLower(a.cfg.Feeds.Source),
			Transport:  "direct",
			Audit:      deps.ConversionStore != nil,
			Events:     deps.SignalBus != nil,
		},
		Catalog:     handler.NewCatalogHandler(svc, editor, a.logger),
		Conversions: handler.NewConversionHandler(svc, a.logger),
		Metrics:     m,
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
	}, handlers, limiter, hub, a.logger)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// ConvertMode converts the amount given as "amount from to" arguments and
// prints the result. The chain endpoint is dialled only when a route has to
// be read, so zero amounts and same-asset conversions work offline.
func (a *App) ConvertMode(ctx context.Context, deps *Dependencies) error {
	if len(a.args) != 3 {
		return fmt.Errorf("convert mode: expected arguments: <amount> <from> <to>, got %d", len(a.args))
	}

	transport, err := converter.TransportFrom(nil, a.cfg.Chain.Endpoint)
	if err != nil {
		return fmt.Errorf("convert mode: %w", err)
	}
	svc := a.newConversionService(deps, transport)
	rec, err := svc.Convert(ctx, service.ConvertInput{
		Amount: a.args[0],
		From:   a.args[1],
		To:     a.args[2],
	})
	if err != nil {
		return fmt.Errorf("convert mode: %w", err)
	}

	_, err = fmt.Fprintln(a.out, rec.Result)
	return err
}

// AssetsMode prints the supported asset codes, one per line.
func (a *App) AssetsMode(ctx context.Context) error {
	for _, code := range assets.List() {
		if _, err := fmt.Fprintln(a.out, code); err != nil {
			return err
		}
	}
	return nil
}

// FeedsPublishMode uploads the feed catalog as a JSON document to the
// configured S3 key. The postgres catalog is published when it is the feed
// source; otherwise the inline [[feeds.feed]] list is.
func (a *App) FeedsPublishMode(ctx context.Context, deps *Dependencies) error {
	if deps.BlobWriter == nil {
		return fmt.Errorf("feeds-publish mode: s3 is not enabled")
	}

	feeds, err := a.cfg.FeedList()
	if err != nil {
		return fmt.Errorf("feeds-publish mode: %w", err)
	}
	if deps.FeedStore != nil && strings.EqualFold(a.cfg.Feeds.Source, "postgres") {
		feeds, err = deps.FeedStore.Feeds(ctx)
		if err != nil {
			return fmt.Errorf("feeds-publish mode: %w", err)
		}
	}

	if deps.BlobReader != nil {
		exists, err := deps.BlobReader.Exists(ctx, a.cfg.Feeds.S3Key)
		if err != nil {
			return fmt.Errorf("feeds-publish mode: %w", err)
		}
		if exists {
			a.logger.InfoContext(ctx, "replacing published feed catalog", slog.String("key", a.cfg.Feeds.S3Key))
		}
	}

	if err := s3blob.PublishFeeds(ctx, deps.BlobWriter, a.cfg.Feeds.S3Key, feeds, time.Now()); err != nil {
		return fmt.Errorf("feeds-publish mode: %w", err)
	}
	a.logger.InfoContext(ctx, "published feed catalog",
		slog.String("key", a.cfg.Feeds.S3Key),
		slog.Int("feeds", len(feeds)),
	)
	_, err = fmt.Fprintf(a.out, "published %d feeds to %s\n", len(feeds), a.cfg.Feeds.S3Key)
	return err
}

func (a *App) newConversionService(deps *Dependencies, transport converter.Transport) *service.ConversionService {
	conv := converter.New(chainlink.Dial, a.logger)
	return service.NewConversionService(
		conv,
		deps.Feeds,
		transport,
		deps.ConversionStore,
		deps.SignalBus,
		a.cfg.Chain.CallTimeout.Duration,
		a.logger,
	)
}
