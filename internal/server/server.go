// Package server exposes the conversion API over HTTP and WebSocket.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/feedconv/internal/domain"
	"github.com/alanyoungcy/feedconv/internal/metrics"
	"github.com/alanyoungcy/feedconv/internal/server/handler"
	"github.com/alanyoungcy/feedconv/internal/server/middleware"
	"github.com/alanyoungcy/feedconv/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled

	// RateLimit caps POST /api/convert per client IP per RateWindow. It is
	// applied only when a limiter is supplied.
	RateLimit  int
	RateWindow time.Duration
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health      *handler.HealthHandler
	Status      *handler.StatusHandler
	Catalog     *handler.CatalogHandler
	Conversions *handler.ConversionHandler

	// Metrics, when set, serves GET /metrics and counts every request.
	Metrics *metrics.Metrics
}

// Server is the HTTP + WebSocket API server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer registers routes and builds the middleware chain. limiter and
// wsHub may be nil.
func NewServer(cfg Config, handlers Handlers, limiter domain.RateLimiter, wsHub *ws.Hub, logger *slog.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      NewHandler(cfg, handlers, limiter, wsHub, logger),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}
}

// NewHandler returns the routed and wrapped http.Handler.
func NewHandler(cfg Config, handlers Handlers, limiter domain.RateLimiter, wsHub *ws.Hub, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)
	mux.HandleFunc("GET /api/status", handlers.Status.GetStatus)

	mux.HandleFunc("GET /api/assets", handlers.Catalog.ListAssets)
	mux.HandleFunc("GET /api/feeds", handlers.Catalog.ListFeeds)
	if handlers.Catalog.Editable() {
		mux.HandleFunc("PUT /api/feeds/{id}", handlers.Catalog.PutFeed)
		mux.HandleFunc("DELETE /api/feeds/{id}", handlers.Catalog.DeleteFeed)
	}

	var convert http.Handler = http.HandlerFunc(handlers.Conversions.Convert)
	if limiter != nil && cfg.RateLimit > 0 {
		convert = middleware.RateLimit(limiter, "convert", cfg.RateLimit, cfg.RateWindow, logger)(convert)
	}
	mux.Handle("POST /api/convert", convert)
	mux.HandleFunc("GET /api/conversions", handlers.Conversions.ListConversions)
	mux.HandleFunc("GET /api/conversions/{id}", handlers.Conversions.GetConversion)

	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	if handlers.Metrics != nil {
		mux.Handle("GET /metrics", handlers.Metrics.Handler())
	}

	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey, "/api/health", "/metrics")(h)
	if handlers.Metrics != nil {
		h = handlers.Metrics.Middleware(h)
	}
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)
	return h
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
