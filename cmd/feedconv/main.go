// Command feedconv converts asset amounts through on-chain price feeds. It
// loads configuration, validates it, and runs the selected mode: the HTTP
// API server, a one-shot conversion, the asset list, or feed publishing.
//
// Usage:
//
//	feedconv -config config.toml                        # server
//	feedconv -mode convert -- 1.5 ETH USD               # one conversion
//	feedconv -mode assets
//	feedconv -mode feeds-publish
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/alanyoungcy/feedconv/internal/app"
	"github.com/alanyoungcy/feedconv/internal/config"
	"github.com/alanyoungcy/feedconv/internal/service"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to configuration file (empty to skip)")
	mode := flag.String("mode", "", "override the configured mode: server, convert, assets, feeds-publish")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "feedconv: %v\n", err)
		os.Exit(1)
	}
	if *mode != "" {
		cfg.Mode = *mode
	}

	out, closeLog := logOutput(cfg)
	defer closeLog()

	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		closeLog()
		os.Exit(1)
	}

	logger.Debug("configuration loaded",
		slog.Any("config", config.RedactedConfig(cfg)),
	)

	application := app.New(cfg, logger, app.WithArgs(flag.Args()))
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("shut down")
			return
		}
		logger.Error("feedconv exited with error", slog.String("error", err.Error()))
		fmt.Fprintf(os.Stderr, "feedconv: %v\n", err)
		application.Close()
		closeLog()
		if service.IsClientError(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// loadConfig reads path, treating a missing default file as "use defaults".
func loadConfig(path string) (*config.Config, error) {
	if path == "config.toml" {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			path = ""
		}
	}
	return config.Load(path)
}

// logOutput returns stderr, tee'd into a rotating file when log_file is set.
func logOutput(cfg *config.Config) (io.Writer, func()) {
	if cfg.LogFile == "" {
		return os.Stderr, func() {}
	}
	file := &lumberjack.Logger{
		Filename: cfg.LogFile,
		MaxSize:  cfg.LogMaxSizeMB,
		MaxAge:   cfg.LogMaxAgeDays,
		Compress: true,
	}
	return io.MultiWriter(os.Stderr, file), func() { _ = file.Close() }
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
