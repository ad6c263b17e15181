// Package main implements the remote MCP server with its OAuth consent front end
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/WilliamSuiself/remote-mcp-local/internal/mcpserver"
	"github.com/WilliamSuiself/remote-mcp-local/internal/metrics"
	"github.com/WilliamSuiself/remote-mcp-local/internal/oauth"
	"github.com/WilliamSuiself/remote-mcp-local/internal/tools"
)

// Version is set by the build process
var Version = "dev"

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	level, _ := cfg.logLevel()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	provider, err := oauth.NewProvider(store, cfg.BaseURL, []byte(cfg.TokenSecret),
		oauth.WithCodeExpiry(cfg.CodeExpiry),
		oauth.WithTokenExpiry(cfg.TokenExpiry),
		oauth.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("creating provider: %w", err)
	}

	news, err := tools.NewNewsClient(tools.Config{APIKey: cfg.NewsAPIKey, BaseURL: cfg.NewsAPIURL, Logger: logger})
	if err != nil {
		return fmt.Errorf("creating news client: %w", err)
	}
	zones, err := tools.NewTimezoneClient(tools.Config{APIKey: cfg.TimezoneAPIKey, BaseURL: cfg.TimezoneAPIURL, Logger: logger})
	if err != nil {
		return fmt.Errorf("creating timezone client: %w", err)
	}

	m := metrics.New()
	mcpServer := mcpserver.New(mcpserver.Config{
		News:     news,
		Zones:    zones,
		Recorder: m,
		Logger:   logger,
	})

	srv, err := newServer(cfg, provider, mcpServer, m, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           srv.router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", "port", cfg.Port, "base_url", cfg.BaseURL, "version", Version)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("starting shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			_ = httpServer.Close()
			return fmt.Errorf("shutting down server: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// openStore connects to Redis when configured and falls back to process memory
func openStore(ctx context.Context, cfg Config, logger *slog.Logger) (oauth.Store, func(), error) {
	if cfg.RedisURL == "" {
		logger.Warn("REDIS_URL not set, grants and clients are kept in memory")
		return oauth.NewMemoryStore(), func() {}, nil
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing redis url: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		_ = redisClient.Close()
		return nil, nil, fmt.Errorf("connecting to redis: %w", err)
	}

	closeFn := func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("closing redis connection", "error", err)
		}
	}
	return oauth.NewRedisStore(redisClient), closeFn, nil
}
