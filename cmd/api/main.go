// Package main is the entry point for the weather alert API server.
//
// It loads configuration, connects Postgres and (optionally) Redis and SQS,
// builds the weather and disaster clients behind the read-through cache, and
// mounts the /v1 handlers on the core chassis. Graceful shutdown is handled
// via OS signal interception (SIGINT, SIGTERM).
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

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"

	"weatheralert/internal/api/handlers"
	"weatheralert/internal/cache"
	"weatheralert/internal/config"
	"weatheralert/internal/core"
	"weatheralert/internal/db"
	"weatheralert/internal/engine"
	"weatheralert/internal/external"
	"weatheralert/internal/notifications"
	"weatheralert/internal/observability"
	"weatheralert/internal/types"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("weather alert API starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
	)

	ctx := context.Background()

	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	if err := wire(ctx, cfg, logger, srv); err != nil {
		// Release whatever was opened before the failure.
		_ = srv.Shutdown(ctx)
		return err
	}

	srv.MountRoutes()
	return runHTTPServer(srv, cfg, logger)
}

// wire connects the backing services and registers handlers, probes and
// closers on srv.
func wire(ctx context.Context, cfg *config.Config, logger *slog.Logger, srv *core.Server) error {
	clock := clockwork.NewRealClock()

	var metrics *observability.Metrics
	if cfg.Observability.EnableMetrics {
		metrics = observability.NewMetrics()
		srv.Metrics = metrics
		srv.MetricsHandler = metrics.Handler()
	}

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	srv.Closers = append(srv.Closers, func(context.Context) error {
		pool.Close()
		return nil
	})
	srv.HealthProbes = append(srv.HealthProbes, db.NewHealthProbe(pool))

	var store cache.Store
	if cfg.Cache.RedisURL.IsSet() {
		rdb, err := cache.NewRedisClient(ctx, cfg.Cache)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		store = rdb
		srv.Closers = append(srv.Closers, func(context.Context) error { return rdb.Close() })
		srv.HealthProbes = append(srv.HealthProbes, cache.NewHealthProbe(rdb))
	} else {
		logger.Warn("REDIS_URL not set; weather lookups are not cached")
	}

	weatherClient := external.NewOpenWeatherClient(cfg.Weather)
	feedClient := external.NewUSGSClient(cfg.Disasters, cfg.Weather.UserAgent, clock, logger)

	var observer cache.Observer
	if metrics != nil {
		observer = metrics
	}
	weatherCache := cache.New(store, weatherClient, feedClient, cfg.Cache, observer, logger)

	publisher, err := newPublisher(ctx, cfg, clock, logger)
	if err != nil {
		return err
	}

	eng := engine.New(cfg.EngineSettings(), logger, clock)
	history := db.NewAlertHistoryRepository(pool)
	prefs := db.NewPreferencesRepository(pool)

	var recorder handlers.CheckRecorder
	if metrics != nil {
		recorder = metrics
	}

	deps := handlers.AlertHandlerDeps{
		Engine:      eng,
		Weather:     weatherCache,
		Feed:        weatherCache,
		History:     history,
		Preferences: prefs,
		Metrics:     recorder,
		Clock:       clock,
	}
	if publisher != nil {
		deps.Publisher = publisher
	}

	alertHandler := handlers.NewAlertHandler(deps, srv.Validator, logger)
	prefsHandler := handlers.NewPreferencesHandler(prefs, srv.Validator, logger)
	weatherHandler := handlers.NewWeatherHandler(weatherCache, recorder, logger)
	disasterHandler := handlers.NewDisasterHandler(eng, weatherCache, recorder, logger)

	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars, func(r chi.Router) {
		r.Route("/alerts", alertHandler.RegisterRoutes)
		r.Route("/preferences", prefsHandler.RegisterRoutes)
		r.Route("/weather", weatherHandler.RegisterRoutes)
		r.Route("/disasters", disasterHandler.RegisterRoutes)
	})
	return nil
}

// newPublisher returns nil when no alert queue is configured.
func newPublisher(ctx context.Context, cfg *config.Config, clock types.Clock, logger *slog.Logger) (*notifications.AlertPublisher, error) {
	if cfg.AWS.AlertQueueURL == "" {
		logger.Warn("SQS_ALERTS not set; alert notifications are disabled")
		return nil, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	client := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if cfg.AWS.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
		}
	})
	return notifications.NewAlertPublisher(client, cfg.AWS.AlertQueueURL, clock, &slogAdapter{logger: logger}), nil
}

// runHTTPServer starts the server in standard HTTP mode with graceful shutdown.
func runHTTPServer(srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)

	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg))
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

func shutdownTimeout(cfg *config.Config) time.Duration {
	if cfg.Server.ShutdownTimeout > 0 {
		return cfg.Server.ShutdownTimeout
	}
	return 10 * time.Second
}

// newLogger creates a structured slog.Logger configured for the given log level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

// slogAdapter wraps *slog.Logger to implement types.Logger, whose With
// returns the interface rather than *slog.Logger.
type slogAdapter struct {
	logger *slog.Logger
}

func (a *slogAdapter) Info(msg string, args ...any)  { a.logger.Info(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.logger.Error(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.logger.Warn(msg, args...) }
func (a *slogAdapter) With(args ...any) types.Logger {
	return &slogAdapter{logger: a.logger.With(args...)}
}

// Compile-time checks that the concrete collaborators satisfy the handler
// contracts.
var (
	_ handlers.AlertEngine      = (*engine.Engine)(nil)
	_ handlers.WeatherProvider  = (*cache.Cache)(nil)
	_ handlers.DisasterFeed     = (*cache.Cache)(nil)
	_ handlers.HistoryStore     = (*db.AlertHistoryRepository)(nil)
	_ handlers.PreferencesStore = (*db.PreferencesRepository)(nil)
	_ handlers.AlertPublisher   = (*notifications.AlertPublisher)(nil)
	_ handlers.CheckRecorder    = (*observability.Metrics)(nil)
	_ cache.WeatherSource       = (*external.OpenWeatherClient)(nil)
	_ cache.FeedSource          = (*external.USGSClient)(nil)
	_ cache.Observer            = (*observability.Metrics)(nil)
	_ core.MetricsCollector     = (*observability.Metrics)(nil)
	_ types.Logger              = (*slogAdapter)(nil)
)
