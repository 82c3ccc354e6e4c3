// Package main is the entrypoint for the Disaster Watch Lambda function.
//
// The function is triggered by an EventBridge schedule. Each invocation reads
// the recent USGS feed once, matches it against every subscribed user's home
// location and queues push notifications for alerts the user has not been
// sent before.
//
// This file handles dependency wiring (Cold Start) and delegates all business
// logic to the internal/watcher package.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jonboulle/clockwork"

	"weatheralert/internal/cache"
	"weatheralert/internal/config"
	"weatheralert/internal/db"
	"weatheralert/internal/engine"
	"weatheralert/internal/external"
	"weatheralert/internal/notifications"
	"weatheralert/internal/observability"
	"weatheralert/internal/types"
	"weatheralert/internal/watcher"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	if err := run(logger); err != nil {
		logger.Error("disaster watch failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	logger.Info("Disaster Watch Lambda initializing (cold start)")

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	ctx := context.Background()
	w, cleanup, err := newWatcher(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	// Local mode: read an optional event from stdin instead of starting the
	// Lambda runtime.
	// Usage: echo '{"source":"aws.events"}' | go run ./cmd/disaster-watch
	if cfg.Environment == "local" {
		logger.Info("APP_ENV=local: running a single pass")
		return runLocal(ctx, w.Handler, os.Stdin, os.Stdout)
	}

	lambda.Start(w.Handler)
	return nil
}

// newWatcher wires the watcher against Postgres, SQS, CloudWatch and the
// USGS feed. The feed goes through Redis when REDIS_URL is set so the API and
// the watch share one cached copy.
func newWatcher(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*watcher.Watcher, func(), error) {
	if cfg.AWS.AlertQueueURL == "" {
		return nil, nil, errors.New("SQS_ALERTS is required for the disaster watch")
	}

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to database: %w", err)
	}
	closers = append(closers, pool.Close)

	clock := clockwork.NewRealClock()
	adapter := &slogAdapter{logger: logger}

	var feed watcher.Feed = external.NewUSGSClient(cfg.Disasters, cfg.Weather.UserAgent, clock, logger)
	if cfg.Cache.RedisURL.IsSet() {
		rdb, err := cache.NewRedisClient(ctx, cfg.Cache)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connecting to redis: %w", err)
		}
		closers = append(closers, func() { _ = rdb.Close() })
		feed = cache.New(rdb, nil, feed, cfg.Cache, nil, logger)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("loading AWS config: %w", err)
	}
	sqsClient := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if cfg.AWS.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
		}
	})
	cwClient := cloudwatch.NewFromConfig(awsCfg, func(o *cloudwatch.Options) {
		if cfg.AWS.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
		}
	})

	prefs := db.NewPreferencesRepository(pool)

	w := &watcher.Watcher{
		Config: watcher.Config{
			Concurrency:   watcher.DefaultConcurrency,
			MaxDistanceKm: cfg.Engine.DefaultMaxDistanceKm,
		},
		Feed:        feed,
		Subscribers: prefs,
		Engine:      engine.New(cfg.EngineSettings(), logger, clock),
		History:     db.NewAlertHistoryRepository(pool),
		Publisher:   notifications.NewAlertPublisher(sqsClient, cfg.AWS.AlertQueueURL, clock, adapter),
		Metrics:     observability.NewCloudWatchAlertMetrics(cwClient, cfg.Observability.MetricNamespace, adapter),
		Clock:       clock,
		Logger:      adapter,
	}

	logger.Info("Disaster Watch Lambda initialized",
		"alert_queue", cfg.AWS.AlertQueueURL,
		"metric_namespace", cfg.Observability.MetricNamespace,
		"feeds", len(cfg.Disasters.FeedURLs),
		"cached_feed", cfg.Cache.RedisURL.IsSet(),
	)
	return w, cleanup, nil
}

// runLocal invokes handler once with whatever is on in (possibly nothing) and
// writes the run summary to out as JSON.
func runLocal(ctx context.Context, handler func(context.Context, json.RawMessage) (watcher.Summary, error), in io.Reader, out io.Writer) error {
	payload, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}

	summary, err := handler(ctx, json.RawMessage(payload))
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}

// slogAdapter wraps *slog.Logger to implement types.Logger.
type slogAdapter struct {
	logger *slog.Logger
}

func (a *slogAdapter) Info(msg string, args ...any)  { a.logger.Info(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.logger.Error(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.logger.Warn(msg, args...) }
func (a *slogAdapter) With(args ...any) types.Logger {
	return &slogAdapter{logger: a.logger.With(args...)}
}

var (
	_ watcher.Feed             = (*external.USGSClient)(nil)
	_ watcher.Feed             = (*cache.Cache)(nil)
	_ watcher.SubscriberSource = (*db.PreferencesRepository)(nil)
	_ watcher.Evaluator        = (*engine.Engine)(nil)
	_ watcher.HistoryRecorder  = (*db.AlertHistoryRepository)(nil)
	_ watcher.Publisher        = (*notifications.AlertPublisher)(nil)
	_ watcher.MetricsRecorder  = (*observability.CloudWatchAlertMetrics)(nil)
)
