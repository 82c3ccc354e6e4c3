// Package watcher implements the scheduled disaster watch. Each run fetches
// the recent disaster feed once, evaluates it against every subscribed user's
// home location, records alerts in the user's history and publishes the ones
// the user has not been sent before.
package watcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"weatheralert/internal/types"
)

// DefaultConcurrency bounds per-user evaluations in flight.
const DefaultConcurrency = 8

// Feed is satisfied by *external.USGSClient and *cache.Cache.
type Feed interface {
	Recent(ctx context.Context) ([]types.DisasterEvent, error)
}

// SubscriberSource is satisfied by *db.PreferencesRepository.
type SubscriberSource interface {
	ListSubscribers(ctx context.Context) ([]types.Subscriber, error)
}

// Evaluator is satisfied by *engine.Engine.
type Evaluator interface {
	Nearby(origin types.Location, rawUserType string, events []types.DisasterEvent, maxDistanceKm float64) ([]types.Alert, error)
}

// HistoryRecorder is satisfied by *db.AlertHistoryRepository. RecordAll
// returns only the alerts that were not already recorded for the user.
type HistoryRecorder interface {
	RecordAll(ctx context.Context, userID string, alerts []types.Alert, recordedAt time.Time) ([]types.Alert, error)
}

// Publisher is satisfied by *notifications.AlertPublisher.
type Publisher interface {
	PublishAll(ctx context.Context, userID string, alerts []types.Alert, origin string) int
}

// MetricsRecorder is satisfied by *observability.CloudWatchAlertMetrics.
type MetricsRecorder interface {
	RecordAlerts(ctx context.Context, alerts []types.Alert)
	RecordRun(ctx context.Context, events, subscribers, publishFailures int)
}

// Config tunes a Watcher.
type Config struct {
	// Concurrency defaults to DefaultConcurrency when not positive.
	Concurrency int
	// MaxDistanceKm of zero uses the engine default.
	MaxDistanceKm float64
}

// Summary describes one run.
type Summary struct {
	Events          int `json:"events"`
	Subscribers     int `json:"subscribers"`
	UsersAlerted    int `json:"users_alerted"`
	AlertsMatched   int `json:"alerts_matched"`
	AlertsNew       int `json:"alerts_new"`
	PublishFailures int `json:"publish_failures"`
	UserErrors      int `json:"user_errors"`
}

// Watcher runs the disaster watch.
type Watcher struct {
	Config      Config
	Feed        Feed
	Subscribers SubscriberSource
	Engine      Evaluator
	History     HistoryRecorder
	Publisher   Publisher
	Metrics     MetricsRecorder // optional
	Clock       types.Clock
	Logger      types.Logger
}

// Run performs one pass. It fails only when the feed or the subscriber list
// cannot be read; per-user failures are logged and counted in the Summary.
func (w *Watcher) Run(ctx context.Context) (Summary, error) {
	var summary Summary

	events, err := w.Feed.Recent(ctx)
	if err != nil {
		return summary, fmt.Errorf("watcher: fetch disaster feed: %w", err)
	}
	summary.Events = len(events)
	if len(events) == 0 {
		w.Logger.Info("no recent disaster events")
		w.recordRun(ctx, summary)
		return summary, nil
	}

	subscribers, err := w.Subscribers.ListSubscribers(ctx)
	if err != nil {
		return summary, fmt.Errorf("watcher: list subscribers: %w", err)
	}
	summary.Subscribers = len(subscribers)

	now := w.Clock.Now().UTC()

	var (
		mu    sync.Mutex
		fresh []types.Alert
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency())
	for _, sub := range subscribers {
		g.Go(func() error {
			res := w.notify(gctx, sub, events, now)

			mu.Lock()
			defer mu.Unlock()
			summary.AlertsMatched += res.matched
			summary.AlertsNew += len(res.fresh)
			summary.PublishFailures += res.publishFailures
			if res.err != nil {
				summary.UserErrors++
			}
			if len(res.fresh) > 0 {
				summary.UsersAlerted++
				fresh = append(fresh, res.fresh...)
			}
			return nil
		})
	}
	_ = g.Wait()

	if w.Metrics != nil && len(fresh) > 0 {
		w.Metrics.RecordAlerts(ctx, fresh)
	}
	w.recordRun(ctx, summary)

	w.Logger.Info("disaster watch complete",
		"events", summary.Events,
		"subscribers", summary.Subscribers,
		"users_alerted", summary.UsersAlerted,
		"alerts_new", summary.AlertsNew,
		"publish_failures", summary.PublishFailures,
		"user_errors", summary.UserErrors,
	)
	return summary, ctx.Err()
}

type userResult struct {
	matched         int
	fresh           []types.Alert
	publishFailures int
	err             error
}

func (w *Watcher) notify(ctx context.Context, sub types.Subscriber, events []types.DisasterEvent, now time.Time) userResult {
	if err := ctx.Err(); err != nil {
		return userResult{err: err}
	}
	log := w.Logger.With("user_id", sub.UserID)

	alerts, err := w.Engine.Nearby(sub.Location, string(sub.UserType), events, w.Config.MaxDistanceKm)
	if err != nil {
		log.Error("failed to evaluate subscriber", "error", err)
		return userResult{err: err}
	}
	if len(alerts) == 0 {
		return userResult{}
	}

	fresh, err := w.History.RecordAll(ctx, sub.UserID, alerts, now)
	if err != nil {
		log.Error("failed to record alert history", "error", err)
		return userResult{matched: len(alerts), err: err}
	}
	if len(fresh) == 0 {
		return userResult{matched: len(alerts)}
	}

	failures := w.Publisher.PublishAll(ctx, sub.UserID, fresh, types.OriginDisasterWatch)
	if failures > 0 {
		log.Warn("some alerts were not queued", "failed", failures, "total", len(fresh))
	}
	return userResult{matched: len(alerts), fresh: fresh, publishFailures: failures}
}

func (w *Watcher) concurrency() int {
	if w.Config.Concurrency > 0 {
		return w.Config.Concurrency
	}
	return DefaultConcurrency
}

func (w *Watcher) recordRun(ctx context.Context, s Summary) {
	if w.Metrics != nil {
		w.Metrics.RecordRun(ctx, s.Events, s.Subscribers, s.PublishFailures)
	}
}
