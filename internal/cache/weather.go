package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"weatheralert/internal/config"
	"weatheralert/internal/types"
)

// Lookup kinds reported to the Observer.
const (
	KindCurrent  = "current"
	KindForecast = "forecast"
	KindDaily    = "daily"
	KindFeed     = "feed"
)

// Store is the subset of *redis.Client the cache uses.
type Store interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// WeatherSource is satisfied by external.OpenWeatherClient.
type WeatherSource interface {
	Current(ctx context.Context, loc types.Location) (*types.WeatherSnapshot, error)
	Forecast(ctx context.Context, loc types.Location) ([]types.ForecastPoint, error)
	Daily(ctx context.Context, loc types.Location) ([]types.ForecastPoint, error)
}

// FeedSource is satisfied by external.USGSClient.
type FeedSource interface {
	Recent(ctx context.Context) ([]types.DisasterEvent, error)
}

// Observer receives hit/miss notifications. observability.Metrics satisfies it.
type Observer interface {
	RecordCacheLookup(kind string, hit bool)
}

// Cache is a read-through cache over a WeatherSource and a FeedSource.
// A nil Store disables storage; lookups still share in-flight fetches.
// Redis failures are logged and treated as misses.
type Cache struct {
	store    Store
	weather  WeatherSource
	feed     FeedSource
	ttl      config.CacheConfig
	observer Observer
	logger   *slog.Logger
	codec    *codec
	group    singleflight.Group
}

// New creates a Cache. store and observer may be nil.
func New(store Store, weather WeatherSource, feed FeedSource, ttl config.CacheConfig, observer Observer, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		store:    store,
		weather:  weather,
		feed:     feed,
		ttl:      ttl,
		observer: observer,
		logger:   logger.With("component", "cache"),
		codec:    newCodec(),
	}
}

// locationKey rounds to two decimals (about 1 km) so nearby requests share
// an entry.
func locationKey(kind string, loc types.Location) string {
	return fmt.Sprintf("weather:%s:%.2f:%.2f", kind, loc.Lat, loc.Lon)
}

// Current returns the cached snapshot for loc, fetching it on a miss.
func (c *Cache) Current(ctx context.Context, loc types.Location) (*types.WeatherSnapshot, error) {
	var snap types.WeatherSnapshot
	err := readThrough(ctx, c, KindCurrent, locationKey(KindCurrent, loc), c.ttl.CurrentTTL, &snap,
		func(ctx context.Context) (any, error) {
			return c.weather.Current(ctx, loc)
		})
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// Forecast returns the cached forecast for loc, fetching it on a miss.
func (c *Cache) Forecast(ctx context.Context, loc types.Location) ([]types.ForecastPoint, error) {
	var points []types.ForecastPoint
	err := readThrough(ctx, c, KindForecast, locationKey(KindForecast, loc), c.ttl.ForecastTTL, &points,
		func(ctx context.Context) (any, error) {
			return c.weather.Forecast(ctx, loc)
		})
	return points, err
}

// Daily returns the cached daily forecast for loc, fetching it on a miss.
// It shares the forecast TTL.
func (c *Cache) Daily(ctx context.Context, loc types.Location) ([]types.ForecastPoint, error) {
	var points []types.ForecastPoint
	err := readThrough(ctx, c, KindDaily, locationKey(KindDaily, loc), c.ttl.ForecastTTL, &points,
		func(ctx context.Context) (any, error) {
			return c.weather.Daily(ctx, loc)
		})
	return points, err
}

// Recent returns the cached disaster feed, fetching it on a miss.
func (c *Cache) Recent(ctx context.Context) ([]types.DisasterEvent, error) {
	var events []types.DisasterEvent
	err := readThrough(ctx, c, KindFeed, "disasters:recent", c.ttl.FeedTTL, &events,
		func(ctx context.Context) (any, error) {
			return c.feed.Recent(ctx)
		})
	return events, err
}

// readThrough serves key from the store, or runs fetch once per key across
// concurrent callers and stores the encoded result. dst receives the value
// either way.
func readThrough(ctx context.Context, c *Cache, kind, key string, ttl time.Duration, dst any, fetch func(context.Context) (any, error)) error {
	if data, ok := c.get(ctx, key); ok {
		err := c.codec.decode(data, dst)
		if err == nil {
			c.observe(kind, true)
			return nil
		}
		c.logger.Warn("discarding undecodable cache entry", "key", key, "error", err)
	}
	c.observe(kind, false)

	encoded, err, _ := c.group.Do(key, func() (any, error) {
		v, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		data, err := c.codec.encode(v)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalCache, "failed to encode cache entry", err)
		}
		c.set(ctx, key, data, ttl)
		return data, nil
	})
	if err != nil {
		return err
	}
	return c.codec.decode(encoded.([]byte), dst)
}

func (c *Cache) get(ctx context.Context, key string) ([]byte, bool) {
	if c.store == nil {
		return nil, false
	}
	data, err := c.store.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("cache read failed", "key", key, "error", err)
		}
		return nil, false
	}
	return data, true
}

func (c *Cache) set(ctx context.Context, key string, data []byte, ttl time.Duration) {
	if c.store == nil || ttl <= 0 {
		return
	}
	if err := c.store.Set(ctx, key, data, ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", "key", key, "error", err)
	}
}

func (c *Cache) observe(kind string, hit bool) {
	if c.observer != nil {
		c.observer.RecordCacheLookup(kind, hit)
	}
}
