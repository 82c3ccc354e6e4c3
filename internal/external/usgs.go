package external

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"weatheralert/internal/config"
	"weatheralert/internal/types"
)

// USGSClient reads the USGS earthquake GeoJSON summary feeds and returns
// recent earthquakes as disaster events. Earthquakes the feed flags with
// tsunami potential carry TsunamiInfo.
type USGSClient struct {
	*BaseClient
	feedURLs     []string
	minMagnitude float64
	maxAge       time.Duration
	clock        clockwork.Clock
	logger       *slog.Logger
}

// NewUSGSClient creates a client from cfg. A nil clock uses the real clock.
func NewUSGSClient(cfg config.DisasterFeedConfig, userAgent string, clock clockwork.Clock, logger *slog.Logger, opts ...BaseClientOption) *USGSClient {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	httpClient := &http.Client{Timeout: cfg.Timeout}
	return &USGSClient{
		BaseClient: NewBaseClient(httpClient, "usgs", DefaultRetryPolicy(), userAgent,
			types.ErrCodeUpstreamDisasterFeed, opts...),
		feedURLs:     cfg.FeedURLs,
		minMagnitude: cfg.MinMagnitude,
		maxAge:       cfg.MaxAge,
		clock:        clock,
		logger:       logger.With("component", "usgs"),
	}
}

type geoJSONFeed struct {
	Features []geoJSONFeature `json:"features"`
}

type geoJSONFeature struct {
	ID         string `json:"id"`
	Properties struct {
		Mag     *float64 `json:"mag"`
		Place   string   `json:"place"`
		Time    int64    `json:"time"`    // epoch millis
		Updated int64    `json:"updated"` // epoch millis
		Felt    *int     `json:"felt"`
		Tsunami int      `json:"tsunami"`
		URL     string   `json:"url"`
		Type    string   `json:"type"`
	} `json:"properties"`
	Geometry struct {
		Coordinates []float64 `json:"coordinates"` // lon, lat, depth
	} `json:"geometry"`
}

// Recent fetches every configured feed concurrently and merges the results.
// Events appearing in several feeds are de-duplicated by id, keeping the most
// recently updated copy. A failing feed is logged and skipped; the call fails
// only when every feed fails.
func (c *USGSClient) Recent(ctx context.Context) ([]types.DisasterEvent, error) {
	var (
		mu      sync.Mutex
		byID    = make(map[string]geoJSONFeature)
		errs    []error
		success int
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, feedURL := range c.feedURLs {
		g.Go(func() error {
			features, err := c.fetchFeed(gctx, feedURL)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				c.logger.Warn("disaster feed fetch failed", "url", feedURL, "error", err)
				errs = append(errs, err)
				return nil
			}
			success++
			for _, f := range features {
				if prev, ok := byID[f.ID]; !ok || f.Properties.Updated > prev.Properties.Updated {
					byID[f.ID] = f
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	if success == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	now := c.clock.Now()
	events := make([]types.DisasterEvent, 0, len(byID))
	for _, f := range byID {
		if ev, ok := c.normalize(f, now); ok {
			events = append(events, ev)
		}
	}
	sort.Slice(events, func(i, j int) bool {
		if !events[i].Time.Equal(events[j].Time) {
			return events[i].Time.After(events[j].Time)
		}
		return events[i].ID < events[j].ID
	})

	c.logger.Debug("disaster feed fetched", "events", len(events), "feeds_ok", success)
	return events, nil
}

func (c *USGSClient) fetchFeed(ctx context.Context, feedURL string) ([]geoJSONFeature, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build feed request", err)
	}
	var feed geoJSONFeed
	if err := c.GetJSON(req, &feed); err != nil {
		return nil, err
	}
	return feed.Features, nil
}

// normalize applies the relevance filter: earthquakes only, magnitude at or
// above the minimum, no older than maxAge, with a usable epicenter.
func (c *USGSClient) normalize(f geoJSONFeature, now time.Time) (types.DisasterEvent, bool) {
	p := f.Properties
	if f.ID == "" || p.Mag == nil || math.IsNaN(*p.Mag) || *p.Mag < c.minMagnitude {
		return types.DisasterEvent{}, false
	}
	if !strings.EqualFold(p.Type, "earthquake") {
		return types.DisasterEvent{}, false
	}
	if len(f.Geometry.Coordinates) < 2 {
		return types.DisasterEvent{}, false
	}

	at := time.UnixMilli(p.Time).UTC()
	if c.maxAge > 0 && now.Sub(at) > c.maxAge {
		return types.DisasterEvent{}, false
	}

	ev := types.DisasterEvent{
		ID:          f.ID,
		Kind:        types.DisasterEarthquake,
		Magnitude:   *p.Mag,
		Epicenter:   types.Location{Lat: f.Geometry.Coordinates[1], Lon: f.Geometry.Coordinates[0]},
		Place:       p.Place,
		Time:        at,
		Source:      types.SourceUSGS,
		URL:         p.URL,
		FeltReports: p.Felt,
	}
	if len(f.Geometry.Coordinates) > 2 {
		depth := f.Geometry.Coordinates[2]
		ev.DepthKm = &depth
	}
	if p.Tsunami == 1 {
		// The feed carries no coastline data, so every flagged event is
		// treated as reaching the coast.
		ev.Tsunami = &types.TsunamiInfo{TriggerMagnitude: *p.Mag, IsCoastalArea: true}
	}
	return ev, true
}
