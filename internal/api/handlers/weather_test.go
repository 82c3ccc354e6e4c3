package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weatheralert/internal/types"
)

func serveWeather(h *WeatherHandler, path string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Route("/v1/weather", h.RegisterRoutes)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func serveDisasters(h *DisasterHandler, path string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Route("/v1/disasters", h.RegisterRoutes)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHandleCurrent(t *testing.T) {
	weather := &mockWeather{
		currentFn: func(_ context.Context, loc types.Location) (*types.WeatherSnapshot, error) {
			assert.Equal(t, types.Location{Lat: 28.61, Lon: 77.21}, loc)
			return &types.WeatherSnapshot{TemperatureC: 44, Humidity: 20, WindSpeedKmh: 12, VisibilityKm: 6}, nil
		},
	}
	h := NewWeatherHandler(weather, nil, nil)

	rec := serveWeather(h, "/v1/weather/current?lat=28.61&lon=77.21")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "private, max-age=300", rec.Header().Get("Cache-Control"))

	var got CurrentWeatherResponse
	decodeEnvelope(t, rec, &got)
	assert.Equal(t, 44.0, got.Current.TemperatureC)
	assert.Greater(t, got.Risk.Score, 0.0)
	assert.NotEmpty(t, got.Risk.Level)
}

func TestHandleCurrent_Invalid(t *testing.T) {
	tests := []struct {
		query    string
		wantCode types.ErrorCode
	}{
		{"?lon=1", types.ErrCodeValidationMissingField},
		{"?lat=1", types.ErrCodeValidationMissingField},
		{"?lat=north&lon=1", types.ErrCodeMalformedInput},
		{"?lat=1&lon=200", types.ErrCodeMalformedInput},
		{"?lat=NaN&lon=1", types.ErrCodeMalformedInput},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			weather := &mockWeather{}
			rec := serveWeather(NewWeatherHandler(weather, nil, nil), "/v1/weather/current"+tt.query)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, string(tt.wantCode), errorCodeOf(t, rec))
			assert.Zero(t, weather.calls)
		})
	}
}

func TestHandleCurrent_UpstreamError(t *testing.T) {
	weather := &mockWeather{
		currentFn: func(context.Context, types.Location) (*types.WeatherSnapshot, error) {
			return nil, types.NewAppError(types.ErrCodeUpstreamWeather, "provider returned 500", nil)
		},
	}
	metrics := &mockRecorder{}

	rec := serveWeather(NewWeatherHandler(weather, metrics, nil), "/v1/weather/current?lat=1&lon=1")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, string(types.ErrCodeUpstreamWeather), errorCodeOf(t, rec))
	assert.Equal(t, []string{"weather"}, metrics.failures)
}

func TestHandleForecast(t *testing.T) {
	weather := &mockWeather{
		forecastFn: func(context.Context, types.Location) ([]types.ForecastPoint, error) {
			return []types.ForecastPoint{
				{Granularity: types.GranularityHourly, TemperatureC: 31},
				{Granularity: types.GranularityHourly, TemperatureC: 33},
			}, nil
		},
	}

	rec := serveWeather(NewWeatherHandler(weather, nil, nil), "/v1/weather/forecast?lat=1&lon=1")

	require.Equal(t, http.StatusOK, rec.Code)
	var got ForecastResponse
	decodeEnvelope(t, rec, &got)
	require.Len(t, got.Points, 2)
	assert.Equal(t, 33.0, got.Points[1].TemperatureC)
}

func TestHandleDailyForecast(t *testing.T) {
	day := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	weather := &mockWeather{
		dailyFn: func(context.Context, types.Location) ([]types.ForecastPoint, error) {
			return []types.ForecastPoint{
				{Granularity: types.GranularityDaily, Time: day, TempMaxC: 41, TempMinC: 29},
				{Granularity: types.GranularityDaily, Time: day.Add(24 * time.Hour), TempMaxC: 38, TempMinC: 27},
			}, nil
		},
		forecastFn: func(context.Context, types.Location) ([]types.ForecastPoint, error) {
			t.Error("hourly forecast should not be fetched")
			return nil, nil
		},
	}

	rec := serveWeather(NewWeatherHandler(weather, nil, nil), "/v1/weather/forecast/daily?lat=28.61&lon=77.21")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "private, max-age=1800", rec.Header().Get("Cache-Control"))

	var got ForecastResponse
	decodeEnvelope(t, rec, &got)
	require.Len(t, got.Points, 2)
	assert.Equal(t, types.GranularityDaily, got.Points[0].Granularity)
	assert.Equal(t, 41.0, got.Points[0].TempMaxC)
	assert.True(t, day.Equal(got.Points[0].Time))
}

func TestHandleDailyForecast_Errors(t *testing.T) {
	t.Run("invalid location", func(t *testing.T) {
		weather := &mockWeather{}
		rec := serveWeather(NewWeatherHandler(weather, nil, nil), "/v1/weather/forecast/daily?lat=95&lon=1")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, string(types.ErrCodeMalformedInput), errorCodeOf(t, rec))
		assert.Zero(t, weather.calls)
	})

	t.Run("upstream", func(t *testing.T) {
		weather := &mockWeather{dailyFn: func(context.Context, types.Location) ([]types.ForecastPoint, error) {
			return nil, types.NewAppError(types.ErrCodeUpstreamWeather, "provider returned 503", nil)
		}}
		metrics := &mockRecorder{}

		rec := serveWeather(NewWeatherHandler(weather, metrics, nil), "/v1/weather/forecast/daily?lat=1&lon=1")

		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Equal(t, []string{"weather_daily"}, metrics.failures)
	})
}

func TestHandleNearby(t *testing.T) {
	events := []types.DisasterEvent{{ID: "us1", Kind: types.DisasterEarthquake, Magnitude: 6.4}}
	var (
		gotUserType string
		gotDistance float64
		gotEvents   []types.DisasterEvent
	)
	eng := &mockEngine{
		nearbyFn: func(_ types.Location, userType string, evs []types.DisasterEvent, maxDistanceKm float64) ([]types.Alert, error) {
			gotUserType, gotEvents, gotDistance = userType, evs, maxDistanceKm
			return []types.Alert{{ID: "eq_us1", Type: types.AlertEarthquake, Severity: types.SeverityWarning}}, nil
		},
	}
	feed := &mockFeed{recentFn: func(context.Context) ([]types.DisasterEvent, error) { return events, nil }}
	h := NewDisasterHandler(eng, feed, nil, nil)

	t.Run("defaults", func(t *testing.T) {
		rec := serveDisasters(h, "/v1/disasters/nearby?lat=35.6&lon=139.7")

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "GENERAL", gotUserType)
		assert.Equal(t, 0.0, gotDistance)
		assert.Equal(t, events, gotEvents)

		var alerts []types.Alert
		meta := decodeEnvelope(t, rec, &alerts)
		require.Len(t, alerts, 1)
		assert.Equal(t, "eq_us1", alerts[0].ID)
		assert.Equal(t, 1, *meta.Count)
	})

	t.Run("explicit", func(t *testing.T) {
		rec := serveDisasters(h, "/v1/disasters/nearby?lat=35.6&lon=139.7&user_type=traveller&max_distance_km=250")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "traveller", gotUserType)
		assert.Equal(t, 250.0, gotDistance)
	})
}

func TestHandleNearby_Invalid(t *testing.T) {
	feed := &mockFeed{}
	h := NewDisasterHandler(&mockEngine{}, feed, nil, nil)

	rec := serveDisasters(h, "/v1/disasters/nearby?lat=1&lon=1&user_type=sailor")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(types.ErrCodeInvalidUserType), errorCodeOf(t, rec))

	rec = serveDisasters(h, "/v1/disasters/nearby?lat=1&lon=1&max_distance_km=far")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(types.ErrCodeMalformedInput), errorCodeOf(t, rec))

	assert.Zero(t, feed.calls)
}

func TestHandleNearby_FeedError(t *testing.T) {
	feed := &mockFeed{recentFn: func(context.Context) ([]types.DisasterEvent, error) {
		return nil, types.NewAppError(types.ErrCodeUpstreamDisasterFeed, "all feeds failed", nil)
	}}
	metrics := &mockRecorder{}

	rec := serveDisasters(NewDisasterHandler(&mockEngine{}, feed, metrics, nil), "/v1/disasters/nearby?lat=1&lon=1")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, []string{"disaster_feed"}, metrics.failures)
}

func TestHandleRecent(t *testing.T) {
	base := time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)
	events := []types.DisasterEvent{
		{ID: "small", Kind: types.DisasterEarthquake, Magnitude: 3.1, Time: base.Add(-10 * time.Minute)},
		{ID: "old", Kind: types.DisasterEarthquake, Magnitude: 6.0, Time: base.Add(-5 * time.Hour)},
		{ID: "newest", Kind: types.DisasterEarthquake, Magnitude: 5.2, Time: base},
		{ID: "middle", Kind: types.DisasterEarthquake, Magnitude: 7.4, Time: base.Add(-time.Hour)},
	}
	eng := &mockEngine{nearbyFn: func(types.Location, string, []types.DisasterEvent, float64) ([]types.Alert, error) {
		t.Error("recent listing should not score events")
		return nil, nil
	}}
	feed := &mockFeed{recentFn: func(context.Context) ([]types.DisasterEvent, error) { return events, nil }}
	h := NewDisasterHandler(eng, feed, nil, nil)

	ids := func(evs []types.DisasterEvent) []string {
		out := make([]string, len(evs))
		for i, ev := range evs {
			out[i] = ev.ID
		}
		return out
	}

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"defaults", "", []string{"newest", "small", "middle", "old"}},
		{"magnitude filter", "?min_magnitude=5", []string{"newest", "middle", "old"}},
		{"limit", "?min_magnitude=5&limit=2", []string{"newest", "middle"}},
		{"nothing qualifies", "?min_magnitude=9", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serveDisasters(h, "/v1/disasters/recent"+tt.query)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var got []types.DisasterEvent
			meta := decodeEnvelope(t, rec, &got)
			assert.Equal(t, tt.want, ids(got))
			assert.Equal(t, len(tt.want), *meta.Count)
		})
	}

	assert.Equal(t, "newest", events[2].ID, "feed slice must not be reordered")
}

func TestHandleRecent_Invalid(t *testing.T) {
	tests := []struct {
		query string
		field string
	}{
		{"?min_magnitude=big", "min_magnitude"},
		{"?min_magnitude=-1", "min_magnitude"},
		{"?min_magnitude=11", "min_magnitude"},
		{"?limit=0", "limit"},
		{"?limit=501", "limit"},
		{"?limit=ten", "limit"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			feed := &mockFeed{}
			rec := serveDisasters(NewDisasterHandler(&mockEngine{}, feed, nil, nil), "/v1/disasters/recent"+tt.query)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, string(types.ErrCodeMalformedInput), errorCodeOf(t, rec))
			assert.Contains(t, rec.Body.String(), tt.field)
			assert.Zero(t, feed.calls)
		})
	}
}

func TestHandleRecent_FeedError(t *testing.T) {
	feed := &mockFeed{recentFn: func(context.Context) ([]types.DisasterEvent, error) {
		return nil, types.NewAppError(types.ErrCodeUpstreamDisasterFeed, "all feeds failed", nil)
	}}
	metrics := &mockRecorder{}

	rec := serveDisasters(NewDisasterHandler(&mockEngine{}, feed, metrics, nil), "/v1/disasters/recent")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, []string{"disaster_feed"}, metrics.failures)
}
