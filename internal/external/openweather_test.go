package external

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"weatheralert/internal/config"
	"weatheralert/internal/types"
)

const currentFixture = `{
	"weather": [{"id": 502, "description": "heavy intensity rain"}],
	"main": {"temp": 31.5, "feels_like": 38.2, "pressure": 1002, "humidity": 88},
	"wind": {"speed": 12.5, "deg": 210},
	"visibility": 2500,
	"rain": {"1h": 14.2},
	"dt": 1782892800
}`

const forecastFixture = `{
	"list": [
		{"dt": 1782892800, "main": {"temp": 36.1, "humidity": 40}, "wind": {"speed": 5}, "pop": 0.1},
		{"dt": 1782903600, "main": {"temp": 37.4, "humidity": 35}, "wind": {"speed": 6}, "pop": 0.55, "rain": {"3h": 4.5}}
	]
}`

func newOpenWeatherTestClient(t *testing.T, handler http.HandlerFunc) *OpenWeatherClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewOpenWeatherClient(config.WeatherConfig{
		APIKey:    "test-key",
		BaseURL:   server.URL + "/",
		Timeout:   5 * time.Second,
		UserAgent: "WeatherAlert-Test/1.0",
	}, WithSleepFunc(noopSleep))
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestOpenWeatherClient_Current(t *testing.T) {
	var gotPath string
	var gotQuery map[string]string
	client := newOpenWeatherTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = map[string]string{
			"lat":   r.URL.Query().Get("lat"),
			"lon":   r.URL.Query().Get("lon"),
			"units": r.URL.Query().Get("units"),
			"appid": r.URL.Query().Get("appid"),
		}
		_, _ = w.Write([]byte(currentFixture))
	})

	snap, err := client.Current(context.Background(), types.Location{Lat: 28.6139, Lon: 77.209})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotPath != "/weather" {
		t.Errorf("path = %q", gotPath)
	}
	want := map[string]string{"lat": "28.6139", "lon": "77.2090", "units": "metric", "appid": "test-key"}
	for k, v := range want {
		if gotQuery[k] != v {
			t.Errorf("query %s = %q, want %q", k, gotQuery[k], v)
		}
	}

	if !approx(snap.WindSpeedKmh, 45) {
		t.Errorf("WindSpeedKmh = %v, want 45", snap.WindSpeedKmh)
	}
	if !approx(snap.VisibilityKm, 2.5) {
		t.Errorf("VisibilityKm = %v, want 2.5", snap.VisibilityKm)
	}
	if snap.PrecipitationMM != 14.2 || snap.Humidity != 88 || snap.TemperatureC != 31.5 {
		t.Errorf("unexpected snapshot %+v", snap)
	}
	if snap.ConditionCode != 502 || snap.Condition != "heavy intensity rain" {
		t.Errorf("condition = %d %q", snap.ConditionCode, snap.Condition)
	}
	if !snap.Timestamp.Equal(time.Unix(1782892800, 0)) {
		t.Errorf("Timestamp = %v", snap.Timestamp)
	}
}

func TestOpenWeatherClient_CurrentDefaultsVisibility(t *testing.T) {
	client := newOpenWeatherTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"main": {"temp": 20}, "wind": {"speed": 0}, "dt": 1782892800}`))
	})

	snap, err := client.Current(context.Background(), types.Location{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.VisibilityKm != 10 || snap.PrecipitationMM != 0 {
		t.Errorf("defaults not applied: %+v", snap)
	}
}

func TestOpenWeatherClient_Forecast(t *testing.T) {
	var cnt string
	client := newOpenWeatherTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		cnt = r.URL.Query().Get("cnt")
		_, _ = w.Write([]byte(forecastFixture))
	})

	points, err := client.Forecast(context.Background(), types.Location{Lat: 1, Lon: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cnt != "16" {
		t.Errorf("cnt = %q, want 16", cnt)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}

	p := points[1]
	if p.Granularity != types.GranularityHourly {
		t.Errorf("Granularity = %q", p.Granularity)
	}
	if p.TemperatureC != 37.4 || p.PrecipitationMM != 4.5 || !approx(p.WindSpeedKmh, 21.6) {
		t.Errorf("unexpected point %+v", p)
	}
	if !approx(p.RainChance, 55) {
		t.Errorf("RainChance = %v", p.RainChance)
	}
	if points[0].PrecipitationMM != 0 {
		t.Errorf("missing rain should be 0, got %v", points[0].PrecipitationMM)
	}
}

// dailyFixture spans two UTC days: 2026-07-01 08:00, 11:00 and 21:00, then
// 2026-07-02 00:00 and 03:00.
const dailyFixture = `{
	"list": [
		{"dt": 1782892800, "main": {"temp": 36.1, "humidity": 40}, "wind": {"speed": 5}, "pop": 0.1},
		{"dt": 1782903600, "main": {"temp": 37.4, "humidity": 35}, "wind": {"speed": 6}, "pop": 0.55, "rain": {"3h": 4.5}},
		{"dt": 1782939600, "main": {"temp": 28.0, "humidity": 60}, "wind": {"speed": 2}, "pop": 0.2, "rain": {"3h": 1.5}},
		{"dt": 1782950400, "main": {"temp": 24.0, "humidity": 70}, "wind": {"speed": 3}, "pop": 0},
		{"dt": 1782961200, "main": {"temp": 22.0, "humidity": 80}, "wind": {"speed": 10}, "pop": 0.9, "rain": {"3h": 12}}
	]
}`

func TestOpenWeatherClient_Daily(t *testing.T) {
	var cnt string
	client := newOpenWeatherTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		cnt = r.URL.Query().Get("cnt")
		_, _ = w.Write([]byte(dailyFixture))
	})

	days, err := client.Daily(context.Background(), types.Location{Lat: 1, Lon: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cnt != "40" {
		t.Errorf("cnt = %q, want 40", cnt)
	}
	if len(days) != 2 {
		t.Fatalf("expected 2 days, got %d: %+v", len(days), days)
	}

	first, second := days[0], days[1]
	if want := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC); !first.Time.Equal(want) {
		t.Errorf("first day starts %v, want %v", first.Time, want)
	}
	if want := time.Date(2026, 7, 2, 0, 0, 0, 0, time.UTC); !second.Time.Equal(want) {
		t.Errorf("second day starts %v, want %v", second.Time, want)
	}
	for _, d := range days {
		if d.Granularity != types.GranularityDaily {
			t.Errorf("Granularity = %q, want daily", d.Granularity)
		}
	}

	if first.TempMaxC != 37.4 || first.TempMinC != 28.0 {
		t.Errorf("first day extremes = %v/%v", first.TempMaxC, first.TempMinC)
	}
	if !approx(first.PrecipitationMM, 6.0) || !approx(first.RainChance, 55) {
		t.Errorf("first day rain = %vmm at %v%%", first.PrecipitationMM, first.RainChance)
	}
	if !approx(first.WindSpeedKmh, 21.6) || !approx(first.Humidity, 45) {
		t.Errorf("first day wind/humidity = %v/%v", first.WindSpeedKmh, first.Humidity)
	}
	if !approx(first.TemperatureC, (36.1+37.4+28.0)/3) {
		t.Errorf("first day mean = %v", first.TemperatureC)
	}

	if second.TempMaxC != 24.0 || second.TempMinC != 22.0 || !approx(second.PrecipitationMM, 12) {
		t.Errorf("unexpected second day %+v", second)
	}
	if !approx(second.WindSpeedKmh, 36) || !approx(second.RainChance, 90) || !approx(second.Humidity, 75) {
		t.Errorf("unexpected second day %+v", second)
	}
}

func TestAggregateDaily(t *testing.T) {
	day := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	t.Run("empty", func(t *testing.T) {
		got := AggregateDaily(nil)
		if got == nil || len(got) != 0 {
			t.Errorf("AggregateDaily(nil) = %#v, want empty slice", got)
		}
	})

	t.Run("unordered input is grouped by day", func(t *testing.T) {
		in := []types.ForecastPoint{
			{Granularity: types.GranularityHourly, Time: day.Add(27 * time.Hour), TemperatureC: 10},
			{Granularity: types.GranularityHourly, Time: day.Add(6 * time.Hour), TemperatureC: 20},
			{Granularity: types.GranularityHourly, Time: day.Add(3 * time.Hour), TemperatureC: 15},
		}
		got := AggregateDaily(in)
		if len(got) != 2 {
			t.Fatalf("expected 2 days, got %+v", got)
		}
		if !got[0].Time.Equal(day) || got[0].TempMaxC != 20 || got[0].TempMinC != 15 {
			t.Errorf("unexpected first day %+v", got[0])
		}
		if !got[1].Time.Equal(day.Add(24*time.Hour)) || got[1].TempMaxC != 10 {
			t.Errorf("unexpected second day %+v", got[1])
		}
		if !in[0].Time.Equal(day.Add(27 * time.Hour)) {
			t.Error("input slice was reordered")
		}
	})

	t.Run("daily points pass through", func(t *testing.T) {
		daily := types.ForecastPoint{Granularity: types.GranularityDaily, Time: day, TempMaxC: 40, TempMinC: 30}
		got := AggregateDaily([]types.ForecastPoint{daily})
		if len(got) != 1 || got[0] != daily {
			t.Errorf("AggregateDaily = %+v, want %+v", got, daily)
		}
	})
}

func TestOpenWeatherClient_UpstreamError(t *testing.T) {
	client := newOpenWeatherTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.Current(context.Background(), types.Location{})
	if got := appErrorCode(t, err); got != types.ErrCodeUpstreamWeather {
		t.Errorf("code = %s", got)
	}
}
