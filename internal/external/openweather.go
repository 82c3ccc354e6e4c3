package external

import (
	"context"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"weatheralert/internal/config"
	"weatheralert/internal/types"
)

// Entry counts requested from /forecast, which returns 3-hourly steps.
const (
	forecastPoints      = 16 // 48 hours
	dailyForecastPoints = 40 // the full five days
)

// OpenWeatherClient fetches current conditions and the short-range forecast
// from the OpenWeatherMap 2.5 API and normalizes them to metric units
// (km/h wind, km visibility).
type OpenWeatherClient struct {
	*BaseClient
	baseURL string
	apiKey  config.SecretString
}

// NewOpenWeatherClient creates a client from cfg.
func NewOpenWeatherClient(cfg config.WeatherConfig, opts ...BaseClientOption) *OpenWeatherClient {
	httpClient := &http.Client{Timeout: cfg.Timeout}
	return &OpenWeatherClient{
		BaseClient: NewBaseClient(httpClient, "openweather", DefaultRetryPolicy(), cfg.UserAgent,
			types.ErrCodeUpstreamWeather, opts...),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
	}
}

type owmWeather struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

type owmMain struct {
	Temp      float64 `json:"temp"`
	FeelsLike float64 `json:"feels_like"`
	Pressure  float64 `json:"pressure"`
	Humidity  float64 `json:"humidity"`
}

type owmWind struct {
	Speed float64 `json:"speed"` // m/s
	Deg   float64 `json:"deg"`
}

type owmRain struct {
	OneHour   float64 `json:"1h"`
	ThreeHour float64 `json:"3h"`
}

type owmCurrent struct {
	Weather    []owmWeather `json:"weather"`
	Main       owmMain      `json:"main"`
	Wind       owmWind      `json:"wind"`
	Visibility *float64     `json:"visibility"` // metres
	Rain       *owmRain     `json:"rain"`
	Dt         int64        `json:"dt"`
}

type owmForecast struct {
	List []struct {
		Dt      int64        `json:"dt"`
		Main    owmMain      `json:"main"`
		Weather []owmWeather `json:"weather"`
		Wind    owmWind      `json:"wind"`
		Pop     float64      `json:"pop"`
		Rain    *owmRain     `json:"rain"`
	} `json:"list"`
}

// msToKmh converts wind speed from metres per second.
func msToKmh(v float64) float64 { return v * 3.6 }

// Current returns the latest observation for loc.
func (c *OpenWeatherClient) Current(ctx context.Context, loc types.Location) (*types.WeatherSnapshot, error) {
	req, err := c.newRequest(ctx, "/weather", loc, nil)
	if err != nil {
		return nil, err
	}

	var body owmCurrent
	if err := c.GetJSON(req, &body); err != nil {
		return nil, err
	}

	snap := &types.WeatherSnapshot{
		TemperatureC:     body.Main.Temp,
		FeelsLikeC:       body.Main.FeelsLike,
		Humidity:         body.Main.Humidity,
		PressureHPa:      body.Main.Pressure,
		WindSpeedKmh:     msToKmh(body.Wind.Speed),
		WindDirectionDeg: body.Wind.Deg,
		VisibilityKm:     10,
		Timestamp:        time.Unix(body.Dt, 0).UTC(),
	}
	if body.Visibility != nil {
		snap.VisibilityKm = *body.Visibility / 1000
	}
	if body.Rain != nil {
		snap.PrecipitationMM = body.Rain.OneHour
	}
	if len(body.Weather) > 0 {
		snap.ConditionCode = body.Weather[0].ID
		snap.Condition = body.Weather[0].Description
	}
	return snap, nil
}

// Forecast returns the next 48 hours as hourly-granularity points spaced
// three hours apart.
func (c *OpenWeatherClient) Forecast(ctx context.Context, loc types.Location) ([]types.ForecastPoint, error) {
	return c.forecast(ctx, loc, forecastPoints)
}

// Daily returns one daily-granularity point per UTC day covered by the
// five-day forecast. The first and last days may be partial.
func (c *OpenWeatherClient) Daily(ctx context.Context, loc types.Location) ([]types.ForecastPoint, error) {
	points, err := c.forecast(ctx, loc, dailyForecastPoints)
	if err != nil {
		return nil, err
	}
	return AggregateDaily(points), nil
}

func (c *OpenWeatherClient) forecast(ctx context.Context, loc types.Location, count int) ([]types.ForecastPoint, error) {
	req, err := c.newRequest(ctx, "/forecast", loc, url.Values{"cnt": {strconv.Itoa(count)}})
	if err != nil {
		return nil, err
	}

	var body owmForecast
	if err := c.GetJSON(req, &body); err != nil {
		return nil, err
	}

	points := make([]types.ForecastPoint, 0, len(body.List))
	for _, item := range body.List {
		p := types.ForecastPoint{
			Granularity:  types.GranularityHourly,
			Time:         time.Unix(item.Dt, 0).UTC(),
			TemperatureC: item.Main.Temp,
			RainChance:   item.Pop * 100,
			Humidity:     item.Main.Humidity,
			WindSpeedKmh: msToKmh(item.Wind.Speed),
		}
		if item.Rain != nil {
			p.PrecipitationMM = item.Rain.ThreeHour
		}
		points = append(points, p)
	}
	return points, nil
}

// AggregateDaily folds sub-daily points into one daily point per UTC
// calendar day, in time order. Each day carries the temperature extremes and
// mean, total precipitation, the highest rain chance and wind speed, and the
// mean humidity. Points that are already daily are passed through.
func AggregateDaily(points []types.ForecastPoint) []types.ForecastPoint {
	sorted := slices.Clone(points)
	slices.SortStableFunc(sorted, func(a, b types.ForecastPoint) int { return a.Time.Compare(b.Time) })

	out := make([]types.ForecastPoint, 0, len(sorted)/8+1)
	var (
		day     *types.ForecastPoint
		tempSum float64
		humSum  float64
		n       int
	)
	flush := func() {
		if day == nil {
			return
		}
		day.TemperatureC = tempSum / float64(n)
		day.Humidity = humSum / float64(n)
		out = append(out, *day)
		day, tempSum, humSum, n = nil, 0, 0, 0
	}

	for _, p := range sorted {
		if p.Granularity == types.GranularityDaily {
			flush()
			out = append(out, p)
			continue
		}
		t := p.Time.UTC()
		start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		if day != nil && !day.Time.Equal(start) {
			flush()
		}
		if day == nil {
			day = &types.ForecastPoint{
				Granularity: types.GranularityDaily,
				Time:        start,
				TempMaxC:    p.TemperatureC,
				TempMinC:    p.TemperatureC,
			}
		}
		day.TempMaxC = max(day.TempMaxC, p.TemperatureC)
		day.TempMinC = min(day.TempMinC, p.TemperatureC)
		day.PrecipitationMM += p.PrecipitationMM
		day.RainChance = max(day.RainChance, p.RainChance)
		day.WindSpeedKmh = max(day.WindSpeedKmh, p.WindSpeedKmh)
		tempSum += p.TemperatureC
		humSum += p.Humidity
		n++
	}
	flush()
	return out
}

func (c *OpenWeatherClient) newRequest(ctx context.Context, path string, loc types.Location, extra url.Values) (*http.Request, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(loc.Lat, 'f', 4, 64))
	q.Set("lon", strconv.FormatFloat(loc.Lon, 'f', 4, 64))
	q.Set("units", "metric")
	q.Set("appid", c.apiKey.Unmask())
	for k, v := range extra {
		q[k] = v
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build weather request", err)
	}
	return req, nil
}
