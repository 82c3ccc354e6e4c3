package handlers

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"

	"weatheralert/internal/core"
	"weatheralert/internal/engine"
	"weatheralert/internal/types"
)

// CurrentWeatherResponse pairs a snapshot with its risk score.
type CurrentWeatherResponse struct {
	Location types.Location        `json:"location"`
	Current  types.WeatherSnapshot `json:"current"`
	Risk     types.RiskResult      `json:"risk"`
}

// ForecastResponse is the body of GET /v1/weather/forecast.
type ForecastResponse struct {
	Location types.Location        `json:"location"`
	Points   []types.ForecastPoint `json:"forecast"`
}

// Bounds for GET /v1/disasters/recent.
const (
	defaultRecentLimit = 50
	maxRecentLimit     = 500
	maxMagnitude       = 10
)

// WeatherHandler serves current conditions and the hourly and daily forecasts.
type WeatherHandler struct {
	weather WeatherProvider
	metrics CheckRecorder
	logger  *slog.Logger
}

// NewWeatherHandler creates a WeatherHandler. metrics may be nil.
func NewWeatherHandler(weather WeatherProvider, metrics CheckRecorder, logger *slog.Logger) *WeatherHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WeatherHandler{weather: weather, metrics: metrics, logger: logger}
}

// RegisterRoutes mounts the weather endpoints onto r.
func (h *WeatherHandler) RegisterRoutes(r chi.Router) {
	r.Get("/current", h.HandleCurrent)
	r.Get("/forecast", h.HandleForecast)
	r.Get("/forecast/daily", h.HandleDailyForecast)
}

// HandleCurrent handles GET /v1/weather/current?lat=&lon=.
func (h *WeatherHandler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	loc, err := parseLocation(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	snap, err := h.weather.Current(r.Context(), loc)
	if err != nil {
		h.upstreamFailed(r, sourceWeather, err)
		core.Error(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", "private, max-age=300")
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: CurrentWeatherResponse{
		Location: loc,
		Current:  *snap,
		Risk:     engine.Score(*snap),
	}})
}

// HandleForecast handles GET /v1/weather/forecast?lat=&lon=.
func (h *WeatherHandler) HandleForecast(w http.ResponseWriter, r *http.Request) {
	loc, err := parseLocation(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	points, err := h.weather.Forecast(r.Context(), loc)
	if err != nil {
		h.upstreamFailed(r, sourceWeather+"_forecast", err)
		core.Error(w, r, err)
		return
	}
	if points == nil {
		points = []types.ForecastPoint{}
	}

	w.Header().Set("Cache-Control", "private, max-age=900")
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: ForecastResponse{Location: loc, Points: points}})
}

// HandleDailyForecast handles GET /v1/weather/forecast/daily?lat=&lon=.
func (h *WeatherHandler) HandleDailyForecast(w http.ResponseWriter, r *http.Request) {
	loc, err := parseLocation(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	days, err := h.weather.Daily(r.Context(), loc)
	if err != nil {
		h.upstreamFailed(r, sourceWeather+"_daily", err)
		core.Error(w, r, err)
		return
	}
	if days == nil {
		days = []types.ForecastPoint{}
	}

	w.Header().Set("Cache-Control", "private, max-age=1800")
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: ForecastResponse{Location: loc, Points: days}})
}

func (h *WeatherHandler) upstreamFailed(r *http.Request, source string, err error) {
	h.logger.WarnContext(r.Context(), "upstream fetch failed", "source", source, "error", err)
	if h.metrics != nil {
		h.metrics.RecordUpstreamFailure(source)
	}
}

// DisasterHandler serves disaster proximity lookups and the global feed.
type DisasterHandler struct {
	engine  AlertEngine
	feed    DisasterFeed
	metrics CheckRecorder
	logger  *slog.Logger
}

// NewDisasterHandler creates a DisasterHandler. metrics may be nil.
func NewDisasterHandler(eng AlertEngine, feed DisasterFeed, metrics CheckRecorder, logger *slog.Logger) *DisasterHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DisasterHandler{engine: eng, feed: feed, metrics: metrics, logger: logger}
}

// RegisterRoutes mounts the disaster endpoints onto r.
func (h *DisasterHandler) RegisterRoutes(r chi.Router) {
	r.Get("/nearby", h.HandleNearby)
	r.Get("/recent", h.HandleRecent)
}

// HandleNearby handles GET /v1/disasters/nearby?lat=&lon=&user_type=&max_distance_km=.
// user_type defaults to GENERAL.
func (h *DisasterHandler) HandleNearby(w http.ResponseWriter, r *http.Request) {
	loc, err := parseLocation(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	maxDistance, err := parseOptionalFloat(r, "max_distance_km")
	if err != nil {
		core.Error(w, r, err)
		return
	}
	userType := strings.TrimSpace(r.URL.Query().Get("user_type"))
	if userType == "" {
		userType = string(types.UserTypeGeneral)
	}
	if _, err := types.ParseUserType(userType); err != nil {
		core.Error(w, r, err)
		return
	}

	events, err := h.feed.Recent(r.Context())
	if err != nil {
		h.feedFailed(r, err)
		core.Error(w, r, err)
		return
	}

	alerts, err := h.engine.Nearby(loc, userType, events, maxDistance)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if alerts == nil {
		alerts = []types.Alert{}
	}
	count := len(alerts)
	core.JSON(w, r, http.StatusOK, core.APIResponse{
		Data: alerts,
		Meta: &types.ResponseMeta{Count: &count},
	})
}

// HandleRecent handles GET /v1/disasters/recent?min_magnitude=&limit=. It
// lists feed events worldwide, newest first, without scoring them against a
// location.
func (h *DisasterHandler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	minMagnitude, err := parseOptionalFloat(r, "min_magnitude")
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if minMagnitude < 0 || minMagnitude > maxMagnitude {
		core.Error(w, r, types.MalformedInput("min_magnitude", "min_magnitude must be between 0 and 10"))
		return
	}
	limit, err := parseOptionalInt(r, "limit", defaultRecentLimit)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if limit < 1 || limit > maxRecentLimit {
		core.Error(w, r, types.MalformedInput("limit", "limit must be between 1 and 500"))
		return
	}

	events, err := h.feed.Recent(r.Context())
	if err != nil {
		h.feedFailed(r, err)
		core.Error(w, r, err)
		return
	}

	out := make([]types.DisasterEvent, 0, min(len(events), limit))
	for _, ev := range events {
		if ev.Magnitude >= minMagnitude {
			out = append(out, ev)
		}
	}
	slices.SortStableFunc(out, func(a, b types.DisasterEvent) int { return b.Time.Compare(a.Time) })
	if len(out) > limit {
		out = out[:limit]
	}

	count := len(out)
	w.Header().Set("Cache-Control", "public, max-age=60")
	core.JSON(w, r, http.StatusOK, core.APIResponse{
		Data: out,
		Meta: &types.ResponseMeta{Count: &count},
	})
}

func (h *DisasterHandler) feedFailed(r *http.Request, err error) {
	h.logger.WarnContext(r.Context(), "upstream fetch failed", "source", sourceDisasterFeed, "error", err)
	if h.metrics != nil {
		h.metrics.RecordUpstreamFailure(sourceDisasterFeed)
	}
}
