// Package handlers contains the HTTP handlers mounted under /v1.
//
// Handlers depend on small locally defined interfaces so each can be tested
// with hand-written mocks; cmd/api wires the concrete engine, repositories,
// cache and publisher.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"weatheralert/internal/core"
	"weatheralert/internal/db"
	"weatheralert/internal/engine"
	"weatheralert/internal/types"
)

// AlertEngine is satisfied by *engine.Engine.
type AlertEngine interface {
	Check(ctx context.Context, in engine.CheckInput) (types.AlertCheckResponse, error)
	Nearby(origin types.Location, rawUserType string, events []types.DisasterEvent, maxDistanceKm float64) ([]types.Alert, error)
}

// WeatherProvider is satisfied by *cache.Cache and *external.OpenWeatherClient.
type WeatherProvider interface {
	Current(ctx context.Context, loc types.Location) (*types.WeatherSnapshot, error)
	Forecast(ctx context.Context, loc types.Location) ([]types.ForecastPoint, error)
	Daily(ctx context.Context, loc types.Location) ([]types.ForecastPoint, error)
}

// DisasterFeed is satisfied by *cache.Cache and *external.USGSClient.
type DisasterFeed interface {
	Recent(ctx context.Context) ([]types.DisasterEvent, error)
}

// HistoryStore is satisfied by *db.AlertHistoryRepository.
type HistoryStore interface {
	RecordAll(ctx context.Context, userID string, alerts []types.Alert, recordedAt time.Time) ([]types.Alert, error)
	List(ctx context.Context, userID string, limit int) ([]types.HistoryEntry, error)
	Acknowledge(ctx context.Context, userID, alertID string) error
}

// PreferencesReader is the read side of *db.PreferencesRepository.
type PreferencesReader interface {
	Get(ctx context.Context, userID string) (*types.UserPreferences, error)
}

// AlertPublisher is satisfied by *notifications.AlertPublisher.
type AlertPublisher interface {
	PublishAll(ctx context.Context, userID string, alerts []types.Alert, origin string) int
}

// CheckRecorder is satisfied by *observability.Metrics.
type CheckRecorder interface {
	RecordCheck(resp types.AlertCheckResponse)
	RecordUpstreamFailure(source string)
}

// CheckRequest is the body of POST /v1/alerts/check. Current, Forecast and
// Disasters are fetched from the upstream providers when omitted.
type CheckRequest struct {
	Lat              *float64              `json:"lat" validate:"required"`
	Lon              *float64              `json:"lon" validate:"required"`
	UserType         string                `json:"user_type" validate:"required,user_type"`
	UserID           string                `json:"user_id,omitempty" validate:"omitempty,max=128"`
	CustomThresholds map[string]any        `json:"custom_thresholds,omitempty"`
	MaxDistanceKm    float64               `json:"max_distance_km,omitempty"`
	Current          *CurrentInput         `json:"current,omitempty"`
	Forecast         []ForecastPointInput  `json:"forecast,omitempty"`
	Disasters        []types.DisasterEvent `json:"disasters,omitempty"`
}

// ValidationWarnings reports custom threshold entries that will be ignored.
func (r *CheckRequest) ValidationWarnings() []string {
	return ignoredThresholdWarnings(r.CustomThresholds)
}

func ignoredThresholdWarnings(raw map[string]any) []string {
	_, ignored := types.ParseThresholdOverrides(raw)
	warnings := make([]string, 0, len(ignored))
	for _, key := range ignored {
		warnings = append(warnings, fmt.Sprintf("custom_thresholds.%s ignored: not a known numeric threshold", key))
	}
	return warnings
}

// AlertHandler serves the alert check, history and dismiss endpoints.
type AlertHandler struct {
	engine      AlertEngine
	weather     WeatherProvider
	feed        DisasterFeed
	history     HistoryStore
	preferences PreferencesReader
	publisher   AlertPublisher
	metrics     CheckRecorder
	clock       types.Clock
	validator   *core.Validator
	logger      *slog.Logger
}

// AlertHandlerDeps groups the AlertHandler collaborators. History,
// Preferences, Publisher and Metrics are optional.
type AlertHandlerDeps struct {
	Engine      AlertEngine
	Weather     WeatherProvider
	Feed        DisasterFeed
	History     HistoryStore
	Preferences PreferencesReader
	Publisher   AlertPublisher
	Metrics     CheckRecorder
	Clock       types.Clock
}

// NewAlertHandler creates an AlertHandler.
func NewAlertHandler(deps AlertHandlerDeps, val *core.Validator, logger *slog.Logger) *AlertHandler {
	if logger == nil {
		logger = slog.Default()
	}
	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &AlertHandler{
		engine:      deps.Engine,
		weather:     deps.Weather,
		feed:        deps.Feed,
		history:     deps.History,
		preferences: deps.Preferences,
		publisher:   deps.Publisher,
		metrics:     deps.Metrics,
		clock:       clock,
		validator:   val,
		logger:      logger,
	}
}

// RegisterRoutes mounts the alert endpoints onto r.
func (h *AlertHandler) RegisterRoutes(r chi.Router) {
	r.Post("/check", h.HandleCheck)
	r.Get("/history", h.HandleHistory)
	r.Post("/{alertID}/dismiss", h.HandleDismiss)
}

// HandleCheck handles POST /v1/alerts/check.
//  1. Decode and validate; reject bad coordinates, user type or inline
//     weather inputs before any fetch.
//  2. Load stored preferences when user_id is set.
//  3. Fetch omitted inputs. A failed source contributes nothing and adds a warning.
//  4. Evaluate, then record and publish newly fired alerts for the user.
func (h *AlertHandler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	result := h.validator.ValidateStructWithWarnings(&req)
	if err := result.Err(); err != nil {
		core.Error(w, r, err)
		return
	}
	warnings := result.Warnings

	origin := types.Location{Lat: *req.Lat, Lon: *req.Lon}
	if !origin.Valid() {
		core.Error(w, r, types.MalformedInput("lat", "lat must be between -90 and 90 and lon between -180 and 180"))
		return
	}

	var current *types.WeatherSnapshot
	if req.Current != nil {
		snap, err := req.Current.Snapshot(h.clock.Now().UTC())
		if err != nil {
			core.Error(w, r, err)
			return
		}
		current = snap
	}
	forecast, err := forecastPoints(req.Forecast)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	ctx := r.Context()
	var prefs *types.UserPreferences
	if req.UserID != "" {
		var warning string
		prefs, warning = h.loadPreferences(ctx, req.UserID)
		if warning != "" {
			warnings = append(warnings, warning)
		}
	}

	overrides, _ := types.ParseThresholdOverrides(req.CustomThresholds)
	if req.CustomThresholds == nil && prefs != nil {
		overrides = prefs.CustomThresholds
	}

	in := engine.CheckInput{
		Origin:        origin,
		UserType:      req.UserType,
		Overrides:     overrides,
		Current:       current,
		Forecast:      forecast,
		Disasters:     req.Disasters,
		MaxDistanceKm: req.MaxDistanceKm,
	}
	warnings = append(warnings, h.fillInputs(ctx, &in, req)...)

	resp, err := h.engine.Check(ctx, in)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordCheck(resp)
	}

	if req.UserID != "" {
		warnings = append(warnings, h.deliver(ctx, req.UserID, prefs, resp.Alerts)...)
	}

	body := core.APIResponse{Data: resp}
	if len(warnings) > 0 {
		body.Meta = &types.ResponseMeta{Warnings: warnings}
	}
	core.JSON(w, r, http.StatusOK, body)
}

// loadPreferences returns nil without a warning when the user has none.
func (h *AlertHandler) loadPreferences(ctx context.Context, userID string) (*types.UserPreferences, string) {
	if h.preferences == nil {
		return nil, ""
	}
	prefs, err := h.preferences.Get(ctx, userID)
	if err == nil {
		return prefs, ""
	}
	var appErr *types.AppError
	if errors.As(err, &appErr) && appErr.Code == types.ErrCodeNotFoundPreferences {
		return nil, ""
	}
	h.logger.WarnContext(ctx, "failed to load preferences", "user_id", userID, "error", err)
	return nil, "stored preferences unavailable; default thresholds applied"
}

// fillInputs fetches whichever inputs the request omitted, concurrently.
func (h *AlertHandler) fillInputs(ctx context.Context, in *engine.CheckInput, req CheckRequest) []string {
	var (
		mu       sync.Mutex
		g        errgroup.Group
		warnings []string
	)
	fail := func(source string, err error) {
		h.logger.WarnContext(ctx, "upstream fetch failed", "source", source, "error", err)
		if h.metrics != nil {
			h.metrics.RecordUpstreamFailure(source)
		}
		mu.Lock()
		warnings = append(warnings, source+" data unavailable: "+errorCode(err))
		mu.Unlock()
	}

	if req.Current == nil && h.weather != nil {
		g.Go(func() error {
			snap, err := h.weather.Current(ctx, in.Origin)
			if err != nil {
				fail(sourceWeather, err)
				return nil
			}
			in.Current = snap
			return nil
		})
	}
	if req.Forecast == nil && h.weather != nil {
		g.Go(func() error {
			points, err := h.weather.Forecast(ctx, in.Origin)
			if err != nil {
				fail(sourceWeather+"_forecast", err)
				return nil
			}
			in.Forecast = points
			return nil
		})
	}
	if req.Disasters == nil && h.feed != nil {
		g.Go(func() error {
			events, err := h.feed.Recent(ctx)
			if err != nil {
				fail(sourceDisasterFeed, err)
				return nil
			}
			in.Disasters = events
			return nil
		})
	}
	_ = g.Wait()

	// Goroutines finish in any order; keep the response stable.
	slices.Sort(warnings)
	return warnings
}

// deliver records alerts to history and publishes the ones the user has not
// seen before. Failures never fail the check.
func (h *AlertHandler) deliver(ctx context.Context, userID string, prefs *types.UserPreferences, alerts []types.Alert) []string {
	if h.history == nil || len(alerts) == 0 {
		return nil
	}
	fresh, err := h.history.RecordAll(ctx, userID, alerts, h.clock.Now().UTC())
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to record alert history", "user_id", userID, "error", err)
		return []string{"alert history could not be updated"}
	}
	if h.publisher == nil || prefs == nil || !prefs.NotificationEnabled || len(fresh) == 0 {
		return nil
	}
	if failed := h.publisher.PublishAll(ctx, userID, fresh, types.OriginCheck); failed > 0 {
		return []string{fmt.Sprintf("%d of %d notifications could not be queued", failed, len(fresh))}
	}
	return nil
}

// HandleHistory handles GET /v1/alerts/history?user_id=&limit=.
func (h *AlertHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		core.Error(w, r, types.NewAppError(types.ErrCodeInternalDB, "alert history is not configured", nil))
		return
	}
	userID, err := requireUserID(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		core.Error(w, r, err)
		return
	}

	entries, err := h.history.List(r.Context(), userID, limit)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if entries == nil {
		entries = []types.HistoryEntry{}
	}
	count := len(entries)
	core.JSON(w, r, http.StatusOK, core.APIResponse{
		Data: entries,
		Meta: &types.ResponseMeta{Count: &count},
	})
}

func parseLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return db.DefaultHistoryLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > db.MaxHistoryLimit {
		return 0, types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidLimit,
			fmt.Sprintf("limit must be an integer between 1 and %d", db.MaxHistoryLimit), nil,
			map[string]any{"limit": raw})
	}
	return limit, nil
}

// HandleDismiss handles POST /v1/alerts/{alertID}/dismiss?user_id=.
func (h *AlertHandler) HandleDismiss(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		core.Error(w, r, types.NewAppError(types.ErrCodeInternalDB, "alert history is not configured", nil))
		return
	}
	userID, err := requireUserID(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	alertID := chi.URLParam(r, "alertID")

	if err := h.history.Acknowledge(r.Context(), userID, alertID); err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: map[string]any{
		"alert_id":     alertID,
		"acknowledged": true,
	}})
}

func errorCode(err error) string {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		return string(appErr.Code)
	}
	return string(types.ErrCodeUpstreamUnavailable)
}
