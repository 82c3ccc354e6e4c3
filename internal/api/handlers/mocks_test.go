package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"weatheralert/internal/core"
	"weatheralert/internal/engine"
	"weatheralert/internal/types"
)

// =============================================================================
// Mock Implementations
// =============================================================================

type mockEngine struct {
	checkFn  func(ctx context.Context, in engine.CheckInput) (types.AlertCheckResponse, error)
	nearbyFn func(origin types.Location, userType string, events []types.DisasterEvent, maxDistanceKm float64) ([]types.Alert, error)

	lastCheck *engine.CheckInput
}

func (m *mockEngine) Check(ctx context.Context, in engine.CheckInput) (types.AlertCheckResponse, error) {
	m.lastCheck = &in
	if m.checkFn != nil {
		return m.checkFn(ctx, in)
	}
	return types.AlertCheckResponse{Alerts: []types.Alert{}, RiskLevel: types.RiskLow}, nil
}

func (m *mockEngine) Nearby(origin types.Location, userType string, events []types.DisasterEvent, maxDistanceKm float64) ([]types.Alert, error) {
	if m.nearbyFn != nil {
		return m.nearbyFn(origin, userType, events, maxDistanceKm)
	}
	return nil, nil
}

type mockWeather struct {
	currentFn  func(ctx context.Context, loc types.Location) (*types.WeatherSnapshot, error)
	forecastFn func(ctx context.Context, loc types.Location) ([]types.ForecastPoint, error)
	dailyFn    func(ctx context.Context, loc types.Location) ([]types.ForecastPoint, error)

	mu    sync.Mutex
	calls int
}

func (m *mockWeather) count() {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
}

func (m *mockWeather) Current(ctx context.Context, loc types.Location) (*types.WeatherSnapshot, error) {
	m.count()
	if m.currentFn != nil {
		return m.currentFn(ctx, loc)
	}
	return &types.WeatherSnapshot{TemperatureC: 24, Humidity: 50, VisibilityKm: 10, Timestamp: checkNow}, nil
}

func (m *mockWeather) Forecast(ctx context.Context, loc types.Location) ([]types.ForecastPoint, error) {
	m.count()
	if m.forecastFn != nil {
		return m.forecastFn(ctx, loc)
	}
	return []types.ForecastPoint{}, nil
}

func (m *mockWeather) Daily(ctx context.Context, loc types.Location) ([]types.ForecastPoint, error) {
	m.count()
	if m.dailyFn != nil {
		return m.dailyFn(ctx, loc)
	}
	return []types.ForecastPoint{}, nil
}

type mockFeed struct {
	recentFn func(ctx context.Context) ([]types.DisasterEvent, error)
	calls    int
}

func (m *mockFeed) Recent(ctx context.Context) ([]types.DisasterEvent, error) {
	m.calls++
	if m.recentFn != nil {
		return m.recentFn(ctx)
	}
	return []types.DisasterEvent{}, nil
}

type mockHistory struct {
	recordAllFn   func(ctx context.Context, userID string, alerts []types.Alert, recordedAt time.Time) ([]types.Alert, error)
	listFn        func(ctx context.Context, userID string, limit int) ([]types.HistoryEntry, error)
	acknowledgeFn func(ctx context.Context, userID, alertID string) error

	recorded []types.Alert
}

func (m *mockHistory) RecordAll(ctx context.Context, userID string, alerts []types.Alert, recordedAt time.Time) ([]types.Alert, error) {
	m.recorded = append(m.recorded, alerts...)
	if m.recordAllFn != nil {
		return m.recordAllFn(ctx, userID, alerts, recordedAt)
	}
	return alerts, nil
}

func (m *mockHistory) List(ctx context.Context, userID string, limit int) ([]types.HistoryEntry, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID, limit)
	}
	return nil, nil
}

func (m *mockHistory) Acknowledge(ctx context.Context, userID, alertID string) error {
	if m.acknowledgeFn != nil {
		return m.acknowledgeFn(ctx, userID, alertID)
	}
	return nil
}

type mockPreferences struct {
	upsertFn func(ctx context.Context, p types.UserPreferences) (*types.UserPreferences, error)
	getFn    func(ctx context.Context, userID string) (*types.UserPreferences, error)
	deleteFn func(ctx context.Context, userID string) error
}

func (m *mockPreferences) Upsert(ctx context.Context, p types.UserPreferences) (*types.UserPreferences, error) {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, p)
	}
	p.UpdatedAt = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	return &p, nil
}

func (m *mockPreferences) Get(ctx context.Context, userID string) (*types.UserPreferences, error) {
	if m.getFn != nil {
		return m.getFn(ctx, userID)
	}
	return nil, types.NewAppError(types.ErrCodeNotFoundPreferences, "not found", nil)
}

func (m *mockPreferences) Delete(ctx context.Context, userID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, userID)
	}
	return nil
}

type mockPublisher struct {
	failures  int
	published []types.Alert
	origin    string
}

func (m *mockPublisher) PublishAll(_ context.Context, _ string, alerts []types.Alert, origin string) int {
	m.published = append(m.published, alerts...)
	m.origin = origin
	return m.failures
}

type mockRecorder struct {
	mu       sync.Mutex
	checks   int
	failures []string
}

func (m *mockRecorder) RecordCheck(types.AlertCheckResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks++
}

func (m *mockRecorder) RecordUpstreamFailure(source string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, source)
}

// =============================================================================
// Helpers
// =============================================================================

func testValidator() *core.Validator {
	return core.NewValidator(slog.Default())
}

type envelope struct {
	Data json.RawMessage     `json:"data"`
	Meta *types.ResponseMeta `json:"meta"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder, data any) *types.ResponseMeta {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	if data != nil {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env.Meta
}

func errorCodeOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body core.APIErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Error.Code
}

func ptr[T any](v T) *T { return &v }
