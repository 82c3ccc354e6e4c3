package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"weatheralert/internal/types"
)

// MaxDistanceLimitKm bounds caller-supplied disaster search radii.
const MaxDistanceLimitKm = 20000

// CheckInput is everything one alert check evaluates. Current, Forecast and
// Disasters are optional; absent inputs evaluate to no alerts.
type CheckInput struct {
	Origin        types.Location
	UserType      string
	Overrides     types.ThresholdOverrides
	Current       *types.WeatherSnapshot
	Forecast      []types.ForecastPoint
	Disasters     []types.DisasterEvent
	MaxDistanceKm float64
}

// Engine composes the scorer, resolver, evaluators and assembler.
type Engine struct {
	cfg       Config
	clock     clockwork.Clock
	logger    *slog.Logger
	rules     *RuleEvaluator
	disasters *DisasterEvaluator
}

// New builds an Engine. A nil logger uses slog.Default and a nil clock the
// real clock.
func New(cfg Config, logger *slog.Logger, clock clockwork.Clock) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	logger = logger.With("component", "engine")
	return &Engine{
		cfg:       cfg,
		clock:     clock,
		logger:    logger,
		rules:     NewRuleEvaluator(cfg, logger),
		disasters: NewDisasterEvaluator(cfg, logger),
	}
}

// Config returns the engine's configuration.
func (e *Engine) Config() Config { return e.cfg }

// Check validates the request, then scores the snapshot and runs every weather
// rule and the disaster evaluator concurrently before assembling the result.
// Only invalid top-level parameters produce an error.
func (e *Engine) Check(ctx context.Context, in CheckInput) (types.AlertCheckResponse, error) {
	if err := validateCheck(in); err != nil {
		return types.AlertCheckResponse{}, err
	}
	userType, err := types.ParseUserType(in.UserType)
	if err != nil {
		return types.AlertCheckResponse{}, err
	}
	thresholds, err := ResolveThresholds(string(userType), in.Overrides)
	if err != nil {
		return types.AlertCheckResponse{}, err
	}
	if err := ctx.Err(); err != nil {
		return types.AlertCheckResponse{}, err
	}

	ruleIn := RuleInput{
		Origin:     in.Origin,
		UserType:   userType,
		Current:    in.Current,
		Forecast:   in.Forecast,
		Thresholds: thresholds,
		Now:        e.clock.Now().UTC(),
	}

	rules := e.rules.Rules()
	var (
		risk     = NeutralRisk()
		slots    = make([]*types.Alert, len(rules))
		disaster []types.Alert
		g        errgroup.Group
	)

	if in.Current != nil {
		g.Go(func() error {
			risk = Score(*in.Current)
			return nil
		})
	}
	for i, r := range rules {
		g.Go(func() error {
			if a, ok := e.rules.Apply(r, ruleIn); ok {
				slots[i] = &a
			}
			return nil
		})
	}
	g.Go(func() error {
		disaster = e.disasters.Evaluate(in.Disasters, in.Origin, userType, in.MaxDistanceKm, ruleIn.Now)
		return nil
	})
	_ = g.Wait()

	weather := make([]types.Alert, 0, len(slots))
	for _, a := range slots {
		if a != nil {
			weather = append(weather, *a)
		}
	}

	resp := Assemble(weather, disaster, risk)
	e.logger.Debug("alert check evaluated",
		"user_type", userType,
		"alerts", len(resp.Alerts),
		"risk_score", resp.RiskScore,
	)
	return resp, nil
}

// Nearby evaluates disaster events only.
func (e *Engine) Nearby(origin types.Location, rawUserType string, events []types.DisasterEvent, maxDistanceKm float64) ([]types.Alert, error) {
	if err := validateOrigin(origin); err != nil {
		return nil, err
	}
	if err := validateDistance(maxDistanceKm); err != nil {
		return nil, err
	}
	userType, err := types.ParseUserType(rawUserType)
	if err != nil {
		return nil, err
	}
	return e.disasters.Evaluate(events, origin, userType, maxDistanceKm, e.clock.Now().UTC()), nil
}

func validateCheck(in CheckInput) error {
	if err := validateOrigin(in.Origin); err != nil {
		return err
	}
	if err := validateDistance(in.MaxDistanceKm); err != nil {
		return err
	}
	if in.Current != nil {
		if err := validateCurrent(*in.Current); err != nil {
			return err
		}
	}
	return validateForecast(in.Forecast)
}

// validateCurrent requires the observation timestamp every producer sets, so
// a zero-valued snapshot is rejected rather than scored as a 0°C reading.
func validateCurrent(s types.WeatherSnapshot) error {
	if s.Timestamp.IsZero() {
		return types.MalformedInput("current.timestamp", "current weather must carry an observation timestamp")
	}
	fields := []struct {
		name string
		v    float64
	}{
		{"temperature", s.TemperatureC},
		{"humidity", s.Humidity},
		{"wind_speed", s.WindSpeedKmh},
		{"visibility", s.VisibilityKm},
		{"precipitation", s.PrecipitationMM},
	}
	for _, f := range fields {
		if !isFinite(f.v) {
			return types.MalformedInput("current."+f.name, "current."+f.name+" must be a finite number")
		}
	}
	return nil
}

// validateForecast requires a time and a known granularity on every point.
// Non-finite readings are left to the rules, which skip themselves.
func validateForecast(points []types.ForecastPoint) error {
	for i, p := range points {
		if p.Time.IsZero() {
			field := fmt.Sprintf("forecast[%d].time", i)
			return types.MalformedInput(field, field+" is required")
		}
		if p.Granularity != types.GranularityHourly && p.Granularity != types.GranularityDaily {
			field := fmt.Sprintf("forecast[%d].granularity", i)
			return types.MalformedInput(field, field+" must be hourly or daily")
		}
	}
	return nil
}

func validateOrigin(o types.Location) error {
	if math.IsNaN(o.Lat) || math.IsInf(o.Lat, 0) || o.Lat < -90 || o.Lat > 90 {
		return types.MalformedInput("lat", "lat must be a number between -90 and 90")
	}
	if math.IsNaN(o.Lon) || math.IsInf(o.Lon, 0) || o.Lon < -180 || o.Lon > 180 {
		return types.MalformedInput("lon", "lon must be a number between -180 and 180")
	}
	return nil
}

// validateDistance accepts zero, meaning the default radius.
func validateDistance(km float64) error {
	if km == 0 {
		return nil
	}
	if !isFinite(km) || km < 1 || km > MaxDistanceLimitKm {
		return types.MalformedInput("max_distance_km", "max_distance_km must be between 1 and 20000")
	}
	return nil
}
