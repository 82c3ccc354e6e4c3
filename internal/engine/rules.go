package engine

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"weatheralert/internal/types"
)

// RuleInput is the shared, read-only context every weather rule inspects.
type RuleInput struct {
	Origin     types.Location
	UserType   types.UserType
	Current    *types.WeatherSnapshot
	Forecast   []types.ForecastPoint
	Thresholds types.AlertThresholds
	Now        time.Time
}

// RuleSkip records a rule that could not evaluate. It is logged and never
// returned to API callers.
type RuleSkip struct {
	Type   types.AlertType
	Reason string
}

func (e *RuleSkip) Error() string {
	return fmt.Sprintf("rule %s skipped: %s", e.Type, e.Reason)
}

// finding is what a rule's detector extracts from the input.
type finding struct {
	value  float64 // peak reading that drove the trigger
	limit  float64 // threshold it was compared against
	hours  int
	start  *time.Time
	end    *time.Time
	second float64 // secondary reading, e.g. temperature for humidity
}

// windowStart is the instant an alert id is derived from.
func (f finding) windowStart(in RuleInput) time.Time {
	if f.start != nil {
		return *f.start
	}
	if in.Current != nil && !in.Current.Timestamp.IsZero() {
		return in.Current.Timestamp.UTC().Truncate(time.Hour)
	}
	return in.Now.UTC().Truncate(time.Hour)
}

// Rule is one weather condition expressed as detector, severity and message
// functions over a RuleInput.
type Rule struct {
	Type          types.AlertType
	Title         string
	NeedsForecast bool
	NeedsCurrent  bool

	Detect   func(cfg Config, in RuleInput) (finding, bool, error)
	Severity func(cfg Config, f finding) types.Severity
	Message  func(f finding) string
}

// WeatherRules returns the five weather rules in evaluation order.
func WeatherRules() []Rule {
	return []Rule{
		{
			Type:          types.AlertHeatwave,
			Title:         "Heatwave Alert",
			NeedsForecast: true,
			Detect:        detectHeatwave,
			Severity:      degreeSeverity,
			Message: func(f finding) string {
				return fmt.Sprintf("Temperature expected to reach %.1f°C for %d hours", f.value, f.hours)
			},
		},
		{
			Type:          types.AlertHeavyRain,
			Title:         "Heavy Rain Alert",
			NeedsForecast: true,
			Detect:        detectHeavyRain,
			Severity:      ratioSeverity,
			Message: func(f finding) string {
				return fmt.Sprintf("Expected rainfall: %.1fmm in next 24 hours", f.value)
			},
		},
		{
			Type:     types.AlertStorm,
			Title:    "High Wind / Storm Alert",
			Detect:   detectStorm,
			Severity: ratioSeverity,
			Message: func(f finding) string {
				return fmt.Sprintf("Wind speeds expected to reach %.1f km/h", f.value)
			},
		},
		{
			Type:          types.AlertColdWave,
			Title:         "Cold Wave Alert",
			NeedsForecast: true,
			Detect:        detectColdWave,
			Severity:      degreeSeverity,
			Message: func(f finding) string {
				return fmt.Sprintf("Temperature expected to drop to %.1f°C for %d hours", f.value, f.hours)
			},
		},
		{
			Type:         types.AlertHighHumidity,
			Title:        "High Humidity Alert",
			NeedsCurrent: true,
			Detect:       detectHighHumidity,
			Severity: func(cfg Config, f finding) types.Severity {
				if f.value >= f.limit+cfg.HumidityEscalation {
					return types.SeverityHigh
				}
				return types.SeverityModerate
			},
			Message: func(f finding) string {
				return fmt.Sprintf("Humidity at %.0f%% with temperature %.1f°C", f.value, f.second)
			},
		},
	}
}

// RuleEvaluator applies the weather rules to a RuleInput.
type RuleEvaluator struct {
	cfg    Config
	rules  []Rule
	logger *slog.Logger
}

// NewRuleEvaluator builds an evaluator over WeatherRules.
func NewRuleEvaluator(cfg Config, logger *slog.Logger) *RuleEvaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &RuleEvaluator{cfg: cfg, rules: WeatherRules(), logger: logger}
}

// Rules returns a copy of the evaluator's rule list.
func (e *RuleEvaluator) Rules() []Rule {
	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// Evaluate runs every rule. A skipped rule is logged and contributes nothing.
func (e *RuleEvaluator) Evaluate(in RuleInput) []types.Alert {
	alerts := make([]types.Alert, 0, len(e.rules))
	for _, r := range e.rules {
		if a, ok := e.Apply(r, in); ok {
			alerts = append(alerts, a)
		}
	}
	return alerts
}

// Apply evaluates a single rule and logs a skip. It is safe to call
// concurrently for different rules over the same input.
func (e *RuleEvaluator) Apply(r Rule, in RuleInput) (types.Alert, bool) {
	a, ok, err := e.EvaluateRule(r, in)
	if err != nil {
		e.logger.Warn("alert rule skipped", "rule", r.Type, "error", err)
		return types.Alert{}, false
	}
	return a, ok
}

// EvaluateRule returns the alert for r, false when the condition did not
// trigger, or a *RuleSkip when the input could not support the rule.
func (e *RuleEvaluator) EvaluateRule(r Rule, in RuleInput) (types.Alert, bool, error) {
	if r.NeedsForecast {
		if len(in.Forecast) == 0 {
			return types.Alert{}, false, &RuleSkip{Type: r.Type, Reason: "forecast is empty"}
		}
		for i, p := range in.Forecast {
			if !p.Finite() {
				return types.Alert{}, false, &RuleSkip{Type: r.Type, Reason: fmt.Sprintf("forecast point %d has non-numeric values", i)}
			}
		}
	}
	if r.NeedsCurrent && in.Current == nil {
		return types.Alert{}, false, &RuleSkip{Type: r.Type, Reason: "current weather is missing"}
	}

	f, triggered, err := r.Detect(e.cfg, in)
	if err != nil {
		return types.Alert{}, false, err
	}
	if !triggered {
		return types.Alert{}, false, nil
	}

	return types.Alert{
		ID:              alertID(r.Type, f.windowStart(in), in.Origin),
		Type:            r.Type,
		Severity:        r.Severity(e.cfg, f),
		Title:           r.Title,
		Message:         r.Message(f),
		Recommendations: Recommendations(r.Type, in.UserType),
		StartTime:       f.start,
		EndTime:         f.end,
		CreatedAt:       in.Now,
	}, true, nil
}

func degreeSeverity(cfg Config, f finding) types.Severity {
	over := math.Abs(f.value - f.limit)
	switch {
	case over < cfg.Bands.DegreesHigh:
		return types.SeverityModerate
	case over <= cfg.Bands.DegreesSevere:
		return types.SeverityHigh
	default:
		return types.SeveritySevere
	}
}

func ratioSeverity(cfg Config, f finding) types.Severity {
	if f.limit <= 0 {
		return types.SeveritySevere
	}
	ratio := f.value / f.limit
	switch {
	case ratio <= cfg.Bands.RatioModerate:
		return types.SeverityModerate
	case ratio <= cfg.Bands.RatioHigh:
		return types.SeverityHigh
	default:
		return types.SeveritySevere
	}
}

func detectHeatwave(cfg Config, in RuleInput) (finding, bool, error) {
	limit := in.Thresholds.HeatwaveTempC
	r, ok := extremeRun(in.Forecast, cfg.MinSustainedHours, func(p types.ForecastPoint) float64 {
		return p.High() - limit
	})
	if !ok {
		return finding{}, false, nil
	}
	return r.finding(in.Forecast, limit, limit+r.peak), true, nil
}

func detectColdWave(cfg Config, in RuleInput) (finding, bool, error) {
	limit := in.Thresholds.ColdWaveTempC
	r, ok := extremeRun(in.Forecast, cfg.MinSustainedHours, func(p types.ForecastPoint) float64 {
		return limit - p.Low()
	})
	if !ok {
		return finding{}, false, nil
	}
	return r.finding(in.Forecast, limit, limit-r.peak), true, nil
}

func detectHeavyRain(cfg Config, in RuleInput) (finding, bool, error) {
	window := horizon(in.Forecast, cfg.ForecastHorizon)
	var (
		total      float64
		start, end *time.Time
	)
	for i := range window {
		p := window[i]
		if p.PrecipitationMM <= 0 {
			continue
		}
		total += p.PrecipitationMM
		t := p.Time
		if start == nil {
			start = &t
		}
		end = &t
	}
	if total <= 0 || total < in.Thresholds.HeavyRainMM {
		return finding{}, false, nil
	}
	return finding{value: total, limit: in.Thresholds.HeavyRainMM, start: start, end: end}, true, nil
}

func detectStorm(cfg Config, in RuleInput) (finding, bool, error) {
	var (
		found bool
		peak  float64
		at    *time.Time
	)
	if in.Current != nil && isFinite(in.Current.WindSpeedKmh) {
		peak, found = in.Current.WindSpeedKmh, true
	}
	for _, p := range horizon(in.Forecast, cfg.ForecastHorizon) {
		if !isFinite(p.WindSpeedKmh) {
			continue
		}
		if !found || p.WindSpeedKmh > peak {
			t := p.Time
			peak, at, found = p.WindSpeedKmh, &t, true
		}
	}
	if !found {
		return finding{}, false, &RuleSkip{Type: types.AlertStorm, Reason: "no wind readings available"}
	}
	if peak < in.Thresholds.HighWindKmh {
		return finding{}, false, nil
	}
	return finding{value: peak, limit: in.Thresholds.HighWindKmh, start: at, end: at}, true, nil
}

func detectHighHumidity(cfg Config, in RuleInput) (finding, bool, error) {
	c := in.Current
	if !isFinite(c.TemperatureC) || !isFinite(c.Humidity) {
		return finding{}, false, &RuleSkip{Type: types.AlertHighHumidity, Reason: "current temperature or humidity is non-numeric"}
	}
	if c.TemperatureC <= cfg.HumidityTriggerTempC || c.Humidity < in.Thresholds.HighHumidity {
		return finding{}, false, nil
	}
	return finding{value: c.Humidity, limit: in.Thresholds.HighHumidity, second: c.TemperatureC}, true, nil
}

// horizon returns the points within d of the first point.
func horizon(points []types.ForecastPoint, d time.Duration) []types.ForecastPoint {
	if len(points) == 0 {
		return nil
	}
	cutoff := points[0].Time.Add(d)
	for i, p := range points {
		if !p.Time.Before(cutoff) {
			return points[:i]
		}
	}
	return points
}

// run is a span of consecutive qualifying forecast points, [first, last].
type run struct {
	first, last int
	peak        float64
}

func (r run) finding(points []types.ForecastPoint, limit, value float64) finding {
	start, end := points[r.first].Time, points[r.last].Time
	return finding{
		value: value,
		limit: limit,
		hours: runHours(points[r.first : r.last+1]),
		start: &start,
		end:   &end,
	}
}

// extremeRun finds the qualifying run with the largest excess. A point
// qualifies when excess(p) >= 0. Hourly runs need minHourly points; a single
// daily point is enough. Ties go to the earliest run.
func extremeRun(points []types.ForecastPoint, minHourly int, excess func(types.ForecastPoint) float64) (run, bool) {
	var (
		best  run
		found bool
		cur   *run
	)
	closeRun := func() {
		if cur == nil {
			return
		}
		n := cur.last - cur.first + 1
		daily := points[cur.first].Granularity == types.GranularityDaily
		if (daily || n >= minHourly) && (!found || cur.peak > best.peak) {
			best, found = *cur, true
		}
		cur = nil
	}

	for i, p := range points {
		x := excess(p)
		if x < 0 {
			closeRun()
			continue
		}
		if cur != nil && points[cur.last].Granularity != p.Granularity {
			closeRun()
		}
		if cur == nil {
			cur = &run{first: i, last: i, peak: x}
			continue
		}
		cur.last = i
		if x > cur.peak {
			cur.peak = x
		}
	}
	closeRun()
	return best, found
}

// runHours estimates the duration covered by a run, counting each point as one
// step of the sequence's cadence.
func runHours(points []types.ForecastPoint) int {
	n := len(points)
	if n == 0 {
		return 0
	}
	if points[0].Granularity == types.GranularityDaily {
		return 24 * n
	}
	if n == 1 {
		return 1
	}
	span := points[n-1].Time.Sub(points[0].Time).Hours()
	return int(math.Round(span * float64(n) / float64(n-1)))
}
