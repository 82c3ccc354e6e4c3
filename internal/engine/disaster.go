package engine

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"weatheralert/internal/types"
)

// DisasterContext is what a disaster rule sees for one in-range event.
type DisasterContext struct {
	Event      types.DisasterEvent
	DistanceKm float64
	UserType   types.UserType
	Now        time.Time
}

// DisasterRule turns an in-range event into at most one alert.
type DisasterRule struct {
	Type     types.AlertType
	Applies  func(dc DisasterContext) bool
	Severity func(cfg Config, dc DisasterContext) types.Severity
	Build    func(cfg Config, dc DisasterContext, sev types.Severity) types.Alert
}

// DisasterRules returns the earthquake and tsunami rules.
func DisasterRules() []DisasterRule {
	return []DisasterRule{
		{
			Type: types.AlertEarthquake,
			Applies: func(dc DisasterContext) bool {
				return dc.Event.Kind == types.DisasterEarthquake
			},
			Severity: earthquakeSeverity,
			Build:    buildEarthquakeAlert,
		},
		{
			Type: types.AlertTsunami,
			Applies: func(dc DisasterContext) bool {
				// A tsunami alert needs the source's tsunami flag whatever the kind.
				if dc.Event.Tsunami == nil {
					return false
				}
				return dc.Event.Kind == types.DisasterTsunami || dc.Event.Kind == types.DisasterEarthquake
			},
			Severity: func(cfg Config, dc DisasterContext) types.Severity {
				if tsunamiArrivalMinutes(cfg, dc) < cfg.TsunamiCriticalMinutes {
					return types.SeverityCritical
				}
				return types.SeverityWarning
			},
			Build: buildTsunamiAlert,
		},
	}
}

// DisasterEvaluator filters disaster events by proximity and grades them.
type DisasterEvaluator struct {
	cfg    Config
	rules  []DisasterRule
	logger *slog.Logger
}

// NewDisasterEvaluator builds an evaluator over DisasterRules.
func NewDisasterEvaluator(cfg Config, logger *slog.Logger) *DisasterEvaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &DisasterEvaluator{cfg: cfg, rules: DisasterRules(), logger: logger}
}

// Evaluate returns alerts for events within maxDistanceKm of origin
// (inclusive). A non-positive maxDistanceKm selects the configured default.
// Output is ordered by severity, then distance, then most recent event.
func (e *DisasterEvaluator) Evaluate(events []types.DisasterEvent, origin types.Location, userType types.UserType, maxDistanceKm float64, now time.Time) []types.Alert {
	if maxDistanceKm <= 0 || !isFinite(maxDistanceKm) {
		maxDistanceKm = e.cfg.DefaultMaxDistanceKm
	}

	alerts := make([]types.Alert, 0, len(events))
	for _, ev := range events {
		if ev.ID == "" || !ev.Epicenter.Valid() || !isFinite(ev.Magnitude) {
			e.logger.Warn("disaster event skipped", "event_id", ev.ID, "reason", "missing id, epicenter or magnitude")
			continue
		}
		d := HaversineKm(origin, ev.Epicenter)
		if d > maxDistanceKm {
			continue
		}
		dc := DisasterContext{Event: ev, DistanceKm: d, UserType: userType, Now: now}
		for _, r := range e.rules {
			if r.Applies(dc) {
				alerts = append(alerts, r.Build(e.cfg, dc, r.Severity(e.cfg, dc)))
			}
		}
	}

	slices.SortStableFunc(alerts, compareDisasterAlerts)
	return alerts
}

func compareDisasterAlerts(a, b types.Alert) int {
	if c := cmp.Compare(b.Severity.Rank(), a.Severity.Rank()); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Disaster.DistanceKm, b.Disaster.DistanceKm); c != 0 {
		return c
	}
	if c := b.Disaster.EventTime.Compare(a.Disaster.EventTime); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

func earthquakeSeverity(_ Config, dc DisasterContext) types.Severity {
	m := dc.Event.Magnitude
	switch {
	case m >= 7:
		return types.SeverityCritical
	case m >= 6:
		if dc.DistanceKm > ImpactRadiusKm(m) {
			return types.SeverityInfo
		}
		return types.SeverityWarning
	default:
		return types.SeverityInfo
	}
}

func buildEarthquakeAlert(_ Config, dc DisasterContext, sev types.Severity) types.Alert {
	ev := dc.Event
	when := ev.Time
	msg := fmt.Sprintf("Magnitude %.1f earthquake occurred %.0fkm away", ev.Magnitude, dc.DistanceKm)
	if ev.Place != "" {
		msg += " near " + ev.Place
	}
	msg += ". " + Guidance(types.AlertEarthquake, sev, dc.UserType)

	info := disasterInfo(dc, types.DisasterEarthquake, strings.TrimSpace(msg))
	info.Earthquake = &types.EarthquakeDetails{
		Magnitude:        ev.Magnitude,
		DepthKm:          ev.DepthKm,
		FeltReports:      ev.FeltReports,
		TsunamiPotential: ev.Tsunami != nil,
		ImpactRadiusKm:   ImpactRadiusKm(ev.Magnitude),
	}

	return types.Alert{
		ID:              earthquakeAlertID(ev.ID),
		Type:            types.AlertEarthquake,
		Severity:        sev,
		Title:           fmt.Sprintf("Magnitude %.1f Earthquake", ev.Magnitude),
		Message:         fmt.Sprintf("Earthquake detected %.0fkm from your location", dc.DistanceKm),
		Recommendations: disasterRecommendations(types.AlertEarthquake),
		StartTime:       &when,
		CreatedAt:       dc.Now,
		Disaster:        &info,
	}
}

func tsunamiArrivalMinutes(cfg Config, dc DisasterContext) int {
	if t := dc.Event.Tsunami; t != nil && t.EstimatedArrivalMinutes != nil {
		return *t.EstimatedArrivalMinutes
	}
	speed := cfg.TsunamiSpeedKmh
	if coastal(dc.Event) {
		speed *= cfg.CoastalShallowingFactor
	}
	return int(dc.DistanceKm / speed * 60)
}

func coastal(ev types.DisasterEvent) bool {
	return ev.Tsunami != nil && ev.Tsunami.IsCoastalArea
}

func buildTsunamiAlert(cfg Config, dc DisasterContext, sev types.Severity) types.Alert {
	ev := dc.Event
	minutes := tsunamiArrivalMinutes(cfg, dc)
	trigger := ev.Magnitude
	if ev.Tsunami != nil && ev.Tsunami.TriggerMagnitude > 0 {
		trigger = ev.Tsunami.TriggerMagnitude
	}
	speed := cfg.TsunamiSpeedKmh
	if coastal(ev) {
		speed *= cfg.CoastalShallowingFactor
	}

	place := ev.Place
	if place == "" {
		place = "the reported epicenter"
	}
	msg := fmt.Sprintf("TSUNAMI WARNING: Magnitude %.1f earthquake near %s. Tsunami waves may arrive in approximately %d minutes. %s",
		trigger, place, minutes, Guidance(types.AlertTsunami, sev, dc.UserType))

	info := disasterInfo(dc, types.DisasterTsunami, msg)
	info.Tsunami = &types.TsunamiDetails{
		TriggerMagnitude:        trigger,
		DepthKm:                 ev.DepthKm,
		EstimatedArrivalMinutes: &minutes,
		PropagationSpeedKmh:     speed,
		IsCoastalArea:           coastal(ev),
	}

	start := ev.Time
	arrival := ev.Time.Add(time.Duration(minutes) * time.Minute)
	return types.Alert{
		ID:              tsunamiAlertID(ev.ID),
		Type:            types.AlertTsunami,
		Severity:        sev,
		Title:           "Tsunami Alert",
		Message:         fmt.Sprintf("Tsunami waves may reach your area in approximately %d minutes", minutes),
		Recommendations: disasterRecommendations(types.AlertTsunami),
		StartTime:       &start,
		EndTime:         &arrival,
		CreatedAt:       dc.Now,
		Disaster:        &info,
	}
}

func disasterInfo(dc DisasterContext, kind types.DisasterKind, msg string) types.DisasterInfo {
	ev := dc.Event
	return types.DisasterInfo{
		Kind:        kind,
		EventID:     ev.ID,
		DistanceKm:  round1(dc.DistanceKm),
		Epicenter:   ev.Epicenter,
		Place:       ev.Place,
		EventTime:   ev.Time,
		Source:      ev.Source,
		SourceURL:   ev.URL,
		UserMessage: msg,
	}
}
