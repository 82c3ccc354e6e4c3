package types

import "time"

// DisasterEvent is a normalized earthquake or tsunami report from an external
// feed. It is read-only input to the disaster evaluator.
type DisasterEvent struct {
	ID          string         `json:"id"`
	Kind        DisasterKind   `json:"kind"`
	Magnitude   float64        `json:"magnitude"`
	DepthKm     *float64       `json:"depth_km,omitempty"`
	Epicenter   Location       `json:"epicenter"`
	Place       string         `json:"place"`
	Time        time.Time      `json:"time"`
	Source      DisasterSource `json:"source"`
	URL         string         `json:"url,omitempty"`
	FeltReports *int           `json:"felt_reports,omitempty"`

	// Tsunami is set when the source flags tsunami potential.
	Tsunami *TsunamiInfo `json:"tsunami,omitempty"`
}

// TsunamiInfo carries the tsunami-specific fields of a DisasterEvent.
type TsunamiInfo struct {
	TriggerMagnitude        float64 `json:"trigger_magnitude"`
	EstimatedArrivalMinutes *int    `json:"estimated_arrival_minutes,omitempty"`
	IsCoastalArea           bool    `json:"is_coastal_area"`
}

// DisasterInfo is the kind-tagged metadata attached to disaster alerts.
// Exactly one of Earthquake or Tsunami is set, matching Kind.
type DisasterInfo struct {
	Kind        DisasterKind   `json:"kind"`
	EventID     string         `json:"event_id"`
	DistanceKm  float64        `json:"distance_km"`
	Epicenter   Location       `json:"epicenter"`
	Place       string         `json:"place"`
	EventTime   time.Time      `json:"event_time"`
	Source      DisasterSource `json:"source"`
	SourceURL   string         `json:"source_url,omitempty"`
	UserMessage string         `json:"user_message"`

	Earthquake *EarthquakeDetails `json:"earthquake,omitempty"`
	Tsunami    *TsunamiDetails    `json:"tsunami,omitempty"`
}

// EarthquakeDetails is the earthquake payload of DisasterInfo.
type EarthquakeDetails struct {
	Magnitude        float64  `json:"magnitude"`
	DepthKm          *float64 `json:"depth_km,omitempty"`
	FeltReports      *int     `json:"felt_reports,omitempty"`
	TsunamiPotential bool     `json:"tsunami_potential"`
	ImpactRadiusKm   float64  `json:"impact_radius_km"`
}

// TsunamiDetails is the tsunami payload of DisasterInfo.
type TsunamiDetails struct {
	TriggerMagnitude        float64  `json:"trigger_magnitude"`
	DepthKm                 *float64 `json:"depth_km,omitempty"`
	EstimatedArrivalMinutes *int     `json:"estimated_arrival_minutes,omitempty"`
	PropagationSpeedKmh     float64  `json:"tsunami_speed_kmh"`
	IsCoastalArea           bool     `json:"is_coastal_area"`
}
