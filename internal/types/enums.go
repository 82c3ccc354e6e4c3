package types

import (
	"fmt"
	"strings"
)

// UserType is the persona used to select default thresholds and tailor wording.
type UserType string

const (
	UserTypeStudent        UserType = "STUDENT"
	UserTypeFarmer         UserType = "FARMER"
	UserTypeTraveller      UserType = "TRAVELLER"
	UserTypeDeliveryWorker UserType = "DELIVERY_WORKER"
	UserTypeGeneral        UserType = "GENERAL"
)

// AllUserTypes lists every supported persona in display order.
var AllUserTypes = []UserType{
	UserTypeStudent,
	UserTypeFarmer,
	UserTypeTraveller,
	UserTypeDeliveryWorker,
	UserTypeGeneral,
}

// Valid reports whether u is one of the enumerated personas.
func (u UserType) Valid() bool {
	switch u {
	case UserTypeStudent, UserTypeFarmer, UserTypeTraveller, UserTypeDeliveryWorker, UserTypeGeneral:
		return true
	}
	return false
}

// ParseUserType normalizes raw case-insensitively. Unknown values fail with
// ErrCodeInvalidUserType; there is no fallback persona.
func ParseUserType(raw string) (UserType, error) {
	u := UserType(strings.ToUpper(strings.TrimSpace(raw)))
	if !u.Valid() {
		return "", NewAppErrorWithDetails(
			ErrCodeInvalidUserType,
			fmt.Sprintf("unsupported user type %q", raw),
			nil,
			map[string]any{"allowed": AllUserTypes},
		)
	}
	return u, nil
}

// AlertType identifies the condition an alert reports.
type AlertType string

const (
	AlertHeatwave     AlertType = "HEATWAVE"
	AlertHeavyRain    AlertType = "HEAVY_RAIN"
	AlertStorm        AlertType = "STORM"
	AlertColdWave     AlertType = "COLD_WAVE"
	AlertHighHumidity AlertType = "HIGH_HUMIDITY"
	AlertEarthquake   AlertType = "EARTHQUAKE"
	AlertTsunami      AlertType = "TSUNAMI"
)

// IsDisaster reports whether the alert type comes from the disaster feed.
func (a AlertType) IsDisaster() bool {
	return a == AlertEarthquake || a == AlertTsunami
}

// Severity is the urgency of an alert. Weather alerts use LOW..SEVERE,
// disaster alerts use INFO..CRITICAL.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityModerate Severity = "MODERATE"
	SeverityHigh     Severity = "HIGH"
	SeveritySevere   Severity = "SEVERE"

	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// Rank places both severity scales on a single ordinal axis so weather and
// disaster alerts can be sorted together. Unknown severities rank 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 7
	case SeveritySevere:
		return 6
	case SeverityHigh:
		return 5
	case SeverityWarning:
		return 4
	case SeverityModerate:
		return 3
	case SeverityInfo:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// RiskLevel is the discretized composite risk score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskModerate RiskLevel = "MODERATE"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskSevere   RiskLevel = "SEVERE"
)

// DisasterKind discriminates disaster events and alert metadata payloads.
type DisasterKind string

const (
	DisasterEarthquake DisasterKind = "earthquake"
	DisasterTsunami    DisasterKind = "tsunami"
)

// DisasterSource names the feed that produced an event.
type DisasterSource string

const (
	SourceUSGS DisasterSource = "USGS"
	SourceNOAA DisasterSource = "NOAA"
)

// TemperatureUnit is the user's display preference.
type TemperatureUnit string

const (
	UnitCelsius    TemperatureUnit = "celsius"
	UnitFahrenheit TemperatureUnit = "fahrenheit"
)

// Granularity distinguishes hourly forecast points from daily aggregates.
type Granularity string

const (
	GranularityHourly Granularity = "hourly"
	GranularityDaily  Granularity = "daily"
)
