// Package engine implements risk scoring and alert generation: the composite
// risk score, threshold resolution, weather rule evaluation, disaster proximity
// evaluation and final alert assembly. Every operation is a bounded CPU-only
// computation over inputs the caller has already fetched.
package engine

import "time"

// SeverityBands holds the cutoffs used to grade a triggered rule.
type SeverityBands struct {
	// Degrees past the threshold for heatwave and cold wave.
	// Below DegreesHigh is MODERATE, above DegreesSevere is SEVERE.
	DegreesHigh   float64
	DegreesSevere float64

	// Ratio of observed value to threshold for heavy rain and storm.
	// At or below RatioModerate is MODERATE, at or below RatioHigh is HIGH.
	RatioModerate float64
	RatioHigh     float64
}

// Config carries every tunable constant the engine uses.
type Config struct {
	Bands SeverityBands

	// MinSustainedHours is the shortest run of consecutive hourly points that
	// counts as a heatwave or cold wave.
	MinSustainedHours int

	// ForecastHorizon bounds the forecast window for rain and wind rules.
	ForecastHorizon time.Duration

	// HumidityTriggerTempC must be strictly exceeded for humidity to matter.
	HumidityTriggerTempC float64
	// HumidityEscalation is how far above the threshold humidity becomes HIGH.
	HumidityEscalation float64

	DefaultMaxDistanceKm    float64
	TsunamiSpeedKmh         float64
	CoastalShallowingFactor float64
	TsunamiCriticalMinutes  int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Bands: SeverityBands{
			DegreesHigh:   3,
			DegreesSevere: 7,
			RatioModerate: 1.2,
			RatioHigh:     2.0,
		},
		MinSustainedHours:       3,
		ForecastHorizon:         24 * time.Hour,
		HumidityTriggerTempC:    25,
		HumidityEscalation:      10,
		DefaultMaxDistanceKm:    1000,
		TsunamiSpeedKmh:         800,
		CoastalShallowingFactor: 0.75,
		TsunamiCriticalMinutes:  180,
	}
}
