package engine

import (
	"math"

	"weatheralert/internal/types"
)

// Sub-score weights. They sum to 1.
const (
	weightTemperature   = 0.30
	weightPrecipitation = 0.25
	weightWind          = 0.25
	weightHumidity      = 0.10
	weightVisibility    = 0.10
)

const (
	comfortLowC  = 15.0
	comfortHighC = 25.0
	heatSatC     = 45.0
	coldSatC     = -5.0

	rainSatMM = 100.0

	windCalmKmh    = 30.0
	windStrongKmh  = 60.0
	windCeilingKmh = 120.0

	humidityFloor = 60.0

	clearVisibilityKm = 10.0
	poorVisibilityKm  = 1.0
)

// Score computes the composite risk for a snapshot. It never fails: values out
// of range are clamped and non-finite values score as zero.
func Score(s types.WeatherSnapshot) types.RiskResult {
	c := types.RiskComponents{
		Temperature:   temperatureRisk(s.TemperatureC),
		Precipitation: precipitationRisk(s.PrecipitationMM),
		Wind:          windRisk(s.WindSpeedKmh),
		Humidity:      humidityRisk(s.TemperatureC, s.Humidity),
		Visibility:    visibilityRisk(s.VisibilityKm),
	}

	total := weightTemperature*c.Temperature +
		weightPrecipitation*c.Precipitation +
		weightWind*c.Wind +
		weightHumidity*c.Humidity +
		weightVisibility*c.Visibility
	score := round1(clamp(total))

	return types.RiskResult{
		Score:      score,
		Level:      LevelFor(score),
		Components: c,
	}
}

// LevelFor buckets a score. Each bucket includes its lower edge.
func LevelFor(score float64) types.RiskLevel {
	switch {
	case score >= 80:
		return types.RiskSevere
	case score >= 60:
		return types.RiskHigh
	case score >= 40:
		return types.RiskMedium
	case score >= 20:
		return types.RiskModerate
	default:
		return types.RiskLow
	}
}

// NeutralRisk is returned when no snapshot is available.
func NeutralRisk() types.RiskResult {
	return types.RiskResult{Score: 0, Level: types.RiskLow}
}

func temperatureRisk(t float64) float64 {
	if !isFinite(t) {
		return 0
	}
	switch {
	case t > comfortHighC:
		return clamp((t - comfortHighC) / (heatSatC - comfortHighC) * 100)
	case t < comfortLowC:
		return clamp((comfortLowC - t) / (comfortLowC - coldSatC) * 100)
	default:
		return 0
	}
}

func precipitationRisk(mm float64) float64 {
	if !isFinite(mm) {
		return 0
	}
	return clamp(mm / rainSatMM * 100)
}

func windRisk(kmh float64) float64 {
	if !isFinite(kmh) || kmh <= 0 {
		return 0
	}
	switch {
	case kmh < windCalmKmh:
		return kmh
	case kmh < windStrongKmh:
		return 30 + (kmh-windCalmKmh)/(windStrongKmh-windCalmKmh)*40
	default:
		return clamp(70 + (kmh-windStrongKmh)/(windCeilingKmh-windStrongKmh)*30)
	}
}

func humidityRisk(tempC, humidity float64) float64 {
	if !isFinite(tempC) || !isFinite(humidity) || tempC <= comfortHighC || humidity < humidityFloor {
		return 0
	}
	return clamp((humidity - humidityFloor) / (100 - humidityFloor) * 100)
}

func visibilityRisk(km float64) float64 {
	if !isFinite(km) || km >= clearVisibilityKm {
		return 0
	}
	return clamp((clearVisibilityKm - km) / (clearVisibilityKm - poorVisibilityKm) * 100)
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
