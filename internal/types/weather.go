package types

import (
	"math"
	"time"
)

// Location is a WGS84 coordinate pair.
type Location struct {
	Lat float64 `json:"lat" validate:"min=-90,max=90"`
	Lon float64 `json:"lon" validate:"min=-180,max=180"`
}

// Valid reports whether both coordinates are finite and in range.
func (l Location) Valid() bool {
	return finite(l.Lat) && finite(l.Lon) &&
		l.Lat >= -90 && l.Lat <= 90 &&
		l.Lon >= -180 && l.Lon <= 180
}

// WeatherSnapshot is a normalized point-in-time observation.
// Temperatures are Celsius, wind is km/h, visibility is km.
type WeatherSnapshot struct {
	TemperatureC     float64   `json:"temperature"`
	FeelsLikeC       float64   `json:"feels_like"`
	Humidity         float64   `json:"humidity"`
	PressureHPa      float64   `json:"pressure"`
	WindSpeedKmh     float64   `json:"wind_speed"`
	WindDirectionDeg float64   `json:"wind_direction"`
	VisibilityKm     float64   `json:"visibility"`
	PrecipitationMM  float64   `json:"precipitation"`
	ConditionCode    int       `json:"condition_code"`
	Condition        string    `json:"condition,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// ForecastPoint is either an hourly reading or a daily aggregate, selected by
// Granularity. Hourly points use TemperatureC; daily points use TempMaxC and
// TempMinC.
type ForecastPoint struct {
	Granularity     Granularity `json:"granularity"`
	Time            time.Time   `json:"time"`
	TemperatureC    float64     `json:"temperature,omitempty"`
	TempMaxC        float64     `json:"temp_max,omitempty"`
	TempMinC        float64     `json:"temp_min,omitempty"`
	PrecipitationMM float64     `json:"precipitation"`
	RainChance      float64     `json:"rain_chance,omitempty"`
	Humidity        float64     `json:"humidity"`
	WindSpeedKmh    float64     `json:"wind_speed"`
}

// High returns the warmest temperature the point represents.
func (p ForecastPoint) High() float64 {
	if p.Granularity == GranularityDaily {
		return p.TempMaxC
	}
	return p.TemperatureC
}

// Low returns the coldest temperature the point represents.
func (p ForecastPoint) Low() float64 {
	if p.Granularity == GranularityDaily {
		return p.TempMinC
	}
	return p.TemperatureC
}

// Finite reports whether every numeric field the rules read is a real number.
func (p ForecastPoint) Finite() bool {
	return finite(p.High()) && finite(p.Low()) && finite(p.PrecipitationMM) &&
		finite(p.Humidity) && finite(p.WindSpeedKmh)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
