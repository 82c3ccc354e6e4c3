package handlers

import (
	"fmt"
	"math"
	"time"

	"weatheralert/internal/types"
)

// CurrentInput is a caller-supplied observation. Temperature, humidity, wind
// speed and visibility are required; the rest default to zero, feels_like to
// the temperature and timestamp to the request time.
type CurrentInput struct {
	Temperature   *float64   `json:"temperature"`
	FeelsLike     *float64   `json:"feels_like,omitempty"`
	Humidity      *float64   `json:"humidity"`
	Pressure      *float64   `json:"pressure,omitempty"`
	WindSpeed     *float64   `json:"wind_speed"`
	WindDirection *float64   `json:"wind_direction,omitempty"`
	Visibility    *float64   `json:"visibility"`
	Precipitation *float64   `json:"precipitation,omitempty"`
	ConditionCode int        `json:"condition_code,omitempty"`
	Condition     string     `json:"condition,omitempty"`
	Timestamp     *time.Time `json:"timestamp,omitempty"`
}

// Snapshot converts the input, failing with MalformedInput on the first
// missing or non-finite required field.
func (c *CurrentInput) Snapshot(now time.Time) (*types.WeatherSnapshot, error) {
	required := []struct {
		name string
		v    *float64
	}{
		{"temperature", c.Temperature},
		{"humidity", c.Humidity},
		{"wind_speed", c.WindSpeed},
		{"visibility", c.Visibility},
	}
	for _, f := range required {
		if err := requireNumber("current."+f.name, f.v); err != nil {
			return nil, err
		}
	}
	optional := []struct {
		name string
		v    *float64
	}{
		{"feels_like", c.FeelsLike},
		{"pressure", c.Pressure},
		{"wind_direction", c.WindDirection},
		{"precipitation", c.Precipitation},
	}
	for _, f := range optional {
		if f.v != nil {
			if err := requireNumber("current."+f.name, f.v); err != nil {
				return nil, err
			}
		}
	}

	snap := &types.WeatherSnapshot{
		TemperatureC:     *c.Temperature,
		FeelsLikeC:       valueOr(c.FeelsLike, *c.Temperature),
		Humidity:         *c.Humidity,
		PressureHPa:      valueOr(c.Pressure, 0),
		WindSpeedKmh:     *c.WindSpeed,
		WindDirectionDeg: valueOr(c.WindDirection, 0),
		VisibilityKm:     *c.Visibility,
		PrecipitationMM:  valueOr(c.Precipitation, 0),
		ConditionCode:    c.ConditionCode,
		Condition:        c.Condition,
		Timestamp:        now,
	}
	if c.Timestamp != nil && !c.Timestamp.IsZero() {
		snap.Timestamp = c.Timestamp.UTC()
	}
	return snap, nil
}

// ForecastPointInput is a caller-supplied forecast point. Time is required,
// as is temperature for hourly points and temp_max/temp_min for daily ones.
// Granularity defaults to hourly.
type ForecastPointInput struct {
	Granularity   types.Granularity `json:"granularity,omitempty"`
	Time          *time.Time        `json:"time"`
	Temperature   *float64          `json:"temperature,omitempty"`
	TempMax       *float64          `json:"temp_max,omitempty"`
	TempMin       *float64          `json:"temp_min,omitempty"`
	Precipitation *float64          `json:"precipitation,omitempty"`
	RainChance    *float64          `json:"rain_chance,omitempty"`
	Humidity      *float64          `json:"humidity,omitempty"`
	WindSpeed     *float64          `json:"wind_speed,omitempty"`
}

func (p ForecastPointInput) point(i int) (types.ForecastPoint, error) {
	field := func(name string) string { return fmt.Sprintf("forecast[%d].%s", i, name) }

	if p.Time == nil || p.Time.IsZero() {
		return types.ForecastPoint{}, types.MalformedInput(field("time"), field("time")+" is required")
	}

	out := types.ForecastPoint{
		Granularity:     p.Granularity,
		Time:            p.Time.UTC(),
		PrecipitationMM: valueOr(p.Precipitation, 0),
		RainChance:      valueOr(p.RainChance, 0),
		Humidity:        valueOr(p.Humidity, 0),
		WindSpeedKmh:    valueOr(p.WindSpeed, 0),
	}

	switch p.Granularity {
	case "", types.GranularityHourly:
		out.Granularity = types.GranularityHourly
		if err := requireNumber(field("temperature"), p.Temperature); err != nil {
			return types.ForecastPoint{}, err
		}
		out.TemperatureC = *p.Temperature
	case types.GranularityDaily:
		if err := requireNumber(field("temp_max"), p.TempMax); err != nil {
			return types.ForecastPoint{}, err
		}
		if err := requireNumber(field("temp_min"), p.TempMin); err != nil {
			return types.ForecastPoint{}, err
		}
		out.TempMaxC = *p.TempMax
		out.TempMinC = *p.TempMin
	default:
		return types.ForecastPoint{}, types.MalformedInput(field("granularity"), field("granularity")+" must be hourly or daily")
	}
	return out, nil
}

// forecastPoints converts a caller-supplied forecast. A nil input stays nil so
// the handler knows to fetch one.
func forecastPoints(in []ForecastPointInput) ([]types.ForecastPoint, error) {
	if in == nil {
		return nil, nil
	}
	out := make([]types.ForecastPoint, 0, len(in))
	for i, p := range in {
		fp, err := p.point(i)
		if err != nil {
			return nil, err
		}
		out = append(out, fp)
	}
	return out, nil
}

func requireNumber(field string, v *float64) error {
	if v == nil {
		return types.MalformedInput(field, field+" is required")
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) {
		return types.MalformedInput(field, field+" must be a finite number")
	}
	return nil
}

func valueOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}
