package types

import (
	"encoding/json"
	"sort"
)

// Threshold keys as they appear in custom_thresholds payloads.
const (
	ThresholdHeatwaveTemp = "heatwave_temp"
	ThresholdHeavyRain    = "heavy_rain"
	ThresholdHighWind     = "high_wind_speed"
	ThresholdColdWaveTemp = "cold_wave_temp"
	ThresholdHighHumidity = "high_humidity"
)

// AlertThresholds is a complete, effective threshold set. All five fields are
// always populated.
type AlertThresholds struct {
	HeatwaveTempC float64 `json:"heatwave_temp"`
	HeavyRainMM   float64 `json:"heavy_rain"`
	HighWindKmh   float64 `json:"high_wind_speed"`
	ColdWaveTempC float64 `json:"cold_wave_temp"`
	HighHumidity  float64 `json:"high_humidity"`
}

// ThresholdOverrides is a sparse per-user overlay. Nil fields fall back to the
// user-type default.
type ThresholdOverrides struct {
	HeatwaveTempC *float64 `json:"heatwave_temp,omitempty"`
	HeavyRainMM   *float64 `json:"heavy_rain,omitempty"`
	HighWindKmh   *float64 `json:"high_wind_speed,omitempty"`
	ColdWaveTempC *float64 `json:"cold_wave_temp,omitempty"`
	HighHumidity  *float64 `json:"high_humidity,omitempty"`
}

// IsEmpty reports whether no override is set.
func (o ThresholdOverrides) IsEmpty() bool {
	return o.HeatwaveTempC == nil && o.HeavyRainMM == nil && o.HighWindKmh == nil &&
		o.ColdWaveTempC == nil && o.HighHumidity == nil
}

// OverridesFrom returns a fully populated overlay matching t.
func OverridesFrom(t AlertThresholds) ThresholdOverrides {
	return ThresholdOverrides{
		HeatwaveTempC: float64Ptr(t.HeatwaveTempC),
		HeavyRainMM:   float64Ptr(t.HeavyRainMM),
		HighWindKmh:   float64Ptr(t.HighWindKmh),
		ColdWaveTempC: float64Ptr(t.ColdWaveTempC),
		HighHumidity:  float64Ptr(t.HighHumidity),
	}
}

// ParseThresholdOverrides converts a loosely typed custom_thresholds object.
// Entries that are unknown keys, non-numeric or non-finite are skipped and
// their keys returned (sorted) so callers can surface a warning.
func ParseThresholdOverrides(raw map[string]any) (ThresholdOverrides, []string) {
	var (
		o       ThresholdOverrides
		ignored []string
	)
	for key, v := range raw {
		f, ok := numeric(v)
		if !ok {
			ignored = append(ignored, key)
			continue
		}
		switch key {
		case ThresholdHeatwaveTemp:
			o.HeatwaveTempC = &f
		case ThresholdHeavyRain:
			o.HeavyRainMM = &f
		case ThresholdHighWind:
			o.HighWindKmh = &f
		case ThresholdColdWaveTemp:
			o.ColdWaveTempC = &f
		case ThresholdHighHumidity:
			o.HighHumidity = &f
		default:
			ignored = append(ignored, key)
		}
	}
	sort.Strings(ignored)
	return o, ignored
}

func numeric(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	return f, finite(f)
}

func float64Ptr(f float64) *float64 { return &f }
