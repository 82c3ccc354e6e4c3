package engine

import (
	"weatheralert/internal/types"
)

// defaultThresholds holds the per-persona defaults. It is never written after
// package initialization; lookups hand out copies.
var defaultThresholds = map[types.UserType]types.AlertThresholds{
	types.UserTypeGeneral:        {HeatwaveTempC: 35, HeavyRainMM: 50, HighWindKmh: 60, ColdWaveTempC: 5, HighHumidity: 85},
	types.UserTypeStudent:        {HeatwaveTempC: 33, HeavyRainMM: 40, HighWindKmh: 50, ColdWaveTempC: 8, HighHumidity: 80},
	types.UserTypeFarmer:         {HeatwaveTempC: 36, HeavyRainMM: 40, HighWindKmh: 45, ColdWaveTempC: 3, HighHumidity: 90},
	types.UserTypeTraveller:      {HeatwaveTempC: 35, HeavyRainMM: 30, HighWindKmh: 50, ColdWaveTempC: 5, HighHumidity: 85},
	types.UserTypeDeliveryWorker: {HeatwaveTempC: 32, HeavyRainMM: 25, HighWindKmh: 40, ColdWaveTempC: 5, HighHumidity: 80},
}

// DefaultThresholds returns the defaults for a persona. userType is
// normalized the same way ParseUserType does, so "farmer" and "FARMER" agree.
func DefaultThresholds(userType types.UserType) (types.AlertThresholds, error) {
	normalized, err := types.ParseUserType(string(userType))
	if err != nil {
		return types.AlertThresholds{}, err
	}
	return defaultThresholds[normalized], nil
}

// ResolveThresholds overlays overrides on the persona defaults. rawUserType is
// normalized case-insensitively; unknown personas fail with
// ErrCodeInvalidUserType. Non-finite overrides are ignored.
func ResolveThresholds(rawUserType string, overrides types.ThresholdOverrides) (types.AlertThresholds, error) {
	userType, err := types.ParseUserType(rawUserType)
	if err != nil {
		return types.AlertThresholds{}, err
	}
	t, err := DefaultThresholds(userType)
	if err != nil {
		return types.AlertThresholds{}, err
	}

	overlay(&t.HeatwaveTempC, overrides.HeatwaveTempC)
	overlay(&t.HeavyRainMM, overrides.HeavyRainMM)
	overlay(&t.HighWindKmh, overrides.HighWindKmh)
	overlay(&t.ColdWaveTempC, overrides.ColdWaveTempC)
	overlay(&t.HighHumidity, overrides.HighHumidity)
	return t, nil
}

func overlay(dst *float64, v *float64) {
	if v != nil && isFinite(*v) {
		*dst = *v
	}
}
