package engine

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weatheralert/internal/types"
)

func ptr(f float64) *float64 { return &f }

func TestResolveThresholds_Defaults(t *testing.T) {
	got, err := ResolveThresholds("FARMER", types.ThresholdOverrides{})
	require.NoError(t, err)
	assert.Equal(t, types.AlertThresholds{
		HeatwaveTempC: 36, HeavyRainMM: 40, HighWindKmh: 45, ColdWaveTempC: 3, HighHumidity: 90,
	}, got)
}

func TestResolveThresholds_Idempotent(t *testing.T) {
	for _, ut := range types.AllUserTypes {
		defaults, err := DefaultThresholds(ut)
		require.NoError(t, err)

		viaDefaults, err := ResolveThresholds(string(ut), types.OverridesFrom(defaults))
		require.NoError(t, err)
		viaEmpty, err := ResolveThresholds(string(ut), types.ThresholdOverrides{})
		require.NoError(t, err)

		assert.Equal(t, viaEmpty, viaDefaults, "user type %s", ut)
	}
}

func TestResolveThresholds_PartialOverride(t *testing.T) {
	got, err := ResolveThresholds("student", types.ThresholdOverrides{
		HighWindKmh:  ptr(40),
		HighHumidity: ptr(math.NaN()),
	})
	require.NoError(t, err)

	assert.Equal(t, 40.0, got.HighWindKmh)
	assert.Equal(t, 80.0, got.HighHumidity, "non-finite override is ignored")
	assert.Equal(t, 33.0, got.HeatwaveTempC)
}

func TestResolveThresholds_InvalidUserType(t *testing.T) {
	for _, raw := range []string{"", "PILOT", "farmerr"} {
		_, err := ResolveThresholds(raw, types.ThresholdOverrides{})
		require.Error(t, err)

		var appErr *types.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, types.ErrCodeInvalidUserType, appErr.Code)
	}
}

func TestDefaultThresholds_ReturnsCopies(t *testing.T) {
	a, err := DefaultThresholds(types.UserTypeGeneral)
	require.NoError(t, err)
	a.HeatwaveTempC = 99

	b, err := DefaultThresholds(types.UserTypeGeneral)
	require.NoError(t, err)
	assert.Equal(t, 35.0, b.HeatwaveTempC)
}

func TestDefaultThresholds_NormalizesUserType(t *testing.T) {
	want := types.AlertThresholds{HeatwaveTempC: 36, HeavyRainMM: 40, HighWindKmh: 45, ColdWaveTempC: 3, HighHumidity: 90}
	for _, raw := range []types.UserType{"farmer", " Farmer ", "FARMER"} {
		got, err := DefaultThresholds(raw)
		require.NoError(t, err, "user type %q", raw)
		assert.Equal(t, want, got, "user type %q", raw)
	}

	_, err := DefaultThresholds("pilot")
	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeInvalidUserType, appErr.Code)
}

func TestDefaultThresholds_EveryPersonaIsComplete(t *testing.T) {
	for _, ut := range types.AllUserTypes {
		got, err := DefaultThresholds(ut)
		require.NoError(t, err)
		assert.Positive(t, got.HeatwaveTempC, "%s", ut)
		assert.Positive(t, got.HeavyRainMM, "%s", ut)
		assert.Positive(t, got.HighWindKmh, "%s", ut)
		assert.Positive(t, got.ColdWaveTempC, "%s", ut)
		assert.Positive(t, got.HighHumidity, "%s", ut)
	}
}
