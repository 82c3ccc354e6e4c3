package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"weatheralert/internal/types"
)

func calmSnapshot() types.WeatherSnapshot {
	return types.WeatherSnapshot{
		TemperatureC:    20,
		Humidity:        50,
		WindSpeedKmh:    0,
		PrecipitationMM: 0,
		VisibilityKm:    10,
	}
}

func TestScore_ComfortableConditions(t *testing.T) {
	for temp := 15.0; temp <= 25.0; temp += 0.5 {
		s := calmSnapshot()
		s.TemperatureC = temp
		s.Humidity = 60

		got := Score(s)
		assert.Zero(t, got.Score, "temp=%v", temp)
		assert.Equal(t, types.RiskLow, got.Level, "temp=%v", temp)
	}
}

func TestScore_LightWindStaysLow(t *testing.T) {
	for wind := 0.0; wind <= 30.0; wind += 5 {
		s := calmSnapshot()
		s.TemperatureC = 25
		s.WindSpeedKmh = wind

		assert.Equal(t, types.RiskLow, Score(s).Level, "wind=%v", wind)
	}
}

func TestLevelFor_Boundaries(t *testing.T) {
	tests := []struct {
		score float64
		want  types.RiskLevel
	}{
		{0, types.RiskLow},
		{19.9, types.RiskLow},
		{20.0, types.RiskModerate},
		{39.9, types.RiskModerate},
		{40.0, types.RiskMedium},
		{60.0, types.RiskHigh},
		{79.9, types.RiskHigh},
		{80.0, types.RiskSevere},
		{100, types.RiskSevere},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LevelFor(tt.score), "score=%v", tt.score)
	}
}

func TestScore_Components(t *testing.T) {
	t.Run("temperature saturates", func(t *testing.T) {
		assert.Equal(t, 100.0, temperatureRisk(60))
		assert.Equal(t, 50.0, temperatureRisk(35))
		assert.Equal(t, 50.0, temperatureRisk(5))
		assert.Equal(t, 100.0, temperatureRisk(-30))
	})

	t.Run("wind piecewise", func(t *testing.T) {
		assert.Equal(t, 15.0, windRisk(15))
		assert.Equal(t, 30.0, windRisk(30))
		assert.Equal(t, 50.0, windRisk(45))
		assert.Equal(t, 70.0, windRisk(60))
		assert.Equal(t, 85.0, windRisk(90))
		assert.Equal(t, 100.0, windRisk(200))
	})

	t.Run("humidity needs heat", func(t *testing.T) {
		assert.Zero(t, humidityRisk(25, 100))
		assert.Equal(t, 50.0, humidityRisk(30, 80))
	})

	t.Run("visibility", func(t *testing.T) {
		assert.Zero(t, visibilityRisk(12))
		assert.Equal(t, 100.0, visibilityRisk(1))
		assert.Equal(t, 100.0, visibilityRisk(0))
	})

	t.Run("precipitation clamps", func(t *testing.T) {
		assert.Equal(t, 25.0, precipitationRisk(25))
		assert.Equal(t, 100.0, precipitationRisk(250))
	})
}

func TestScore_NonFiniteInputsScoreZero(t *testing.T) {
	s := calmSnapshot()
	s.TemperatureC = math.NaN()
	s.WindSpeedKmh = math.Inf(1)
	s.PrecipitationMM = math.NaN()

	got := Score(s)
	assert.Zero(t, got.Score)
	assert.Equal(t, types.RiskLow, got.Level)
}

func TestScore_StormyDay(t *testing.T) {
	s := types.WeatherSnapshot{
		TemperatureC:    35,  // 50 * 0.30 = 15
		Humidity:        80,  // 50 * 0.10 = 5
		WindSpeedKmh:    90,  // 85 * 0.25 = 21.25
		PrecipitationMM: 40,  // 40 * 0.25 = 10
		VisibilityKm:    5.5, // 50 * 0.10 = 5
	}

	got := Score(s)
	assert.InDelta(t, 56.3, got.Score, 0.001)
	assert.Equal(t, types.RiskMedium, got.Level)
	assert.Equal(t, 85.0, got.Components.Wind)
}
