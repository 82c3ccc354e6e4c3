package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"weatheralert/internal/types"
)

func preferencesRow(userID string, home []byte) *mockRow {
	return &mockRow{
		scanFn: func(dest ...any) error {
			*dest[0].(*string) = userID
			*dest[1].(*types.UserType) = types.UserTypeFarmer
			*dest[2].(*[]byte) = []byte(`{"heatwave_temp":38}`)
			*dest[3].(*bool) = true
			*dest[4].(*types.TemperatureUnit) = types.UnitFahrenheit
			*dest[5].(*[]byte) = home
			*dest[6].(*time.Time) = recordedAt
			return nil
		},
	}
}

func TestPreferencesRepository_Get(t *testing.T) {
	db := new(mockDBTX)
	repo := NewPreferencesRepository(db)

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), []any{"user_1"}).
		Return(preferencesRow("user_1", []byte(`{"lat":28.6,"lon":77.2}`)))

	p, err := repo.Get(context.Background(), "user_1")
	require.NoError(t, err)

	assert.Equal(t, "user_1", p.UserID)
	assert.Equal(t, types.UserTypeFarmer, p.UserType)
	require.NotNil(t, p.CustomThresholds.HeatwaveTempC)
	assert.Equal(t, 38.0, *p.CustomThresholds.HeatwaveTempC)
	assert.Nil(t, p.CustomThresholds.HeavyRainMM)
	assert.True(t, p.NotificationEnabled)
	assert.Equal(t, types.UnitFahrenheit, p.TemperatureUnit)
	require.NotNil(t, p.HomeLocation)
	assert.Equal(t, types.Location{Lat: 28.6, Lon: 77.2}, *p.HomeLocation)
	assert.Equal(t, recordedAt, p.UpdatedAt)
}

func TestPreferencesRepository_Get_NoHomeLocation(t *testing.T) {
	db := new(mockDBTX)
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(preferencesRow("user_1", nil))

	p, err := NewPreferencesRepository(db).Get(context.Background(), "user_1")
	require.NoError(t, err)
	assert.Nil(t, p.HomeLocation)
}

func TestPreferencesRepository_Get_NotFound(t *testing.T) {
	db := new(mockDBTX)
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{scanErr: pgx.ErrNoRows})

	_, err := NewPreferencesRepository(db).Get(context.Background(), "ghost")
	requireAppCode(t, err, types.ErrCodeNotFoundPreferences)
}

func TestPreferencesRepository_Get_DBError(t *testing.T) {
	db := new(mockDBTX)
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{scanErr: errors.New("db error")})

	_, err := NewPreferencesRepository(db).Get(context.Background(), "user_1")
	requireAppCode(t, err, types.ErrCodeInternalDB)
}

func TestPreferencesRepository_Upsert(t *testing.T) {
	db := new(mockDBTX)
	repo := NewPreferencesRepository(db)

	heat := 38.0
	prefs := types.UserPreferences{
		UserID:              "user_1",
		UserType:            types.UserTypeFarmer,
		CustomThresholds:    types.ThresholdOverrides{HeatwaveTempC: &heat},
		NotificationEnabled: true,
		TemperatureUnit:     types.UnitFahrenheit,
		HomeLocation:        &types.Location{Lat: 28.6, Lon: 77.2},
	}

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.MatchedBy(func(args []any) bool {
		home, ok := args[5].(types.Location)
		return len(args) == 6 && args[0] == "user_1" && args[1] == "FARMER" &&
			args[4] == "fahrenheit" && ok && home.Lat == 28.6
	})).Return(preferencesRow("user_1", []byte(`{"lat":28.6,"lon":77.2}`)))

	stored, err := repo.Upsert(context.Background(), prefs)
	require.NoError(t, err)
	assert.Equal(t, recordedAt, stored.UpdatedAt)
	db.AssertExpectations(t)
}

func TestPreferencesRepository_Upsert_NilHomeIsNull(t *testing.T) {
	db := new(mockDBTX)
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.MatchedBy(func(args []any) bool {
		return args[5] == nil
	})).Return(preferencesRow("user_1", nil))

	_, err := NewPreferencesRepository(db).Upsert(context.Background(), types.UserPreferences{
		UserID:          "user_1",
		UserType:        types.UserTypeGeneral,
		TemperatureUnit: types.UnitCelsius,
	})
	require.NoError(t, err)
	db.AssertExpectations(t)
}

func TestPreferencesRepository_Delete(t *testing.T) {
	t.Run("deleted", func(t *testing.T) {
		db := new(mockDBTX)
		db.On("Exec", mock.Anything, mock.AnythingOfType("string"), []any{"user_1"}).
			Return(pgconn.NewCommandTag("DELETE 1"), nil)

		require.NoError(t, NewPreferencesRepository(db).Delete(context.Background(), "user_1"))
	})

	t.Run("missing", func(t *testing.T) {
		db := new(mockDBTX)
		db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
			Return(pgconn.NewCommandTag("DELETE 0"), nil)

		err := NewPreferencesRepository(db).Delete(context.Background(), "ghost")
		requireAppCode(t, err, types.ErrCodeNotFoundPreferences)
	})
}

func TestPreferencesRepository_ListSubscribers(t *testing.T) {
	db := new(mockDBTX)
	rows := newMockRows(
		[]any{"user_1", types.UserTypeFarmer, []byte(`{"lat":35.6,"lon":139.7}`)},
		[]any{"user_2", types.UserTypeStudent, []byte(`{"lat":-33.9,"lon":151.2}`)},
	)
	db.On("Query", mock.Anything, mock.AnythingOfType("string"), mock.Anything).Return(rows, nil)

	subs, err := NewPreferencesRepository(db).ListSubscribers(context.Background())
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, types.Subscriber{UserID: "user_1", UserType: types.UserTypeFarmer, Location: types.Location{Lat: 35.6, Lon: 139.7}}, subs[0])
	assert.Equal(t, types.UserTypeStudent, subs[1].UserType)
}
