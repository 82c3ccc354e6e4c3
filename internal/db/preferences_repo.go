package db

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"

	"weatheralert/internal/types"
)

// PreferencesRepository provides data access for the user_preferences table.
type PreferencesRepository struct {
	db DBTX
}

// NewPreferencesRepository creates a repository backed by the given
// connection (pool or transaction).
func NewPreferencesRepository(db DBTX) *PreferencesRepository {
	return &PreferencesRepository{db: db}
}

const preferenceColumns = `user_id, user_type, custom_thresholds, notification_enabled,
	temperature_unit, home_location, updated_at`

func scanPreferences(row pgx.Row) (*types.UserPreferences, error) {
	var (
		p          types.UserPreferences
		thresholds []byte
		home       []byte
	)
	err := row.Scan(
		&p.UserID,
		&p.UserType,
		&thresholds,
		&p.NotificationEnabled,
		&p.TemperatureUnit,
		&home,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(thresholds) > 0 {
		if err := json.Unmarshal(thresholds, &p.CustomThresholds); err != nil {
			return nil, err
		}
	}
	if len(home) > 0 {
		var loc types.Location
		if err := json.Unmarshal(home, &loc); err != nil {
			return nil, err
		}
		p.HomeLocation = &loc
	}
	return &p, nil
}

// Upsert inserts or replaces the user's preferences and returns the stored
// row, including the server-assigned updated_at.
func (r *PreferencesRepository) Upsert(ctx context.Context, p types.UserPreferences) (*types.UserPreferences, error) {
	var home any
	if p.HomeLocation != nil {
		home = *p.HomeLocation
	}

	row := r.db.QueryRow(ctx,
		`INSERT INTO user_preferences (
			user_id, user_type, custom_thresholds, notification_enabled,
			temperature_unit, home_location, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			user_type = EXCLUDED.user_type,
			custom_thresholds = EXCLUDED.custom_thresholds,
			notification_enabled = EXCLUDED.notification_enabled,
			temperature_unit = EXCLUDED.temperature_unit,
			home_location = EXCLUDED.home_location,
			updated_at = NOW()
		RETURNING `+preferenceColumns,
		p.UserID,
		string(p.UserType),
		p.CustomThresholds,
		p.NotificationEnabled,
		string(p.TemperatureUnit),
		home,
	)

	stored, err := scanPreferences(row)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to save preferences", err)
	}
	return stored, nil
}

// Get returns the stored preferences. A missing row is ErrCodeNotFoundPreferences;
// callers never receive silent defaults.
func (r *PreferencesRepository) Get(ctx context.Context, userID string) (*types.UserPreferences, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+preferenceColumns+`
		 FROM user_preferences
		 WHERE user_id = $1`,
		userID,
	)

	p, err := scanPreferences(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundPreferences, "preferences not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve preferences", err)
	}
	return p, nil
}

// Delete removes the user's preferences, or returns ErrCodeNotFoundPreferences.
func (r *PreferencesRepository) Delete(ctx context.Context, userID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM user_preferences WHERE user_id = $1`, userID)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to delete preferences", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundPreferences, "preferences not found", nil)
	}
	return nil
}

// ListSubscribers returns users with notifications enabled and a stored home
// location, ordered by user id.
func (r *PreferencesRepository) ListSubscribers(ctx context.Context) ([]types.Subscriber, error) {
	rows, err := r.db.Query(ctx,
		`SELECT user_id, user_type, home_location
		 FROM user_preferences
		 WHERE notification_enabled AND home_location IS NOT NULL
		 ORDER BY user_id`,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list subscribers", err)
	}
	defer rows.Close()

	var subs []types.Subscriber
	for rows.Next() {
		var (
			s    types.Subscriber
			home []byte
		)
		if err := rows.Scan(&s.UserID, &s.UserType, &home); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan subscriber", err)
		}
		if err := json.Unmarshal(home, &s.Location); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to decode home location", err)
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating subscribers", err)
	}
	return subs, nil
}
