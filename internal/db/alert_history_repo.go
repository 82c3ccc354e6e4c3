package db

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"weatheralert/internal/types"
)

// HistoryLimit bounds for List.
const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// AlertHistoryRepository provides data access for the alert_history table.
// Each row stores the full alert as JSONB next to the columns used for
// filtering and de-duplication.
type AlertHistoryRepository struct {
	db DBTX
}

// NewAlertHistoryRepository creates a repository backed by the given
// connection (pool or transaction).
func NewAlertHistoryRepository(db DBTX) *AlertHistoryRepository {
	return &AlertHistoryRepository{db: db}
}

// Record stores alert for userID unless the same alert id is already in the
// user's history. It reports whether a new row was written.
func (r *AlertHistoryRepository) Record(ctx context.Context, userID string, alert types.Alert, recordedAt time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`INSERT INTO alert_history (
			entry_id, user_id, alert_id, alert_type, severity, alert, acknowledged, recorded_at
		) VALUES ($1, $2, $3, $4, $5, $6, false, $7)
		ON CONFLICT (user_id, alert_id) DO NOTHING`,
		uuid.NewString(),
		userID,
		alert.ID,
		string(alert.Type),
		string(alert.Severity),
		alert,
		recordedAt,
	)
	if err != nil {
		return false, types.NewAppError(types.ErrCodeInternalDB, "failed to record alert", err)
	}
	return tag.RowsAffected() > 0, nil
}

// RecordAll records each alert and returns the ones that were new to the
// user's history, preserving order.
func (r *AlertHistoryRepository) RecordAll(ctx context.Context, userID string, alerts []types.Alert, recordedAt time.Time) ([]types.Alert, error) {
	var fresh []types.Alert
	for _, a := range alerts {
		inserted, err := r.Record(ctx, userID, a, recordedAt)
		if err != nil {
			return fresh, err
		}
		if inserted {
			fresh = append(fresh, a)
		}
	}
	return fresh, nil
}

// List returns the user's most recent entries, newest first. limit is
// clamped to [1, MaxHistoryLimit]; zero selects DefaultHistoryLimit.
func (r *AlertHistoryRepository) List(ctx context.Context, userID string, limit int) ([]types.HistoryEntry, error) {
	switch {
	case limit == 0:
		limit = DefaultHistoryLimit
	case limit < 1:
		limit = 1
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}

	rows, err := r.db.Query(ctx,
		`SELECT entry_id, user_id, alert, acknowledged, recorded_at
		 FROM alert_history
		 WHERE user_id = $1
		 ORDER BY recorded_at DESC, entry_id ASC
		 LIMIT $2`,
		userID,
		limit,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list alert history", err)
	}
	defer rows.Close()

	entries := make([]types.HistoryEntry, 0, limit)
	for rows.Next() {
		var (
			e        types.HistoryEntry
			rawAlert []byte
			acked    bool
		)
		if err := rows.Scan(&e.EntryID, &e.UserID, &rawAlert, &acked, &e.RecordedAt); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan alert history row", err)
		}
		if err := json.Unmarshal(rawAlert, &e.Alert); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to decode stored alert", err)
		}
		e.Alert.Acknowledged = acked
		if e.Alert.Recommendations == nil {
			e.Alert.Recommendations = []string{}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating alert history", err)
	}
	return entries, nil
}

// Acknowledge marks the user's alert as dismissed. Acknowledging twice is not
// an error. Returns ErrCodeNotFoundAlert when the user has no such alert.
func (r *AlertHistoryRepository) Acknowledge(ctx context.Context, userID, alertID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE alert_history
		 SET acknowledged = true
		 WHERE user_id = $1 AND alert_id = $2`,
		userID,
		alertID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to acknowledge alert", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundAlert, "alert not found", nil)
	}
	return nil
}
