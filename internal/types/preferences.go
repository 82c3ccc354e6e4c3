package types

import "time"

// UserPreferences is the persisted per-user configuration.
type UserPreferences struct {
	UserID              string             `json:"user_id"`
	UserType            UserType           `json:"user_type"`
	CustomThresholds    ThresholdOverrides `json:"custom_thresholds"`
	NotificationEnabled bool               `json:"notification_enabled"`
	TemperatureUnit     TemperatureUnit    `json:"temperature_unit"`
	HomeLocation        *Location          `json:"home_location,omitempty"`
	UpdatedAt           time.Time          `json:"updated_at"`
}

// Subscriber is a user eligible for background disaster notifications.
type Subscriber struct {
	UserID   string
	UserType UserType
	Location Location
}
