package types

import "time"

// AlertMessage is the SQS payload handed to the push-delivery workers. JSON tags
// use snake_case to match the consumers.
type AlertMessage struct {
	MessageID   string    `json:"message_id"`
	UserID      string    `json:"user_id"`
	Alert       Alert     `json:"alert"`
	Origin      string    `json:"origin"` // "check" or "disaster_watch"
	TraceID     string    `json:"trace_id,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// Alert message origins.
const (
	OriginCheck         = "check"
	OriginDisasterWatch = "disaster_watch"
)
