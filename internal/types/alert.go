package types

import "time"

// Alert is the unit of output of an evaluation. Only Acknowledged changes after
// creation, and only through the dismiss flow.
type Alert struct {
	ID              string     `json:"id"`
	Type            AlertType  `json:"type"`
	Severity        Severity   `json:"severity"`
	Title           string     `json:"title"`
	Message         string     `json:"message"`
	Recommendations []string   `json:"recommendations"`
	StartTime       *time.Time `json:"start_time"`
	EndTime         *time.Time `json:"end_time"`
	CreatedAt       time.Time  `json:"created_at"`
	Acknowledged    bool       `json:"acknowledged"`

	Disaster *DisasterInfo `json:"disaster,omitempty"`
}

// SortTime is the time used to order alerts: the window start, or the creation
// time for instantaneous alerts.
func (a Alert) SortTime() time.Time {
	if a.StartTime != nil {
		return *a.StartTime
	}
	return a.CreatedAt
}

// RiskComponents are the normalized sub-scores behind a RiskResult, each 0-100.
type RiskComponents struct {
	Temperature   float64 `json:"temperature"`
	Precipitation float64 `json:"precipitation"`
	Wind          float64 `json:"wind"`
	Humidity      float64 `json:"humidity"`
	Visibility    float64 `json:"visibility"`
}

// RiskResult is the composite score for a snapshot. It is never persisted.
type RiskResult struct {
	Score      float64        `json:"risk_score"`
	Level      RiskLevel      `json:"risk_level"`
	Components RiskComponents `json:"components"`
}

// AlertCheckResponse is the body returned by an alert check.
type AlertCheckResponse struct {
	Alerts    []Alert   `json:"alerts"`
	RiskScore float64   `json:"risk_score"`
	RiskLevel RiskLevel `json:"risk_level"`
}

// HistoryEntry is an alert recorded for a user, with a server-assigned timestamp.
type HistoryEntry struct {
	EntryID    string    `json:"entry_id"`
	UserID     string    `json:"user_id"`
	Alert      Alert     `json:"alert"`
	RecordedAt time.Time `json:"recorded_at"`
}
