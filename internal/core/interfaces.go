package core

import "time"

// MetricsCollector records API request telemetry.
type MetricsCollector interface {
	// RecordRequest records one request. endpoint is the matched route
	// pattern, not the raw path.
	RecordRequest(method, endpoint, status string, duration time.Duration)
}
