package types

// Telemetry metric names for CloudWatch.
const (
	MetricAlertsFired       = "AlertsFired"
	MetricDisasterEvents    = "DisasterEvents"
	MetricSubscribersPolled = "SubscribersPolled"
	MetricPublishFailures   = "AlertPublishFailures"

	DimAlertType = "AlertType"
	DimSeverity  = "Severity"

	MetricNamespace = "WeatherAlert"
)
