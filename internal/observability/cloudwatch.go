package observability

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"weatheralert/internal/types"
)

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// maxDatumsPerCall is the PutMetricData batch limit.
const maxDatumsPerCall = 1000

// CloudWatchAlertMetrics emits disaster-watch counters to CloudWatch.
//
// Metrics emitted:
//   - AlertsFired: Dims {AlertType, Severity}, one datum per distinct pair
//   - DisasterEvents: no dims, events fetched per run
//   - SubscribersPolled: no dims
//   - AlertPublishFailures: no dims
//
// Failures are logged and swallowed; metrics never fail a run.
type CloudWatchAlertMetrics struct {
	client    CloudWatchClient
	namespace string
	logger    types.Logger
}

// NewCloudWatchAlertMetrics publishes to namespace, or types.MetricNamespace
// when empty.
func NewCloudWatchAlertMetrics(client CloudWatchClient, namespace string, logger types.Logger) *CloudWatchAlertMetrics {
	if namespace == "" {
		namespace = types.MetricNamespace
	}
	return &CloudWatchAlertMetrics{
		client:    client,
		namespace: namespace,
		logger:    logger,
	}
}

type alertKey struct {
	alertType types.AlertType
	severity  types.Severity
}

// RecordAlerts emits one AlertsFired datum per (type, severity) pair present.
func (m *CloudWatchAlertMetrics) RecordAlerts(ctx context.Context, alerts []types.Alert) {
	if len(alerts) == 0 {
		return
	}

	counts := make(map[alertKey]int)
	var order []alertKey
	for _, a := range alerts {
		k := alertKey{a.Type, a.Severity}
		if _, seen := counts[k]; !seen {
			order = append(order, k)
		}
		counts[k]++
	}

	data := make([]cwtypes.MetricDatum, 0, len(order))
	for _, k := range order {
		data = append(data, cwtypes.MetricDatum{
			MetricName: aws.String(types.MetricAlertsFired),
			Value:      aws.Float64(float64(counts[k])),
			Unit:       cwtypes.StandardUnitCount,
			Dimensions: []cwtypes.Dimension{
				{Name: aws.String(types.DimAlertType), Value: aws.String(string(k.alertType))},
				{Name: aws.String(types.DimSeverity), Value: aws.String(string(k.severity))},
			},
		})
	}
	m.put(ctx, data, "alerts")
}

// RecordRun emits the per-run counters of a disaster watch.
func (m *CloudWatchAlertMetrics) RecordRun(ctx context.Context, events, subscribers, publishFailures int) {
	data := []cwtypes.MetricDatum{
		countDatum(types.MetricDisasterEvents, events),
		countDatum(types.MetricSubscribersPolled, subscribers),
		countDatum(types.MetricPublishFailures, publishFailures),
	}
	m.put(ctx, data, "run")
}

func countDatum(name string, n int) cwtypes.MetricDatum {
	return cwtypes.MetricDatum{
		MetricName: aws.String(name),
		Value:      aws.Float64(float64(n)),
		Unit:       cwtypes.StandardUnitCount,
	}
}

func (m *CloudWatchAlertMetrics) put(ctx context.Context, data []cwtypes.MetricDatum, kind string) {
	for start := 0; start < len(data); start += maxDatumsPerCall {
		end := min(start+maxDatumsPerCall, len(data))
		input := &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(m.namespace),
			MetricData: data[start:end],
		}
		if _, err := m.client.PutMetricData(ctx, input); err != nil {
			m.logger.Error("failed to record metric",
				"error", err.Error(),
				"kind", kind,
				"datums", end-start,
			)
		}
	}
}
