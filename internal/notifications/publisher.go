// Package notifications hands fired alerts to the push-delivery queue.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"

	"weatheralert/internal/types"
)

// SQSSender abstracts the SQS SendMessage operation for testability.
// Production code uses the *sqs.Client from aws-sdk-go-v2.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// maxDelay is the SQS DelaySeconds ceiling.
const maxDelay = 900 * time.Second

// AlertPublisher serializes alerts as types.AlertMessage and sends them to the
// alerts queue. Severity and alert type travel as message attributes so
// consumers can filter without decoding the body.
type AlertPublisher struct {
	client   SQSSender
	queueURL string
	clock    types.Clock
	logger   types.Logger
}

// NewAlertPublisher creates a publisher targeting queueURL.
func NewAlertPublisher(client SQSSender, queueURL string, clock types.Clock, logger types.Logger) *AlertPublisher {
	return &AlertPublisher{
		client:   client,
		queueURL: queueURL,
		clock:    clock,
		logger:   logger,
	}
}

// Publish sends one alert for userID. CRITICAL alerts are sent immediately;
// delay is honoured for everything else and clamped to [0, 900s].
func (p *AlertPublisher) Publish(ctx context.Context, userID string, alert types.Alert, origin string, delay time.Duration) error {
	msg := types.AlertMessage{
		MessageID:   uuid.NewString(),
		UserID:      userID,
		Alert:       alert,
		Origin:      origin,
		TraceID:     types.GetRequestID(ctx),
		PublishedAt: p.clock.Now().UTC(),
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalQueue, "failed to marshal alert message", err)
	}

	if alert.Severity == types.SeverityCritical || delay < 0 {
		delay = 0
	}
	delay = min(delay, maxDelay)
	delaySec := int32(delay / time.Second)

	input := &sqs.SendMessageInput{
		QueueUrl:     aws.String(p.queueURL),
		MessageBody:  aws.String(string(body)),
		DelaySeconds: delaySec,
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"AlertType": stringAttribute(string(alert.Type)),
			"Severity":  stringAttribute(string(alert.Severity)),
			"Origin":    stringAttribute(origin),
		},
	}

	if _, err := p.client.SendMessage(ctx, input); err != nil {
		return types.NewAppError(types.ErrCodeInternalQueue,
			fmt.Sprintf("failed to send alert message to %s", p.queueURL), err)
	}

	p.logger.Info("alert message published",
		"message_id", msg.MessageID,
		"alert_id", alert.ID,
		"user_id", userID,
		"severity", string(alert.Severity),
		"delay_seconds", delaySec,
		"trace_id", msg.TraceID,
	)
	return nil
}

// PublishAll publishes each alert without delay and returns how many failed.
// Failures are logged; one bad send does not stop the rest.
func (p *AlertPublisher) PublishAll(ctx context.Context, userID string, alerts []types.Alert, origin string) int {
	failed := 0
	for _, a := range alerts {
		if err := p.Publish(ctx, userID, a, origin, 0); err != nil {
			failed++
			p.logger.Error("alert publish failed", "alert_id", a.ID, "user_id", userID, "error", err)
		}
	}
	return failed
}

func stringAttribute(v string) sqstypes.MessageAttributeValue {
	return sqstypes.MessageAttributeValue{
		DataType:    aws.String("String"),
		StringValue: aws.String(v),
	}
}
