package watcher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
)

// Handler is the Lambda entrypoint. The EventBridge schedule delivers a
// CloudWatch scheduled event; any other payload, including an empty one, is
// treated as a manual trigger.
func (w *Watcher) Handler(ctx context.Context, payload json.RawMessage) (Summary, error) {
	var ev events.CloudWatchEvent
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &ev); err != nil {
			return Summary{}, fmt.Errorf("watcher: invalid event payload: %w", err)
		}
	}

	trigger := "manual"
	if ev.Source == "aws.events" {
		trigger = "schedule"
	}
	w.Logger.Info("disaster watch triggered", "trigger", trigger, "event_id", ev.ID)

	return w.Run(ctx)
}
