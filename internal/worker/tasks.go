package worker

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"rewards-service/internal/services"
)

// Task types handled by the worker. Producers live in the services package.
const (
	TypeNotificationDeliver = services.TypeNotificationDeliver
)

func decodeNotice(t *asynq.Task) (services.Notice, error) {
	var n services.Notice
	if err := json.Unmarshal(t.Payload(), &n); err != nil {
		return n, fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}
	return n, nil
}
