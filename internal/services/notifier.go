package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// TypeNotificationDeliver is consumed by the worker package.
const TypeNotificationDeliver = "notification:deliver"

const (
	NoticePointsEarned       = "points.earned"
	NoticeRedemptionCreated  = "redemption.created"
	NoticeRedemptionApproved = "redemption.approved"
	NoticeRedemptionRejected = "redemption.rejected"
	NoticeGiftAssigned       = "gift.assigned"
	NoticeGiftApproved       = "gift.approved"
)

type Notice struct {
	UserID  uint   `json:"user_id"`
	Kind    string `json:"kind"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

type Notifier interface {
	Notify(ctx context.Context, n Notice) error
}

// QueueNotifier hands notices to the background worker.
type QueueNotifier struct {
	Client *asynq.Client
}

func NewQueueNotifier(client *asynq.Client) *QueueNotifier {
	return &QueueNotifier{Client: client}
}

func NewNotificationTask(n Notice) (*asynq.Task, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeNotificationDeliver, data, asynq.MaxRetry(5), asynq.Timeout(30*time.Second)), nil
}

func (q *QueueNotifier) Notify(ctx context.Context, n Notice) error {
	task, err := NewNotificationTask(n)
	if err != nil {
		return err
	}
	_, err = q.Client.EnqueueContext(ctx, task, asynq.Queue("default"))
	return err
}

// notify is best effort: a failed notice never fails the business operation.
func notify(ctx context.Context, notifier Notifier, log *zap.Logger, n Notice) {
	if notifier == nil || n.UserID == 0 {
		return
	}
	if err := notifier.Notify(ctx, n); err != nil {
		log.Warn("enqueue notification failed",
			zap.Uint("user_id", n.UserID),
			zap.String("kind", n.Kind),
			zap.Error(err),
		)
	}
}
