package consumers

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"rewards-service/internal/models"
	"rewards-service/internal/services"
	"rewards-service/pkg/common"
)

type NotificationStore interface {
	Create(ctx context.Context, n services.Notice) (models.Notification, error)
}

// NotificationProcessor stores queued notices and forwards them to the
// configured webhook.
type NotificationProcessor struct {
	Store         NotificationStore
	WebhookURL    string
	WebhookSecret string
	Logger        *zap.Logger

	post func(ctx context.Context, url string, payload interface{}, headers map[string]string) (interface{}, error)
}

func NewNotificationProcessor(store NotificationStore, webhookURL, webhookSecret string, logger *zap.Logger) *NotificationProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationProcessor{
		Store:         store,
		WebhookURL:    webhookURL,
		WebhookSecret: webhookSecret,
		Logger:        logger,
		post:          common.PostJSON,
	}
}

type webhookPayload struct {
	ID      uint   `json:"id"`
	UserID  uint   `json:"user_id"`
	Kind    string `json:"kind"`
	Title   string `json:"title"`
	Message string `json:"message"`
	SentAt  string `json:"sent_at"`
}

// Process returns an error only when the notice could not be stored, so the
// queue retries without duplicating delivered rows. Webhook failures are
// logged.
func (p *NotificationProcessor) Process(ctx context.Context, n services.Notice) error {
	row, err := p.Store.Create(ctx, n)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			p.Logger.Warn("dropping invalid notification", zap.String("kind", n.Kind), zap.Error(err))
			return nil
		}
		return errors.Wrap(err, "store notification")
	}

	if p.WebhookURL == "" {
		return nil
	}

	headers := map[string]string{}
	if p.WebhookSecret != "" {
		headers["Authorization"] = "Bearer " + p.WebhookSecret
	}
	payload := webhookPayload{
		ID:      row.ID,
		UserID:  row.UserID,
		Kind:    row.Kind,
		Title:   row.Title,
		Message: row.Message,
		SentAt:  row.CreatedAt.UTC().Format(time.RFC3339),
	}
	if _, err := p.post(ctx, p.WebhookURL, payload, headers); err != nil {
		p.Logger.Warn("notification webhook failed",
			zap.Uint("notification_id", row.ID),
			zap.String("kind", row.Kind),
			zap.Error(err),
		)
	}
	return nil
}
