package services

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"rewards-service/internal/models"
	"rewards-service/internal/sanitize"
	"rewards-service/pkg/common"
)

type NotificationService struct {
	DB     *gorm.DB
	Logger *zap.Logger
	Now    func() time.Time
}

func NewNotificationService(db *gorm.DB, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{DB: db, Logger: logger, Now: time.Now}
}

// Create stores a notice for its user. Called by the queue consumer.
func (s *NotificationService) Create(ctx context.Context, n Notice) (models.Notification, error) {
	if n.UserID == 0 {
		return models.Notification{}, invalid("notification user is required")
	}
	row := models.Notification{
		UserID:  n.UserID,
		Kind:    n.Kind,
		Title:   sanitize.Text(n.Title),
		Message: sanitize.Text(n.Message),
	}
	if err := s.DB.WithContext(ctx).Create(&row).Error; err != nil {
		return models.Notification{}, errors.Wrap(err, "create notification")
	}
	return row, nil
}

func (s *NotificationService) List(ctx context.Context, userID uint, unreadOnly bool, page common.PageParams) (common.PaginationResult, error) {
	query := s.DB.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return common.PaginationResult{}, errors.Wrap(err, "count notifications")
	}

	var out []models.Notification
	if err := query.Order("created_at DESC, id DESC").Limit(page.Limit).Offset(page.Offset()).Find(&out).Error; err != nil {
		return common.PaginationResult{}, errors.Wrap(err, "list notifications")
	}
	return common.PaginateResponse(out, total, page.Page, page.Limit, "Notifications fetched"), nil
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id uint) error {
	res := s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if res.Error != nil {
		return errors.Wrap(res.Error, "mark notification read")
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := s.DB.WithContext(ctx).Model(&models.Notification{}).Where("id = ? AND user_id = ?", id, userID).Count(&count).Error; err != nil {
			return errors.Wrap(err, "find notification")
		}
		if count == 0 {
			return &NotFoundError{Resource: "notification"}
		}
	}
	return nil
}

// PurgeRead deletes read notifications older than retention.
func (s *NotificationService) PurgeRead(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := s.Now().UTC().Add(-retention)
	res := s.DB.WithContext(ctx).
		Where("is_read = ? AND created_at < ?", true, cutoff).
		Delete(&models.Notification{})
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "purge notifications")
	}
	return res.RowsAffected, nil
}
