package services

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"rewards-service/internal/metrics"
	"rewards-service/internal/models"
	"rewards-service/internal/rewards"
	"rewards-service/internal/sanitize"
	"rewards-service/pkg/common"
)

type RedemptionService struct {
	DB       *gorm.DB
	Settings *SettingsService
	Notifier Notifier
	Logger   *zap.Logger
	Now      func() time.Time
}

func NewRedemptionService(db *gorm.DB, settings *SettingsService, notifier Notifier, logger *zap.Logger) *RedemptionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedemptionService{DB: db, Settings: settings, Notifier: notifier, Logger: logger, Now: time.Now}
}

// ruleErr maps a redemption rule violation onto the service error taxonomy.
func ruleErr(err error) error {
	switch {
	case errors.Is(err, rewards.ErrAlreadyProcessed):
		return &ConflictError{Message: "redemption has already been processed"}
	case errors.Is(err, rewards.ErrInsufficientPoints),
		errors.Is(err, rewards.ErrGiftInactive),
		errors.Is(err, rewards.ErrOutOfStock),
		errors.Is(err, rewards.ErrInvalidTransition):
		return &ValidationError{Message: err.Error()}
	}
	return err
}

type CreateRedemptionDTO struct {
	GiftID       uint   `json:"gift_id" binding:"required"`
	UserID       uint   `json:"user_id"`
	AssignmentID *uint  `json:"assignment_id"`
	Comment      string `json:"comment"`
}

// Create opens a Pending redemption. Users redeem for themselves; admins and
// supervisors may redeem on behalf of a user. No points move until approval.
func (s *RedemptionService) Create(ctx context.Context, actor Actor, data CreateRedemptionDTO) (models.Redemption, error) {
	userID := actor.ID
	switch {
	case actor.Is(models.RoleUser):
		if data.UserID != 0 && data.UserID != actor.ID {
			return models.Redemption{}, forbidden("users can only redeem for themselves")
		}
	case actor.IsStaff():
		if data.UserID == 0 {
			return models.Redemption{}, invalid("user_id is required")
		}
		userID = data.UserID
	default:
		return models.Redemption{}, forbidden("not allowed to request redemptions")
	}

	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, userID).Error; err != nil {
		return models.Redemption{}, lookupErr(err, "user")
	}
	if user.Role != models.RoleUser {
		return models.Redemption{}, invalid("redemptions can only be made for customers")
	}
	if !user.Active {
		return models.Redemption{}, invalid("user account is disabled")
	}

	var gift models.Gift
	if err := s.DB.WithContext(ctx).First(&gift, data.GiftID).Error; err != nil {
		return models.Redemption{}, lookupErr(err, "gift")
	}

	if data.AssignmentID != nil {
		var assignment models.GiftAssignment
		if err := s.DB.WithContext(ctx).First(&assignment, *data.AssignmentID).Error; err != nil {
			return models.Redemption{}, lookupErr(err, "gift assignment")
		}
		if assignment.AssignedToID != userID || assignment.AssignedToRole != models.RoleUser || assignment.GiftID != gift.ID {
			return models.Redemption{}, invalid("gift assignment does not match this user and gift")
		}
		if assignment.Status != models.GiftAssignmentAvailable {
			return models.Redemption{}, invalid("gift assignment is not available")
		}
	}

	balance, err := balanceOf(ctx, s.DB.WithContext(ctx), s.Settings, userID)
	if err != nil {
		return models.Redemption{}, err
	}
	if err := rewards.CheckEligibility(balance.Available, gift); err != nil {
		return models.Redemption{}, ruleErr(err)
	}

	redemption := models.Redemption{
		Reference:    common.GenerateReference(),
		UserID:       userID,
		GiftID:       gift.ID,
		AssignmentID: data.AssignmentID,
		PointsUsed:   gift.PointsRequired,
		Status:       models.RedemptionPending,
		RequestedBy:  actor.ID,
		Comment:      sanitize.Text(data.Comment),
	}
	if err := s.DB.WithContext(ctx).Create(&redemption).Error; err != nil {
		return models.Redemption{}, errors.Wrap(err, "create redemption")
	}
	redemption.Gift = &gift

	metrics.ObserveRedemption(models.RedemptionPending, redemption.PointsUsed)
	s.Logger.Info("redemption requested",
		zap.String("reference", redemption.Reference),
		zap.Uint("user_id", userID),
		zap.Uint("gift_id", gift.ID),
		zap.Int64("points", redemption.PointsUsed),
	)
	notify(ctx, s.Notifier, s.Logger, Notice{
		UserID:  userID,
		Kind:    NoticeRedemptionCreated,
		Title:   "Redemption requested",
		Message: fmt.Sprintf("Your request for %s (%s) is pending approval.", gift.Name, redemption.Reference),
	})
	return redemption, nil
}

type ListRedemptionsDTO struct {
	Status string
	UserID uint
	Page   common.PageParams
}

// List returns the caller's own redemptions, or all of them for staff.
func (s *RedemptionService) List(ctx context.Context, actor Actor, data ListRedemptionsDTO) (common.PaginationResult, error) {
	query := s.DB.WithContext(ctx).Model(&models.Redemption{})
	switch {
	case actor.IsStaff():
		if data.UserID != 0 {
			query = query.Where("user_id = ?", data.UserID)
		}
	case actor.Is(models.RoleUser):
		query = query.Where("user_id = ?", actor.ID)
	default:
		return common.PaginationResult{}, forbidden("not allowed to view redemptions")
	}
	if data.Status != "" {
		query = query.Where("status = ?", data.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return common.PaginationResult{}, errors.Wrap(err, "count redemptions")
	}

	var out []models.Redemption
	err := query.Preload("Gift").Preload("User").
		Order("created_at DESC, id DESC").
		Limit(data.Page.Limit).Offset(data.Page.Offset()).
		Find(&out).Error
	if err != nil {
		return common.PaginationResult{}, errors.Wrap(err, "list redemptions")
	}
	return common.PaginateResponse(out, total, data.Page.Page, data.Page.Limit, "Redemptions fetched"), nil
}

func (s *RedemptionService) Get(ctx context.Context, actor Actor, id uint) (models.Redemption, error) {
	var r models.Redemption
	if err := s.DB.WithContext(ctx).Preload("Gift").Preload("User").First(&r, id).Error; err != nil {
		return models.Redemption{}, lookupErr(err, "redemption")
	}
	if !actor.IsStaff() && r.UserID != actor.ID {
		return models.Redemption{}, &NotFoundError{Resource: "redemption"}
	}
	return r, nil
}

// Process dispatches a status change requested through the API.
func (s *RedemptionService) Process(ctx context.Context, actor Actor, id uint, status, comment string) (models.Redemption, error) {
	switch status {
	case models.RedemptionApproved:
		return s.Approve(ctx, actor, id, comment)
	case models.RedemptionRejected:
		return s.Reject(ctx, actor, id, comment)
	}
	return models.Redemption{}, invalid("status must be Approved or Rejected")
}

// Approve debits the user's balance and the gift's stock. Everything happens
// in one transaction with the redemption and user rows locked, and every
// write is conditional, so concurrent approvals cannot overdraw.
func (s *RedemptionService) Approve(ctx context.Context, actor Actor, id uint, comment string) (models.Redemption, error) {
	if !actor.IsStaff() {
		return models.Redemption{}, forbidden("only admins and supervisors can approve redemptions")
	}

	now := s.Now().UTC()
	var r models.Redemption
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&r, id).Error; err != nil {
			return lookupErr(err, "redemption")
		}
		if err := rewards.CheckRedemptionTransition(r.Status, models.RedemptionApproved); err != nil {
			return ruleErr(err)
		}

		var user models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, r.UserID).Error; err != nil {
			return lookupErr(err, "user")
		}
		balance, err := balanceOf(ctx, tx, nil, r.UserID)
		if err != nil {
			return err
		}
		if balance.Available < r.PointsUsed {
			return ruleErr(rewards.ErrInsufficientPoints)
		}

		var gift models.Gift
		if err := tx.Unscoped().First(&gift, r.GiftID).Error; err != nil {
			return lookupErr(err, "gift")
		}
		if !gift.Active || gift.DeletedAt.Valid {
			return ruleErr(rewards.ErrGiftInactive)
		}

		res := tx.Model(&models.User{}).
			Where("id = ? AND reward_points >= ?", r.UserID, r.PointsUsed).
			Update("reward_points", gorm.Expr("reward_points - ?", r.PointsUsed))
		if res.Error != nil {
			return errors.Wrap(res.Error, "debit reward points")
		}
		if res.RowsAffected == 0 {
			return ruleErr(rewards.ErrInsufficientPoints)
		}

		res = tx.Model(&models.Gift{}).
			Where("id = ? AND stock > 0", r.GiftID).
			Update("stock", gorm.Expr("stock - 1"))
		if res.Error != nil {
			return errors.Wrap(res.Error, "decrement gift stock")
		}
		if res.RowsAffected == 0 {
			return ruleErr(rewards.ErrOutOfStock)
		}

		if err := s.finish(tx, &r, models.RedemptionApproved, actor.ID, now, comment); err != nil {
			return err
		}

		if r.AssignmentID != nil {
			err := tx.Model(&models.GiftAssignment{}).
				Where("id = ? AND status = ?", *r.AssignmentID, models.GiftAssignmentAvailable).
				Update("status", models.GiftAssignmentRedeemed).Error
			if err != nil {
				return errors.Wrap(err, "mark gift assignment redeemed")
			}
		}
		r.Gift = &gift
		return nil
	})
	if err != nil {
		return models.Redemption{}, err
	}

	metrics.ObserveRedemption(models.RedemptionApproved, r.PointsUsed)
	s.Logger.Info("redemption approved",
		zap.String("reference", r.Reference),
		zap.Uint("user_id", r.UserID),
		zap.Int64("points", r.PointsUsed),
		zap.Uint("by", actor.ID),
	)
	notify(ctx, s.Notifier, s.Logger, Notice{
		UserID:  r.UserID,
		Kind:    NoticeRedemptionApproved,
		Title:   "Redemption approved",
		Message: fmt.Sprintf("Redemption %s was approved. %d points were used.", r.Reference, r.PointsUsed),
	})
	return r, nil
}

// Reject closes a Pending redemption without touching balances.
func (s *RedemptionService) Reject(ctx context.Context, actor Actor, id uint, comment string) (models.Redemption, error) {
	if !actor.IsStaff() {
		return models.Redemption{}, forbidden("only admins and supervisors can reject redemptions")
	}

	now := s.Now().UTC()
	var r models.Redemption
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&r, id).Error; err != nil {
			return lookupErr(err, "redemption")
		}
		if err := rewards.CheckRedemptionTransition(r.Status, models.RedemptionRejected); err != nil {
			return ruleErr(err)
		}
		return s.finish(tx, &r, models.RedemptionRejected, actor.ID, now, comment)
	})
	if err != nil {
		return models.Redemption{}, err
	}

	metrics.ObserveRedemption(models.RedemptionRejected, r.PointsUsed)
	s.Logger.Info("redemption rejected", zap.String("reference", r.Reference), zap.Uint("by", actor.ID))
	notify(ctx, s.Notifier, s.Logger, Notice{
		UserID:  r.UserID,
		Kind:    NoticeRedemptionRejected,
		Title:   "Redemption rejected",
		Message: fmt.Sprintf("Redemption %s was rejected.", r.Reference),
	})
	return r, nil
}

func (s *RedemptionService) finish(tx *gorm.DB, r *models.Redemption, status string, by uint, at time.Time, comment string) error {
	updates := map[string]interface{}{
		"status":       status,
		"processed_by": by,
		"processed_at": at,
	}
	if c := sanitize.Text(comment); c != "" {
		updates["comment"] = c
		r.Comment = c
	}
	res := tx.Model(&models.Redemption{}).
		Where("id = ? AND status = ?", r.ID, models.RedemptionPending).
		Updates(updates)
	if res.Error != nil {
		return errors.Wrap(res.Error, "update redemption status")
	}
	if res.RowsAffected == 0 {
		return ruleErr(rewards.ErrAlreadyProcessed)
	}
	r.Status = status
	r.ProcessedBy = &by
	r.ProcessedAt = &at
	return nil
}
