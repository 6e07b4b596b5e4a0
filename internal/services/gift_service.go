package services

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"rewards-service/internal/models"
	"rewards-service/internal/rewards"
	"rewards-service/internal/sanitize"
	"rewards-service/pkg/common"
)

type GiftService struct {
	DB       *gorm.DB
	Settings *SettingsService
	Logger   *zap.Logger
	Now      func() time.Time
}

func NewGiftService(db *gorm.DB, settings *SettingsService, logger *zap.Logger) *GiftService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GiftService{DB: db, Settings: settings, Logger: logger, Now: time.Now}
}

type GiftDTO struct {
	Name           string  `json:"name" binding:"required"`
	Description    string  `json:"description"`
	Category       string  `json:"category"`
	PointsRequired int64   `json:"points_required"`
	Value          float64 `json:"value"`
	Stock          int     `json:"stock"`
	Active         *bool   `json:"active"`
}

type UpdateGiftDTO struct {
	Name           *string  `json:"name"`
	Description    *string  `json:"description"`
	Category       *string  `json:"category"`
	PointsRequired *int64   `json:"points_required"`
	Value          *float64 `json:"value"`
	Stock          *int     `json:"stock"`
	Active         *bool    `json:"active"`
}

func validateGift(g models.Gift) error {
	if g.Name == "" {
		return invalid("gift name is required")
	}
	if g.PointsRequired < 0 {
		return invalid("points_required must not be negative")
	}
	if g.Stock < 0 {
		return invalid("stock must not be negative")
	}
	if g.Value < 0 || math.IsNaN(g.Value) || math.IsInf(g.Value, 0) {
		return invalid("value must not be negative")
	}
	for _, c := range models.GiftCategories {
		if c == g.Category {
			return nil
		}
	}
	return invalid("category must be one of %s", strings.Join(models.GiftCategories, ", "))
}

func (s *GiftService) Create(ctx context.Context, actor Actor, data GiftDTO) (models.Gift, error) {
	if !actor.IsStaff() {
		return models.Gift{}, forbidden("only admins and supervisors can manage gifts")
	}

	gift := models.Gift{
		Name:           sanitize.Text(data.Name),
		Description:    sanitize.Text(data.Description),
		Category:       data.Category,
		PointsRequired: data.PointsRequired,
		Value:          data.Value,
		Stock:          data.Stock,
		Active:         true,
		CreatedBy:      actor.ID,
	}
	if gift.Category == "" {
		gift.Category = models.CategoryOther
	}
	if data.Active != nil {
		gift.Active = *data.Active
	}
	if err := validateGift(gift); err != nil {
		return models.Gift{}, err
	}

	if err := s.DB.WithContext(ctx).Create(&gift).Error; err != nil {
		return models.Gift{}, errors.Wrap(err, "create gift")
	}
	s.Logger.Info("gift created", zap.Uint("gift_id", gift.ID), zap.Int64("points_required", gift.PointsRequired), zap.Uint("by", actor.ID))
	return gift, nil
}

func (s *GiftService) Get(ctx context.Context, id uint) (models.Gift, error) {
	var gift models.Gift
	if err := s.DB.WithContext(ctx).First(&gift, id).Error; err != nil {
		return models.Gift{}, lookupErr(err, "gift")
	}
	return gift, nil
}

// GetFor hides inactive gifts from everyone but staff, matching List.
func (s *GiftService) GetFor(ctx context.Context, actor Actor, id uint) (models.Gift, error) {
	gift, err := s.Get(ctx, id)
	if err != nil {
		return models.Gift{}, err
	}
	if !gift.Active && !actor.IsStaff() {
		return models.Gift{}, &NotFoundError{Resource: "gift"}
	}
	return gift, nil
}

type ListGiftsDTO struct {
	Category string
	Search   string
	Active   *bool
	Page     common.PageParams
}

func (s *GiftService) List(ctx context.Context, data ListGiftsDTO) (common.PaginationResult, error) {
	query := s.DB.WithContext(ctx).Model(&models.Gift{})
	if data.Category != "" {
		query = query.Where("category = ?", data.Category)
	}
	if data.Active != nil {
		query = query.Where("active = ?", *data.Active)
	}
	if q := strings.TrimSpace(data.Search); q != "" {
		query = query.Where("name LIKE ?", "%"+q+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return common.PaginationResult{}, errors.Wrap(err, "count gifts")
	}

	var gifts []models.Gift
	if err := query.Order("points_required ASC, id ASC").Limit(data.Page.Limit).Offset(data.Page.Offset()).Find(&gifts).Error; err != nil {
		return common.PaginationResult{}, errors.Wrap(err, "list gifts")
	}
	return common.PaginateResponse(gifts, total, data.Page.Page, data.Page.Limit, "Gifts fetched"), nil
}

func (s *GiftService) Update(ctx context.Context, actor Actor, id uint, data UpdateGiftDTO) (models.Gift, error) {
	if !actor.IsStaff() {
		return models.Gift{}, forbidden("only admins and supervisors can manage gifts")
	}

	gift, err := s.Get(ctx, id)
	if err != nil {
		return models.Gift{}, err
	}
	if data.Name != nil {
		gift.Name = sanitize.Text(*data.Name)
	}
	if data.Description != nil {
		gift.Description = sanitize.Text(*data.Description)
	}
	if data.Category != nil {
		gift.Category = *data.Category
	}
	if data.PointsRequired != nil {
		gift.PointsRequired = *data.PointsRequired
	}
	if data.Value != nil {
		gift.Value = *data.Value
	}
	if data.Stock != nil {
		gift.Stock = *data.Stock
	}
	if data.Active != nil {
		gift.Active = *data.Active
	}
	if err := validateGift(gift); err != nil {
		return models.Gift{}, err
	}

	if err := s.DB.WithContext(ctx).Save(&gift).Error; err != nil {
		return models.Gift{}, errors.Wrap(err, "update gift")
	}
	return gift, nil
}

// Delete rejects the gift's pending redemptions, expires its open
// assignments and soft-deletes it, all in one transaction.
func (s *GiftService) Delete(ctx context.Context, actor Actor, id uint) error {
	if !actor.IsStaff() {
		return forbidden("only admins and supervisors can manage gifts")
	}

	now := s.Now().UTC()
	var rejected, expired int64
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var gift models.Gift
		if err := tx.First(&gift, id).Error; err != nil {
			return lookupErr(err, "gift")
		}

		res := tx.Model(&models.Redemption{}).
			Where("gift_id = ? AND status = ?", id, models.RedemptionPending).
			Updates(map[string]interface{}{
				"status":       models.RedemptionRejected,
				"processed_by": actor.ID,
				"processed_at": now,
				"comment":      "Gift withdrawn",
			})
		if res.Error != nil {
			return errors.Wrap(res.Error, "reject pending redemptions")
		}
		rejected = res.RowsAffected

		res = tx.Model(&models.GiftAssignment{}).
			Where("gift_id = ? AND status IN ?", id, []string{models.GiftAssignmentPending, models.GiftAssignmentAvailable}).
			Update("status", models.GiftAssignmentExpired)
		if res.Error != nil {
			return errors.Wrap(res.Error, "expire gift assignments")
		}
		expired = res.RowsAffected

		return errors.Wrap(tx.Delete(&gift).Error, "delete gift")
	})
	if err != nil {
		return err
	}

	s.Logger.Info("gift deleted",
		zap.Uint("gift_id", id),
		zap.Int64("redemptions_rejected", rejected),
		zap.Int64("assignments_expired", expired),
		zap.Uint("by", actor.ID),
	)
	return nil
}

type AvailableGift struct {
	models.Gift
	CanRedeem    bool   `json:"can_redeem"`
	Reason       string `json:"reason,omitempty"`
	AssignmentID *uint  `json:"assignment_id,omitempty"`
}

type AvailableGifts struct {
	Balance rewards.Balance `json:"balance"`
	Gifts   []AvailableGift `json:"gifts"`
}

// AvailableForUser lists active gifts with whether userID could request each
// one now. Gifts assigned to the user carry the assignment id.
func (s *GiftService) AvailableForUser(ctx context.Context, userID uint) (AvailableGifts, error) {
	balance, err := balanceOf(ctx, s.DB.WithContext(ctx), s.Settings, userID)
	if err != nil {
		return AvailableGifts{}, err
	}

	var gifts []models.Gift
	if err := s.DB.WithContext(ctx).Where("active = ?", true).Order("points_required ASC, id ASC").Find(&gifts).Error; err != nil {
		return AvailableGifts{}, errors.Wrap(err, "list active gifts")
	}

	var assignments []models.GiftAssignment
	err = s.DB.WithContext(ctx).
		Where("assigned_to_id = ? AND assigned_to_role = ? AND status = ?", userID, models.RoleUser, models.GiftAssignmentAvailable).
		Find(&assignments).Error
	if err != nil {
		return AvailableGifts{}, errors.Wrap(err, "list gift assignments")
	}
	byGift := make(map[uint]uint, len(assignments))
	for _, a := range assignments {
		if _, ok := byGift[a.GiftID]; !ok {
			byGift[a.GiftID] = a.ID
		}
	}

	out := AvailableGifts{Balance: balance, Gifts: make([]AvailableGift, 0, len(gifts))}
	for _, g := range gifts {
		item := AvailableGift{Gift: g, CanRedeem: true}
		if err := rewards.CheckEligibility(balance.Available, g); err != nil {
			item.CanRedeem = false
			item.Reason = err.Error()
		}
		if id, ok := byGift[g.ID]; ok {
			id := id
			item.AssignmentID = &id
		}
		out.Gifts = append(out.Gifts, item)
	}
	return out, nil
}
