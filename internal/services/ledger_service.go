package services

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"rewards-service/internal/metrics"
	"rewards-service/internal/models"
	"rewards-service/internal/rewards"
	"rewards-service/pkg/common"
)

// LedgerService derives balances from the ledger and approved redemptions.
// users.reward_points is only a cache of the available figure.
type LedgerService struct {
	DB       *gorm.DB
	Settings *SettingsService
	Logger   *zap.Logger
}

func NewLedgerService(db *gorm.DB, settings *SettingsService, logger *zap.Logger) *LedgerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerService{DB: db, Settings: settings, Logger: logger}
}

func (s *LedgerService) Balance(ctx context.Context, userID uint) (rewards.Balance, error) {
	return balanceOf(ctx, s.DB.WithContext(ctx), s.Settings, userID)
}

func balanceOf(ctx context.Context, db *gorm.DB, settings *SettingsService, userID uint) (rewards.Balance, error) {
	earned, err := totalEarned(db, userID)
	if err != nil {
		return rewards.Balance{}, err
	}
	redeemed, err := totalRedeemed(db, userID)
	if err != nil {
		return rewards.Balance{}, err
	}

	var tiers []rewards.Tier
	if settings != nil {
		if tiers, err = settings.Tiers(ctx); err != nil {
			return rewards.Balance{}, err
		}
	}
	return rewards.NewBalance(userID, earned, redeemed, tiers), nil
}

func totalEarned(db *gorm.DB, userID uint) (int64, error) {
	var total int64
	err := db.Model(&models.RewardLedgerEntry{}).
		Select("COALESCE(SUM(points), 0)").
		Where("user_id = ?", userID).
		Scan(&total).Error
	return total, errors.Wrap(err, "sum ledger")
}

func totalRedeemed(db *gorm.DB, userID uint) (int64, error) {
	var total int64
	err := db.Model(&models.Redemption{}).
		Select("COALESCE(SUM(points_used), 0)").
		Where("user_id = ? AND status = ?", userID, models.RedemptionApproved).
		Scan(&total).Error
	return total, errors.Wrap(err, "sum approved redemptions")
}

func (s *LedgerService) History(ctx context.Context, userID uint, page common.PageParams) (common.PaginationResult, error) {
	query := s.DB.WithContext(ctx).Model(&models.RewardLedgerEntry{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return common.PaginationResult{}, errors.Wrap(err, "count ledger entries")
	}

	var entries []models.RewardLedgerEntry
	if err := query.Order("created_at DESC, id DESC").Limit(page.Limit).Offset(page.Offset()).Find(&entries).Error; err != nil {
		return common.PaginationResult{}, errors.Wrap(err, "list ledger entries")
	}
	return common.PaginateResponse(entries, total, page.Page, page.Limit, "Reward history fetched"), nil
}

// Reconcile rewrites every cached balance that disagrees with the ledger
// and returns how many were repaired.
func (s *LedgerService) Reconcile(ctx context.Context) (int, error) {
	var rows []struct {
		ID       uint
		Cached   int64
		Computed int64
	}
	err := s.DB.WithContext(ctx).Raw(`
		SELECT u.id AS id, u.reward_points AS cached,
			COALESCE((SELECT SUM(l.points) FROM reward_ledger_entries l WHERE l.user_id = u.id), 0)
			- COALESCE((SELECT SUM(r.points_used) FROM redemptions r WHERE r.user_id = u.id AND r.status = ?), 0) AS computed
		FROM users u
		WHERE u.deleted_at IS NULL`, models.RedemptionApproved).
		Scan(&rows).Error
	if err != nil {
		return 0, errors.Wrap(err, "compute balances")
	}

	repaired := 0
	for _, r := range rows {
		if r.Cached == r.Computed {
			continue
		}
		err := s.DB.WithContext(ctx).Model(&models.User{}).
			Where("id = ? AND reward_points = ?", r.ID, r.Cached).
			Update("reward_points", r.Computed).Error
		if err != nil {
			s.Logger.Error("repair cached balance failed", zap.Uint("user_id", r.ID), zap.Error(err))
			continue
		}
		s.Logger.Warn("cached balance drift repaired",
			zap.Uint("user_id", r.ID),
			zap.Int64("cached", r.Cached),
			zap.Int64("computed", r.Computed),
		)
		metrics.BalanceDrift.Inc()
		repaired++
	}
	return repaired, nil
}
