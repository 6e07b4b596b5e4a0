package services

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"rewards-service/internal/models"
	"rewards-service/internal/rewards"
)

const settingsRowID = 1

type SettingsService struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

func NewSettingsService(db *gorm.DB, logger *zap.Logger) *SettingsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsService{DB: db, Logger: logger}
}

type Settings struct {
	PointsPerLiter   float64        `json:"points_per_liter"`
	RewardMultiplier float64        `json:"reward_multiplier"`
	RoundingMode     string         `json:"rounding_mode"`
	Tiers            []rewards.Tier `json:"tiers"`
	UpdatedBy        uint           `json:"updated_by,omitempty"`
}

func (s Settings) Rate() rewards.Rate {
	return rewards.Rate{
		PointsPerLiter: s.PointsPerLiter,
		Multiplier:     s.RewardMultiplier,
		Rounding:       rewards.RoundingMode(s.RoundingMode),
	}
}

func defaultSettings() Settings {
	rate := rewards.DefaultRate()
	return Settings{
		PointsPerLiter:   rate.PointsPerLiter,
		RewardMultiplier: rate.Multiplier,
		RoundingMode:     string(rate.Rounding),
		Tiers:            []rewards.Tier{},
	}
}

// Get returns the stored settings, or the defaults when none were saved.
func (s *SettingsService) Get(ctx context.Context) (Settings, error) {
	var row models.RewardSetting
	err := s.DB.WithContext(ctx).First(&row, settingsRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return defaultSettings(), nil
	}
	if err != nil {
		return Settings{}, errors.Wrap(err, "load reward settings")
	}
	return settingsFromRow(row, s.Logger), nil
}

func settingsFromRow(row models.RewardSetting, log *zap.Logger) Settings {
	tiers, err := rewards.ParseTiers(row.Tiers)
	if err != nil {
		log.Warn("stored tier thresholds are invalid, ignoring", zap.Error(err))
		tiers = nil
	}
	if tiers == nil {
		tiers = []rewards.Tier{}
	}
	return Settings{
		PointsPerLiter:   row.PointsPerLiter,
		RewardMultiplier: row.RewardMultiplier,
		RoundingMode:     row.RoundingMode,
		Tiers:            tiers,
		UpdatedBy:        row.UpdatedBy,
	}
}

func (s *SettingsService) Rate(ctx context.Context) (rewards.Rate, error) {
	st, err := s.Get(ctx)
	if err != nil {
		return rewards.Rate{}, err
	}
	return st.Rate(), nil
}

func (s *SettingsService) Tiers(ctx context.Context) ([]rewards.Tier, error) {
	st, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	return st.Tiers, nil
}

type UpdateSettingsDTO struct {
	PointsPerLiter   *float64        `json:"points_per_liter"`
	RewardMultiplier *float64        `json:"reward_multiplier"`
	RoundingMode     *string         `json:"rounding_mode"`
	Tiers            *[]rewards.Tier `json:"tiers"`
}

// Update applies the provided fields over the current settings. New rates
// only affect transactions recorded afterwards.
func (s *SettingsService) Update(ctx context.Context, actor Actor, data UpdateSettingsDTO) (Settings, error) {
	if !actor.Is(models.RoleAdmin) {
		return Settings{}, forbidden("only admins can change reward settings")
	}

	current, err := s.Get(ctx)
	if err != nil {
		return Settings{}, err
	}

	if data.PointsPerLiter != nil {
		current.PointsPerLiter = *data.PointsPerLiter
	}
	if data.RewardMultiplier != nil {
		current.RewardMultiplier = *data.RewardMultiplier
	}
	if data.RoundingMode != nil {
		current.RoundingMode = *data.RoundingMode
	}
	if err := current.Rate().Validate(); err != nil {
		return Settings{}, invalid("points per liter and multiplier must be non-negative and rounding mode floor or nearest")
	}

	if data.Tiers != nil {
		tiers, err := rewards.NormalizeTiers(*data.Tiers)
		if err != nil {
			return Settings{}, invalid("tier names must be set and thresholds unique and non-negative")
		}
		current.Tiers = tiers
	}

	encoded, err := rewards.EncodeTiers(current.Tiers)
	if err != nil {
		return Settings{}, errors.Wrap(err, "encode tiers")
	}

	row := models.RewardSetting{
		ID:               settingsRowID,
		PointsPerLiter:   current.PointsPerLiter,
		RewardMultiplier: current.RewardMultiplier,
		RoundingMode:     current.RoundingMode,
		Tiers:            encoded,
		UpdatedBy:        actor.ID,
	}
	err = s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"points_per_liter", "reward_multiplier", "rounding_mode", "tiers", "updated_by", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return Settings{}, errors.Wrap(err, "save reward settings")
	}

	s.Logger.Info("reward settings updated",
		zap.Uint("by", actor.ID),
		zap.Float64("points_per_liter", current.PointsPerLiter),
		zap.Float64("reward_multiplier", current.RewardMultiplier),
		zap.String("rounding_mode", current.RoundingMode),
	)

	current.UpdatedBy = actor.ID
	return current, nil
}
