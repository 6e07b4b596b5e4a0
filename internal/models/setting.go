package models

import (
	"time"
)

// RewardSetting holds the single row of accrual configuration. Tiers is a
// JSON encoded list of {name, min_points}.
type RewardSetting struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	PointsPerLiter   float64   `gorm:"column:points_per_liter;type:decimal(10,4);not null" json:"points_per_liter"`
	RewardMultiplier float64   `gorm:"column:reward_multiplier;type:decimal(10,4);not null" json:"reward_multiplier"`
	RoundingMode     string    `gorm:"column:rounding_mode;size:20;not null" json:"rounding_mode"`
	Tiers            string    `gorm:"column:tiers;type:text" json:"-"`
	UpdatedBy        uint      `gorm:"column:updated_by" json:"updated_by"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (RewardSetting) TableName() string {
	return "reward_settings"
}
