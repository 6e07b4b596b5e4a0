package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	CategoryBeverage    = "Beverage"
	CategoryFood        = "Food"
	CategoryElectronics = "Electronics"
	CategoryVouchers    = "Vouchers"
	CategoryOther       = "Other"
)

var GiftCategories = []string{CategoryBeverage, CategoryFood, CategoryElectronics, CategoryVouchers, CategoryOther}

type Gift struct {
	ID             uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name           string         `gorm:"column:name;size:255;not null" json:"name"`
	Description    string         `gorm:"column:description;type:text" json:"description"`
	Category       string         `gorm:"column:category;size:30;not null;default:Other" json:"category"`
	PointsRequired int64          `gorm:"column:points_required;not null;default:0" json:"points_required"`
	Value          float64        `gorm:"column:value;type:decimal(20,2);default:0.00" json:"value"`
	Stock          int            `gorm:"column:stock;not null;default:0" json:"stock"`
	Active         bool           `gorm:"column:active;not null" json:"active"`
	CreatedBy      uint           `gorm:"column:created_by" json:"created_by"`
	CreatedAt      time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (Gift) TableName() string {
	return "gifts"
}

const (
	AvailabilityAvailable  = "available"
	AvailabilityLow        = "low"
	AvailabilityOutOfStock = "out-of-stock"

	GiftAssignmentPending   = "PENDING"
	GiftAssignmentAvailable = "AVAILABLE"
	GiftAssignmentRedeemed  = "REDEEMED"
	GiftAssignmentExpired   = "EXPIRED"
)

var Availabilities = []string{AvailabilityAvailable, AvailabilityLow, AvailabilityOutOfStock}

type GiftAssignment struct {
	ID             uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	GiftID         uint       `gorm:"column:gift_id;not null;index" json:"gift_id"`
	AssignedToID   uint       `gorm:"column:assigned_to_id;not null;index" json:"assigned_to_id"`
	AssignedToRole string     `gorm:"column:assigned_to_role;size:20;not null" json:"assigned_to_role"`
	AssignedBy     uint       `gorm:"column:assigned_by;not null" json:"assigned_by"`
	Availability   string     `gorm:"column:availability;size:20;not null;default:available" json:"availability"`
	Status         string     `gorm:"column:status;size:20;not null;default:PENDING;index" json:"status"`
	ApprovedBy     *uint      `gorm:"column:approved_by" json:"approved_by,omitempty"`
	ExpiresAt      *time.Time `gorm:"column:expires_at;index" json:"expires_at,omitempty"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	Gift *Gift `gorm:"foreignKey:GiftID" json:"gift,omitempty"`
}

func (GiftAssignment) TableName() string {
	return "gift_assignments"
}
