package models

import (
	"time"
)

const (
	RedemptionPending  = "Pending"
	RedemptionApproved = "Approved"
	RedemptionRejected = "Rejected"
)

type Redemption struct {
	ID           uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Reference    string     `gorm:"column:reference;size:32;not null;uniqueIndex" json:"reference"`
	UserID       uint       `gorm:"column:user_id;not null;index" json:"user_id"`
	GiftID       uint       `gorm:"column:gift_id;not null;index" json:"gift_id"`
	AssignmentID *uint      `gorm:"column:assignment_id;index" json:"assignment_id,omitempty"`
	PointsUsed   int64      `gorm:"column:points_used;not null" json:"points_used"`
	Status       string     `gorm:"column:status;size:20;not null;default:Pending;index" json:"status"`
	RequestedBy  uint       `gorm:"column:requested_by" json:"requested_by"`
	ProcessedBy  *uint      `gorm:"column:processed_by" json:"processed_by,omitempty"`
	ProcessedAt  *time.Time `gorm:"column:processed_at" json:"processed_at,omitempty"`
	Comment      string     `gorm:"column:comment;type:text" json:"comment"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	Gift *Gift `gorm:"foreignKey:GiftID" json:"gift,omitempty"`
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (Redemption) TableName() string {
	return "redemptions"
}
