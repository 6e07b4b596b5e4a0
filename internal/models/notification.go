package models

import (
	"time"
)

type Notification struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint      `gorm:"column:user_id;not null;index" json:"user_id"`
	Kind      string    `gorm:"column:kind;size:50;not null" json:"kind"`
	Title     string    `gorm:"column:title;size:255;not null" json:"title"`
	Message   string    `gorm:"column:message;type:text" json:"message"`
	Read      bool      `gorm:"column:is_read;default:false;index" json:"read"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime;index" json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}
