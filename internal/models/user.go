package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	RoleAdmin      = "admin"
	RoleSupervisor = "supervisor"
	RoleEmployer   = "employer"
	RoleUser       = "user"
)

var Roles = []string{RoleAdmin, RoleSupervisor, RoleEmployer, RoleUser}

func ValidRole(role string) bool {
	for _, r := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

type User struct {
	ID           uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string         `gorm:"column:email;size:255;not null;uniqueIndex" json:"email"`
	Name         string         `gorm:"column:name;size:255" json:"name"`
	Phone        string         `gorm:"column:phone;size:50" json:"phone"`
	PasswordHash string         `gorm:"column:password_hash;size:255;not null" json:"-"`
	Role         string         `gorm:"column:role;size:20;not null;index" json:"role"`
	Active       bool           `gorm:"column:active;not null" json:"active"`
	RewardPoints int64          `gorm:"column:reward_points;not null;default:0" json:"reward_points"` // cached available balance
	Tier         string         `gorm:"-" json:"tier,omitempty"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// EmployerUser binds a customer to the employer (station operator) serving them.
type EmployerUser struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	EmployerID uint      `gorm:"column:employer_id;not null;uniqueIndex:idx_employer_user" json:"employer_id"`
	UserID     uint      `gorm:"column:user_id;not null;uniqueIndex:idx_employer_user" json:"user_id"`
	AssignedBy uint      `gorm:"column:assigned_by" json:"assigned_by"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (EmployerUser) TableName() string {
	return "employer_users"
}
