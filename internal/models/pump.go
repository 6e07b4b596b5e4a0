package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	PumpStatusActive      = "active"
	PumpStatusMaintenance = "maintenance"
	PumpStatusInactive    = "inactive"

	AssignmentActive   = "ACTIVE"
	AssignmentInactive = "INACTIVE"
)

type Pump struct {
	ID        uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string         `gorm:"column:name;size:255;not null" json:"name"`
	Code      string         `gorm:"column:code;size:50;not null;uniqueIndex" json:"code"`
	FuelType  string         `gorm:"column:fuel_type;size:50" json:"fuel_type"`
	Location  string         `gorm:"column:location;size:255" json:"location"`
	Status    string         `gorm:"column:status;size:20;default:active" json:"status"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (Pump) TableName() string {
	return "pumps"
}

// PumpAssignment binds a pump to the employer operating it. At most one
// assignment per pump is ACTIVE; reassignment marks the old one INACTIVE.
type PumpAssignment struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	PumpID     uint      `gorm:"column:pump_id;not null;index" json:"pump_id"`
	EmployerID uint      `gorm:"column:employer_id;not null;index" json:"employer_id"`
	AssignedBy uint      `gorm:"column:assigned_by" json:"assigned_by"`
	Status     string    `gorm:"column:status;size:20;not null;default:ACTIVE;index" json:"status"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	Pump     *Pump `gorm:"foreignKey:PumpID" json:"pump,omitempty"`
	Employer *User `gorm:"foreignKey:EmployerID" json:"employer,omitempty"`
}

func (PumpAssignment) TableName() string {
	return "pump_assignments"
}
