package models

import (
	"time"
)

const (
	PaymentCash   = "Cash"
	PaymentCard   = "Card"
	PaymentUPI    = "UPI"
	PaymentCredit = "Credit"

	TransactionCompleted = "Completed"
	TransactionPending   = "Pending"
)

var PaymentModes = []string{PaymentCash, PaymentCard, PaymentUPI, PaymentCredit}

// Transaction is a single fuel sale. Rows are never updated after insert.
type Transaction struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	InvoiceNo      string    `gorm:"column:invoice_no;size:64;not null;uniqueIndex" json:"invoice_no"`
	EmployerID     uint      `gorm:"column:employer_id;not null;index" json:"employer_id"`
	CustomerID     *uint     `gorm:"column:customer_id;index" json:"customer_id"`
	CustomerRef    string    `gorm:"column:customer_ref;size:255" json:"customer_ref"`
	PumpID         uint      `gorm:"column:pump_id;not null;index" json:"pump_id"`
	Amount         float64   `gorm:"column:amount;type:decimal(20,2);not null" json:"amount"`
	Liters         float64   `gorm:"column:liters;type:decimal(12,3);default:0" json:"liters"`
	PaymentMode    string    `gorm:"column:payment_mode;size:20;not null" json:"payment_mode"`
	PointsPerLiter float64   `gorm:"column:points_per_liter;type:decimal(10,4)" json:"points_per_liter"`
	Multiplier     float64   `gorm:"column:reward_multiplier;type:decimal(10,4)" json:"reward_multiplier"`
	RewardPoints   int64     `gorm:"column:reward_points;not null;default:0" json:"reward_points"`
	Status         string    `gorm:"column:status;size:20;not null;default:Completed;index" json:"status"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime;index" json:"created_at"`

	Pump *Pump `gorm:"foreignKey:PumpID" json:"pump,omitempty"`
}

func (Transaction) TableName() string {
	return "transactions"
}

// RewardLedgerEntry is one accrual of points to a user for a transaction.
// The sum of a user's entries is their total earned points.
type RewardLedgerEntry struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        uint      `gorm:"column:user_id;not null;index" json:"user_id"`
	TransactionID uint      `gorm:"column:transaction_id;not null;uniqueIndex" json:"transaction_id"`
	Points        int64     `gorm:"column:points;not null" json:"points"`
	Description   string    `gorm:"column:description;size:255" json:"description"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (RewardLedgerEntry) TableName() string {
	return "reward_ledger_entries"
}
