package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"rewards-service/internal/metrics"
	"rewards-service/internal/models"
	"rewards-service/internal/rewards"
	"rewards-service/internal/sanitize"
	"rewards-service/pkg/common"
)

const invoiceAttempts = 3

type TransactionService struct {
	DB       *gorm.DB
	Settings *SettingsService
	Pumps    *PumpService
	Notifier Notifier
	Logger   *zap.Logger
	Now      func() time.Time
}

func NewTransactionService(db *gorm.DB, settings *SettingsService, pumps *PumpService, notifier Notifier, logger *zap.Logger) *TransactionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransactionService{
		DB:       db,
		Settings: settings,
		Pumps:    pumps,
		Notifier: notifier,
		Logger:   logger,
		Now:      time.Now,
	}
}

// RecordTransactionDTO describes a sale. The customer is either a
// registered user id, or free text (email or name) which is matched
// against registered emails.
type RecordTransactionDTO struct {
	InvoiceNo   string   `json:"invoice_no"`
	CustomerID  *uint    `json:"customer_id"`
	Customer    string   `json:"customer"`
	PumpID      uint     `json:"pump_id" binding:"required"`
	Amount      float64  `json:"amount" binding:"required"`
	Liters      *float64 `json:"liters"`
	PaymentMode string   `json:"payment_mode" binding:"required"`
	Status      string   `json:"status"`
}

func (d RecordTransactionDTO) validate() error {
	if d.PumpID == 0 {
		return invalid("pump_id is required")
	}
	if d.Amount <= 0 || math.IsNaN(d.Amount) || math.IsInf(d.Amount, 0) {
		return invalid("amount must be greater than zero")
	}
	if d.Liters != nil && (math.IsNaN(*d.Liters) || math.IsInf(*d.Liters, 0) || *d.Liters < 0) {
		return invalid("liters must not be negative")
	}
	found := false
	for _, m := range models.PaymentModes {
		if m == d.PaymentMode {
			found = true
			break
		}
	}
	if !found {
		return invalid("payment_mode must be one of %s", strings.Join(models.PaymentModes, ", "))
	}
	switch d.Status {
	case "", models.TransactionCompleted, models.TransactionPending:
	default:
		return invalid("status must be Completed or Pending")
	}
	return nil
}

// Record stores a sale for the calling employer and, when it is Completed
// and the customer is a registered user, credits the computed points to the
// ledger in the same database transaction.
func (s *TransactionService) Record(ctx context.Context, actor Actor, data RecordTransactionDTO) (models.Transaction, error) {
	if !actor.Is(models.RoleEmployer) {
		return models.Transaction{}, forbidden("only employers can record transactions")
	}
	if err := data.validate(); err != nil {
		return models.Transaction{}, err
	}

	if s.Pumps != nil {
		if err := s.Pumps.CheckOperable(ctx, data.PumpID, actor.ID); err != nil {
			return models.Transaction{}, err
		}
	}

	customer, err := s.resolveCustomer(ctx, data)
	if err != nil {
		return models.Transaction{}, err
	}

	rate := rewards.DefaultRate()
	if s.Settings != nil {
		if rate, err = s.Settings.Rate(ctx); err != nil {
			return models.Transaction{}, err
		}
	}

	liters := 0.0
	if data.Liters != nil {
		liters = *data.Liters
	}
	status := data.Status
	if status == "" {
		status = models.TransactionCompleted
	}

	txn := models.Transaction{
		InvoiceNo:      strings.TrimSpace(data.InvoiceNo),
		EmployerID:     actor.ID,
		CustomerRef:    sanitize.Text(data.Customer),
		PumpID:         data.PumpID,
		Amount:         data.Amount,
		Liters:         liters,
		PaymentMode:    data.PaymentMode,
		PointsPerLiter: rate.PointsPerLiter,
		Multiplier:     rate.Multiplier,
		RewardPoints:   rewards.Points(liters, rate),
		Status:         status,
	}
	if customer != nil {
		txn.CustomerID = &customer.ID
		if txn.CustomerRef == "" {
			txn.CustomerRef = customer.Email
		}
	}

	generated := txn.InvoiceNo == ""
	for attempt := 1; ; attempt++ {
		if generated {
			txn.ID = 0
			txn.InvoiceNo = common.GenerateInvoiceNo(s.Now())
		}
		err = s.insert(ctx, &txn)
		if err == nil {
			break
		}
		if !isDuplicate(err) {
			return models.Transaction{}, err
		}
		if !generated || attempt >= invoiceAttempts {
			return models.Transaction{}, &ConflictError{Message: fmt.Sprintf("invoice %s already exists", txn.InvoiceNo)}
		}
	}

	metrics.ObserveTransaction(txn.PaymentMode, txn.Status, txn.Liters, credited(txn))
	s.Logger.Info("transaction recorded",
		zap.String("invoice_no", txn.InvoiceNo),
		zap.Uint("employer_id", txn.EmployerID),
		zap.Uint("pump_id", txn.PumpID),
		zap.Float64("liters", txn.Liters),
		zap.Int64("reward_points", txn.RewardPoints),
	)

	if pts := credited(txn); pts > 0 {
		notify(ctx, s.Notifier, s.Logger, Notice{
			UserID:  *txn.CustomerID,
			Kind:    NoticePointsEarned,
			Title:   "Reward points earned",
			Message: fmt.Sprintf("You earned %d points on invoice %s.", pts, txn.InvoiceNo),
		})
	}
	return txn, nil
}

// credited is the number of points that reach a ledger for txn.
func credited(txn models.Transaction) int64 {
	if txn.Status != models.TransactionCompleted || txn.CustomerID == nil {
		return 0
	}
	return txn.RewardPoints
}

func (s *TransactionService) insert(ctx context.Context, txn *models.Transaction) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(txn).Error; err != nil {
			if isDuplicate(err) {
				return err
			}
			return errors.Wrap(err, "create transaction")
		}

		points := credited(*txn)
		if points <= 0 {
			return nil
		}

		entry := models.RewardLedgerEntry{
			UserID:        *txn.CustomerID,
			TransactionID: txn.ID,
			Points:        points,
			Description:   fmt.Sprintf("Fuel purchase %s", txn.InvoiceNo),
		}
		if err := tx.Create(&entry).Error; err != nil {
			return errors.Wrap(err, "create ledger entry")
		}
		err := tx.Model(&models.User{}).
			Where("id = ?", *txn.CustomerID).
			Update("reward_points", gorm.Expr("reward_points + ?", points)).Error
		return errors.Wrap(err, "credit reward points")
	})
}

func (s *TransactionService) resolveCustomer(ctx context.Context, data RecordTransactionDTO) (*models.User, error) {
	var user models.User
	if data.CustomerID != nil {
		if err := s.DB.WithContext(ctx).First(&user, *data.CustomerID).Error; err != nil {
			return nil, lookupErr(err, "customer")
		}
		if user.Role != models.RoleUser {
			return nil, invalid("customer %d is not a registered customer", user.ID)
		}
		if !user.Active {
			return nil, invalid("customer %d is disabled", user.ID)
		}
		return &user, nil
	}

	ref := normalizeEmail(data.Customer)
	if ref == "" || !strings.Contains(ref, "@") {
		return nil, nil
	}
	// A disabled account is kept as free text and earns nothing.
	err := s.DB.WithContext(ctx).Where("email = ? AND role = ? AND active = ?", ref, models.RoleUser, true).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "find customer")
	}
	return &user, nil
}

type ListTransactionsDTO struct {
	PumpID uint
	Status string
	From   *time.Time
	To     *time.Time
	Page   common.PageParams
}

func (s *TransactionService) ListForEmployer(ctx context.Context, employerID uint, data ListTransactionsDTO) (common.PaginationResult, error) {
	query := s.DB.WithContext(ctx).Model(&models.Transaction{}).Where("employer_id = ?", employerID)
	if data.PumpID != 0 {
		query = query.Where("pump_id = ?", data.PumpID)
	}
	if data.Status != "" {
		query = query.Where("status = ?", data.Status)
	}
	if data.From != nil {
		query = query.Where("created_at >= ?", *data.From)
	}
	if data.To != nil {
		query = query.Where("created_at <= ?", *data.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return common.PaginationResult{}, errors.Wrap(err, "count transactions")
	}

	var txns []models.Transaction
	err := query.Preload("Pump").Order("created_at DESC, id DESC").
		Limit(data.Page.Limit).Offset(data.Page.Offset()).
		Find(&txns).Error
	if err != nil {
		return common.PaginationResult{}, errors.Wrap(err, "list transactions")
	}
	return common.PaginateResponse(txns, total, data.Page.Page, data.Page.Limit, "Transactions fetched"), nil
}

// GetByInvoice returns a sale. Employers only see their own sales.
func (s *TransactionService) GetByInvoice(ctx context.Context, actor Actor, invoiceNo string) (models.Transaction, error) {
	var txn models.Transaction
	query := s.DB.WithContext(ctx).Preload("Pump").Where("invoice_no = ?", strings.TrimSpace(invoiceNo))
	if actor.Is(models.RoleEmployer) {
		query = query.Where("employer_id = ?", actor.ID)
	} else if !actor.IsStaff() {
		return models.Transaction{}, forbidden("not allowed to view transactions")
	}
	if err := query.First(&txn).Error; err != nil {
		return models.Transaction{}, lookupErr(err, "transaction")
	}
	return txn, nil
}

type EmployerRewardSummary struct {
	EmployerID        uint    `json:"employer_id"`
	Transactions      int64   `json:"transactions"`
	TotalAmount       float64 `json:"total_amount"`
	TotalLiters       float64 `json:"total_liters"`
	PointsIssued      int64   `json:"points_issued"`
	CustomersRewarded int64   `json:"customers_rewarded"`
}

// RewardSummary aggregates the points issued through an employer's sales.
func (s *TransactionService) RewardSummary(ctx context.Context, employerID uint) (EmployerRewardSummary, error) {
	out := EmployerRewardSummary{EmployerID: employerID}

	err := s.DB.WithContext(ctx).Model(&models.Transaction{}).
		Select("COUNT(*) AS transactions, COALESCE(SUM(amount), 0) AS total_amount, COALESCE(SUM(liters), 0) AS total_liters").
		Where("employer_id = ?", employerID).
		Scan(&out).Error
	if err != nil {
		return out, errors.Wrap(err, "summarise transactions")
	}

	var issued struct {
		Points    int64
		Customers int64
	}
	err = s.DB.WithContext(ctx).Table("reward_ledger_entries AS l").
		Select("COALESCE(SUM(l.points), 0) AS points, COUNT(DISTINCT l.user_id) AS customers").
		Joins("JOIN transactions t ON t.id = l.transaction_id").
		Where("t.employer_id = ?", employerID).
		Scan(&issued).Error
	if err != nil {
		return out, errors.Wrap(err, "summarise issued points")
	}
	out.PointsIssued = issued.Points
	out.CustomersRewarded = issued.Customers
	return out, nil
}
