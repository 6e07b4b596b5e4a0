package services

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"rewards-service/internal/models"
)

type DashboardService struct {
	DB     *gorm.DB
	Logger *zap.Logger
	Now    func() time.Time
}

func NewDashboardService(db *gorm.DB, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{DB: db, Logger: logger, Now: time.Now}
}

// dateRange returns the UTC bounds of the named period containing date.
// Weeks start on Monday; unknown names mean "day".
func dateRange(name string, date time.Time) (time.Time, time.Time) {
	date = date.UTC()
	startOfDay := func(t time.Time) time.Time {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}

	var start, end time.Time
	switch name {
	case "week":
		weekday := date.Weekday()
		if weekday == time.Sunday {
			weekday = 7
		}
		start = startOfDay(date.AddDate(0, 0, -(int(weekday) - 1)))
		end = start.AddDate(0, 0, 7)
	case "month":
		start = time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 1, 0)
	case "year":
		start = time.Date(date.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(1, 0, 0)
	case "yesterday":
		start = startOfDay(date.AddDate(0, 0, -1))
		end = start.AddDate(0, 0, 1)
	default:
		start = startOfDay(date)
		end = start.AddDate(0, 0, 1)
	}
	return start, end.Add(-time.Nanosecond)
}

// ParseDateRange prefers an explicit from/to pair (YYYY-MM-DD, inclusive)
// over the named range.
func ParseDateRange(name, from, to string, now time.Time) (time.Time, time.Time, error) {
	if from != "" && to != "" {
		start, err := time.Parse("2006-01-02", from)
		if err != nil {
			return time.Time{}, time.Time{}, invalid("invalid from date")
		}
		end, err := time.Parse("2006-01-02", to)
		if err != nil {
			return time.Time{}, time.Time{}, invalid("invalid to date")
		}
		if end.Before(start) {
			return time.Time{}, time.Time{}, invalid("to date must not be before from date")
		}
		return start, end.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
	}
	start, end := dateRange(name, now)
	return start, end, nil
}

type DashboardStats struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`

	UsersByRole map[string]int64 `json:"users_by_role"`
	ActivePumps int64            `json:"active_pumps"`
	ActiveGifts int64            `json:"active_gifts"`

	Transactions int64   `json:"transactions"`
	SalesAmount  float64 `json:"sales_amount"`
	LitersSold   float64 `json:"liters_sold"`
	PointsIssued int64   `json:"points_issued"`

	RedemptionsByStatus map[string]int64 `json:"redemptions_by_status"`
	PointsRedeemed      int64            `json:"points_redeemed"`
	PendingRedemptions  int64            `json:"pending_redemptions"`
}

// Stats summarises activity between from and to (inclusive). Counts of
// users, pumps, gifts and pending redemptions are current totals.
func (s *DashboardService) Stats(ctx context.Context, actor Actor, from, to time.Time) (DashboardStats, error) {
	if !actor.Is(models.RoleAdmin) {
		return DashboardStats{}, forbidden("only admins can view the dashboard")
	}

	db := s.DB.WithContext(ctx)
	out := DashboardStats{
		From:                from,
		To:                  to,
		UsersByRole:         map[string]int64{},
		RedemptionsByStatus: map[string]int64{},
	}

	var roles []struct {
		Role  string
		Total int64
	}
	if err := db.Model(&models.User{}).Select("role, COUNT(*) AS total").Group("role").Scan(&roles).Error; err != nil {
		return out, errors.Wrap(err, "count users")
	}
	for _, r := range roles {
		out.UsersByRole[r.Role] = r.Total
	}

	if err := db.Model(&models.Pump{}).Where("status = ?", models.PumpStatusActive).Count(&out.ActivePumps).Error; err != nil {
		return out, errors.Wrap(err, "count pumps")
	}
	if err := db.Model(&models.Gift{}).Where("active = ?", true).Count(&out.ActiveGifts).Error; err != nil {
		return out, errors.Wrap(err, "count gifts")
	}

	var sales struct {
		Transactions int64
		Amount       float64
		Liters       float64
	}
	err := db.Model(&models.Transaction{}).
		Select("COUNT(*) AS transactions, COALESCE(SUM(amount), 0) AS amount, COALESCE(SUM(liters), 0) AS liters").
		Where("created_at BETWEEN ? AND ?", from, to).
		Scan(&sales).Error
	if err != nil {
		return out, errors.Wrap(err, "summarise sales")
	}
	out.Transactions, out.SalesAmount, out.LitersSold = sales.Transactions, sales.Amount, sales.Liters

	err = db.Model(&models.RewardLedgerEntry{}).
		Select("COALESCE(SUM(points), 0)").
		Where("created_at BETWEEN ? AND ?", from, to).
		Scan(&out.PointsIssued).Error
	if err != nil {
		return out, errors.Wrap(err, "sum issued points")
	}

	var statuses []struct {
		Status string
		Total  int64
	}
	err = db.Model(&models.Redemption{}).
		Select("status, COUNT(*) AS total").
		Where("created_at BETWEEN ? AND ?", from, to).
		Group("status").
		Scan(&statuses).Error
	if err != nil {
		return out, errors.Wrap(err, "summarise redemptions")
	}
	for _, st := range statuses {
		out.RedemptionsByStatus[st.Status] = st.Total
	}

	err = db.Model(&models.Redemption{}).
		Select("COALESCE(SUM(points_used), 0)").
		Where("status = ? AND processed_at BETWEEN ? AND ?", models.RedemptionApproved, from, to).
		Scan(&out.PointsRedeemed).Error
	if err != nil {
		return out, errors.Wrap(err, "sum redeemed points")
	}

	if err := db.Model(&models.Redemption{}).Where("status = ?", models.RedemptionPending).Count(&out.PendingRedemptions).Error; err != nil {
		return out, errors.Wrap(err, "count pending redemptions")
	}
	return out, nil
}
