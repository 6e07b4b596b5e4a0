package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"rewards-service/internal/models"
	"rewards-service/internal/rewards"
)

func TestErrorTaxonomy(t *testing.T) {
	assert.ErrorIs(t, invalid("bad %s", "input"), ErrValidation)
	assert.ErrorIs(t, &NotFoundError{Resource: "gift"}, ErrNotFound)
	assert.ErrorIs(t, &ConflictError{Message: "dup"}, ErrConflict)
	assert.ErrorIs(t, forbidden("no"), ErrForbidden)
	assert.EqualError(t, &NotFoundError{Resource: "gift"}, "gift not found")

	wrapped := errors.Wrap(invalid("amount must be greater than zero"), "record")
	assert.ErrorIs(t, wrapped, ErrValidation)
	assert.NotErrorIs(t, wrapped, ErrConflict)
}

func TestLookupErr(t *testing.T) {
	err := lookupErr(gorm.ErrRecordNotFound, "pump")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.EqualError(t, err, "pump not found")

	err = lookupErr(errors.New("connection reset"), "pump")
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "find pump")
}

func TestRuleErr(t *testing.T) {
	assert.ErrorIs(t, ruleErr(rewards.ErrAlreadyProcessed), ErrConflict)
	assert.ErrorIs(t, ruleErr(rewards.ErrInsufficientPoints), ErrValidation)
	assert.ErrorIs(t, ruleErr(rewards.ErrOutOfStock), ErrValidation)
	assert.ErrorIs(t, ruleErr(rewards.ErrGiftInactive), ErrValidation)
	assert.EqualError(t, ruleErr(rewards.ErrInsufficientPoints), rewards.ErrInsufficientPoints.Error())

	other := errors.New("boom")
	assert.Equal(t, other, ruleErr(other))
}

func TestActor(t *testing.T) {
	admin := Actor{ID: 1, Role: models.RoleAdmin}
	sup := Actor{ID: 2, Role: models.RoleSupervisor}
	emp := Actor{ID: 3, Role: models.RoleEmployer}

	assert.True(t, admin.IsStaff())
	assert.True(t, sup.IsStaff())
	assert.False(t, emp.IsStaff())
	assert.True(t, emp.Is(models.RoleUser, models.RoleEmployer))
	assert.False(t, emp.Is())
}

func TestRecordTransactionValidate(t *testing.T) {
	liters := 12.5
	negative := -1.0
	valid := RecordTransactionDTO{PumpID: 1, Amount: 1200, Liters: &liters, PaymentMode: models.PaymentUPI}
	require.NoError(t, valid.validate())

	noLiters := valid
	noLiters.Liters = nil
	assert.NoError(t, noLiters.validate())

	cases := map[string]func(d *RecordTransactionDTO){
		"missing pump":    func(d *RecordTransactionDTO) { d.PumpID = 0 },
		"zero amount":     func(d *RecordTransactionDTO) { d.Amount = 0 },
		"negative liters": func(d *RecordTransactionDTO) { d.Liters = &negative },
		"unknown mode":    func(d *RecordTransactionDTO) { d.PaymentMode = "Cheque" },
		"unknown status":  func(d *RecordTransactionDTO) { d.Status = "Refunded" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			d := valid
			mutate(&d)
			assert.ErrorIs(t, d.validate(), ErrValidation)
		})
	}
}

func TestCredited(t *testing.T) {
	uid := uint(7)
	txn := models.Transaction{CustomerID: &uid, RewardPoints: 15, Status: models.TransactionCompleted}
	assert.EqualValues(t, 15, credited(txn))

	txn.Status = models.TransactionPending
	assert.Zero(t, credited(txn))

	txn.Status = models.TransactionCompleted
	txn.CustomerID = nil
	assert.Zero(t, credited(txn))
}

func TestValidateGift(t *testing.T) {
	g := models.Gift{Name: "Coffee", Category: models.CategoryBeverage, PointsRequired: 100, Stock: 3, Value: 20}
	require.NoError(t, validateGift(g))

	bad := g
	bad.PointsRequired = -1
	assert.ErrorIs(t, validateGift(bad), ErrValidation)

	bad = g
	bad.Stock = -2
	assert.ErrorIs(t, validateGift(bad), ErrValidation)

	bad = g
	bad.Category = "Toys"
	assert.ErrorIs(t, validateGift(bad), ErrValidation)

	bad = g
	bad.Name = ""
	assert.ErrorIs(t, validateGift(bad), ErrValidation)
}

func TestValidatePump(t *testing.T) {
	p := models.Pump{Name: "Pump 1", Code: "P-01", Status: models.PumpStatusMaintenance}
	require.NoError(t, validatePump(p))

	p.Status = "broken"
	assert.ErrorIs(t, validatePump(p), ErrValidation)
}

func TestDateRange(t *testing.T) {
	// Thursday
	now := time.Date(2026, 3, 12, 15, 4, 5, 0, time.UTC)

	start, end := dateRange("day", now)
	assert.Equal(t, time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 3, 12, 23, 59, 59, 999999999, time.UTC), end)

	start, end = dateRange("week", now)
	assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 3, 15, 23, 59, 59, 999999999, time.UTC), end)

	start, end = dateRange("month", now)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 3, 31, 23, 59, 59, 999999999, time.UTC), end)

	start, end = dateRange("year", now)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 12, 31, 23, 59, 59, 999999999, time.UTC), end)

	start, _ = dateRange("yesterday", now)
	assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), start)

	start, _ = dateRange("fortnight", now)
	assert.Equal(t, time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC), start)

	sunday := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	start, _ = dateRange("week", sunday)
	assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), start)
}

func TestParseDateRange(t *testing.T) {
	now := time.Date(2026, 3, 12, 15, 0, 0, 0, time.UTC)

	start, end, err := ParseDateRange("", "2026-02-01", "2026-02-28", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 2, 28, 23, 59, 59, 999999999, time.UTC), end)

	_, _, err = ParseDateRange("", "2026-02-30x", "2026-02-28", now)
	assert.ErrorIs(t, err, ErrValidation)

	_, _, err = ParseDateRange("", "2026-03-01", "2026-02-28", now)
	assert.ErrorIs(t, err, ErrValidation)

	start, _, err = ParseDateRange("month", "", "", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), start)
}

func TestNewNotificationTask(t *testing.T) {
	n := Notice{UserID: 4, Kind: NoticePointsEarned, Title: "Reward points earned", Message: "You earned 15 points."}
	task, err := NewNotificationTask(n)
	require.NoError(t, err)
	assert.Equal(t, TypeNotificationDeliver, task.Type())

	var got Notice
	require.NoError(t, json.Unmarshal(task.Payload(), &got))
	assert.Equal(t, n, got)
}

type failingNotifier struct{}

func (failingNotifier) Notify(context.Context, Notice) error { return errors.New("queue down") }

func TestNotifyIsBestEffort(t *testing.T) {
	rec := &recordingNotifier{}
	notify(context.Background(), rec, nopLogger(), Notice{UserID: 0, Kind: NoticeGiftAssigned})
	assert.Empty(t, rec.kinds())

	notify(context.Background(), rec, nopLogger(), Notice{UserID: 3, Kind: NoticeGiftAssigned})
	assert.Equal(t, []string{NoticeGiftAssigned}, rec.kinds())

	assert.NotPanics(t, func() {
		notify(context.Background(), failingNotifier{}, nopLogger(), Notice{UserID: 3})
		notify(context.Background(), nil, nopLogger(), Notice{UserID: 3})
	})
}

func TestHashPassword(t *testing.T) {
	_, err := HashPassword("short")
	assert.ErrorIs(t, err, ErrValidation)

	hash, err := HashPassword("correct horse battery")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery", hash)
}
