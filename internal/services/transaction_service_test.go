package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"rewards-service/internal/models"
	"rewards-service/internal/rewards"
)

type saleFixture struct {
	svc      *TransactionService
	ledger   *LedgerService
	notifier *recordingNotifier
	employer Actor
	customer models.User
	pump     models.Pump
}

func newSaleFixture(t *testing.T, db *gorm.DB) saleFixture {
	t.Helper()
	ctx := context.Background()

	admin := ActorFromUser(ptr(mustUser(t, db, models.RoleAdmin)))
	employer := mustUser(t, db, models.RoleEmployer)
	customer := mustUser(t, db, models.RoleUser)

	pumps := NewPumpService(db, nil)
	pump, err := pumps.Create(ctx, admin, PumpDTO{Name: "Pump 1", Code: "p-01"})
	require.NoError(t, err)
	_, err = pumps.Assign(ctx, admin, AssignPumpDTO{PumpID: pump.ID, EmployerID: employer.ID})
	require.NoError(t, err)

	settings := NewSettingsService(db, nil)
	rec := &recordingNotifier{}
	return saleFixture{
		svc:      NewTransactionService(db, settings, pumps, rec, nil),
		ledger:   NewLedgerService(db, settings, nil),
		notifier: rec,
		employer: ActorFromUser(&employer),
		customer: customer,
		pump:     pump,
	}
}

func ptr[T any](v T) *T { return &v }

func TestRecordTransactionAccruesPoints(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	f := newSaleFixture(t, db)

	admin := ActorFromUser(ptr(mustUser(t, db, models.RoleAdmin)))
	_, err := NewSettingsService(db, nil).Update(ctx, admin, UpdateSettingsDTO{RewardMultiplier: ptr(1.5)})
	require.NoError(t, err)

	txn, err := f.svc.Record(ctx, f.employer, RecordTransactionDTO{
		CustomerID:  &f.customer.ID,
		PumpID:      f.pump.ID,
		Amount:      1050,
		Liters:      ptr(10.0),
		PaymentMode: models.PaymentCard,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 15, txn.RewardPoints)
	assert.Equal(t, 1.5, txn.Multiplier)
	assert.Equal(t, models.TransactionCompleted, txn.Status)
	assert.Regexp(t, `^INV-\d{8}-[A-Z0-9]{7}$`, txn.InvoiceNo)

	bal, err := f.ledger.Balance(ctx, f.customer.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 15, bal.TotalEarned)
	assert.EqualValues(t, 15, bal.Available)

	var cached models.User
	require.NoError(t, db.First(&cached, f.customer.ID).Error)
	assert.EqualValues(t, 15, cached.RewardPoints)
	assert.Equal(t, []string{NoticePointsEarned}, f.notifier.kinds())
}

func TestRecordTransactionByCustomerEmail(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	f := newSaleFixture(t, db)

	txn, err := f.svc.Record(ctx, f.employer, RecordTransactionDTO{
		Customer:    "  " + f.customer.Email,
		PumpID:      f.pump.ID,
		Amount:      500,
		Liters:      ptr(4.6),
		PaymentMode: models.PaymentCash,
	})
	require.NoError(t, err)
	require.NotNil(t, txn.CustomerID)
	assert.Equal(t, f.customer.ID, *txn.CustomerID)
	assert.EqualValues(t, 5, txn.RewardPoints)

	walkIn, err := f.svc.Record(ctx, f.employer, RecordTransactionDTO{
		Customer:    "Walk-in driver",
		PumpID:      f.pump.ID,
		Amount:      500,
		Liters:      ptr(4.0),
		PaymentMode: models.PaymentCash,
	})
	require.NoError(t, err)
	assert.Nil(t, walkIn.CustomerID)
	assert.Equal(t, "Walk-in driver", walkIn.CustomerRef)

	var entries int64
	require.NoError(t, db.Model(&models.RewardLedgerEntry{}).Count(&entries).Error)
	assert.EqualValues(t, 1, entries)
}

func TestRecordTransactionWithoutLiters(t *testing.T) {
	db := requireDB(t)
	f := newSaleFixture(t, db)

	txn, err := f.svc.Record(context.Background(), f.employer, RecordTransactionDTO{
		CustomerID:  &f.customer.ID,
		PumpID:      f.pump.ID,
		Amount:      300,
		PaymentMode: models.PaymentUPI,
	})
	require.NoError(t, err)
	assert.NotZero(t, txn.ID)
	assert.Zero(t, txn.RewardPoints)
	assert.Empty(t, f.notifier.kinds())
}

func TestRecordPendingTransactionSkipsLedger(t *testing.T) {
	db := requireDB(t)
	f := newSaleFixture(t, db)

	txn, err := f.svc.Record(context.Background(), f.employer, RecordTransactionDTO{
		CustomerID:  &f.customer.ID,
		PumpID:      f.pump.ID,
		Amount:      300,
		Liters:      ptr(20.0),
		PaymentMode: models.PaymentCredit,
		Status:      models.TransactionPending,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 20, txn.RewardPoints)

	bal, err := f.ledger.Balance(context.Background(), f.customer.ID)
	require.NoError(t, err)
	assert.Zero(t, bal.TotalEarned)
}

func TestRecordTransactionDuplicateInvoice(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	f := newSaleFixture(t, db)

	in := RecordTransactionDTO{
		InvoiceNo:   "INV-CUSTOM-1",
		CustomerID:  &f.customer.ID,
		PumpID:      f.pump.ID,
		Amount:      100,
		Liters:      ptr(1.0),
		PaymentMode: models.PaymentCash,
	}
	_, err := f.svc.Record(ctx, f.employer, in)
	require.NoError(t, err)

	_, err = f.svc.Record(ctx, f.employer, in)
	assert.ErrorIs(t, err, ErrConflict)

	bal, err := f.ledger.Balance(ctx, f.customer.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, bal.TotalEarned)
}

func TestRecordTransactionRequiresAssignedPump(t *testing.T) {
	db := requireDB(t)
	f := newSaleFixture(t, db)
	other := mustUser(t, db, models.RoleEmployer)

	_, err := f.svc.Record(context.Background(), ActorFromUser(&other), RecordTransactionDTO{
		PumpID:      f.pump.ID,
		Amount:      100,
		PaymentMode: models.PaymentCash,
	})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.Record(context.Background(), Actor{ID: f.customer.ID, Role: models.RoleUser}, RecordTransactionDTO{
		PumpID:      f.pump.ID,
		Amount:      100,
		PaymentMode: models.PaymentCash,
	})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestRateChangeDoesNotRewriteHistory(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	f := newSaleFixture(t, db)

	first, err := f.svc.Record(ctx, f.employer, RecordTransactionDTO{
		CustomerID: &f.customer.ID, PumpID: f.pump.ID, Amount: 100, Liters: ptr(10.0), PaymentMode: models.PaymentCash,
	})
	require.NoError(t, err)

	admin := ActorFromUser(ptr(mustUser(t, db, models.RoleAdmin)))
	_, err = NewSettingsService(db, nil).Update(ctx, admin, UpdateSettingsDTO{PointsPerLiter: ptr(2.0)})
	require.NoError(t, err)

	second, err := f.svc.Record(ctx, f.employer, RecordTransactionDTO{
		CustomerID: &f.customer.ID, PumpID: f.pump.ID, Amount: 100, Liters: ptr(10.0), PaymentMode: models.PaymentCash,
	})
	require.NoError(t, err)

	got, err := f.svc.GetByInvoice(ctx, f.employer, first.InvoiceNo)
	require.NoError(t, err)
	assert.EqualValues(t, 10, got.RewardPoints)
	assert.Equal(t, 1.0, got.PointsPerLiter)
	assert.EqualValues(t, 20, second.RewardPoints)

	summary, err := f.svc.RewardSummary(ctx, f.employer.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, summary.Transactions)
	assert.EqualValues(t, 30, summary.PointsIssued)
	assert.EqualValues(t, 1, summary.CustomersRewarded)
}

func TestGetByInvoiceScopedToEmployer(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	f := newSaleFixture(t, db)

	txn, err := f.svc.Record(ctx, f.employer, RecordTransactionDTO{
		PumpID: f.pump.ID, Amount: 100, PaymentMode: models.PaymentCash,
	})
	require.NoError(t, err)

	other := mustUser(t, db, models.RoleEmployer)
	_, err = f.svc.GetByInvoice(ctx, ActorFromUser(&other), txn.InvoiceNo)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.GetByInvoice(ctx, Actor{ID: 99, Role: models.RoleSupervisor}, txn.InvoiceNo)
	assert.NoError(t, err)
}

func TestAccrualMatchesRule(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	f := newSaleFixture(t, db)

	var want int64
	for _, liters := range []float64{0.5, 3.3, 10, 42.75} {
		txn, err := f.svc.Record(ctx, f.employer, RecordTransactionDTO{
			CustomerID: &f.customer.ID, PumpID: f.pump.ID, Amount: 100, Liters: ptr(liters), PaymentMode: models.PaymentCash,
		})
		require.NoError(t, err)
		assert.Equal(t, rewards.Points(liters, rewards.DefaultRate()), txn.RewardPoints)
		want += txn.RewardPoints
	}

	bal, err := f.ledger.Balance(ctx, f.customer.ID)
	require.NoError(t, err)
	assert.Equal(t, want, bal.TotalEarned)
	assert.Equal(t, bal.TotalEarned-bal.TotalRedeemed, bal.Available)
}

func TestRecordTransactionDisabledCustomerEarnsNothing(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	f := newSaleFixture(t, db)
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", f.customer.ID).Update("active", false).Error)

	_, err := f.svc.Record(ctx, f.employer, RecordTransactionDTO{
		CustomerID: &f.customer.ID, PumpID: f.pump.ID, Amount: 100, Liters: ptr(20.0), PaymentMode: models.PaymentCash,
	})
	assert.ErrorIs(t, err, ErrValidation)

	txn, err := f.svc.Record(ctx, f.employer, RecordTransactionDTO{
		Customer: f.customer.Email, PumpID: f.pump.ID, Amount: 100, Liters: ptr(20.0), PaymentMode: models.PaymentCash,
	})
	require.NoError(t, err)
	assert.Nil(t, txn.CustomerID)
	assert.Equal(t, f.customer.Email, txn.CustomerRef)

	var entries int64
	require.NoError(t, db.Model(&models.RewardLedgerEntry{}).Where("user_id = ?", f.customer.ID).Count(&entries).Error)
	assert.Zero(t, entries)

	var stored models.User
	require.NoError(t, db.First(&stored, f.customer.ID).Error)
	assert.Zero(t, stored.RewardPoints)
}

func TestRecordTransactionRequiresActivePump(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	f := newSaleFixture(t, db)

	admin := ActorFromUser(ptr(mustUser(t, db, models.RoleAdmin)))
	_, err := f.svc.Pumps.Update(ctx, admin, f.pump.ID, UpdatePumpDTO{Status: ptr(models.PumpStatusMaintenance)})
	require.NoError(t, err)

	_, err = f.svc.Record(ctx, f.employer, RecordTransactionDTO{
		CustomerID: &f.customer.ID, PumpID: f.pump.ID, Amount: 100, Liters: ptr(10.0), PaymentMode: models.PaymentCash,
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.Record(ctx, f.employer, RecordTransactionDTO{
		CustomerID: &f.customer.ID, PumpID: f.pump.ID + 1000, Amount: 100, Liters: ptr(10.0), PaymentMode: models.PaymentCash,
	})
	assert.ErrorIs(t, err, ErrNotFound)

	var count int64
	require.NoError(t, db.Model(&models.Transaction{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRecordTransactionWithZeroRate(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	f := newSaleFixture(t, db)

	admin := ActorFromUser(ptr(mustUser(t, db, models.RoleAdmin)))
	_, err := NewSettingsService(db, nil).Update(ctx, admin, UpdateSettingsDTO{RewardMultiplier: ptr(0.0)})
	require.NoError(t, err)

	txn, err := f.svc.Record(ctx, f.employer, RecordTransactionDTO{
		CustomerID: &f.customer.ID, PumpID: f.pump.ID, Amount: 100, Liters: ptr(10.0), PaymentMode: models.PaymentCash,
	})
	require.NoError(t, err)
	assert.Zero(t, txn.RewardPoints)
	assert.Zero(t, txn.Multiplier)
}
