package rewards

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rewards-service/internal/models"
)

func TestCheckEligibility(t *testing.T) {
	gift := models.Gift{PointsRequired: 80, Stock: 3, Active: true}

	assert.ErrorIs(t, CheckEligibility(50, gift), ErrInsufficientPoints)
	assert.NoError(t, CheckEligibility(80, gift))
	assert.NoError(t, CheckEligibility(200, gift))

	inactive := gift
	inactive.Active = false
	assert.ErrorIs(t, CheckEligibility(200, inactive), ErrGiftInactive)

	empty := gift
	empty.Stock = 0
	assert.ErrorIs(t, CheckEligibility(200, empty), ErrOutOfStock)

	free := models.Gift{PointsRequired: 0, Stock: 1, Active: true}
	assert.NoError(t, CheckEligibility(0, free))
}

func TestNewBalance(t *testing.T) {
	tiers := []Tier{{Name: "Silver", MinPoints: 100}}
	b := NewBalance(7, 150, 100, tiers)

	assert.Equal(t, int64(50), b.Available)
	assert.Equal(t, b.TotalEarned-b.TotalRedeemed, b.Available)
	assert.Equal(t, "Silver", b.Tier)
}

func TestCheckRedemptionTransition(t *testing.T) {
	assert.NoError(t, CheckRedemptionTransition(models.RedemptionPending, models.RedemptionApproved))
	assert.NoError(t, CheckRedemptionTransition(models.RedemptionPending, models.RedemptionRejected))
	assert.ErrorIs(t, CheckRedemptionTransition(models.RedemptionPending, models.RedemptionPending), ErrInvalidTransition)

	for _, terminal := range []string{models.RedemptionApproved, models.RedemptionRejected} {
		assert.ErrorIs(t, CheckRedemptionTransition(terminal, models.RedemptionApproved), ErrAlreadyProcessed)
		assert.ErrorIs(t, CheckRedemptionTransition(terminal, models.RedemptionRejected), ErrAlreadyProcessed)
	}
}

func TestInitialAssignmentStatus(t *testing.T) {
	st, err := InitialAssignmentStatus(models.RoleEmployer)
	require.NoError(t, err)
	assert.Equal(t, models.GiftAssignmentPending, st)

	st, err = InitialAssignmentStatus(models.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, models.GiftAssignmentAvailable, st)

	_, err = InitialAssignmentStatus(models.RoleAdmin)
	assert.Error(t, err)
}

func TestCheckAssignmentTransition(t *testing.T) {
	assert.NoError(t, CheckAssignmentTransition(models.GiftAssignmentPending, models.GiftAssignmentAvailable))
	assert.NoError(t, CheckAssignmentTransition(models.GiftAssignmentAvailable, models.GiftAssignmentRedeemed))
	assert.NoError(t, CheckAssignmentTransition(models.GiftAssignmentAvailable, models.GiftAssignmentExpired))

	for _, from := range []string{models.GiftAssignmentAvailable, models.GiftAssignmentRedeemed, models.GiftAssignmentExpired} {
		assert.ErrorIs(t, CheckAssignmentTransition(from, models.GiftAssignmentAvailable), ErrAlreadyProcessed)
	}
	assert.ErrorIs(t, CheckAssignmentTransition(models.GiftAssignmentRedeemed, models.GiftAssignmentExpired), ErrInvalidTransition)
}

func TestValidAvailability(t *testing.T) {
	assert.True(t, ValidAvailability("low"))
	assert.True(t, ValidAvailability("out-of-stock"))
	assert.False(t, ValidAvailability("gone"))
}
