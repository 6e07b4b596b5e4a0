package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rewards-service/internal/models"
)

func TestAssignGiftInitialStatus(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()

	sup := mustUser(t, db, models.RoleSupervisor)
	employer := mustUser(t, db, models.RoleEmployer)
	user := mustUser(t, db, models.RoleUser)
	gift := mustGift(t, db, 10, 5)

	rec := &recordingNotifier{}
	svc := NewGiftAssignmentService(db, rec, nil)

	toEmployer, err := svc.Assign(ctx, ActorFromUser(&sup), AssignGiftDTO{GiftID: gift.ID, AssignedToID: employer.ID, AssignedToRole: models.RoleEmployer})
	require.NoError(t, err)
	assert.Equal(t, models.GiftAssignmentPending, toEmployer.Status)
	assert.Equal(t, models.AvailabilityAvailable, toEmployer.Availability)

	toUser, err := svc.Assign(ctx, ActorFromUser(&sup), AssignGiftDTO{GiftID: gift.ID, AssignedToID: user.ID, AssignedToRole: models.RoleUser})
	require.NoError(t, err)
	assert.Equal(t, models.GiftAssignmentAvailable, toUser.Status)
	assert.Equal(t, []string{NoticeGiftAssigned, NoticeGiftAssigned}, rec.kinds())

	_, err = svc.Assign(ctx, ActorFromUser(&sup), AssignGiftDTO{GiftID: gift.ID, AssignedToID: user.ID, AssignedToRole: models.RoleEmployer})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Assign(ctx, ActorFromUser(&sup), AssignGiftDTO{GiftID: gift.ID, AssignedToID: user.ID, AssignedToRole: models.RoleAdmin})
	assert.ErrorIs(t, err, ErrValidation)

	admin := mustUser(t, db, models.RoleAdmin)
	_, err = svc.Assign(ctx, ActorFromUser(&admin), AssignGiftDTO{GiftID: gift.ID, AssignedToID: user.ID, AssignedToRole: models.RoleUser})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestGiftAssignmentAvailabilityAndApproval(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()

	sup := mustUser(t, db, models.RoleSupervisor)
	employer := mustUser(t, db, models.RoleEmployer)
	other := mustUser(t, db, models.RoleEmployer)
	gift := mustGift(t, db, 10, 5)

	svc := NewGiftAssignmentService(db, nil, nil)
	a, err := svc.Assign(ctx, ActorFromUser(&sup), AssignGiftDTO{GiftID: gift.ID, AssignedToID: employer.ID, AssignedToRole: models.RoleEmployer})
	require.NoError(t, err)

	updated, err := svc.UpdateAvailability(ctx, ActorFromUser(&employer), a.ID, models.AvailabilityLow)
	require.NoError(t, err)
	assert.Equal(t, models.AvailabilityLow, updated.Availability)
	assert.Equal(t, models.GiftAssignmentPending, updated.Status)

	_, err = svc.UpdateAvailability(ctx, ActorFromUser(&other), a.ID, models.AvailabilityOutOfStock)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.UpdateAvailability(ctx, ActorFromUser(&employer), a.ID, "plenty")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.StatusFor(ctx, ActorFromUser(&other), a.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	approved, err := svc.Approve(ctx, ActorFromUser(&sup), a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GiftAssignmentAvailable, approved.Status)

	_, err = svc.Approve(ctx, ActorFromUser(&sup), a.ID)
	assert.ErrorIs(t, err, ErrConflict)

	list, err := svc.ListForAssignee(ctx, employer.ID, "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.AvailabilityLow, list[0].Availability)
	require.NotNil(t, list[0].Gift)
}

func TestExpireDue(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()

	sup := mustUser(t, db, models.RoleSupervisor)
	user := mustUser(t, db, models.RoleUser)
	gift := mustGift(t, db, 10, 5)

	svc := NewGiftAssignmentService(db, nil, nil)
	soon := time.Now().UTC().Add(time.Hour)
	a, err := svc.Assign(ctx, ActorFromUser(&sup), AssignGiftDTO{GiftID: gift.ID, AssignedToID: user.ID, AssignedToRole: models.RoleUser, ExpiresAt: &soon})
	require.NoError(t, err)
	keep, err := svc.Assign(ctx, ActorFromUser(&sup), AssignGiftDTO{GiftID: gift.ID, AssignedToID: user.ID, AssignedToRole: models.RoleUser})
	require.NoError(t, err)

	n, err := svc.ExpireDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	svc.Now = func() time.Time { return soon.Add(time.Minute) }
	maint := NewMaintenanceService(svc, NewLedgerService(db, nil, nil), NewNotificationService(db, nil), 0, nil)
	require.NoError(t, maint.ExpireGiftAssignments(ctx))

	expired, err := svc.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GiftAssignmentExpired, expired.Status)

	untouched, err := svc.Get(ctx, keep.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GiftAssignmentAvailable, untouched.Status)
}
