package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rewards-service/internal/models"
	"rewards-service/internal/rewards"
	"rewards-service/internal/session"
	"rewards-service/pkg/token"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func TestLoginAuthenticateLogout(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()

	admin := mustUser(t, db, models.RoleAdmin)
	users := NewUserService(db, nil, nil)
	created, err := users.Create(ctx, ActorFromUser(&admin), CreateUserDTO{
		Email:    "  Driver@Example.com ",
		Name:     "Driver",
		Password: "s3cret-pass",
		Role:     models.RoleUser,
	})
	require.NoError(t, err)
	assert.Equal(t, "driver@example.com", created.Email)

	store := session.NewMemoryStore()
	auth := NewAuthService(db, testSecret, time.Hour, store, nil)

	_, err = auth.Login(ctx, "driver@example.com", "wrong-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = auth.Login(ctx, "nobody@example.com", "s3cret-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	res, err := auth.Login(ctx, "DRIVER@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, created.ID, res.User.ID)

	user, claims, err := auth.Authenticate(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, user.Role)

	require.NoError(t, auth.Logout(ctx, claims))
	_, _, err = auth.Authenticate(ctx, res.Token)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestAuthenticateUsesStoredRole(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()

	user := mustUser(t, db, models.RoleUser)
	auth := NewAuthService(db, testSecret, time.Hour, nil, nil)

	forged, _, err := token.Issue(testSecret, user.ID, models.RoleAdmin, time.Hour)
	require.NoError(t, err)

	got, _, err := auth.Authenticate(ctx, forged)
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, got.Role)

	require.NoError(t, db.Model(&user).Update("active", false).Error)
	_, _, err = auth.Authenticate(ctx, forged)
	assert.ErrorIs(t, err, ErrUserInactive)

	_, _, err = auth.Authenticate(ctx, "not-a-token")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestUserServiceRules(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()

	admin := mustUser(t, db, models.RoleAdmin)
	sup := mustUser(t, db, models.RoleSupervisor)
	svc := NewUserService(db, NewSettingsService(db, nil), nil)

	_, err := svc.Create(ctx, ActorFromUser(&sup), CreateUserDTO{Email: "x@example.com", Password: "password1", Role: models.RoleUser})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Create(ctx, ActorFromUser(&admin), CreateUserDTO{Email: "not-an-email", Password: "password1", Role: models.RoleUser})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(ctx, ActorFromUser(&admin), CreateUserDTO{Email: "x@example.com", Password: "password1", Role: "owner"})
	assert.ErrorIs(t, err, ErrValidation)

	u, err := svc.Create(ctx, ActorFromUser(&admin), CreateUserDTO{Email: "x@example.com", Password: "password1", Role: models.RoleUser})
	require.NoError(t, err)
	_, err = svc.Create(ctx, ActorFromUser(&admin), CreateUserDTO{Email: "X@example.com", Password: "password1", Role: models.RoleUser})
	assert.ErrorIs(t, err, ErrConflict)

	assert.ErrorIs(t, svc.Delete(ctx, ActorFromUser(&admin), admin.ID), ErrValidation)
	_, err = svc.Update(ctx, ActorFromUser(&admin), admin.ID, UpdateUserDTO{Active: ptr(false)})
	assert.ErrorIs(t, err, ErrValidation)

	updated, err := svc.Update(ctx, ActorFromUser(&admin), u.ID, UpdateUserDTO{Name: ptr("Renamed")})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)

	require.NoError(t, svc.Delete(ctx, ActorFromUser(&admin), u.ID))
	_, err = svc.Get(ctx, u.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, ActorFromUser(&admin), u.ID), ErrNotFound)
}

func TestUserTierLabel(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()

	admin := mustUser(t, db, models.RoleAdmin)
	user := mustUser(t, db, models.RoleUser)
	mustCredit(t, db, user.ID, 600)

	settings := NewSettingsService(db, nil)
	svc := NewUserService(db, settings, nil)

	got, err := svc.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Tier)

	_, err = settings.Update(ctx, ActorFromUser(&admin), UpdateSettingsDTO{Tiers: &[]rewards.Tier{
		{Name: "Silver", MinPoints: 500},
		{Name: "Bronze", MinPoints: 0},
		{Name: "Gold", MinPoints: 1000},
	}})
	require.NoError(t, err)

	got, err = svc.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Silver", got.Tier)

	bal, err := NewLedgerService(db, settings, nil).Balance(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Silver", bal.Tier)
}

func TestAssignUserToEmployer(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()

	sup := mustUser(t, db, models.RoleSupervisor)
	employer := mustUser(t, db, models.RoleEmployer)
	user := mustUser(t, db, models.RoleUser)
	svc := NewUserService(db, nil, nil)

	first, err := svc.AssignToEmployer(ctx, ActorFromUser(&sup), AssignUserDTO{EmployerID: employer.ID, UserID: user.ID})
	require.NoError(t, err)
	again, err := svc.AssignToEmployer(ctx, ActorFromUser(&sup), AssignUserDTO{EmployerID: employer.ID, UserID: user.ID})
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	_, err = svc.AssignToEmployer(ctx, ActorFromUser(&sup), AssignUserDTO{EmployerID: user.ID, UserID: employer.ID})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.AssignToEmployer(ctx, ActorFromUser(&employer), AssignUserDTO{EmployerID: employer.ID, UserID: user.ID})
	assert.ErrorIs(t, err, ErrForbidden)

	bound, err := svc.EmployerUsers(ctx, employer.ID)
	require.NoError(t, err)
	require.Len(t, bound, 1)
	assert.Equal(t, user.ID, bound[0].ID)
}

func TestCreateUserKeepsInactiveFlag(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	admin := ActorFromUser(ptr(mustUser(t, db, models.RoleAdmin)))
	svc := NewUserService(db, nil, nil)

	created, err := svc.Create(ctx, admin, CreateUserDTO{
		Email: "dormant@example.com", Password: "s3cret-pass", Role: models.RoleUser, Active: ptr(false),
	})
	require.NoError(t, err)
	assert.False(t, created.Active)

	stored, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, stored.Active)

	auth := NewAuthService(db, testSecret, time.Hour, session.NewMemoryStore(), nil)
	_, err = auth.Login(ctx, "dormant@example.com", "s3cret-pass")
	assert.ErrorIs(t, err, ErrUserInactive)

	enabled, err := svc.Create(ctx, admin, CreateUserDTO{
		Email: "enabled@example.com", Password: "s3cret-pass", Role: models.RoleUser,
	})
	require.NoError(t, err)
	assert.True(t, enabled.Active)
}
