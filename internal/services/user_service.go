package services

import (
	"context"
	"net/mail"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"rewards-service/internal/models"
	"rewards-service/internal/rewards"
	"rewards-service/internal/sanitize"
	"rewards-service/pkg/common"
)

type UserService struct {
	DB       *gorm.DB
	Settings *SettingsService
	Logger   *zap.Logger
}

func NewUserService(db *gorm.DB, settings *SettingsService, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{DB: db, Settings: settings, Logger: logger}
}

type ListUsersDTO struct {
	Role   string
	Search string
	Active *bool
	Page   common.PageParams
}

func (s *UserService) List(ctx context.Context, data ListUsersDTO) (common.PaginationResult, error) {
	query := s.DB.WithContext(ctx).Model(&models.User{})
	if data.Role != "" {
		query = query.Where("role = ?", data.Role)
	}
	if data.Active != nil {
		query = query.Where("active = ?", *data.Active)
	}
	if q := strings.TrimSpace(data.Search); q != "" {
		like := "%" + q + "%"
		query = query.Where("email LIKE ? OR name LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return common.PaginationResult{}, errors.Wrap(err, "count users")
	}

	var users []models.User
	if err := query.Order("created_at DESC").Limit(data.Page.Limit).Offset(data.Page.Offset()).Find(&users).Error; err != nil {
		return common.PaginationResult{}, errors.Wrap(err, "list users")
	}

	tiers, err := s.tiers(ctx)
	if err != nil {
		return common.PaginationResult{}, err
	}
	if len(tiers) > 0 {
		earned, err := s.earnedByUser(ctx, userIDs(users))
		if err != nil {
			return common.PaginationResult{}, err
		}
		for i := range users {
			users[i].Tier = rewards.TierFor(earned[users[i].ID], tiers)
		}
	}

	return common.PaginateResponse(users, total, data.Page.Page, data.Page.Limit, "Users fetched"), nil
}

func (s *UserService) Get(ctx context.Context, id uint) (models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		return models.User{}, lookupErr(err, "user")
	}

	tiers, err := s.tiers(ctx)
	if err != nil {
		return models.User{}, err
	}
	if len(tiers) > 0 {
		earned, err := s.earnedByUser(ctx, []uint{user.ID})
		if err != nil {
			return models.User{}, err
		}
		user.Tier = rewards.TierFor(earned[user.ID], tiers)
	}
	return user, nil
}

type CreateUserDTO struct {
	Email    string `json:"email" binding:"required"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role" binding:"required"`
	Active   *bool  `json:"active"`
}

func (s *UserService) Create(ctx context.Context, actor Actor, data CreateUserDTO) (models.User, error) {
	if !actor.Is(models.RoleAdmin) {
		return models.User{}, forbidden("only admins can create users")
	}

	email := normalizeEmail(data.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return models.User{}, invalid("email address is invalid")
	}
	if !models.ValidRole(data.Role) {
		return models.User{}, invalid("role must be one of %s", strings.Join(models.Roles, ", "))
	}
	hash, err := HashPassword(data.Password)
	if err != nil {
		return models.User{}, err
	}

	active := true
	if data.Active != nil {
		active = *data.Active
	}

	user := models.User{
		Email:        email,
		Name:         sanitize.Text(data.Name),
		Phone:        strings.TrimSpace(data.Phone),
		PasswordHash: hash,
		Role:         data.Role,
		Active:       active,
	}
	if err := s.DB.WithContext(ctx).Create(&user).Error; err != nil {
		if isDuplicate(err) {
			return models.User{}, &ConflictError{Message: "a user with this email already exists"}
		}
		return models.User{}, errors.Wrap(err, "create user")
	}

	s.Logger.Info("user created", zap.Uint("user_id", user.ID), zap.String("role", user.Role), zap.Uint("by", actor.ID))
	return user, nil
}

type UpdateUserDTO struct {
	Name     *string `json:"name"`
	Phone    *string `json:"phone"`
	Role     *string `json:"role"`
	Active   *bool   `json:"active"`
	Password *string `json:"password"`
}

func (s *UserService) Update(ctx context.Context, actor Actor, id uint, data UpdateUserDTO) (models.User, error) {
	if !actor.Is(models.RoleAdmin) {
		return models.User{}, forbidden("only admins can update users")
	}

	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		return models.User{}, lookupErr(err, "user")
	}

	updates := map[string]interface{}{}
	if data.Name != nil {
		updates["name"] = sanitize.Text(*data.Name)
	}
	if data.Phone != nil {
		updates["phone"] = strings.TrimSpace(*data.Phone)
	}
	if data.Role != nil {
		if !models.ValidRole(*data.Role) {
			return models.User{}, invalid("role must be one of %s", strings.Join(models.Roles, ", "))
		}
		if user.ID == actor.ID && *data.Role != user.Role {
			return models.User{}, invalid("you cannot change your own role")
		}
		updates["role"] = *data.Role
	}
	if data.Active != nil {
		if user.ID == actor.ID && !*data.Active {
			return models.User{}, invalid("you cannot deactivate yourself")
		}
		updates["active"] = *data.Active
	}
	if data.Password != nil {
		hash, err := HashPassword(*data.Password)
		if err != nil {
			return models.User{}, err
		}
		updates["password_hash"] = hash
	}

	if len(updates) > 0 {
		if err := s.DB.WithContext(ctx).Model(&user).Updates(updates).Error; err != nil {
			return models.User{}, errors.Wrap(err, "update user")
		}
	}
	return s.Get(ctx, id)
}

func (s *UserService) Delete(ctx context.Context, actor Actor, id uint) error {
	if !actor.Is(models.RoleAdmin) {
		return forbidden("only admins can delete users")
	}
	if id == actor.ID {
		return invalid("you cannot delete yourself")
	}

	res := s.DB.WithContext(ctx).Delete(&models.User{}, id)
	if res.Error != nil {
		return errors.Wrap(res.Error, "delete user")
	}
	if res.RowsAffected == 0 {
		return &NotFoundError{Resource: "user"}
	}

	s.Logger.Info("user deleted", zap.Uint("user_id", id), zap.Uint("by", actor.ID))
	return nil
}

type AssignUserDTO struct {
	EmployerID uint `json:"employer_id" binding:"required"`
	UserID     uint `json:"user_id" binding:"required"`
}

// AssignToEmployer binds a customer to an employer. Bindings are additive;
// repeating an existing pair returns it unchanged.
func (s *UserService) AssignToEmployer(ctx context.Context, actor Actor, data AssignUserDTO) (models.EmployerUser, error) {
	if !actor.IsStaff() {
		return models.EmployerUser{}, forbidden("only supervisors can assign users")
	}

	if err := s.requireRole(ctx, data.EmployerID, models.RoleEmployer, "employer"); err != nil {
		return models.EmployerUser{}, err
	}
	if err := s.requireRole(ctx, data.UserID, models.RoleUser, "user"); err != nil {
		return models.EmployerUser{}, err
	}

	binding := models.EmployerUser{EmployerID: data.EmployerID, UserID: data.UserID, AssignedBy: actor.ID}
	err := s.DB.WithContext(ctx).
		Where(models.EmployerUser{EmployerID: data.EmployerID, UserID: data.UserID}).
		Attrs(models.EmployerUser{AssignedBy: actor.ID}).
		FirstOrCreate(&binding).Error
	if err != nil {
		return models.EmployerUser{}, errors.Wrap(err, "assign user to employer")
	}
	return binding, nil
}

func (s *UserService) EmployerUsers(ctx context.Context, employerID uint) ([]models.User, error) {
	var users []models.User
	err := s.DB.WithContext(ctx).
		Joins("JOIN employer_users eu ON eu.user_id = users.id").
		Where("eu.employer_id = ?", employerID).
		Order("users.name ASC").
		Find(&users).Error
	if err != nil {
		return nil, errors.Wrap(err, "list employer users")
	}
	return users, nil
}

func (s *UserService) requireRole(ctx context.Context, id uint, role, resource string) error {
	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		return lookupErr(err, resource)
	}
	if user.Role != role {
		return invalid("user %d is not a %s", id, role)
	}
	if !user.Active {
		return invalid("%s %d is inactive", resource, id)
	}
	return nil
}

func (s *UserService) tiers(ctx context.Context) ([]rewards.Tier, error) {
	if s.Settings == nil {
		return nil, nil
	}
	return s.Settings.Tiers(ctx)
}

func (s *UserService) earnedByUser(ctx context.Context, ids []uint) (map[uint]int64, error) {
	out := make(map[uint]int64, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var rows []struct {
		UserID uint
		Total  int64
	}
	err := s.DB.WithContext(ctx).Model(&models.RewardLedgerEntry{}).
		Select("user_id, COALESCE(SUM(points), 0) AS total").
		Where("user_id IN ?", ids).
		Group("user_id").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "sum earned points")
	}
	for _, r := range rows {
		out[r.UserID] = r.Total
	}
	return out, nil
}

func userIDs(users []models.User) []uint {
	ids := make([]uint, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	return ids
}
