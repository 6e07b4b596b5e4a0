package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"rewards-service/internal/models"
	"rewards-service/internal/rewards"
)

type GiftAssignmentService struct {
	DB       *gorm.DB
	Notifier Notifier
	Logger   *zap.Logger
	Now      func() time.Time
}

func NewGiftAssignmentService(db *gorm.DB, notifier Notifier, logger *zap.Logger) *GiftAssignmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GiftAssignmentService{DB: db, Notifier: notifier, Logger: logger, Now: time.Now}
}

type AssignGiftDTO struct {
	GiftID         uint       `json:"gift_id" binding:"required"`
	AssignedToID   uint       `json:"assigned_to_id" binding:"required"`
	AssignedToRole string     `json:"assigned_to_role" binding:"required"`
	Availability   string     `json:"availability"`
	ExpiresAt      *time.Time `json:"expires_at"`
}

// Assign gives a gift to an employer or a user. Employer assignments start
// PENDING and need approval; user assignments are AVAILABLE at once.
func (s *GiftAssignmentService) Assign(ctx context.Context, actor Actor, data AssignGiftDTO) (models.GiftAssignment, error) {
	if !actor.Is(models.RoleSupervisor) {
		return models.GiftAssignment{}, forbidden("only supervisors can assign gifts")
	}

	status, err := rewards.InitialAssignmentStatus(data.AssignedToRole)
	if err != nil {
		return models.GiftAssignment{}, invalid("assigned_to_role must be employer or user")
	}
	availability := data.Availability
	if availability == "" {
		availability = models.AvailabilityAvailable
	}
	if !rewards.ValidAvailability(availability) {
		return models.GiftAssignment{}, invalid("availability must be one of %s", strings.Join(models.Availabilities, ", "))
	}
	if data.ExpiresAt != nil {
		utc := data.ExpiresAt.UTC()
		data.ExpiresAt = &utc
	}
	if data.ExpiresAt != nil && !data.ExpiresAt.After(s.Now()) {
		return models.GiftAssignment{}, invalid("expires_at must be in the future")
	}

	var gift models.Gift
	if err := s.DB.WithContext(ctx).First(&gift, data.GiftID).Error; err != nil {
		return models.GiftAssignment{}, lookupErr(err, "gift")
	}
	if !gift.Active {
		return models.GiftAssignment{}, &ValidationError{Message: rewards.ErrGiftInactive.Error()}
	}

	var assignee models.User
	if err := s.DB.WithContext(ctx).First(&assignee, data.AssignedToID).Error; err != nil {
		return models.GiftAssignment{}, lookupErr(err, data.AssignedToRole)
	}
	if assignee.Role != data.AssignedToRole {
		return models.GiftAssignment{}, invalid("user %d is not a %s", assignee.ID, data.AssignedToRole)
	}

	assignment := models.GiftAssignment{
		GiftID:         gift.ID,
		AssignedToID:   assignee.ID,
		AssignedToRole: data.AssignedToRole,
		AssignedBy:     actor.ID,
		Availability:   availability,
		Status:         status,
		ExpiresAt:      data.ExpiresAt,
	}
	if err := s.DB.WithContext(ctx).Create(&assignment).Error; err != nil {
		return models.GiftAssignment{}, errors.Wrap(err, "create gift assignment")
	}
	assignment.Gift = &gift

	s.Logger.Info("gift assigned",
		zap.Uint("assignment_id", assignment.ID),
		zap.Uint("gift_id", gift.ID),
		zap.Uint("assigned_to", assignee.ID),
		zap.String("status", status),
	)
	notify(ctx, s.Notifier, s.Logger, Notice{
		UserID:  assignee.ID,
		Kind:    NoticeGiftAssigned,
		Title:   "Gift assigned",
		Message: fmt.Sprintf("%s has been assigned to you.", gift.Name),
	})
	return assignment, nil
}

// UpdateAvailability lets the assigned employer report stock at their
// station. It never changes the assignment status.
func (s *GiftAssignmentService) UpdateAvailability(ctx context.Context, actor Actor, id uint, availability string) (models.GiftAssignment, error) {
	if !actor.Is(models.RoleEmployer) {
		return models.GiftAssignment{}, forbidden("only the assigned employer can update availability")
	}
	if !rewards.ValidAvailability(availability) {
		return models.GiftAssignment{}, invalid("availability must be one of %s", strings.Join(models.Availabilities, ", "))
	}

	assignment, err := s.Get(ctx, id)
	if err != nil {
		return models.GiftAssignment{}, err
	}
	if assignment.AssignedToRole != models.RoleEmployer || assignment.AssignedToID != actor.ID {
		return models.GiftAssignment{}, forbidden("gift is not assigned to you")
	}

	if err := s.DB.WithContext(ctx).Model(&assignment).Update("availability", availability).Error; err != nil {
		return models.GiftAssignment{}, errors.Wrap(err, "update availability")
	}
	assignment.Availability = availability
	return assignment, nil
}

// Approve moves a PENDING assignment to AVAILABLE.
func (s *GiftAssignmentService) Approve(ctx context.Context, actor Actor, id uint) (models.GiftAssignment, error) {
	if !actor.IsStaff() {
		return models.GiftAssignment{}, forbidden("only supervisors and admins can approve gift assignments")
	}

	var assignment models.GiftAssignment
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&assignment, id).Error; err != nil {
			return lookupErr(err, "gift assignment")
		}
		if err := rewards.CheckAssignmentTransition(assignment.Status, models.GiftAssignmentAvailable); err != nil {
			return &ConflictError{Message: fmt.Sprintf("gift assignment is %s", strings.ToLower(assignment.Status))}
		}
		res := tx.Model(&models.GiftAssignment{}).
			Where("id = ? AND status = ?", id, models.GiftAssignmentPending).
			Updates(map[string]interface{}{"status": models.GiftAssignmentAvailable, "approved_by": actor.ID})
		if res.Error != nil {
			return errors.Wrap(res.Error, "approve gift assignment")
		}
		if res.RowsAffected == 0 {
			return &ConflictError{Message: rewards.ErrAlreadyProcessed.Error()}
		}
		assignment.Status = models.GiftAssignmentAvailable
		approver := actor.ID
		assignment.ApprovedBy = &approver
		return nil
	})
	if err != nil {
		return models.GiftAssignment{}, err
	}

	s.Logger.Info("gift assignment approved", zap.Uint("assignment_id", id), zap.Uint("by", actor.ID))
	notify(ctx, s.Notifier, s.Logger, Notice{
		UserID:  assignment.AssignedToID,
		Kind:    NoticeGiftApproved,
		Title:   "Gift approved",
		Message: "A gift assigned to you is now available.",
	})
	return assignment, nil
}

func (s *GiftAssignmentService) Get(ctx context.Context, id uint) (models.GiftAssignment, error) {
	var assignment models.GiftAssignment
	if err := s.DB.WithContext(ctx).Preload("Gift").First(&assignment, id).Error; err != nil {
		return models.GiftAssignment{}, lookupErr(err, "gift assignment")
	}
	return assignment, nil
}

// StatusFor returns an assignment to the employer it belongs to, or to staff.
func (s *GiftAssignmentService) StatusFor(ctx context.Context, actor Actor, id uint) (models.GiftAssignment, error) {
	assignment, err := s.Get(ctx, id)
	if err != nil {
		return models.GiftAssignment{}, err
	}
	if !actor.IsStaff() && assignment.AssignedToID != actor.ID {
		return models.GiftAssignment{}, &NotFoundError{Resource: "gift assignment"}
	}
	return assignment, nil
}

func (s *GiftAssignmentService) ListForAssignee(ctx context.Context, assigneeID uint, status string) ([]models.GiftAssignment, error) {
	query := s.DB.WithContext(ctx).Preload("Gift").Where("assigned_to_id = ?", assigneeID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var out []models.GiftAssignment
	if err := query.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, errors.Wrap(err, "list gift assignments")
	}
	return out, nil
}

// ExpireDue marks open assignments whose expiry has passed as EXPIRED.
func (s *GiftAssignmentService) ExpireDue(ctx context.Context) (int64, error) {
	res := s.DB.WithContext(ctx).Model(&models.GiftAssignment{}).
		Where("status IN ? AND expires_at IS NOT NULL AND expires_at <= ?",
			[]string{models.GiftAssignmentPending, models.GiftAssignmentAvailable}, s.Now().UTC()).
		Update("status", models.GiftAssignmentExpired)
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "expire gift assignments")
	}
	return res.RowsAffected, nil
}
