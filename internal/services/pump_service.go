package services

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"rewards-service/internal/models"
	"rewards-service/internal/sanitize"
)

type PumpService struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

func NewPumpService(db *gorm.DB, logger *zap.Logger) *PumpService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PumpService{DB: db, Logger: logger}
}

var pumpStatuses = []string{models.PumpStatusActive, models.PumpStatusMaintenance, models.PumpStatusInactive}

func validPumpStatus(status string) bool {
	for _, s := range pumpStatuses {
		if s == status {
			return true
		}
	}
	return false
}

type PumpDTO struct {
	Name     string `json:"name" binding:"required"`
	Code     string `json:"code" binding:"required"`
	FuelType string `json:"fuel_type"`
	Location string `json:"location"`
	Status   string `json:"status"`
}

func (s *PumpService) List(ctx context.Context, status string) ([]models.Pump, error) {
	var pumps []models.Pump
	query := s.DB.WithContext(ctx).Order("name ASC")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Find(&pumps).Error; err != nil {
		return nil, errors.Wrap(err, "list pumps")
	}
	return pumps, nil
}

func (s *PumpService) Get(ctx context.Context, id uint) (models.Pump, error) {
	var pump models.Pump
	if err := s.DB.WithContext(ctx).First(&pump, id).Error; err != nil {
		return models.Pump{}, lookupErr(err, "pump")
	}
	return pump, nil
}

func (s *PumpService) Create(ctx context.Context, actor Actor, data PumpDTO) (models.Pump, error) {
	if !actor.Is(models.RoleAdmin) {
		return models.Pump{}, forbidden("only admins can manage pumps")
	}

	pump := models.Pump{
		Name:     sanitize.Text(data.Name),
		Code:     strings.ToUpper(strings.TrimSpace(data.Code)),
		FuelType: sanitize.Text(data.FuelType),
		Location: sanitize.Text(data.Location),
		Status:   data.Status,
	}
	if pump.Status == "" {
		pump.Status = models.PumpStatusActive
	}
	if err := validatePump(pump); err != nil {
		return models.Pump{}, err
	}

	if err := s.DB.WithContext(ctx).Create(&pump).Error; err != nil {
		if isDuplicate(err) {
			return models.Pump{}, &ConflictError{Message: "a pump with this code already exists"}
		}
		return models.Pump{}, errors.Wrap(err, "create pump")
	}

	s.Logger.Info("pump created", zap.Uint("pump_id", pump.ID), zap.String("code", pump.Code))
	return pump, nil
}

type UpdatePumpDTO struct {
	Name     *string `json:"name"`
	Code     *string `json:"code"`
	FuelType *string `json:"fuel_type"`
	Location *string `json:"location"`
	Status   *string `json:"status"`
}

func (s *PumpService) Update(ctx context.Context, actor Actor, id uint, data UpdatePumpDTO) (models.Pump, error) {
	if !actor.Is(models.RoleAdmin) {
		return models.Pump{}, forbidden("only admins can manage pumps")
	}

	pump, err := s.Get(ctx, id)
	if err != nil {
		return models.Pump{}, err
	}

	if data.Name != nil {
		pump.Name = sanitize.Text(*data.Name)
	}
	if data.Code != nil {
		pump.Code = strings.ToUpper(strings.TrimSpace(*data.Code))
	}
	if data.FuelType != nil {
		pump.FuelType = sanitize.Text(*data.FuelType)
	}
	if data.Location != nil {
		pump.Location = sanitize.Text(*data.Location)
	}
	if data.Status != nil {
		pump.Status = *data.Status
	}
	if err := validatePump(pump); err != nil {
		return models.Pump{}, err
	}

	if err := s.DB.WithContext(ctx).Save(&pump).Error; err != nil {
		if isDuplicate(err) {
			return models.Pump{}, &ConflictError{Message: "a pump with this code already exists"}
		}
		return models.Pump{}, errors.Wrap(err, "update pump")
	}
	return pump, nil
}

// Delete soft-deletes the pump and deactivates its assignments.
func (s *PumpService) Delete(ctx context.Context, actor Actor, id uint) error {
	if !actor.Is(models.RoleAdmin) {
		return forbidden("only admins can manage pumps")
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Pump{}, id)
		if res.Error != nil {
			return errors.Wrap(res.Error, "delete pump")
		}
		if res.RowsAffected == 0 {
			return &NotFoundError{Resource: "pump"}
		}
		err := tx.Model(&models.PumpAssignment{}).
			Where("pump_id = ? AND status = ?", id, models.AssignmentActive).
			Update("status", models.AssignmentInactive).Error
		if err != nil {
			return errors.Wrap(err, "deactivate pump assignments")
		}
		s.Logger.Info("pump deleted", zap.Uint("pump_id", id), zap.Uint("by", actor.ID))
		return nil
	})
}

type AssignPumpDTO struct {
	PumpID     uint `json:"pump_id" binding:"required"`
	EmployerID uint `json:"employer_id" binding:"required"`
}

// Assign makes employerID the operator of the pump. Any other ACTIVE
// assignment of the pump is marked INACTIVE; repeating the current
// assignment is a no-op.
func (s *PumpService) Assign(ctx context.Context, actor Actor, data AssignPumpDTO) (models.PumpAssignment, error) {
	if !actor.Is(models.RoleAdmin) {
		return models.PumpAssignment{}, forbidden("only admins can assign pumps")
	}

	var result models.PumpAssignment
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The pump row lock serialises concurrent assigns of the same pump.
		var pump models.Pump
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&pump, data.PumpID).Error; err != nil {
			return lookupErr(err, "pump")
		}
		var employer models.User
		if err := tx.First(&employer, data.EmployerID).Error; err != nil {
			return lookupErr(err, "employer")
		}
		if employer.Role != models.RoleEmployer {
			return invalid("user %d is not an employer", employer.ID)
		}

		var current models.PumpAssignment
		err := tx.Where("pump_id = ? AND status = ?", pump.ID, models.AssignmentActive).First(&current).Error
		if err == nil && current.EmployerID == employer.ID {
			result = current
			return nil
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.Wrap(err, "find active pump assignment")
		}

		err = tx.Model(&models.PumpAssignment{}).
			Where("pump_id = ? AND status = ?", pump.ID, models.AssignmentActive).
			Update("status", models.AssignmentInactive).Error
		if err != nil {
			return errors.Wrap(err, "supersede pump assignment")
		}

		result = models.PumpAssignment{
			PumpID:     pump.ID,
			EmployerID: employer.ID,
			AssignedBy: actor.ID,
			Status:     models.AssignmentActive,
		}
		if err := tx.Create(&result).Error; err != nil {
			return errors.Wrap(err, "create pump assignment")
		}
		return nil
	})
	if err != nil {
		return models.PumpAssignment{}, err
	}

	s.Logger.Info("pump assigned",
		zap.Uint("pump_id", result.PumpID),
		zap.Uint("employer_id", result.EmployerID),
		zap.Uint("by", actor.ID),
	)
	return result, nil
}

type ListPumpAssignmentsDTO struct {
	PumpID     uint
	EmployerID uint
	Status     string
}

func (s *PumpService) Assignments(ctx context.Context, data ListPumpAssignmentsDTO) ([]models.PumpAssignment, error) {
	query := s.DB.WithContext(ctx).Preload("Pump").Preload("Employer").Order("created_at DESC")
	if data.PumpID != 0 {
		query = query.Where("pump_id = ?", data.PumpID)
	}
	if data.EmployerID != 0 {
		query = query.Where("employer_id = ?", data.EmployerID)
	}
	if data.Status != "" {
		query = query.Where("status = ?", data.Status)
	}

	var out []models.PumpAssignment
	if err := query.Find(&out).Error; err != nil {
		return nil, errors.Wrap(err, "list pump assignments")
	}
	return out, nil
}

// OperatedBy reports whether employerID holds the ACTIVE assignment of pumpID.
func (s *PumpService) OperatedBy(ctx context.Context, pumpID, employerID uint) (bool, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&models.PumpAssignment{}).
		Where("pump_id = ? AND employer_id = ? AND status = ?", pumpID, employerID, models.AssignmentActive).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "check pump assignment")
	}
	return count > 0, nil
}

// CheckOperable fails unless the pump exists, is active and is operated by
// employerID.
func (s *PumpService) CheckOperable(ctx context.Context, pumpID, employerID uint) error {
	pump, err := s.Get(ctx, pumpID)
	if err != nil {
		return err
	}
	if pump.Status != models.PumpStatusActive {
		return invalid("pump %s is %s", pump.Code, pump.Status)
	}
	ok, err := s.OperatedBy(ctx, pumpID, employerID)
	if err != nil {
		return err
	}
	if !ok {
		return forbidden("pump is not assigned to you")
	}
	return nil
}

func validatePump(p models.Pump) error {
	if p.Name == "" {
		return invalid("pump name is required")
	}
	if p.Code == "" {
		return invalid("pump code is required")
	}
	if !validPumpStatus(p.Status) {
		return invalid("pump status must be one of %s", strings.Join(pumpStatuses, ", "))
	}
	return nil
}
