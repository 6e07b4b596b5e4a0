package services

import (
	"fmt"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation failed")
	ErrConflict           = errors.New("conflict")
	ErrForbidden          = errors.New("forbidden")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserInactive       = errors.New("user account is disabled")
)

// ValidationError carries a client-facing message and matches ErrValidation.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string { return e.Resource + " not found" }

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string { return e.Message }

func (e *ForbiddenError) Is(target error) bool { return target == ErrForbidden }

func forbidden(msg string) error {
	return &ForbiddenError{Message: msg}
}

// lookupErr turns a gorm miss into a typed not-found error and wraps
// anything else with the operation name.
func lookupErr(err error, resource string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &NotFoundError{Resource: resource}
	}
	return errors.Wrapf(err, "find %s", resource)
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
