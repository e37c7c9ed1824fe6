package common

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/joseph-ayodele/caseflow/constants"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrAuth         = errors.New("authentication failed")
	ErrPersistence  = errors.New("ledger persistence failed")
	ErrValidation   = errors.New("validation failed")
)

// RemoteCallError is returned for any non-2xx answer from the case service.
type RemoteCallError struct {
	Operation string
	Status    int
	Body      string
}

func (e *RemoteCallError) Error() string {
	return fmt.Sprintf("%s: case service returned %d: %s", e.Operation, e.Status, e.Body)
}

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NotFoundf returns an error wrapping ErrNotFound.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

// PersistenceError wraps a ledger failure so callers can detect it with errors.Is(err, ErrPersistence).
func PersistenceError(op string, cause error) error {
	return NewAppError("PERSISTENCE_ERROR", op, errors.Join(ErrPersistence, cause))
}

// AuthError wraps a token exchange failure.
func AuthError(cause error) error {
	return NewAppError("AUTH_ERROR", "token exchange failed", errors.Join(ErrAuth, cause))
}

// IsFatal reports whether err must abort the whole batch run instead of a single row.
func IsFatal(err error) bool {
	return errors.Is(err, ErrAuth) || errors.Is(err, ErrPersistence)
}

// StageStatus converts a stage error into the value stored in the ledger status column.
func StageStatus(err error) string {
	var rce *RemoteCallError
	switch {
	case err == nil:
		return constants.StatusOK
	case errors.As(err, &rce):
		return strconv.Itoa(rce.Status)
	case errors.Is(err, ErrNotFound):
		return constants.StatusNotFound
	default:
		return constants.StatusError
	}
}
