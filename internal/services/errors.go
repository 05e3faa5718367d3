// internal/services/errors.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/javajoker/agency-onboarding/internal/utils"
)

type ErrorCode string

const (
	CodeUnknownApplication   ErrorCode = "UNKNOWN_APPLICATION"
	CodeInvalidStep          ErrorCode = "INVALID_STEP"
	CodeValidationFailed     ErrorCode = "VALIDATION_FAILED"
	CodeFileRejected         ErrorCode = "FILE_REJECTED"
	CodeApplicationCompleted ErrorCode = "APPLICATION_COMPLETED"
	CodePersistenceFailed    ErrorCode = "PERSISTENCE_FAILED"
	CodeNotFound             ErrorCode = "NOT_FOUND"
	CodeUnavailable          ErrorCode = "SERVICE_UNAVAILABLE"
)

// StepError is the engine's failure type. Two StepErrors match under
// errors.Is when their codes are equal.
type StepError struct {
	Code       ErrorCode
	Message    string
	Violations []utils.ValidationError
	Err        error
}

func (e *StepError) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	default:
		return string(e.Code)
	}
}

func (e *StepError) Unwrap() error {
	return e.Err
}

func (e *StepError) Is(target error) bool {
	t, ok := target.(*StepError)
	return ok && t.Code == e.Code
}

// Sentinels for errors.Is
var (
	ErrUnknownApplication   = &StepError{Code: CodeUnknownApplication}
	ErrInvalidStep          = &StepError{Code: CodeInvalidStep}
	ErrValidationFailed     = &StepError{Code: CodeValidationFailed}
	ErrFileRejected         = &StepError{Code: CodeFileRejected}
	ErrApplicationCompleted = &StepError{Code: CodeApplicationCompleted}
	ErrPersistenceFailed    = &StepError{Code: CodePersistenceFailed}
	ErrNotFound             = &StepError{Code: CodeNotFound}
	ErrUnavailable          = &StepError{Code: CodeUnavailable}
)

func newStepError(code ErrorCode, format string, args ...interface{}) *StepError {
	return &StepError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func validationFailed(violations []utils.ValidationError) *StepError {
	return &StepError{
		Code:       CodeValidationFailed,
		Message:    fmt.Sprintf("%d field(s) failed validation", len(violations)),
		Violations: violations,
	}
}

// persistenceFailed classifies a storage error. Deadline and pool
// exhaustion are retryable and reported as Unavailable.
func persistenceFailed(err error) error {
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &StepError{Code: CodeUnavailable, Message: "database unavailable", Err: err}
	}
	return &StepError{Code: CodePersistenceFailed, Message: err.Error(), Err: err}
}

// AsStepError extracts the engine error from err, if any.
func AsStepError(err error) (*StepError, bool) {
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr, true
	}
	return nil, false
}
