package service

import (
	"errors"
	"fmt"

	"weatherbet/models"
)

// ValidationReason is the machine readable code of a rejected placement
type ValidationReason string

const (
	ReasonLockHeld          ValidationReason = "lock_held"
	ReasonStakeTooLow       ValidationReason = "stake_too_low"
	ReasonStakeTooHigh      ValidationReason = "stake_too_high"
	ReasonInsufficientFunds ValidationReason = "insufficient_funds"
	ReasonQuotaExhausted    ValidationReason = "quota_exhausted"
	ReasonInvalidPrediction ValidationReason = "invalid_prediction"
)

// ErrValidation matches any ValidationError with errors.Is
var ErrValidation = errors.New("validation failed")

// ErrResolutionExhausted describes a bet forced to error after too many failed fetches
var ErrResolutionExhausted = errors.New("could not be resolved after multiple attempts")

// ValidationError rejects a placement before anything is persisted
type ValidationError struct {
	Reason  ValidationReason
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

// Is lets errors.Is(err, ErrValidation) match every reason
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func newValidationError(reason ValidationReason, format string, args ...any) *ValidationError {
	return &ValidationError{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// DataFetchError wraps a failed observation fetch. It never aborts a sweep.
type DataFetchError struct {
	Reading models.Reading
	Err     error
}

func (e *DataFetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s observation: %v", e.Reading, e.Err)
}

func (e *DataFetchError) Unwrap() error {
	return e.Err
}
