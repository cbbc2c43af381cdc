package domain

import (
	"errors"
	"fmt"
)

var (
	ErrImageDecode            = errors.New("image could not be decoded")
	ErrProviderFailure        = errors.New("recognition provider failed")
	ErrWeightNotDetected      = errors.New("weight not detected")
	ErrCalibrationMismatch    = errors.New("calibration mismatch")
	ErrValidation             = errors.New("validation failed")
	ErrTransactionNotFound    = errors.New("transaction not found")
	ErrInvalidTransition      = errors.New("invalid transaction state transition")
	ErrDuplicateTransactionID = errors.New("duplicate transaction id")
	ErrCredentialRejected     = errors.New("credential rejected")
)

type FailureKind string

const (
	FailureNetwork     FailureKind = "network"
	FailureTimeout     FailureKind = "timeout"
	FailureStatus      FailureKind = "status"
	FailureDecode      FailureKind = "decode"
	FailureEmpty       FailureKind = "empty"
	FailureNoNumeric   FailureKind = "no_numeric"
	FailureCircuitOpen FailureKind = "circuit_open"
)

type ProviderError struct {
	Provider string
	Kind     FailureKind
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("provider %s: %s", e.Provider, e.Kind)
	}
	return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func (e *ProviderError) Is(target error) bool { return target == ErrProviderFailure }

type CalibrationMismatchError struct {
	Fetched   float64
	Entered   float64
	Tolerance float64
}

func (e *CalibrationMismatchError) Error() string {
	return fmt.Sprintf("calibration mismatch: fetched %.2f, entered %.2f, tolerance %.2f",
		e.Fetched, e.Entered, e.Tolerance)
}

func (e *CalibrationMismatchError) Is(target error) bool { return target == ErrCalibrationMismatch }

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

type TransitionError struct {
	From  State
	Event Event
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s a transaction in state %s", e.Event, e.From)
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }
