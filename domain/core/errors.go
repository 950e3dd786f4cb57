package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Input shape errors
	ErrSchema       = errors.New("schema error")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnknownLabel = fmt.Errorf("%w: unknown condition label", ErrInvalidInput)

	// Analysis errors
	ErrInsufficientData    = errors.New("insufficient data for analysis")
	ErrNumericalDegeneracy = errors.New("numerical degeneracy")
)

// NewSchemaError reports a column the analysis cannot proceed without.
func NewSchemaError(dataset, column string) error {
	return fmt.Errorf("%w: dataset %q is missing column %q", ErrSchema, dataset, column)
}

// NewInsufficientDataError reports a group that is too small for the requested statistic.
func NewInsufficientDataError(group string, have, need int) error {
	return fmt.Errorf("%w: %s has %d observations, need at least %d", ErrInsufficientData, group, have, need)
}

// NewDegeneracyError reports a root-finding problem that could not be bracketed.
func NewDegeneracyError(what string) error {
	return fmt.Errorf("%w: %s", ErrNumericalDegeneracy, what)
}

// NewInvalidInputError reports a malformed value.
func NewInvalidInputError(field string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidInput, field, reason)
}

// Error checking helpers
func IsSchemaError(err error) bool {
	return errors.Is(err, ErrSchema)
}

func IsInsufficientDataError(err error) bool {
	return errors.Is(err, ErrInsufficientData)
}

func IsDegeneracyError(err error) bool {
	return errors.Is(err, ErrNumericalDegeneracy)
}
