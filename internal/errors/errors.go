package errors

import (
	stderrors "errors"
	"fmt"

	"sprintrep/domain/core"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Stage   string // pipeline stage that failed, if known
	Dataset string // dataset label, if known
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	prefix := e.Message
	if e.Stage != "" {
		prefix = fmt.Sprintf("[%s", e.Stage)
		if e.Dataset != "" {
			prefix += "/" + e.Dataset
		}
		prefix += "] " + e.Message
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", prefix, e.Cause)
	}
	return prefix
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return &AppError{
			Code:    appErr.Code,
			Stage:   appErr.Stage,
			Dataset: appErr.Dataset,
			Message: message,
			Cause:   err,
		}
	}
	return &AppError{
		Code:    CodeFor(err),
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WrapStage tags an error with the pipeline stage and dataset it came from.
func WrapStage(err error, stage, dataset string) error {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    CodeFor(err),
		Stage:   stage,
		Dataset: dataset,
		Message: fmt.Sprintf("%s failed", stage),
		Cause:   err,
	}
}

// WithCode adds an error code to an existing error
func WithCode(code string, err error) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:    code,
			Stage:   appErr.Stage,
			Dataset: appErr.Dataset,
			Message: appErr.Message,
			Cause:   appErr.Cause,
		}
	}
	return &AppError{
		Code:    code,
		Message: err.Error(),
		Cause:   err,
	}
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetCode returns the error code if it's an AppError, otherwise returns "UNKNOWN"
func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN"
}

// GetStage returns the outermost stage recorded on the error chain.
func GetStage(err error) string {
	for err != nil {
		if appErr, ok := err.(*AppError); ok && appErr.Stage != "" {
			return appErr.Stage
		}
		err = stderrors.Unwrap(err)
	}
	return ""
}

// CodeFor maps domain sentinel errors to error codes.
func CodeFor(err error) string {
	switch {
	case err == nil:
		return ""
	case stderrors.Is(err, core.ErrSchema):
		return CodeSchemaError
	case stderrors.Is(err, core.ErrInsufficientData):
		return CodeInsufficientData
	case stderrors.Is(err, core.ErrNumericalDegeneracy):
		return CodeNumericalDegeneracy
	case stderrors.Is(err, core.ErrInvalidInput):
		return CodeInvalidInput
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternalError
}

// Predefined error codes
const (
	CodeConfigInvalid       = "CONFIG_INVALID"
	CodeSchemaError         = "SCHEMA_ERROR"
	CodeInsufficientData    = "INSUFFICIENT_DATA"
	CodeNumericalDegeneracy = "NUMERICAL_DEGENERACY"
	CodeInvalidInput        = "INVALID_INPUT"
	CodeNotFound            = "NOT_FOUND"
	CodeIOError             = "IO_ERROR"
	CodeInternalError       = "INTERNAL_ERROR"
)

// Common error constructors
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message)
}

func IOError(message string, cause error) *AppError {
	return &AppError{
		Code:    CodeIOError,
		Message: message,
		Cause:   cause,
	}
}
