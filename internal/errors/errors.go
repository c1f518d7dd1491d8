package errors

import (
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeFormat               ErrorType = "FORMAT"
	ErrTypeParse                ErrorType = "PARSE"
	ErrTypeConfig               ErrorType = "CONFIG"
	ErrTypeMissingColumn        ErrorType = "MISSING_COLUMN"
	ErrTypeUnsupportedTechnique ErrorType = "UNSUPPORTED_TECHNIQUE"
	ErrTypePrecursorNotRun      ErrorType = "PRECURSOR_NOT_RUN"
)

// Sentinels for errors.Is. They match any AppError of the same Type.
var (
	ErrFormat               = &AppError{Type: ErrTypeFormat}
	ErrParse                = &AppError{Type: ErrTypeParse}
	ErrConfig               = &AppError{Type: ErrTypeConfig}
	ErrMissingColumn        = &AppError{Type: ErrTypeMissingColumn}
	ErrUnsupportedTechnique = &AppError{Type: ErrTypeUnsupportedTechnique}
	ErrPrecursorNotRun      = &AppError{Type: ErrTypePrecursorNotRun}
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an AppError of the same type.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// Helper functions for common error types

// NewFormatError creates an error for a structural violation of the instrument file
func NewFormatError(message string, cause error) *AppError {
	return NewAppError(ErrTypeFormat, message, cause)
}

// NewParseError creates an error for a value that cannot be converted
func NewParseError(input string, message string) *AppError {
	return NewAppError(ErrTypeParse, message, nil).WithContext("input", input)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

// NewMissingColumnError creates an error for a column absent from a series
func NewMissingColumnError(column string) *AppError {
	return NewAppError(ErrTypeMissingColumn, fmt.Sprintf("column %q not present in series", column), nil).
		WithContext("column", column)
}

// NewUnsupportedTechniqueError creates an error for an analysis that does not apply to the file's technique
func NewUnsupportedTechniqueError(technique string, expected string) *AppError {
	return NewAppError(ErrTypeUnsupportedTechnique,
		fmt.Sprintf("technique %q is not supported, expected %s", technique, expected), nil).
		WithContext("technique", technique)
}

// NewPrecursorNotRunError creates an error for a stage invoked before the stage it depends on
func NewPrecursorNotRunError(stage string, precursor string) *AppError {
	return NewAppError(ErrTypePrecursorNotRun,
		fmt.Sprintf("%s requires %s to have run", stage, precursor), nil).
		WithContext("stage", stage).
		WithContext("precursor", precursor)
}

// TypeOf returns the ErrorType of the first AppError in err's chain, or "" if none.
func TypeOf(err error) ErrorType {
	for err != nil {
		if appErr, ok := err.(*AppError); ok {
			return appErr.Type
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}
