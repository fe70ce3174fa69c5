package errors

import (
	"errors"
	"fmt"
)

// AppError represents an engine error with a stable code and optional cause.
type AppError struct {
	Code     string      `json:"code"`
	Message  string      `json:"message"`
	Internal error       `json:"-"`
	Details  interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}
	return e.Message
}

// Unwrap returns the internal error for errors.Is and errors.As
func (e *AppError) Unwrap() error {
	return e.Internal
}

// Common error codes
const (
	ErrCodeInsufficientData = "INSUFFICIENT_DATA"
	ErrCodeInvalidConfig    = "INVALID_CONFIG"
	ErrCodeForecasting      = "FORECASTING_ERROR"
	ErrCodeFeatureBuild     = "FEATURE_BUILD_ERROR"
)

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap wraps an error with an AppError
func Wrap(err error, code, message string) *AppError {
	return &AppError{Code: code, Message: message, Internal: err}
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

// InsufficientData creates an error for series too short to analyze.
func InsufficientData(have, need int) *AppError {
	return New(ErrCodeInsufficientData,
		fmt.Sprintf("insufficient data: %d points, need at least %d", have, need)).
		WithDetails(map[string]int{"have": have, "need": need})
}

// InvalidConfig creates a configuration validation error.
func InvalidConfig(message string) *AppError {
	return New(ErrCodeInvalidConfig, message)
}

// Forecasting wraps a model fit or projection failure.
func Forecasting(message string, err error) *AppError {
	return Wrap(err, ErrCodeForecasting, message)
}

// FeatureBuild wraps a per-group feature construction failure.
func FeatureBuild(message string, err error) *AppError {
	return Wrap(err, ErrCodeFeatureBuild, message)
}

// hasCode reports whether err is an AppError with the given code.
func hasCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// IsInsufficientData reports whether err is an insufficient-data error.
func IsInsufficientData(err error) bool {
	return hasCode(err, ErrCodeInsufficientData)
}

// IsForecasting reports whether err is a forecasting failure.
func IsForecasting(err error) bool {
	return hasCode(err, ErrCodeForecasting)
}

// IsInvalidConfig reports whether err is a configuration error.
func IsInvalidConfig(err error) bool {
	return hasCode(err, ErrCodeInvalidConfig)
}
