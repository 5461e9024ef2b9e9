package util

import (
	"errors"
	"net/http"
	"strings"
)

// AppError represents an application error with HTTP status code
type AppError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	Err        error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap exposes the wrapped error to errors.Is/As
func (e *AppError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrCodeInternal           = "INTERNAL_ERROR"
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeRateLimit          = "RATE_LIMIT_EXCEEDED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeTokenExpired       = "TOKEN_EXPIRED"
	ErrCodeTokenInvalid       = "TOKEN_INVALID"
	ErrCodeSessionNotFound    = "SESSION_NOT_FOUND"
	ErrCodeConnectionDown     = "CONNECTION_DOWN"
	ErrCodeEngineAPI          = "ENGINE_API_ERROR"
)

// NewAppError creates a new application error
func NewAppError(statusCode int, code, message string) *AppError {
	return &AppError{
		StatusCode: statusCode,
		Code:       code,
		Message:    message,
	}
}

// NewAppErrorWithDetails creates a new application error with details
func NewAppErrorWithDetails(statusCode int, code, message, details string) *AppError {
	return &AppError{
		StatusCode: statusCode,
		Code:       code,
		Message:    message,
		Details:    details,
	}
}

// WrapError wraps an existing error
func WrapError(statusCode int, code, message string, err error) *AppError {
	return &AppError{
		StatusCode: statusCode,
		Code:       code,
		Message:    message,
		Err:        err,
	}
}

// Common error constructors

func ErrBadRequest(message string) *AppError {
	return NewAppError(http.StatusBadRequest, ErrCodeBadRequest, message)
}

func ErrUnauthorized(message string) *AppError {
	return NewAppError(http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

func ErrForbidden(message string) *AppError {
	return NewAppError(http.StatusForbidden, ErrCodeForbidden, message)
}

func ErrNotFound(message string) *AppError {
	return NewAppError(http.StatusNotFound, ErrCodeNotFound, message)
}

func ErrConflict(message string) *AppError {
	return NewAppError(http.StatusConflict, ErrCodeConflict, message)
}

func ErrValidation(message string) *AppError {
	return NewAppError(http.StatusBadRequest, ErrCodeValidation, message)
}

func ErrInternalServer(message string) *AppError {
	return NewAppError(http.StatusInternalServerError, ErrCodeInternal, message)
}

func ErrRateLimit(message string) *AppError {
	return NewAppError(http.StatusTooManyRequests, ErrCodeRateLimit, message)
}

// ErrConnectionDown reports that the engine connection is not live
func ErrConnectionDown(message string) *AppError {
	return NewAppError(http.StatusServiceUnavailable, ErrCodeConnectionDown, message)
}

// ErrEngineAPI wraps an upstream engine request failure
func ErrEngineAPI(message string, err error) *AppError {
	return WrapError(http.StatusBadGateway, ErrCodeEngineAPI, message, err)
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError extracts AppError from error
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// IsEngineAuthError checks if an upstream error points at rejected credentials
func IsEngineAuthError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "invalid token") ||
		strings.Contains(errStr, "authorization") ||
		strings.Contains(errStr, "invalid credentials") ||
		strings.Contains(errStr, "status 401")
}
