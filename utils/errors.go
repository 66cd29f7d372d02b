package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds every service returns, wrapped with context via %w.
var (
	ErrNotFound         = errors.New("not found")
	ErrValidation       = errors.New("validation failed")
	ErrInvalidSignature = errors.New("invalid payment signature")
	ErrInvalidState     = errors.New("invalid state")
	ErrGateway          = errors.New("payment gateway error")
	ErrConflict         = errors.New("already exists")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
)

// Machine readable kinds sent back to API clients
const (
	KindNotFound         = "not_found"
	KindValidation       = "validation_error"
	KindInvalidSignature = "invalid_signature"
	KindInvalidState     = "invalid_state"
	KindGateway          = "gateway_error"
	KindConflict         = "conflict"
	KindUnauthorized     = "unauthorized"
	KindForbidden        = "forbidden"
	KindInternal         = "internal_error"
)

// AppError represents an application error
type AppError struct {
	Code    int    `json:"code"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap implements the unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError
func NewAppError(code int, kind, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// NotFoundf wraps ErrNotFound with a formatted message
func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Validationf wraps ErrValidation with a formatted message
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// InvalidStatef wraps ErrInvalidState with a formatted message
func InvalidStatef(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}

// GatewayError wraps a failure returned by the payment gateway
func GatewayError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrGateway, op, err)
}

// WrapError wraps an error with additional context
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// ClassifyError maps an error to its HTTP status and kind
func ClassifyError(err error) (int, string) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code, appErr.Kind
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, KindNotFound
	case errors.Is(err, ErrValidation):
		return http.StatusUnprocessableEntity, KindValidation
	case errors.Is(err, ErrInvalidSignature):
		return http.StatusBadRequest, KindInvalidSignature
	case errors.Is(err, ErrInvalidState):
		return http.StatusConflict, KindInvalidState
	case errors.Is(err, ErrConflict):
		return http.StatusConflict, KindConflict
	case errors.Is(err, ErrGateway):
		return http.StatusBadGateway, KindGateway
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, KindUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, KindForbidden
	}
	return http.StatusInternalServerError, KindInternal
}

// IsConflict checks if an error is a uniqueness conflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
