package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrInvalidInput
	ErrUnauthorized
	ErrForbidden
	ErrInternal
	ErrConflict
	ErrInsufficientFunds
)

var statusByCode = map[ErrorCode]int{
	ErrNotFound:          http.StatusNotFound,
	ErrInvalidInput:      http.StatusBadRequest,
	ErrUnauthorized:      http.StatusUnauthorized,
	ErrForbidden:         http.StatusForbidden,
	ErrInternal:          http.StatusInternalServerError,
	ErrConflict:          http.StatusConflict,
	ErrInsufficientFunds: http.StatusPaymentRequired,
}

// Error constructors
func NewNotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func NewInvalidInput(message string, err error) *AppError {
	return &AppError{
		Code:    ErrInvalidInput,
		Message: message,
		Err:     err,
	}
}

func NewConflict(message string, err error) *AppError {
	return &AppError{
		Code:    ErrConflict,
		Message: message,
		Err:     err,
	}
}

func NewInsufficientFunds(required, available float64) *AppError {
	return &AppError{
		Code:    ErrInsufficientFunds,
		Message: fmt.Sprintf("insufficient wallet balance: need %.2f, have %.2f", required, available),
	}
}

func NewInternal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}

func Unauthorized(err error) *AppError {
	return &AppError{
		Code:    ErrUnauthorized,
		Message: "unauthorized",
		Err:     err,
	}
}

func Forbidden(message string) *AppError {
	return &AppError{
		Code:    ErrForbidden,
		Message: message,
	}
}

// Is reports whether any error in err's chain is an AppError with the given code.
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// HTTPStatus maps an error to the status code the API responds with.
func HTTPStatus(err error) int {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		if status, ok := statusByCode[appErr.Code]; ok {
			return status
		}
	}
	return http.StatusInternalServerError
}

// Message returns the client-facing message for err. Non-application errors are masked.
func Message(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal server error"
}
