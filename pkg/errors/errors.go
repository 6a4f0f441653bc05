package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError provides a structured error that can be rendered to API consumers.
type AppError struct {
	Code       string   `json:"code"`
	Message    string   `json:"message"`
	Details    []string `json:"details,omitempty"`
	StatusCode int      `json:"-"`
	Internal   error    `json:"-"`
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}

	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}

	return e.Message
}

// Unwrap exposes the internal error for errors.Is / errors.As compatibility.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Internal
}

// WithInternal returns a copy of the AppError with an attached internal error.
func (e *AppError) WithInternal(err error) *AppError {
	if e == nil {
		return nil
	}

	cpy := *e
	cpy.Internal = err
	return &cpy
}

// WithDetails returns a copy carrying field-level detail messages.
func (e *AppError) WithDetails(details ...string) *AppError {
	if e == nil {
		return nil
	}

	cpy := *e
	cpy.Details = details
	return &cpy
}

// Common errors exposed to the rest of the application. Authentication
// failures are deliberately generic so responses cannot be used to probe
// which accounts exist or why a sign-in was refused.
var (
	ErrValidation = &AppError{
		Code:       "VALIDATION_ERROR",
		Message:    "Invalid input data",
		StatusCode: http.StatusBadRequest,
	}

	ErrDuplicateAccount = &AppError{
		Code:       "DUPLICATE_ACCOUNT",
		Message:    "An account with this email already exists",
		StatusCode: http.StatusBadRequest,
	}

	ErrInvalidCredentials = &AppError{
		Code:       "INVALID_CREDENTIALS",
		Message:    "Invalid email or password",
		StatusCode: http.StatusUnauthorized,
	}

	ErrAccountLocked = &AppError{
		Code:       "ACCOUNT_LOCKED",
		Message:    "Account is temporarily locked due to too many failed attempts",
		StatusCode: http.StatusUnauthorized,
	}

	ErrInvalidToken = &AppError{
		Code:       "INVALID_TOKEN",
		Message:    "Invalid or expired token",
		StatusCode: http.StatusBadRequest,
	}

	ErrAuthenticationRequired = &AppError{
		Code:       "AUTHENTICATION_REQUIRED",
		Message:    "Authentication required",
		StatusCode: http.StatusUnauthorized,
	}

	ErrAccountDeactivated = &AppError{
		Code:       "ACCOUNT_DEACTIVATED",
		Message:    "Account is deactivated",
		StatusCode: http.StatusUnauthorized,
	}

	ErrEmailVerificationRequired = &AppError{
		Code:       "EMAIL_VERIFICATION_REQUIRED",
		Message:    "Please verify your email address to access this feature",
		StatusCode: http.StatusForbidden,
	}

	ErrRateLimited = &AppError{
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "Too many requests, please try again later",
		StatusCode: http.StatusTooManyRequests,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: http.StatusNotFound,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: http.StatusBadRequest,
	}

	ErrInternalServer = &AppError{
		Code:       "INTERNAL_SERVER_ERROR",
		Message:    "Internal server error",
		StatusCode: http.StatusInternalServerError,
	}
)

// New builds a new application error with the provided metadata.
func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap turns any error into an AppError while keeping the original error for logging.
func Wrap(err error, message string) *AppError {
	return &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Internal:   err,
	}
}

// FromError converts a generic error into an AppError, defaulting to ErrInternalServer.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return ErrInternalServer.WithInternal(err)
}

// NewBadRequest wraps validation errors with a helpful message.
func NewBadRequest(message string) *AppError {
	return &AppError{
		Code:       ErrBadRequest.Code,
		Message:    message,
		StatusCode: ErrBadRequest.StatusCode,
	}
}

// NewValidation builds a 400 validation error carrying field-level details.
func NewValidation(details ...string) *AppError {
	return ErrValidation.WithDetails(details...)
}
