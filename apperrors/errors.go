// Package apperrors defines the application error taxonomy and the Fiber
// error handler that renders it. Every failure a client can see maps to
// one of the codes below; anything unclassified becomes a generic 500
// with no internal detail leaked.
package apperrors

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// ErrorCode identifies an error class to API clients.
type ErrorCode string

const (
	// Authentication & authorization
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeInvalidCreds ErrorCode = "INVALID_CREDENTIALS"

	// User management
	ErrCodeUserExists       ErrorCode = "USER_EXISTS"
	ErrCodeInvalidOperation ErrorCode = "INVALID_OPERATION"

	// Validation
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	// Resources
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// File upload
	ErrCodeFileTooLarge     ErrorCode = "FILE_TOO_LARGE"
	ErrCodeUnsupportedMedia ErrorCode = "UNSUPPORTED_MEDIA_TYPE"

	// Rate limiting
	ErrCodeRateLimited ErrorCode = "RATE_LIMITED"

	// Internal
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
)

// AppError is a structured application error.
type AppError struct {
	Code       ErrorCode      `json:"code"`
	Message    string         `json:"message"`
	StatusCode int            `json:"-"`
	Internal   error          `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Internal)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Internal
}

// WithDetails adds a contextual detail rendered in the response body.
func (e *AppError) WithDetails(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithInternal wraps an internal error. It is logged, never rendered.
func (e *AppError) WithInternal(err error) *AppError {
	e.Internal = err
	return e
}

// LogFields returns the error as structured logging fields.
func (e *AppError) LogFields() map[string]any {
	fields := map[string]any{
		"code":   string(e.Code),
		"status": e.StatusCode,
	}
	if e.Internal != nil {
		fields["internal"] = e.Internal.Error()
	}
	for k, v := range e.Details {
		fields[k] = v
	}
	return fields
}

// New creates a new AppError.
func New(code ErrorCode, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Constructors for the common cases.

func NewUnauthorized(message string) *AppError {
	if message == "" {
		message = "Authentication required"
	}
	return New(ErrCodeUnauthorized, message, fiber.StatusUnauthorized)
}

func NewForbidden(message string) *AppError {
	if message == "" {
		message = "Access denied"
	}
	return New(ErrCodeForbidden, message, fiber.StatusForbidden)
}

func NewInvalidCredentials() *AppError {
	return New(ErrCodeInvalidCreds, "Invalid username or password", fiber.StatusUnauthorized)
}

func NewUserExists(username string) *AppError {
	return New(ErrCodeUserExists, "Username already exists", fiber.StatusConflict).
		WithDetails("username", username)
}

func NewInvalidOperation(message string) *AppError {
	return New(ErrCodeInvalidOperation, message, fiber.StatusBadRequest)
}

func NewValidationError(message string) *AppError {
	return New(ErrCodeValidationFailed, message, fiber.StatusBadRequest)
}

// NewNotFound deliberately carries no hint about whether the resource
// exists outside the caller's scope.
func NewNotFound() *AppError {
	return New(ErrCodeNotFound, "Not found", fiber.StatusNotFound)
}

func NewFileTooLarge(maxSize int64) *AppError {
	return New(ErrCodeFileTooLarge, "File size exceeds limit", fiber.StatusRequestEntityTooLarge).
		WithDetails("max_size_bytes", maxSize)
}

func NewUnsupportedMediaType(declared string) *AppError {
	return New(ErrCodeUnsupportedMedia, "Only image uploads are accepted", fiber.StatusUnsupportedMediaType).
		WithDetails("declared_type", declared)
}

func NewRateLimitError() *AppError {
	return New(ErrCodeRateLimited, "Too many requests. Please try again later.", fiber.StatusTooManyRequests)
}

func NewDatabaseError(operation string, err error) *AppError {
	return New(ErrCodeDatabaseError, "Database operation failed", fiber.StatusInternalServerError).
		WithDetails("operation", operation).
		WithInternal(err)
}

func NewInternalError(message string) *AppError {
	if message == "" {
		message = "An internal error occurred"
	}
	return New(ErrCodeInternal, message, fiber.StatusInternalServerError)
}

// IsAppError checks whether err is (or wraps) an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// FromError converts any error to an AppError. Fiber's own errors keep
// their status code; everything else becomes an opaque 500.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		switch fiberErr.Code {
		case fiber.StatusUnauthorized:
			return NewUnauthorized("")
		case fiber.StatusForbidden:
			return NewForbidden("")
		case fiber.StatusNotFound:
			return NewNotFound()
		case fiber.StatusRequestEntityTooLarge:
			return New(ErrCodeFileTooLarge, "Request body exceeds limit", fiber.StatusRequestEntityTooLarge)
		case fiber.StatusBadRequest:
			return NewValidationError("Invalid request")
		default:
			return New(ErrCodeInternal, fiberErr.Message, fiberErr.Code).WithInternal(err)
		}
	}

	return NewInternalError("").WithInternal(err)
}
