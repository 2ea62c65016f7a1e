package errors

import (
	"errors"
	"fmt"
)

// Predefined application errors.
var (
	ErrNotFound          = New(404, "resource not found")
	ErrUnauthorized      = New(401, "unauthorized")
	ErrForbidden         = New(403, "forbidden")
	ErrBadRequest        = New(400, "bad request")
	ErrInternalServer    = New(500, "internal server error")
	ErrValidation        = New(422, "validation error")
	ErrDuplicateEntry    = New(409, "entry already exists")
	ErrInvalidCredential = New(401, "invalid username or password")
	ErrTokenExpired      = New(401, "token expired")
	ErrTokenInvalid      = New(401, "token invalid")
	ErrRecordNotFound    = New(404, "record not found")
	ErrRecordExists      = New(409, "record already exists")
)

// AppError carries a business code alongside the message.
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the wrapped cause.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates an AppError.
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps err with a code and message.
func Wrap(err error, code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WrapWithMsg wraps err keeping its code when it is an AppError.
func WrapWithMsg(err error, message string) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Err:     err,
		}
	}
	return &AppError{
		Code:    500,
		Message: message,
		Err:     err,
	}
}

// Is reports whether err matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain matching target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// GetCode extracts the business code, defaulting to 500.
func GetCode(err error) int {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return 500
}

// GetMessage extracts the user-facing message.
func GetMessage(err error) string {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Message
	}
	return err.Error()
}

// NotFound creates a 404 for the named resource.
func NotFound(resource string) *AppError {
	return &AppError{
		Code:    404,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// BadRequest creates a 400.
func BadRequest(message string) *AppError {
	return &AppError{
		Code:    400,
		Message: message,
	}
}

// Unauthorized creates a 401.
func Unauthorized(message string) *AppError {
	if message == "" {
		message = "unauthorized"
	}
	return &AppError{
		Code:    401,
		Message: message,
	}
}

// Forbidden creates a 403.
func Forbidden(message string) *AppError {
	if message == "" {
		message = "forbidden"
	}
	return &AppError{
		Code:    403,
		Message: message,
	}
}

// Validation creates a 422.
func Validation(message string) *AppError {
	return &AppError{
		Code:    422,
		Message: message,
	}
}

// Internal creates a 500.
func Internal(message string) *AppError {
	if message == "" {
		message = "internal server error"
	}
	return &AppError{
		Code:    500,
		Message: message,
	}
}

// Duplicate creates a 409 for the named field.
func Duplicate(field string) *AppError {
	return &AppError{
		Code:    409,
		Message: fmt.Sprintf("%s already exists", field),
	}
}
