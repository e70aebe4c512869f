package http

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes surfaced to callers of the backend client.
const (
	CodeInvalidCredentials = "ERR_INVALID_CREDENTIALS"
	CodeValidation         = "ERR_VALIDATION"
	CodeServer             = "ERR_SERVER"
	CodeNetwork            = "ERR_NETWORK"
	CodeAuthExpired        = "ERR_AUTH_EXPIRED"
	CodeForbidden          = "ERR_FORBIDDEN"
	CodeNotFound           = "ERR_NOT_FOUND"
)

// Sentinels for errors.Is matching; comparison is by Code only.
var (
	ErrInvalidCredentials = &AppError{Code: CodeInvalidCredentials, Message: "invalid username or password", Status: http.StatusUnauthorized}
	ErrValidation         = &AppError{Code: CodeValidation, Message: "request rejected", Status: http.StatusBadRequest}
	ErrServer             = &AppError{Code: CodeServer, Message: "server error, please try again later", Status: http.StatusBadGateway}
	ErrNetwork            = &AppError{Code: CodeNetwork, Message: "unable to reach the server", Status: http.StatusServiceUnavailable}
	ErrAuthExpired        = &AppError{Code: CodeAuthExpired, Message: "session expired, please log in again", Status: http.StatusUnauthorized}
)

// AppError represents application-level error with HTTP status.
type AppError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Field   string                 `json:"field,omitempty"`
	Params  map[string]interface{} `json:"params,omitempty"`
	Status  int                    `json:"-"`
	Err     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an AppError with the same code.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewAppError creates a new application error.
func NewAppError(code, field, message string, status int) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Field:   field,
		Status:  status,
		Params:  make(map[string]interface{}),
	}
}

// WithParams sets error params.
func (e *AppError) WithParams(params map[string]interface{}) *AppError {
	e.Params = params
	return e
}

// WithParam sets a single error param.
func (e *AppError) WithParam(key string, value interface{}) *AppError {
	if e.Params == nil {
		e.Params = make(map[string]interface{})
	}
	e.Params[key] = value
	return e
}

// WithError wraps an underlying error.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// NotFoundError creates a 404 error.
func NotFoundError(message string) *AppError {
	return NewAppError(CodeNotFound, "", message, http.StatusNotFound)
}

// NotFoundErrorf creates a 404 error with formatting.
func NotFoundErrorf(format string, a ...interface{}) *AppError {
	return NotFoundError(fmt.Sprintf(format, a...))
}

// BadRequestError creates a 400 error.
func BadRequestError(message string) *AppError {
	return NewAppError("ERR_BAD_REQUEST", "", message, http.StatusBadRequest)
}

// BadRequestErrorf creates a 400 error with formatting.
func BadRequestErrorf(format string, a ...interface{}) *AppError {
	return BadRequestError(fmt.Sprintf(format, a...))
}

// UnauthorizedError creates a 401 error.
func UnauthorizedError(message string) *AppError {
	return NewAppError("ERR_UNAUTHORIZED", "", message, http.StatusUnauthorized)
}

// ForbiddenError creates a 403 error.
func ForbiddenError(message string) *AppError {
	return NewAppError(CodeForbidden, "", message, http.StatusForbidden)
}

// InternalError creates a 500 error.
func InternalError(message string) *AppError {
	return NewAppError("ERR_INTERNAL", "", message, http.StatusInternalServerError)
}

// InternalErrorf creates a 500 error with formatting.
func InternalErrorf(format string, a ...interface{}) *AppError {
	return InternalError(fmt.Sprintf(format, a...))
}

// InvalidCredentialsError creates a login rejection.
func InvalidCredentialsError() *AppError {
	return NewAppError(CodeInvalidCredentials, "", ErrInvalidCredentials.Message, http.StatusUnauthorized)
}

// ValidationFailedError creates a 4xx rejection carrying the server detail.
func ValidationFailedError(field, message string, status int) *AppError {
	if message == "" {
		message = ErrValidation.Message
	}
	return NewAppError(CodeValidation, field, message, status)
}

// ServerError creates a 5xx rejection.
func ServerError(status int, message string) *AppError {
	if message == "" {
		message = ErrServer.Message
	}
	return NewAppError(CodeServer, "", message, status).WithParam("upstream_status", status)
}

// NetworkError wraps a transport failure or timeout.
func NetworkError(err error) *AppError {
	return NewAppError(CodeNetwork, "", ErrNetwork.Message, http.StatusServiceUnavailable).WithError(err)
}

// AuthExpiredError marks an irrecoverable session.
func AuthExpiredError(err error) *AppError {
	return NewAppError(CodeAuthExpired, "", ErrAuthExpired.Message, http.StatusUnauthorized).WithError(err)
}

// CodeOf returns the AppError code in err's chain, or "".
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}
