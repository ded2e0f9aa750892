package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeNotFound     = "NOT_FOUND"
	CodeValidation   = "VALIDATION_ERROR"
	CodeInternal     = "INTERNAL_ERROR"
	CodeTimeout      = "TIMEOUT"
	CodeUnavailable  = "SERVICE_UNAVAILABLE"
	CodeInvalidInput = "INVALID_INPUT"
	CodeConflict     = "CONFLICT"

	CodeMissingCredential   = "AUTH_MISSING_CREDENTIAL"
	CodeMalformedCredential = "AUTH_MALFORMED_CREDENTIAL"
	CodeUnknownKey          = "AUTH_UNKNOWN_KEY"
	CodeExpiredCredential   = "AUTH_EXPIRED_CREDENTIAL"
	CodeSignatureMismatch   = "AUTH_SIGNATURE_MISMATCH"
	CodeInsufficientScope   = "AUTH_INSUFFICIENT_SCOPE"
	CodeResourceLocked      = "RESOURCE_LOCKED"
)

// Class groups error codes into the outcome classes reported to callers and telemetry.
type Class string

const (
	ClassSuccess        Class = "success"
	ClassAuthentication Class = "authentication_failure"
	ClassAuthorization  Class = "authorization_failure"
	ClassConflict       Class = "resource_conflict"
	ClassInfrastructure Class = "infrastructure_failure"
	ClassBusiness       Class = "business_failure"
	ClassNotFound       Class = "not_found"
	ClassInternal       Class = "internal_failure"
)

type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Class      Class          `json:"-"`
	Retryable  bool           `json:"retryable"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) StatusCode() int {
	return e.HTTPStatus
}

func (e *AppError) ToJSON() []byte {
	data, _ := json.Marshal(e.Response())
	return data
}

// Response is the merchant-safe projection of the error. The wrapped cause never leaves the process.
func (e *AppError) Response() ErrorResponse {
	return ErrorResponse{
		Code:      e.Code,
		Message:   e.Message,
		Retryable: e.Retryable,
		Details:   e.Details,
	}
}

type ErrorResponse struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
	Details   map[string]any `json:"details,omitempty"`
}

func New(code, message string, httpStatus int, class Class) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Class:      class,
	}
}

func Wrap(err error, code, message string, httpStatus int, class Class) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Class:      class,
		Err:        err,
	}
}

func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// AuthenticationFailed is returned when the caller could not be identified. Code is one of the AUTH_* codes.
func AuthenticationFailed(code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
		Class:      ClassAuthentication,
	}
}

func AuthorizationFailed(message string) *AppError {
	return &AppError{
		Code:       CodeInsufficientScope,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
		Class:      ClassAuthorization,
	}
}

func ResourceConflict(message string) *AppError {
	return &AppError{
		Code:       CodeResourceLocked,
		Message:    message,
		HTTPStatus: http.StatusConflict,
		Class:      ClassConflict,
		Retryable:  true,
	}
}

func Unavailable(service string) *AppError {
	return &AppError{
		Code:       CodeUnavailable,
		Message:    fmt.Sprintf("%s is temporarily unavailable", service),
		HTTPStatus: http.StatusServiceUnavailable,
		Class:      ClassInfrastructure,
		Retryable:  true,
	}
}

func Timeout(message string) *AppError {
	return &AppError{
		Code:       CodeTimeout,
		Message:    message,
		HTTPStatus: http.StatusGatewayTimeout,
		Class:      ClassInfrastructure,
		Retryable:  true,
	}
}

// Business reports a domain rule violation with a domain specific code.
func Business(code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Class:      ClassBusiness,
	}
}

func Conflict(message string) *AppError {
	return Business(CodeConflict, message, http.StatusConflict)
}

func NotFound(resource string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Class:      ClassNotFound,
	}
}

func NotFoundWithID(resource, id string) *AppError {
	return NotFound(resource).WithDetails(map[string]any{
		"resource": resource,
		"id":       id,
	})
}

func Validation(message string, details map[string]any) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
		Class:      ClassBusiness,
		Details:    details,
	}
}

func InvalidInput(message string) *AppError {
	return &AppError{
		Code:       CodeInvalidInput,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Class:      ClassBusiness,
	}
}

func Internal(message string, err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Class:      ClassInternal,
		Err:        err,
	}
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError finds an AppError in err's chain. Anything else becomes a generic internal error
// so raw causes are never exposed.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("An unexpected error occurred", err)
}
