package types

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode is a typed string for categorizing application errors.
type ErrorCode string

// Error code constants. All handlers and repositories use these constants
// instead of hardcoded strings so the HTTP mapping stays in one place.
const (
	// Validation (400)
	ErrCodeValidationInvalidParameter ErrorCode = "validation_invalid_parameter"
	ErrCodeValidationInvalidScope     ErrorCode = "validation_invalid_scope"
	ErrCodeValidationInvalidWindow    ErrorCode = "validation_invalid_window"
	ErrCodeValidationInvalidValue     ErrorCode = "validation_invalid_value"
	ErrCodeValidationThresholdOrder   ErrorCode = "validation_threshold_order"
	ErrCodeValidationMissingField     ErrorCode = "validation_missing_required_field"

	// Not Found (404)
	ErrCodeNotFoundSensor       ErrorCode = "not_found_sensor"
	ErrCodeNotFoundMunicipality ErrorCode = "not_found_municipality"
	ErrCodeNotFoundArea         ErrorCode = "not_found_area"
	ErrCodeNotFoundThreshold    ErrorCode = "not_found_threshold"
	ErrCodeNotFoundAlert        ErrorCode = "not_found_alert"

	// No Data (422). A query succeeded but matched zero readings. Distinct
	// from not_found: the location/parameter exists, the window is just empty.
	// Callers must apply explicit defaults rather than coercing to zero.
	ErrCodeNoData ErrorCode = "no_data_in_window"

	// Backend (502). A scoring backend errored or timed out. Always recovered
	// locally via the heuristic fallback; never surfaced from Assess.
	ErrCodeBackendFailure     ErrorCode = "backend_failure"
	ErrCodeBackendUnavailable ErrorCode = "backend_not_installed"

	// Store (503). The persistence layer is down. Fatal for the request.
	ErrCodeStoreUnavailable ErrorCode = "store_unavailable"

	// Internal (500)
	ErrCodeInternalDB         ErrorCode = "internal_database_error"
	ErrCodeInternalUnexpected ErrorCode = "internal_unexpected_error"
)

// HTTPStatus maps an ErrorCode to its HTTP status code.
// Returns 500 for unrecognized codes as a safe default.
func (c ErrorCode) HTTPStatus() int {
	s := string(c)
	switch {
	case strings.HasPrefix(s, "validation_"):
		return http.StatusBadRequest
	case strings.HasPrefix(s, "not_found_"):
		return http.StatusNotFound
	case c == ErrCodeNoData:
		return http.StatusUnprocessableEntity
	case strings.HasPrefix(s, "backend_"):
		return http.StatusBadGateway
	case c == ErrCodeStoreUnavailable:
		return http.StatusServiceUnavailable
	case strings.HasPrefix(s, "internal_"):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// AppError is the standard application error type. All domain and handler
// errors are expressed as AppError to enable consistent formatting, HTTP
// status mapping, and error chain support.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status code corresponding to this error's code.
func (e *AppError) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// NewAppError creates a new AppError with the given code, message, and
// optional underlying error.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// NewAppErrorWithDetails creates a new AppError carrying structured details.
func NewAppErrorWithDetails(code ErrorCode, message string, err error, details map[string]any) *AppError {
	return &AppError{Code: code, Message: message, Err: err, Details: details}
}

// IsNoData reports whether err is (or wraps) the NoData condition.
func IsNoData(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeNoData
}

// IsNotFound reports whether err is (or wraps) any not_found_* condition.
func IsNotFound(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && strings.HasPrefix(string(appErr.Code), "not_found_")
}
