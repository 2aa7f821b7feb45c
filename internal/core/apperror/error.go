// Package apperror provides structured error handling for the inventory ledger.
// All business errors must use AppError for consistent API responses.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	// Infrastructure errors (5xx)
	CodeInternal = "INTERNAL_ERROR"
	CodeDatabase = "DATABASE_ERROR"

	// Validation errors (400)
	CodeValidation = "VALIDATION_ERROR"

	// Ledger business rule violations (409/422).
	// InsufficientStock and LotAlreadyConsumed are user-facing; the rest
	// indicate data defects or caller bugs and render as generic failures.
	CodeIncompatibleUnits    = "INCOMPATIBLE_UNITS"
	CodeInsufficientStock    = "INSUFFICIENT_STOCK"
	CodeInsufficientLotStock = "INSUFFICIENT_LOT_STOCK"
	CodeLotAlreadyConsumed   = "LOT_ALREADY_CONSUMED"
	CodeNoLotsAvailable      = "NO_LOTS_AVAILABLE"

	// Authorization errors (401, 403)
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"

	// Conflict (409)
	CodeConflict    = "CONFLICT"
	CodeIdempotency = "IDEMPOTENCY_CONFLICT"
)

// AppError is the standard error type for the service.
// It implements error interface and provides structured details for API responses.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (field errors, quantities, etc.)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions ---

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewIncompatibleUnits is returned when a conversion is requested between
// units that do not share a base unit. Always a caller bug, never retried.
func NewIncompatibleUnits(fromUnit, toUnit string) *AppError {
	return &AppError{
		Code:       CodeIncompatibleUnits,
		Message:    "units are not convertible",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"from_unit": fromUnit,
			"to_unit":   toUnit,
		},
	}
}

// NewInsufficientStock creates a stock shortage error.
// User-facing: the register cannot sell more than is on hand.
func NewInsufficientStock(productID string, requested, available float64) *AppError {
	return &AppError{
		Code:       CodeInsufficientStock,
		Message:    "cannot deduct more stock than available",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"product_id": productID,
			"requested":  requested,
			"available":  available,
		},
	}
}

// NewInsufficientLotStock is the lot-level variant of a stock shortage,
// raised when consuming against specific lots. Translated to
// InsufficientStock at the mutation service boundary.
func NewInsufficientLotStock(productID, unitID string, requested, available float64) *AppError {
	return &AppError{
		Code:       CodeInsufficientLotStock,
		Message:    "live lots do not cover requested quantity",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"product_id": productID,
			"unit_id":    unitID,
			"requested":  requested,
			"available":  available,
		},
	}
}

// NewLotAlreadyConsumed is returned when a purchase order reversal is
// requested after some of its stock has already been sold.
// User-facing conflict: the order must not be deleted.
func NewLotAlreadyConsumed(purchaseOrderID string) *AppError {
	return &AppError{
		Code:       CodeLotAlreadyConsumed,
		Message:    "stock from this purchase order has already been sold; the order cannot be deleted",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"purchase_order_id": purchaseOrderID},
	}
}

// NewNoLotsAvailable is returned when a deduction targets a unit with zero
// live lots. Handled internally via the summary-counter fallback.
func NewNoLotsAvailable(productID, unitID string) *AppError {
	return &AppError{
		Code:       CodeNoLotsAvailable,
		Message:    "no live lots in the requested unit",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"product_id": productID,
			"unit_id":    unitID,
		},
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewUnauthorized creates an authentication error (401)
func NewUnauthorized(message string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewForbidden creates an authorization error (403)
func NewForbidden(message string) *AppError {
	return &AppError{
		Code:       CodeForbidden,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

// NewConflict creates a conflict error (409)
func NewConflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// NewIdempotencyConflict creates error when operation is already in progress
func NewIdempotencyConflict(key string) *AppError {
	return &AppError{
		Code:       CodeIdempotency,
		Message:    "Operation already in progress or completed",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"idempotency_key": key},
	}
}

// NewIdempotencyMismatch is returned when the same idempotency key is reused
// for a different request (different user/operation/body hash).
func NewIdempotencyMismatch(key string) *AppError {
	return &AppError{
		Code:       CodeIdempotency,
		Message:    "Idempotency key mismatch",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"idempotency_key": key},
	}
}

// --- Helper functions ---

// IsAppError checks if error is AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus returns appropriate HTTP status for any error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// IsCode checks if the error chain carries an AppError with the given code.
func IsCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool {
	return IsCode(err, CodeNotFound)
}

// IsInsufficientStock checks for either stock shortage variant.
func IsInsufficientStock(err error) bool {
	return IsCode(err, CodeInsufficientStock) || IsCode(err, CodeInsufficientLotStock)
}

// IsLotAlreadyConsumed checks if error is CodeLotAlreadyConsumed
func IsLotAlreadyConsumed(err error) bool {
	return IsCode(err, CodeLotAlreadyConsumed)
}

// IsNoLotsAvailable checks if error is CodeNoLotsAvailable
func IsNoLotsAvailable(err error) bool {
	return IsCode(err, CodeNoLotsAvailable)
}

// IsIncompatibleUnits checks if error is CodeIncompatibleUnits
func IsIncompatibleUnits(err error) bool {
	return IsCode(err, CodeIncompatibleUnits)
}
