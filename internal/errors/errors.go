// Package errors defines the application error taxonomy. Services return
// *AppError values so the HTTP layer can map them to stable codes and
// status codes without leaking internal details.
package errors

import "net/http"

// AppError is a structured application error with a stable code, a
// client-safe message, the HTTP status to respond with and an optional
// internal cause that is logged but never returned.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Is reports whether target is an *AppError with the same code, so
// errors.Is(err, ErrExpenseNotFound) works on wrapped copies.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

// Wrap copies sentinel and attaches internal as the cause.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage copies sentinel with a custom client-facing message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Authentication & authorization errors.
var (
	ErrUnauthorized       = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidCredentials = &AppError{Code: "INVALID_CREDENTIALS", Message: "Wrong credentials", StatusCode: http.StatusUnauthorized}
	ErrForbidden          = &AppError{Code: "FORBIDDEN", Message: "Access denied", StatusCode: http.StatusForbidden}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// User errors.
var (
	ErrUserNotFound       = &AppError{Code: "USER_NOT_FOUND", Message: "User not found", StatusCode: http.StatusNotFound}
	ErrDuplicateUserName  = &AppError{Code: "DUPLICATE_USERNAME", Message: "Username already exists", StatusCode: http.StatusConflict}
	ErrInvalidPassword    = &AppError{Code: "INVALID_PASSWORD", Message: "Password must be at least 6 characters and contain an upper-case letter, a lower-case letter and a digit", StatusCode: http.StatusBadRequest}
	ErrBudgetAboveBalance = &AppError{Code: "BUDGET_ABOVE_BALANCE", Message: "Monthly budget cannot exceed total balance", StatusCode: http.StatusBadRequest}
)

// Category errors.
var (
	ErrCategoryNotFound  = &AppError{Code: "CATEGORY_NOT_FOUND", Message: "Category not found", StatusCode: http.StatusNotFound}
	ErrDuplicateCategory = &AppError{Code: "DUPLICATE_CATEGORY", Message: "Category already exists", StatusCode: http.StatusConflict}
	ErrCategoryInUse     = &AppError{Code: "CATEGORY_IN_USE", Message: "Cannot delete category with existing expenses", StatusCode: http.StatusConflict}
)

// Expense errors.
var (
	ErrExpenseNotFound     = &AppError{Code: "EXPENSE_NOT_FOUND", Message: "Expense not found", StatusCode: http.StatusNotFound}
	ErrInsufficientBalance = &AppError{Code: "INSUFFICIENT_BALANCE", Message: "Insufficient balance", StatusCode: http.StatusBadRequest}
	ErrBudgetExceeded      = &AppError{Code: "BUDGET_EXCEEDED", Message: "Monthly budget exceeded", StatusCode: http.StatusBadRequest}
)

// Income errors.
var (
	ErrIncomeNotFound = &AppError{Code: "INCOME_NOT_FOUND", Message: "Income not found", StatusCode: http.StatusNotFound}
	ErrIncomeLocked   = &AppError{Code: "INCOME_LOCKED", Message: "Income can only be changed within the edit window", StatusCode: http.StatusForbidden}
)

// External service errors.
var (
	ErrScanFailed      = &AppError{Code: "SCAN_FAILED", Message: "Failed to scan bill", StatusCode: http.StatusBadGateway}
	ErrScannerDisabled = &AppError{Code: "SCANNER_DISABLED", Message: "Bill scanning is not configured", StatusCode: http.StatusBadGateway}
)
