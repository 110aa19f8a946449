// Package errors provides custom error types for the wallet ledger.
// All service-layer errors should use AppError so callers can tell caller
// mistakes (validation) apart from data integrity failures (consistency).
package errors

import (
	stderrors "errors"
	"net/http"
)

// Kind classifies an AppError by how a caller is expected to react to it.
type Kind string

const (
	// KindValidation is a caller/input error. Surfaced directly, never retried.
	KindValidation Kind = "validation"
	// KindConsistency is a data integrity failure. Aborts the unit of work and is reported.
	KindConsistency Kind = "consistency"
	KindNotFound    Kind = "not_found"
	KindInternal    Kind = "internal"
)

// AppError represents a structured application error with an error code,
// human-readable message, kind, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Kind       Kind   `json:"-"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		Kind:       sentinel.Kind,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		Kind:       sentinel.Kind,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// IsValidation reports whether err carries a validation AppError.
func IsValidation(err error) bool { return kindOf(err) == KindValidation }

// IsConsistency reports whether err carries a consistency AppError.
func IsConsistency(err error) bool { return kindOf(err) == KindConsistency }

func kindOf(err error) Kind {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", Kind: KindValidation, StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", Kind: KindNotFound, StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", Kind: KindInternal, StatusCode: http.StatusInternalServerError}
)

// User errors.
var (
	ErrUserNotFound      = &AppError{Code: "USER_NOT_FOUND", Message: "User not found", Kind: KindNotFound, StatusCode: http.StatusNotFound}
	ErrDuplicateUserName = &AppError{Code: "DUPLICATE_USER_NAME", Message: "A user with this name already exists", Kind: KindValidation, StatusCode: http.StatusConflict}
	ErrNoEquityAccount   = &AppError{Code: "NO_EQUITY_ACCOUNT", Message: "User has no default equity account", Kind: KindValidation, StatusCode: http.StatusBadRequest}
)

// Account errors.
var (
	ErrAccountNotFound      = &AppError{Code: "ACCOUNT_NOT_FOUND", Message: "Account not found", Kind: KindNotFound, StatusCode: http.StatusNotFound}
	ErrDuplicateAccountName = &AppError{Code: "DUPLICATE_ACCOUNT_NAME", Message: "An account with this name already exists", Kind: KindValidation, StatusCode: http.StatusConflict}
)

// Category errors.
var (
	ErrCategoryNotFound      = &AppError{Code: "CATEGORY_NOT_FOUND", Message: "Category not found", Kind: KindNotFound, StatusCode: http.StatusNotFound}
	ErrDuplicateCategoryName = &AppError{Code: "DUPLICATE_CATEGORY_NAME", Message: "A category with this name already exists", Kind: KindValidation, StatusCode: http.StatusConflict}
)

// Entry errors.
var (
	ErrEntryNotFound         = &AppError{Code: "ENTRY_NOT_FOUND", Message: "Entry not found", Kind: KindNotFound, StatusCode: http.StatusNotFound}
	ErrEntryNotMergeable     = &AppError{Code: "ENTRY_NOT_MERGEABLE", Message: "Entries cannot be merged", Kind: KindValidation, StatusCode: http.StatusBadRequest}
	ErrInvalidSplit          = &AppError{Code: "INVALID_SPLIT", Message: "Entry cannot be split by this amount", Kind: KindValidation, StatusCode: http.StatusBadRequest}
	ErrEntryNotModifiable    = &AppError{Code: "ENTRY_NOT_MODIFIABLE", Message: "Entry amount cannot be modified", Kind: KindValidation, StatusCode: http.StatusBadRequest}
	ErrOffsetEntryNotFound   = &AppError{Code: "OFFSET_ENTRY_NOT_FOUND", Message: "No offsetting entry in transaction", Kind: KindValidation, StatusCode: http.StatusBadRequest}
	ErrEntryConcurrentChange = &AppError{Code: "ENTRY_CONCURRENTLY_MODIFIED", Message: "Entry was modified by another operation", Kind: KindValidation, StatusCode: http.StatusConflict}
)

// Transaction errors.
var (
	ErrTransactionNotFound   = &AppError{Code: "TRANSACTION_NOT_FOUND", Message: "Transaction not found", Kind: KindNotFound, StatusCode: http.StatusNotFound}
	ErrUnbalancedTransaction = &AppError{Code: "UNBALANCED_TRANSACTION", Message: "Transaction cannot be balanced", Kind: KindValidation, StatusCode: http.StatusBadRequest}
	ErrExchangeRateDeviation = &AppError{Code: "EXCHANGE_RATE_DEVIATION", Message: "Assumed exchange rate deviates from reference rate", Kind: KindValidation, StatusCode: http.StatusBadRequest}
)

// Portfolio snapshot errors.
var (
	ErrSnapshotNotFound      = &AppError{Code: "SNAPSHOT_NOT_FOUND", Message: "Portfolio snapshot not found", Kind: KindNotFound, StatusCode: http.StatusNotFound}
	ErrSnapshotMismatch      = &AppError{Code: "SNAPSHOT_MISMATCH", Message: "Snapshot derived value does not match", Kind: KindConsistency, StatusCode: http.StatusUnprocessableEntity}
	ErrSnapshotDiscontinuity = &AppError{Code: "SNAPSHOT_DISCONTINUITY", Message: "Snapshot does not continue from previous day", Kind: KindConsistency, StatusCode: http.StatusUnprocessableEntity}
)
