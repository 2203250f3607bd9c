package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrMissingToken       = &AppError{http.StatusUnauthorized, "MISSING_TOKEN", "Authorization header required"}
	ErrInvalidToken       = &AppError{http.StatusUnauthorized, "INVALID_TOKEN", "Token is invalid or expired"}
	ErrInvalidCredentials = &AppError{http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password"}
	ErrForbidden          = &AppError{http.StatusForbidden, "FORBIDDEN", "Admin privileges required"}
	ErrInvalidRequest     = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed   = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrResourceNotFound   = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrInternalError      = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}

	ErrDepositTerminal     = &AppError{http.StatusPreconditionFailed, "DEPOSIT_ALREADY_REVIEWED", "Deposit has already been reviewed"}
	ErrLoanTerminal        = &AppError{http.StatusPreconditionFailed, "LOAN_ALREADY_SETTLED", "Loan is already in a terminal state"}
	ErrDuplicateVoucher    = &AppError{http.StatusConflict, "DUPLICATE_VOUCHER", "Voucher already used by another approved deposit"}
	ErrDetailMismatch      = &AppError{http.StatusUnprocessableEntity, "DETAIL_MISMATCH", "Detail splits do not sum to the deposit amount"}
	ErrMissingDocument     = &AppError{http.StatusUnprocessableEntity, "MISSING_DOCUMENT", "Document and interest rate required for this kind"}
	ErrMissingContract     = &AppError{http.StatusUnprocessableEntity, "MISSING_CONTRACT", "Signed contract required before approval"}
	ErrInsufficientCash    = &AppError{http.StatusUnprocessableEntity, "INSUFFICIENT_CASH", "Cooperative cash cannot cover this disbursement"}
	ErrOverpayment         = &AppError{http.StatusUnprocessableEntity, "OVERPAYMENT", "Payment exceeds remaining loan balance"}
	ErrInvalidKind         = &AppError{http.StatusBadRequest, "INVALID_KIND", "Unknown contribution kind"}
	ErrInvalidAmount       = &AppError{http.StatusBadRequest, "INVALID_AMOUNT", "Amount must be greater than zero"}
	ErrTransactionConflict = &AppError{http.StatusConflict, "TRANSACTION_CONFLICT", "Resource was modified concurrently, please retry"}
	ErrVersionConflict     = &AppError{http.StatusConflict, "VERSION_CONFLICT", "Resource was modified concurrently, please retry"}
	ErrIdempotencyConflict = &AppError{http.StatusConflict, "IDEMPOTENCY_CONFLICT", "Idempotency key already used with a different request"}
)
