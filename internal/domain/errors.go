package domain

import "errors"

var (
	ErrNotFound                = errors.New("not found")
	ErrMemberNotFound          = errors.New("member not found")
	ErrDepositNotFound         = errors.New("deposit not found")
	ErrLoanNotFound            = errors.New("loan not found")
	ErrDepositTerminal         = errors.New("deposit already reviewed")
	ErrLoanTerminal            = errors.New("loan already in terminal state")
	ErrDuplicateVoucher        = errors.New("voucher already used by another approved deposit")
	ErrDetailMismatch          = errors.New("detail splits do not sum to deposit amount")
	ErrMissingDocument         = errors.New("document and interest rate required for this kind")
	ErrMissingContract         = errors.New("signed contract required before approval")
	ErrInvalidAmount           = errors.New("amount must be greater than zero")
	ErrInvalidKind             = errors.New("unknown contribution kind")
	ErrInvalidRequest          = errors.New("invalid request")
	ErrForbidden               = errors.New("admin privileges required")
	ErrVersionConflict         = errors.New("optimistic lock conflict")
	ErrTransactionConflict     = errors.New("transaction conflict, retry budget exhausted")
	ErrInsufficientCash        = errors.New("insufficient cooperative cash")
	ErrOverpayment             = errors.New("payment exceeds remaining loan balance")
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")
)
