package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/cajacoop/admin-api/internal/auth"
	"github.com/cajacoop/admin-api/internal/domain"
	"github.com/cajacoop/admin-api/internal/logging"
	"github.com/cajacoop/admin-api/internal/service/approval"
)

type loanService interface {
	ReviewLoan(ctx context.Context, req approval.ReviewLoanRequest) (*domain.Loan, error)
	RecordLoanPayment(ctx context.Context, req approval.LoanPaymentRequest) (*domain.Loan, error)
	PrecancelLoan(ctx context.Context, loanID, adminID uuid.UUID) (*domain.Loan, error)
}

type loanStore interface {
	Create(ctx context.Context, l *domain.Loan) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error)
	List(ctx context.Context, status domain.LoanStatus) ([]domain.Loan, error)
}

type LoanHandler struct {
	loans   loanStore
	reviews loanService
}

func NewLoanHandler(loans loanStore, reviews loanService) *LoanHandler {
	return &LoanHandler{loans: loans, reviews: reviews}
}

type createLoanRequest struct {
	MemberID        string  `json:"member_id"`
	RequestedAmount int64   `json:"requested_amount"`
	InterestRatePct float64 `json:"interest_rate_pct"`
	TermMonths      int     `json:"term_months"`
	Observations    string  `json:"observations"`
}

func (r createLoanRequest) Validate() []FieldError {
	var errs []FieldError
	if r.MemberID == "" {
		errs = append(errs, FieldError{Field: "member_id", Message: "required"})
	} else if _, err := uuid.Parse(r.MemberID); err != nil {
		errs = append(errs, FieldError{Field: "member_id", Message: "must be a UUID"})
	}
	if r.RequestedAmount <= 0 {
		errs = append(errs, FieldError{Field: "requested_amount", Message: "must be greater than 0"})
	}
	if r.InterestRatePct < 0 {
		errs = append(errs, FieldError{Field: "interest_rate_pct", Message: "must not be negative"})
	}
	if r.TermMonths < 0 {
		errs = append(errs, FieldError{Field: "term_months", Message: "must not be negative"})
	}
	return errs
}

type loanPaymentDTO struct {
	DepositID uuid.UUID `json:"deposit_id"`
	Amount    int64     `json:"amount"`
	PaidAt    time.Time `json:"paid_at"`
}

type loanDTO struct {
	ID                 uuid.UUID        `json:"id"`
	MemberID           uuid.UUID        `json:"member_id"`
	RequestedAmount    int64            `json:"requested_amount"`
	ApprovedAmount     int64            `json:"approved_amount"`
	InterestRatePct    float64          `json:"interest_rate_pct"`
	TermMonths         int              `json:"term_months"`
	MonthlyInstallment int64            `json:"monthly_installment"`
	Remaining          int64            `json:"remaining"`
	MonthsRemaining    int              `json:"months_remaining"`
	Status             string           `json:"status"`
	Payments           []loanPaymentDTO `json:"payments,omitempty"`
	ContractURL        *string          `json:"contract_url,omitempty"`
	Observations       string           `json:"observations,omitempty"`
	StartedAt          *time.Time       `json:"started_at,omitempty"`
	EndsAt             *time.Time       `json:"ends_at,omitempty"`
	NextPaymentAt      *time.Time       `json:"next_payment_at,omitempty"`
	LastPaymentAt      *time.Time       `json:"last_payment_at,omitempty"`
	FinalizedAt        *time.Time       `json:"finalized_at,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
}

func toLoanDTO(l *domain.Loan) loanDTO {
	dto := loanDTO{
		ID:                 l.ID,
		MemberID:           l.MemberID,
		RequestedAmount:    l.RequestedAmount,
		ApprovedAmount:     l.ApprovedAmount,
		InterestRatePct:    l.InterestRatePct,
		TermMonths:         l.TermMonths,
		MonthlyInstallment: l.MonthlyInstallment,
		Remaining:          l.Remaining,
		MonthsRemaining:    l.MonthsRemaining,
		Status:             string(l.Status),
		ContractURL:        l.ContractURL,
		Observations:       l.Observations,
		StartedAt:          l.StartedAt,
		EndsAt:             l.EndsAt,
		NextPaymentAt:      l.NextPaymentAt,
		LastPaymentAt:      l.LastPaymentAt,
		FinalizedAt:        l.FinalizedAt,
		CreatedAt:          l.CreatedAt,
	}
	for _, p := range l.Payments {
		dto.Payments = append(dto.Payments, loanPaymentDTO(p))
	}
	return dto
}

func (h *LoanHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	memberID, _ := uuid.Parse(req.MemberID)
	l := &domain.Loan{
		ID:              uuid.New(),
		MemberID:        memberID,
		RequestedAmount: req.RequestedAmount,
		InterestRatePct: req.InterestRatePct,
		TermMonths:      req.TermMonths,
		Status:          domain.LoanStatusPending,
		Observations:    req.Observations,
		CreatedAt:       time.Now().UTC(),
	}

	if err := h.loans.Create(r.Context(), l); err != nil {
		logging.FromContext(r.Context()).Warn("loan creation failed", "error", err)
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusCreated, toLoanDTO(l))
}

func (h *LoanHandler) List(w http.ResponseWriter, r *http.Request) {
	status := domain.LoanStatus(r.URL.Query().Get("status"))
	switch status {
	case "", domain.LoanStatusPending, domain.LoanStatusApproved,
		domain.LoanStatusRejected, domain.LoanStatusFinalized:
	default:
		RespondValidationError(w, []FieldError{{Field: "status", Message: "must be pending, approved, rejected, or finalized"}})
		return
	}

	loans, err := h.loans.List(r.Context(), status)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	dtos := make([]loanDTO, 0, len(loans))
	for i := range loans {
		dtos = append(dtos, toLoanDTO(&loans[i]))
	}
	RespondSuccess(w, http.StatusOK, dtos)
}

func (h *LoanHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	l, err := h.loans.GetByID(r.Context(), id)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toLoanDTO(l))
}

type reviewLoanRequest struct {
	Approve         bool    `json:"approve"`
	ApprovedAmount  int64   `json:"approved_amount"`
	InterestRatePct float64 `json:"interest_rate_pct"`
	TermMonths      int     `json:"term_months"`
	ContractURL     *string `json:"contract_url"`
	Observations    string  `json:"observations"`
}

func (r reviewLoanRequest) Validate() []FieldError {
	var errs []FieldError
	if r.Approve {
		if r.ApprovedAmount < 0 {
			errs = append(errs, FieldError{Field: "approved_amount", Message: "must not be negative"})
		}
		if r.InterestRatePct < 0 {
			errs = append(errs, FieldError{Field: "interest_rate_pct", Message: "must not be negative"})
		}
	} else if r.Observations == "" {
		errs = append(errs, FieldError{Field: "observations", Message: "required when rejecting"})
	}
	return errs
}

func (h *LoanHandler) Review(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	loanID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	var req reviewLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	l, err := h.reviews.ReviewLoan(r.Context(), approval.ReviewLoanRequest{
		LoanID:          loanID,
		AdminID:         claims.AdminID,
		Approve:         req.Approve,
		ApprovedAmount:  req.ApprovedAmount,
		InterestRatePct: req.InterestRatePct,
		TermMonths:      req.TermMonths,
		ContractURL:     req.ContractURL,
		Observations:    req.Observations,
	})
	if err != nil {
		log.Warn("loan review failed", "error", err, "loan_id", loanID)
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toLoanDTO(l))
}

type loanPaymentRequest struct {
	Amount int64 `json:"amount"`
}

func (h *LoanHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	loanID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	var req loanPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if req.Amount <= 0 {
		RespondValidationError(w, []FieldError{{Field: "amount", Message: "must be greater than 0"}})
		return
	}

	l, err := h.reviews.RecordLoanPayment(r.Context(), approval.LoanPaymentRequest{
		LoanID:  loanID,
		AdminID: claims.AdminID,
		Amount:  req.Amount,
	})
	if err != nil {
		log.Warn("loan payment failed", "error", err, "loan_id", loanID)
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toLoanDTO(l))
}

func (h *LoanHandler) Precancel(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	loanID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	l, err := h.reviews.PrecancelLoan(r.Context(), loanID, claims.AdminID)
	if err != nil {
		log.Warn("loan precancel failed", "error", err, "loan_id", loanID)
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toLoanDTO(l))
}
