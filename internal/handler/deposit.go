package handler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/cajacoop/admin-api/internal/auth"
	"github.com/cajacoop/admin-api/internal/domain"
	"github.com/cajacoop/admin-api/internal/logging"
	"github.com/cajacoop/admin-api/internal/rules"
	"github.com/cajacoop/admin-api/internal/service/approval"
)

type depositService interface {
	ReviewDeposit(ctx context.Context, req approval.ReviewDepositRequest) (*approval.ReviewDepositResult, error)
	DirectContribution(ctx context.Context, req approval.DirectContributionRequest) (*approval.ReviewDepositResult, error)
}

type depositStore interface {
	Create(ctx context.Context, d *domain.Deposit) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Deposit, error)
	ListByStatus(ctx context.Context, status domain.DepositStatus) ([]domain.Deposit, error)
	SoftDelete(ctx context.Context, id uuid.UUID, deletedBy uuid.UUID, reason string) error
}

type DepositHandler struct {
	deposits depositStore
	reviews  depositService
}

func NewDepositHandler(deposits depositStore, reviews depositService) *DepositHandler {
	return &DepositHandler{deposits: deposits, reviews: reviews}
}

type detailSplitRequest struct {
	MemberID string `json:"member_id"`
	Amount   int64  `json:"amount"`
	Kind     string `json:"kind"`
}

func validateDetail(detail []detailSplitRequest) []FieldError {
	var errs []FieldError
	for _, sp := range detail {
		if _, err := uuid.Parse(sp.MemberID); err != nil {
			errs = append(errs, FieldError{Field: "detail", Message: "member_id must be a UUID"})
		}
		if sp.Amount <= 0 {
			errs = append(errs, FieldError{Field: "detail", Message: "amounts must be greater than 0"})
		}
		if sp.Kind != "" && !domain.ContributionKind(sp.Kind).Valid() {
			errs = append(errs, FieldError{Field: "detail", Message: "kind must be savings, fixed_term, certificate, loan_payment, or penalty"})
		}
	}
	return errs
}

func toDomainDetail(detail []detailSplitRequest) []domain.DetailSplit {
	var splits []domain.DetailSplit
	for _, sp := range detail {
		id, _ := uuid.Parse(sp.MemberID)
		splits = append(splits, domain.DetailSplit{
			MemberID: id,
			Amount:   sp.Amount,
			Kind:     domain.ContributionKind(sp.Kind),
		})
	}
	return splits
}

type createDepositRequest struct {
	MemberID        string               `json:"member_id"`
	Kind            string               `json:"kind"`
	Amount          int64                `json:"amount"`
	Description     string               `json:"description"`
	Detail          []detailSplitRequest `json:"detail"`
	VoucherURL      *string              `json:"voucher_url"`
	PaymentDate     string               `json:"payment_date"`
	InterestRatePct *float64             `json:"interest_rate_pct"`
	DocumentURL     *string              `json:"document_url"`
}

func (r createDepositRequest) Validate() []FieldError {
	var errs []FieldError

	if r.MemberID == "" {
		errs = append(errs, FieldError{Field: "member_id", Message: "required"})
	} else if _, err := uuid.Parse(r.MemberID); err != nil {
		errs = append(errs, FieldError{Field: "member_id", Message: "must be a UUID"})
	}

	if r.Kind == "" {
		errs = append(errs, FieldError{Field: "kind", Message: "required"})
	} else if !domain.ContributionKind(r.Kind).Valid() {
		errs = append(errs, FieldError{Field: "kind", Message: "must be savings, fixed_term, certificate, loan_payment, or penalty"})
	}

	if r.Amount <= 0 {
		errs = append(errs, FieldError{Field: "amount", Message: "must be greater than 0"})
	}

	if r.PaymentDate != "" {
		if _, err := rules.ParseFlexibleDate(r.PaymentDate); err != nil {
			errs = append(errs, FieldError{Field: "payment_date", Message: "unrecognized date format"})
		}
	}

	errs = append(errs, validateDetail(r.Detail)...)

	return errs
}

type monthAllocationDTO struct {
	Year   int   `json:"year"`
	Month  int   `json:"month"`
	Amount int64 `json:"amount"`
}

type depositDTO struct {
	ID                  uuid.UUID            `json:"id"`
	MemberID            uuid.UUID            `json:"member_id"`
	Kind                string               `json:"kind"`
	Amount              int64                `json:"amount"`
	Status              string               `json:"status"`
	Description         string               `json:"description,omitempty"`
	Detail              []domain.DetailSplit `json:"detail,omitempty"`
	AutoAllocated       bool                 `json:"auto_allocated"`
	MonthsCovered       []monthAllocationDTO `json:"months_covered,omitempty"`
	LeftoverAmount      int64                `json:"leftover_amount"`
	PenaltyAmount       int64                `json:"penalty_amount"`
	InterestRatePct     *float64             `json:"interest_rate_pct,omitempty"`
	DocumentURL         *string              `json:"document_url,omitempty"`
	VoucherURL          *string              `json:"voucher_url,omitempty"`
	DetectedPaymentDate *time.Time           `json:"detected_payment_date,omitempty"`
	SubmittedAt         time.Time            `json:"submitted_at"`
	ReviewedAt          *time.Time           `json:"reviewed_at,omitempty"`
	ReviewedBy          *uuid.UUID           `json:"reviewed_by,omitempty"`
	Observations        string               `json:"observations,omitempty"`
}

func toDepositDTO(d *domain.Deposit) depositDTO {
	dto := depositDTO{
		ID:                  d.ID,
		MemberID:            d.MemberID,
		Kind:                string(d.Kind),
		Amount:              d.Amount,
		Status:              string(d.Status),
		Description:         d.Description,
		Detail:              d.Detail,
		AutoAllocated:       d.AutoAllocated,
		LeftoverAmount:      d.LeftoverAmount,
		PenaltyAmount:       d.PenaltyAmount,
		InterestRatePct:     d.InterestRatePct,
		DocumentURL:         d.DocumentURL,
		VoucherURL:          d.VoucherURL,
		DetectedPaymentDate: d.DetectedPaymentDate,
		SubmittedAt:         d.SubmittedAt,
		ReviewedAt:          d.ReviewedAt,
		ReviewedBy:          d.ReviewedBy,
		Observations:        d.Observations,
	}
	for _, m := range d.MonthsCovered {
		dto.MonthsCovered = append(dto.MonthsCovered, monthAllocationDTO(m))
	}
	return dto
}

func (h *DepositHandler) Create(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req createDepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	memberID, _ := uuid.Parse(req.MemberID)
	d := &domain.Deposit{
		ID:              uuid.New(),
		MemberID:        memberID,
		Kind:            domain.ContributionKind(req.Kind),
		Amount:          req.Amount,
		Status:          domain.DepositStatusPending,
		Description:     req.Description,
		InterestRatePct: req.InterestRatePct,
		DocumentURL:     req.DocumentURL,
		VoucherURL:      req.VoucherURL,
		SubmittedAt:     time.Now().UTC(),
	}

	d.Detail = toDomainDetail(req.Detail)

	if req.PaymentDate != "" {
		paidAt, _ := rules.ParseFlexibleDate(req.PaymentDate)
		d.DetectedPaymentDate = &paidAt
	}

	if req.VoucherURL != nil && *req.VoucherURL != "" {
		sum := sha256.Sum256([]byte(*req.VoucherURL))
		hash := hex.EncodeToString(sum[:])
		d.VoucherHash = &hash
	}

	if err := h.deposits.Create(r.Context(), d); err != nil {
		log.Warn("deposit creation failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toDepositDTO(d))
}

func (h *DepositHandler) List(w http.ResponseWriter, r *http.Request) {
	status := domain.DepositStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = domain.DepositStatusPending
	}

	switch status {
	case domain.DepositStatusPending, domain.DepositStatusApproved, domain.DepositStatusRejected:
	default:
		RespondValidationError(w, []FieldError{{Field: "status", Message: "must be pending, approved, or rejected"}})
		return
	}

	deposits, err := h.deposits.ListByStatus(r.Context(), status)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	dtos := make([]depositDTO, 0, len(deposits))
	for i := range deposits {
		dtos = append(dtos, toDepositDTO(&deposits[i]))
	}
	RespondSuccess(w, http.StatusOK, dtos)
}

func (h *DepositHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	d, err := h.deposits.GetByID(r.Context(), id)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toDepositDTO(d))
}

type reviewDepositRequest struct {
	Approve            bool                 `json:"approve"`
	Observations       string               `json:"observations"`
	Detail             []detailSplitRequest `json:"detail"`
	InterestRatePct    *float64             `json:"interest_rate_pct"`
	DocumentURL        *string              `json:"document_url"`
	PenaltyExempt      bool                 `json:"penalty_exempt"`
	PerMemberPenalties map[string]int64     `json:"per_member_penalties"`
}

func (r reviewDepositRequest) Validate() []FieldError {
	errs := validateDetail(r.Detail)
	for id, amount := range r.PerMemberPenalties {
		if _, err := uuid.Parse(id); err != nil {
			errs = append(errs, FieldError{Field: "per_member_penalties", Message: "keys must be member UUIDs"})
		}
		if amount < 0 {
			errs = append(errs, FieldError{Field: "per_member_penalties", Message: "amounts must not be negative"})
		}
	}
	if !r.Approve && r.Observations == "" {
		errs = append(errs, FieldError{Field: "observations", Message: "required when rejecting"})
	}
	return errs
}

type reviewDepositResponse struct {
	Deposit        depositDTO `json:"deposit"`
	PenaltyAmount  int64      `json:"penalty_amount"`
	LeftoverAmount int64      `json:"leftover_amount"`
}

func (h *DepositHandler) Review(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	depositID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	var req reviewDepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	override := toDomainDetail(req.Detail)

	var penalties map[uuid.UUID]int64
	if len(req.PerMemberPenalties) > 0 {
		penalties = make(map[uuid.UUID]int64, len(req.PerMemberPenalties))
		for id, amount := range req.PerMemberPenalties {
			memberID, _ := uuid.Parse(id)
			penalties[memberID] = amount
		}
	}

	result, err := h.reviews.ReviewDeposit(r.Context(), approval.ReviewDepositRequest{
		DepositID:          depositID,
		AdminID:            claims.AdminID,
		Approve:            req.Approve,
		Observations:       req.Observations,
		DetailOverride:     override,
		InterestRatePct:    req.InterestRatePct,
		DocumentURL:        req.DocumentURL,
		PenaltyExempt:      req.PenaltyExempt,
		PerMemberPenalties: penalties,
	})
	if err != nil {
		log.Warn("deposit review failed", "error", err, "deposit_id", depositID)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, reviewDepositResponse{
		Deposit:        toDepositDTO(result.Deposit),
		PenaltyAmount:  result.PenaltyAmount,
		LeftoverAmount: result.LeftoverAmount,
	})
}

type deleteDepositRequest struct {
	Reason string `json:"reason"`
}

func (h *DepositHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	var req deleteDepositRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if req.Reason == "" {
		RespondValidationError(w, []FieldError{{Field: "reason", Message: "required"}})
		return
	}

	if err := h.deposits.SoftDelete(r.Context(), id, claims.AdminID, req.Reason); err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, map[string]any{"deleted": true})
}

type directContributionRequest struct {
	MemberID      string `json:"member_id"`
	Kind          string `json:"kind"`
	Amount        int64  `json:"amount"`
	Description   string `json:"description"`
	PaymentDate   string `json:"payment_date"`
	PenaltyExempt bool   `json:"penalty_exempt"`
}

func (r directContributionRequest) Validate() []FieldError {
	var errs []FieldError
	if r.MemberID == "" {
		errs = append(errs, FieldError{Field: "member_id", Message: "required"})
	} else if _, err := uuid.Parse(r.MemberID); err != nil {
		errs = append(errs, FieldError{Field: "member_id", Message: "must be a UUID"})
	}
	if r.Kind == "" {
		errs = append(errs, FieldError{Field: "kind", Message: "required"})
	} else if !domain.ContributionKind(r.Kind).Valid() {
		errs = append(errs, FieldError{Field: "kind", Message: "unknown contribution kind"})
	}
	if r.Amount <= 0 {
		errs = append(errs, FieldError{Field: "amount", Message: "must be greater than 0"})
	}
	if r.PaymentDate != "" {
		if _, err := rules.ParseFlexibleDate(r.PaymentDate); err != nil {
			errs = append(errs, FieldError{Field: "payment_date", Message: "unrecognized date format"})
		}
	}
	return errs
}

// Contribute records a contribution received out of band and settles it in
// the same request.
func (h *DepositHandler) Contribute(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req directContributionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	memberID, _ := uuid.Parse(req.MemberID)
	svcReq := approval.DirectContributionRequest{
		MemberID:      memberID,
		AdminID:       claims.AdminID,
		Kind:          domain.ContributionKind(req.Kind),
		Amount:        req.Amount,
		Description:   req.Description,
		PenaltyExempt: req.PenaltyExempt,
	}
	if req.PaymentDate != "" {
		paidAt, _ := rules.ParseFlexibleDate(req.PaymentDate)
		svcReq.PaymentDate = &paidAt
	}

	result, err := h.reviews.DirectContribution(r.Context(), svcReq)
	if err != nil {
		log.Warn("direct contribution failed", "error", err, "member_id", memberID)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, reviewDepositResponse{
		Deposit:        toDepositDTO(result.Deposit),
		PenaltyAmount:  result.PenaltyAmount,
		LeftoverAmount: result.LeftoverAmount,
	})
}
