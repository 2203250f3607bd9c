package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/cajacoop/admin-api/internal/auth"
	"github.com/cajacoop/admin-api/internal/domain"
	"github.com/cajacoop/admin-api/internal/logging"
	"github.com/cajacoop/admin-api/internal/rules"
	"github.com/cajacoop/admin-api/internal/service"
)

type memberService interface {
	CreateMember(ctx context.Context, name, email string, joinedAt *time.Time) (*domain.Member, error)
	ListMembers(ctx context.Context) ([]domain.Member, error)
	CategorizeMembers(ctx context.Context, foundationDate time.Time) (*service.CategorizeResult, error)
}

type memberMovements interface {
	ListByMember(ctx context.Context, memberID uuid.UUID, limit, offset int) ([]domain.Movement, int, error)
	ListRecent(ctx context.Context, limit int) ([]domain.Movement, error)
}

type MemberHandler struct {
	members   memberService
	movements memberMovements
}

func NewMemberHandler(members memberService, movements memberMovements) *MemberHandler {
	return &MemberHandler{members: members, movements: movements}
}

type createMemberRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	JoinedAt string `json:"joined_at"`
}

func (r createMemberRequest) Validate() []FieldError {
	var errs []FieldError
	if r.Name == "" {
		errs = append(errs, FieldError{Field: "name", Message: "required"})
	}
	if r.Email == "" {
		errs = append(errs, FieldError{Field: "email", Message: "required"})
	}
	if r.JoinedAt != "" {
		if _, err := rules.ParseFlexibleDate(r.JoinedAt); err != nil {
			errs = append(errs, FieldError{Field: "joined_at", Message: "unrecognized date format"})
		}
	}
	return errs
}

type memberDTO struct {
	ID               uuid.UUID  `json:"id"`
	Name             string     `json:"name"`
	Email            string     `json:"email"`
	Category         string     `json:"category"`
	Status           string     `json:"status"`
	SavingsTotal     int64      `json:"savings_total"`
	FixedTermTotal   int64      `json:"fixed_term_total"`
	CertificateTotal int64      `json:"certificate_total"`
	LoansTotal       int64      `json:"loans_total"`
	PenaltiesTotal   int64      `json:"penalties_total"`
	AnnualProgress   int64      `json:"annual_progress"`
	AnnualTarget     int64      `json:"annual_target"`
	Carryover        int64      `json:"carryover"`
	NetPosition      int64      `json:"net_position"`
	JoinedAt         *time.Time `json:"joined_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

func toMemberDTO(m *domain.Member) memberDTO {
	return memberDTO{
		ID:               m.ID,
		Name:             m.Name,
		Email:            m.Email,
		Category:         string(m.Category),
		Status:           string(m.Status),
		SavingsTotal:     m.SavingsTotal,
		FixedTermTotal:   m.FixedTermTotal,
		CertificateTotal: m.CertificateTotal,
		LoansTotal:       m.LoansTotal,
		PenaltiesTotal:   m.PenaltiesTotal,
		AnnualProgress:   m.AnnualProgress,
		AnnualTarget:     m.AnnualTarget,
		Carryover:        m.Carryover,
		NetPosition:      m.NetPosition(),
		JoinedAt:         m.JoinedAt,
		CreatedAt:        m.CreatedAt,
	}
}

func (h *MemberHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	var joinedAt *time.Time
	if req.JoinedAt != "" {
		t, _ := rules.ParseFlexibleDate(req.JoinedAt)
		joinedAt = &t
	}

	m, err := h.members.CreateMember(r.Context(), req.Name, req.Email, joinedAt)
	if err != nil {
		logging.FromContext(r.Context()).Warn("member creation failed", "error", err)
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusCreated, toMemberDTO(m))
}

func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	members, err := h.members.ListMembers(r.Context())
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	dtos := make([]memberDTO, 0, len(members))
	for i := range members {
		dtos = append(dtos, toMemberDTO(&members[i]))
	}
	RespondSuccess(w, http.StatusOK, dtos)
}

type categorizeRequest struct {
	FoundationDate string `json:"foundation_date"`
}

func (h *MemberHandler) Categorize(w http.ResponseWriter, r *http.Request) {
	var req categorizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if req.FoundationDate == "" {
		RespondValidationError(w, []FieldError{{Field: "foundation_date", Message: "required"}})
		return
	}

	foundation, err := rules.ParseFlexibleDate(req.FoundationDate)
	if err != nil {
		RespondValidationError(w, []FieldError{{Field: "foundation_date", Message: "unrecognized date format"}})
		return
	}

	result, err := h.members.CategorizeMembers(r.Context(), foundation)
	if err != nil {
		logging.FromContext(r.Context()).Warn("member categorization failed", "error", err)
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, result)
}

type movementDTO struct {
	ID          uuid.UUID `json:"id"`
	MemberID    uuid.UUID `json:"member_id"`
	Kind        string    `json:"kind"`
	ReferenceID uuid.UUID `json:"reference_id"`
	Amount      int64     `json:"amount"`
	Description string    `json:"description,omitempty"`
	RecordedBy  uuid.UUID `json:"recorded_by"`
	CreatedAt   time.Time `json:"created_at"`
}

func toMovementDTO(m *domain.Movement) movementDTO {
	return movementDTO{
		ID:          m.ID,
		MemberID:    m.MemberID,
		Kind:        string(m.Kind),
		ReferenceID: m.ReferenceID,
		Amount:      m.Amount,
		Description: m.Description,
		RecordedBy:  m.RecordedBy,
		CreatedAt:   m.CreatedAt,
	}
}

func (h *MemberHandler) Movements(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.ClaimsFromContext(r.Context()); !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	memberID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			offset = n
		}
	}

	movements, total, err := h.movements.ListByMember(r.Context(), memberID, limit, offset)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	dtos := make([]movementDTO, 0, len(movements))
	for i := range movements {
		dtos = append(dtos, toMovementDTO(&movements[i]))
	}
	RespondSuccess(w, http.StatusOK, map[string]any{
		"movements": dtos,
		"total":     total,
		"limit":     limit,
		"offset":    offset,
	})
}

// RecentMovements is the cooperative-wide activity feed, newest first.
func (h *MemberHandler) RecentMovements(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	movements, err := h.movements.ListRecent(r.Context(), limit)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	dtos := make([]movementDTO, 0, len(movements))
	for i := range movements {
		dtos = append(dtos, toMovementDTO(&movements[i]))
	}
	RespondSuccess(w, http.StatusOK, dtos)
}
