package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/cajacoop/admin-api/internal/auth"
	"github.com/cajacoop/admin-api/internal/logging"
	"github.com/cajacoop/admin-api/internal/rules"
	"github.com/cajacoop/admin-api/internal/service"
)

type cutoverService interface {
	YearCutover(ctx context.Context, adminID uuid.UUID, cutover time.Time) (*service.CutoverResult, error)
}

type CutoverHandler struct {
	cutover cutoverService
}

func NewCutoverHandler(cutover cutoverService) *CutoverHandler {
	return &CutoverHandler{cutover: cutover}
}

type cutoverRequest struct {
	Cutover string `json:"cutover"`
}

// Run closes the savings year. The cutover instant defaults to now, which
// is what the cooperative uses in practice on January 1st.
func (h *CutoverHandler) Run(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req cutoverRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	cutover := time.Now().UTC()
	if req.Cutover != "" {
		t, err := rules.ParseFlexibleDate(req.Cutover)
		if err != nil {
			RespondValidationError(w, []FieldError{{Field: "cutover", Message: "unrecognized date format"}})
			return
		}
		cutover = t
	}

	result, err := h.cutover.YearCutover(r.Context(), claims.AdminID, cutover)
	if err != nil {
		logging.FromContext(r.Context()).Warn("year cutover failed", "error", err)
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, result)
}
