package handler

import (
	"context"
	"net/http"

	"github.com/cajacoop/admin-api/internal/service/approval"
)

type cashService interface {
	CashBalance(ctx context.Context) (*approval.CashBreakdown, error)
}

type CashHandler struct {
	cash cashService
}

func NewCashHandler(cash cashService) *CashHandler {
	return &CashHandler{cash: cash}
}

// Balance reports both the stored cash position and the figure recomputed
// from member balances, so operators can spot drift at a glance.
func (h *CashHandler) Balance(w http.ResponseWriter, r *http.Request) {
	breakdown, err := h.cash.CashBalance(r.Context())
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, breakdown)
}
