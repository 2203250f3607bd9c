package handler

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/cajacoop/admin-api/internal/logging"
)

type reportService interface {
	WriteMembersCSV(ctx context.Context, w io.Writer) error
}

type ReportHandler struct {
	reports reportService
}

func NewReportHandler(reports reportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

func (h *ReportHandler) MembersCSV(w http.ResponseWriter, r *http.Request) {
	filename := "members-" + time.Now().UTC().Format("2006-01-02") + ".csv"
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	if err := h.reports.WriteMembersCSV(r.Context(), w); err != nil {
		// Headers are already out; all we can do is log.
		logging.FromContext(r.Context()).Error("members report failed", "error", err)
	}
}
