package handler

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"
)

type HealthHandler struct {
	db *sql.DB
}

func NewHealthHandler(db *sql.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"version":   "1.0.0",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Readiness checks the database and that the cash ledger row has been
// seeded. Approvals cannot run against an unmigrated database, so a
// missing ledger row means the instance is not ready to take traffic.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{
		"database":    "ok",
		"cash_ledger": "ok",
	}
	httpStatus := http.StatusOK

	if err := h.db.PingContext(r.Context()); err != nil {
		slog.Warn("readiness check failed: database unreachable", "error", err)
		checks["database"] = "down"
		checks["cash_ledger"] = "unknown"
		httpStatus = http.StatusServiceUnavailable
	} else {
		var n int
		err := h.db.QueryRowContext(r.Context(),
			`SELECT COUNT(*) FROM cash_ledger WHERE id = 1`).Scan(&n)
		if err != nil || n == 0 {
			slog.Warn("readiness check failed: cash ledger not seeded", "error", err)
			checks["cash_ledger"] = "down"
			httpStatus = http.StatusServiceUnavailable
		}
	}

	overallStatus := "ok"
	if httpStatus != http.StatusOK {
		overallStatus = "down"
	}

	RespondJSON(w, httpStatus, map[string]any{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}
