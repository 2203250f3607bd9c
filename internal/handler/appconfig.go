package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/cajacoop/admin-api/internal/auth"
	"github.com/cajacoop/admin-api/internal/logging"
	"github.com/cajacoop/admin-api/internal/repository"
	"github.com/cajacoop/admin-api/internal/rules"
)

type configStore interface {
	GetPatch(ctx context.Context, name string) (*rules.PolicyPatch, error)
	Upsert(ctx context.Context, name string, patch *rules.PolicyPatch, updatedBy uuid.UUID) error
}

type ConfigHandler struct {
	store configStore
}

func NewConfigHandler(store configStore) *ConfigHandler {
	return &ConfigHandler{store: store}
}

func knownConfigName(name string) bool {
	return name == repository.ConfigNameGeneral || name == repository.ConfigNameParameters
}

// Get returns the effective policy after merging both stored layers over
// the built-in defaults, plus the raw layers themselves.
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	general, err := h.store.GetPatch(r.Context(), repository.ConfigNameGeneral)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	params, err := h.store.GetPatch(r.Context(), repository.ConfigNameParameters)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, map[string]any{
		"effective": rules.ResolvePolicy(general, params),
		"layers": map[string]any{
			repository.ConfigNameGeneral:    general,
			repository.ConfigNameParameters: params,
		},
	})
}

func (h *ConfigHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	name := r.PathValue("name")
	if !knownConfigName(name) {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	var patch rules.PolicyPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if err := h.store.Upsert(r.Context(), name, &patch, claims.AdminID); err != nil {
		logging.FromContext(r.Context()).Warn("config update failed", "error", err, "name", name)
		RespondDomainError(w, err)
		return
	}

	general, err := h.store.GetPatch(r.Context(), repository.ConfigNameGeneral)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	params, err := h.store.GetPatch(r.Context(), repository.ConfigNameParameters)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, rules.ResolvePolicy(general, params))
}
