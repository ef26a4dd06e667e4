package handlers

import (
	"net/http"

	"github.com/devplane-io/devplane/internal/repo"
)

// AuditHandler serves audit log endpoints.
type AuditHandler struct {
	Repo *repo.AuditRepo
}

// ListAudit returns recent audit log entries. Query: limit (default 50), offset.
func (h *AuditHandler) ListAudit(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r, 50, 200)

	entries, err := h.Repo.List(r.Context(), limit, offset)
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}
