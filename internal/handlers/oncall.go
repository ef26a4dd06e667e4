package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/devplane-io/devplane/internal/oncall"
)

// OnCallHandler resolves responders from the escalation policy file.
// Policy may be nil when no policy is configured.
type OnCallHandler struct {
	Policy *oncall.Policy
}

// Current answers who is on call for a service. Query: service (required),
// at (optional RFC 3339, default now).
func (h *OnCallHandler) Current(w http.ResponseWriter, r *http.Request) {
	if h.Policy == nil {
		JSONError(w, "no on-call policy configured", http.StatusNotFound)
		return
	}

	service := r.URL.Query().Get("service")
	if service == "" {
		JSONError(w, "service is required", http.StatusBadRequest)
		return
	}

	at := time.Now()
	if s := r.URL.Query().Get("at"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			JSONError(w, "at must be RFC 3339", http.StatusBadRequest)
			return
		}
		at = t
	}

	shift, err := h.Policy.At(service, at)
	if err != nil {
		var unknown oncall.ErrUnknownService
		if errors.As(err, &unknown) {
			JSONError(w, err.Error(), http.StatusNotFound)
			return
		}
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, shift)
}
