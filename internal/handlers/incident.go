package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/devplane-io/devplane/internal/metrics"
	"github.com/devplane-io/devplane/internal/middleware"
	"github.com/devplane-io/devplane/internal/models"
	"github.com/devplane-io/devplane/internal/postmortem"
	"github.com/devplane-io/devplane/internal/repo"
)

// IncidentHandler serves incident lifecycle and postmortem endpoints.
type IncidentHandler struct {
	Repo     *repo.IncidentRepo
	Services *repo.ServiceRepo
	Audit    *repo.AuditRepo
}

// OpenIncident declares a new incident against a service.
func (h *IncidentHandler) OpenIncident(w http.ResponseWriter, r *http.Request) {
	var input struct {
		ServiceID  int        `json:"service_id"`
		Title      string     `json:"title"`
		Severity   string     `json:"severity"`
		Summary    string     `json:"summary"`
		DetectedAt *time.Time `json:"detected_at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		JSONError(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	fields := make(map[string]string)
	if input.ServiceID <= 0 {
		fields["service_id"] = "required"
	}
	if input.Title == "" {
		fields["title"] = "required"
	}
	if !models.ValidSeverity(input.Severity) {
		fields["severity"] = "must be sev1, sev2, sev3, or sev4"
	}
	if len(fields) > 0 {
		JSONValidationError(w, "validation failed", fields, http.StatusBadRequest)
		return
	}

	if _, err := h.Services.GetByID(r.Context(), input.ServiceID); err != nil {
		if err == repo.ErrServiceNotFound {
			JSONError(w, "service not found", http.StatusNotFound)
			return
		}
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	detected := time.Now()
	if input.DetectedAt != nil {
		detected = *input.DetectedAt
	}

	in, err := h.Repo.Create(r.Context(), input.ServiceID, input.Title, input.Severity,
		input.Summary, detected, middleware.UserID(r.Context()))
	if err != nil {
		JSONError(w, "failed to open incident", http.StatusInternalServerError)
		return
	}

	metrics.IncidentsOpen.Inc()
	_ = h.Audit.Log(r.Context(), middleware.UserID(r.Context()), "create", "incident", in.ID, in.Title)
	writeJSON(w, http.StatusCreated, in)
}

// UpdateIncident appends a timeline update and advances the status.
func (h *IncidentHandler) UpdateIncident(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		JSONError(w, "invalid incident id", http.StatusBadRequest)
		return
	}

	var input struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		JSONError(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	fields := make(map[string]string)
	if !models.ValidStatus(input.Status) {
		fields["status"] = "must be open, acknowledged, mitigated, or resolved"
	}
	if input.Message == "" {
		fields["message"] = "required"
	}
	if len(fields) > 0 {
		JSONValidationError(w, "validation failed", fields, http.StatusBadRequest)
		return
	}

	in, prior, err := h.Repo.AddUpdate(r.Context(), id, input.Status, input.Message,
		middleware.Username(r.Context()))
	if err != nil {
		switch err {
		case repo.ErrIncidentNotFound:
			JSONError(w, "incident not found", http.StatusNotFound)
		case repo.ErrStatusBackward:
			JSONError(w, "incident status cannot move backward", http.StatusConflict)
		default:
			JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		}
		return
	}

	// Equal-status annotations must not move the gauge.
	if in.Status == models.IncidentResolved && prior != models.IncidentResolved {
		metrics.IncidentsOpen.Dec()
	}
	_ = h.Audit.Log(r.Context(), middleware.UserID(r.Context()), "update", "incident", in.ID, in.Status)
	writeJSON(w, http.StatusOK, in)
}

func (h *IncidentHandler) GetIncident(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		JSONError(w, "invalid incident id", http.StatusBadRequest)
		return
	}
	in, err := h.Repo.GetByID(r.Context(), id)
	if err != nil {
		if err == repo.ErrIncidentNotFound {
			JSONError(w, "incident not found", http.StatusNotFound)
			return
		}
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	updates, err := h.Repo.Updates(r.Context(), id)
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"incident": in,
		"updates":  updates,
	})
}

// ListIncidents supports ?service_id=, ?status=, ?severity=, ?since=.
func (h *IncidentHandler) ListIncidents(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r, 50, 200)

	var f repo.IncidentFilter
	if s := r.URL.Query().Get("service_id"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			f.ServiceID = n
		}
	}
	f.Status = r.URL.Query().Get("status")
	f.Severity = r.URL.Query().Get("severity")
	if s := r.URL.Query().Get("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			JSONError(w, "since must be RFC 3339", http.StatusBadRequest)
			return
		}
		f.Since = t
	}

	incidents, err := h.Repo.List(r.Context(), f, limit, offset)
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, incidents)
}

// Postmortem renders the markdown postmortem for a resolved incident.
func (h *IncidentHandler) Postmortem(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		JSONError(w, "invalid incident id", http.StatusBadRequest)
		return
	}

	in, err := h.Repo.GetByID(r.Context(), id)
	if err != nil {
		if err == repo.ErrIncidentNotFound {
			JSONError(w, "incident not found", http.StatusNotFound)
			return
		}
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	svc, err := h.Services.GetByID(r.Context(), in.ServiceID)
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	updates, err := h.Repo.Updates(r.Context(), id)
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	doc, err := postmortem.Render(in, svc.Name, updates)
	if err != nil {
		if err == postmortem.ErrNotResolved {
			JSONError(w, "incident is not resolved yet", http.StatusConflict)
			return
		}
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Write([]byte(doc))
}
