package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/devplane-io/devplane/internal/dora"
	"github.com/devplane-io/devplane/internal/repo"
)

// DoraHandler computes delivery metrics on demand and lists stored snapshots.
type DoraHandler struct {
	Deployments *repo.DeploymentRepo
	Incidents   *repo.IncidentRepo
	Services    *repo.ServiceRepo
	Reports     *repo.ReportRepo
}

// Metrics computes the four delivery metrics for a service over a window.
// Query: service_id (required), days (default 30, max 365).
func (h *DoraHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	serviceID, err := strconv.Atoi(r.URL.Query().Get("service_id"))
	if err != nil || serviceID <= 0 {
		JSONError(w, "service_id is required", http.StatusBadRequest)
		return
	}

	days := 30
	if d := r.URL.Query().Get("days"); d != "" {
		if n, err := strconv.Atoi(d); err == nil && n > 0 && n <= 365 {
			days = n
		}
	}

	if _, err := h.Services.GetByID(r.Context(), serviceID); err != nil {
		if err == repo.ErrServiceNotFound {
			JSONError(w, "service not found", http.StatusNotFound)
			return
		}
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	to := time.Now()
	from := to.AddDate(0, 0, -days)

	deploys, err := h.Deployments.ListWindow(r.Context(), serviceID, from, to)
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	resolved, err := h.Incidents.ListResolvedWindow(r.Context(), serviceID, from, to)
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, dora.Compute(serviceID, days, from, to, deploys, resolved))
}

// ListReports returns stored snapshots. Query: service_id (optional), limit, offset.
func (h *DoraHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r, 50, 200)

	serviceID := 0
	if s := r.URL.Query().Get("service_id"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			serviceID = n
		}
	}

	reports, err := h.Reports.List(r.Context(), serviceID, limit, offset)
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}
