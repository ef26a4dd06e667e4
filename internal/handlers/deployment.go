package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/devplane-io/devplane/internal/models"
	"github.com/devplane-io/devplane/internal/repo"
)

// DeploymentHandler records and lists deployments.
type DeploymentHandler struct {
	Repo     *repo.DeploymentRepo
	Services *repo.ServiceRepo
}

// RecordDeployment is called by CI/CD after a deploy finishes.
func (h *DeploymentHandler) RecordDeployment(w http.ResponseWriter, r *http.Request) {
	var input struct {
		ServiceID   int       `json:"service_id"`
		Environment string    `json:"environment"`
		Version     string    `json:"version"`
		CommitSHA   string    `json:"commit_sha"`
		CommitAt    time.Time `json:"commit_at"`
		StartedAt   time.Time `json:"started_at"`
		FinishedAt  time.Time `json:"finished_at"`
		Status      string    `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		JSONError(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	fields := make(map[string]string)
	if input.ServiceID <= 0 {
		fields["service_id"] = "required"
	}
	if input.Environment == "" {
		fields["environment"] = "required"
	}
	if input.Version == "" {
		fields["version"] = "required"
	}
	if input.CommitAt.IsZero() {
		fields["commit_at"] = "required"
	}
	if input.FinishedAt.IsZero() {
		fields["finished_at"] = "required"
	}
	if !models.ValidDeployStatus(input.Status) {
		fields["status"] = "must be succeeded, failed, or rolled_back"
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

	if input.StartedAt.IsZero() {
		input.StartedAt = input.FinishedAt
	}

	d, err := h.Repo.Create(r.Context(), models.Deployment{
		ServiceID:   input.ServiceID,
		Environment: input.Environment,
		Version:     input.Version,
		CommitSHA:   input.CommitSHA,
		CommitAt:    input.CommitAt,
		StartedAt:   input.StartedAt,
		FinishedAt:  input.FinishedAt,
		Status:      input.Status,
	})
	if err != nil {
		if err == repo.ErrNegativeLeadTime {
			JSONValidationError(w, "validation failed",
				map[string]string{"finished_at": "must not precede commit_at"},
				http.StatusBadRequest)
			return
		}
		JSONError(w, "failed to record deployment", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, d)
}

// ListDeployments supports ?service_id=, ?environment=, ?since= (RFC 3339).
func (h *DeploymentHandler) ListDeployments(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r, 50, 200)

	var f repo.ListFilter
	if s := r.URL.Query().Get("service_id"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			f.ServiceID = n
		}
	}
	f.Environment = r.URL.Query().Get("environment")
	if s := r.URL.Query().Get("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			JSONError(w, "since must be RFC 3339", http.StatusBadRequest)
			return
		}
		f.Since = t
	}

	deploys, err := h.Repo.List(r.Context(), f, limit, offset)
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, deploys)
}
