package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/devplane-io/devplane/internal/middleware"
	"github.com/devplane-io/devplane/internal/models"
	"github.com/devplane-io/devplane/internal/provision"
	"github.com/devplane-io/devplane/internal/repo"
	"github.com/lib/pq"
)

// EnvironmentHandler serves self-service environment provisioning.
type EnvironmentHandler struct {
	Repo   *repo.EnvironmentRepo
	Engine *provision.Engine
	Audit  *repo.AuditRepo
}

// RequestEnvironment records the request and starts the async provisioning job.
func (h *EnvironmentHandler) RequestEnvironment(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name     string `json:"name"`
		Team     string `json:"team"`
		CPULimit string `json:"cpu_limit"`
		MemLimit string `json:"mem_limit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		JSONError(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	fields := make(map[string]string)
	if err := provision.ValidateName(input.Name); err != nil {
		fields["name"] = err.Error()
	}
	if input.Team == "" {
		fields["team"] = "required"
	}
	if err := provision.ValidateQuota(input.CPULimit, input.MemLimit); err != nil {
		fields["quota"] = err.Error()
	}
	if len(fields) > 0 {
		JSONValidationError(w, "validation failed", fields, http.StatusBadRequest)
		return
	}

	env, err := h.Repo.Create(r.Context(), input.Name, input.Team, input.CPULimit, input.MemLimit)
	if err != nil {
		if e, ok := err.(*pq.Error); ok && e.Code == "23505" {
			JSONError(w, "environment name already requested", http.StatusConflict)
			return
		}
		JSONError(w, "failed to create environment", http.StatusInternalServerError)
		return
	}

	if err := h.Engine.Start(env); err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	_ = h.Audit.Log(r.Context(), middleware.UserID(r.Context()), "create", "environment", env.ID, env.Name)
	writeJSON(w, http.StatusAccepted, env)
}

// GetEnvironment returns the persisted provisioning state.
func (h *EnvironmentHandler) GetEnvironment(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		JSONError(w, "invalid environment id", http.StatusBadRequest)
		return
	}

	env, err := h.Repo.GetByID(r.Context(), id)
	if err != nil {
		if err == repo.ErrEnvironmentNotFound {
			JSONError(w, "environment not found", http.StatusNotFound)
			return
		}
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, env)
}

func (h *EnvironmentHandler) ListEnvironments(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r, 50, 200)
	envs, err := h.Repo.List(r.Context(), limit, offset)
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, envs)
}

// CancelEnvironment cancels an in-flight provisioning job. Steps already
// applied are not rolled back.
func (h *EnvironmentHandler) CancelEnvironment(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		JSONError(w, "invalid environment id", http.StatusBadRequest)
		return
	}

	env, err := h.Repo.GetByID(r.Context(), id)
	if err != nil {
		if err == repo.ErrEnvironmentNotFound {
			JSONError(w, "environment not found", http.StatusNotFound)
			return
		}
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	switch env.Status {
	case models.EnvStatusRequested, models.EnvStatusProvisioning:
	default:
		JSONError(w, "environment is not provisioning", http.StatusConflict)
		return
	}

	if !h.Engine.Cancel(id) {
		JSONError(w, "no provisioning job running", http.StatusConflict)
		return
	}

	_ = h.Audit.Log(r.Context(), middleware.UserID(r.Context()), "cancel", "environment", id, "")
	writeJSON(w, http.StatusOK, map[string]string{"status": "canceling"})
}
