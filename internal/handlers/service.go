package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/devplane-io/devplane/internal/middleware"
	"github.com/devplane-io/devplane/internal/models"
	"github.com/devplane-io/devplane/internal/repo"
	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
)

// ServiceHandler serves the service registry endpoints.
type ServiceHandler struct {
	Repo  *repo.ServiceRepo
	Audit *repo.AuditRepo
}

type serviceInput struct {
	Name      string `json:"name" validate:"required,min=2,max=255"`
	Owner     string `json:"owner" validate:"required,max=255"`
	RepoURL   string `json:"repo_url" validate:"omitempty,url,max=1024"`
	Tier      int    `json:"tier" validate:"gte=1,lte=3"`
	Lifecycle string `json:"lifecycle"`
}

func (h *ServiceHandler) CreateService(w http.ResponseWriter, r *http.Request) {
	var input serviceInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		JSONError(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if input.Tier == 0 {
		input.Tier = 3
	}
	if input.Lifecycle == "" {
		input.Lifecycle = models.LifecycleExperimental
	}

	validate := validator.New()
	if err := validate.Struct(input); err != nil {
		JSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !models.ValidLifecycle(input.Lifecycle) {
		JSONValidationError(w, "validation failed",
			map[string]string{"lifecycle": "must be experimental, production, or deprecated"},
			http.StatusBadRequest)
		return
	}

	svc, err := h.Repo.Create(r.Context(), input.Name, input.Owner, input.RepoURL, input.Tier, input.Lifecycle)
	if err != nil {
		if e, ok := err.(*pq.Error); ok && e.Code == "23505" {
			JSONError(w, "service name already registered", http.StatusConflict)
			return
		}
		JSONError(w, "failed to create service", http.StatusInternalServerError)
		return
	}

	_ = h.Audit.Log(r.Context(), middleware.UserID(r.Context()), "create", "service", svc.ID, svc.Name)
	writeJSON(w, http.StatusCreated, svc)
}

func (h *ServiceHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r, 50, 200)
	services, err := h.Repo.List(r.Context(), limit, offset)
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, services)
}

func (h *ServiceHandler) GetService(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		JSONError(w, "invalid service id", http.StatusBadRequest)
		return
	}
	svc, err := h.Repo.GetByID(r.Context(), id)
	if err != nil {
		if err == repo.ErrServiceNotFound {
			JSONError(w, "service not found", http.StatusNotFound)
			return
		}
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, svc)
}

func (h *ServiceHandler) UpdateService(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		JSONError(w, "invalid service id", http.StatusBadRequest)
		return
	}

	var input struct {
		Owner     string `json:"owner" validate:"required,max=255"`
		RepoURL   string `json:"repo_url" validate:"omitempty,url,max=1024"`
		Tier      int    `json:"tier" validate:"gte=1,lte=3"`
		Lifecycle string `json:"lifecycle"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		JSONError(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if input.Tier == 0 {
		input.Tier = 3
	}

	validate := validator.New()
	if err := validate.Struct(input); err != nil {
		JSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !models.ValidLifecycle(input.Lifecycle) {
		JSONValidationError(w, "validation failed",
			map[string]string{"lifecycle": "must be experimental, production, or deprecated"},
			http.StatusBadRequest)
		return
	}

	svc, err := h.Repo.Update(r.Context(), id, input.Owner, input.RepoURL, input.Tier, input.Lifecycle)
	if err != nil {
		if err == repo.ErrServiceNotFound {
			JSONError(w, "service not found", http.StatusNotFound)
			return
		}
		JSONError(w, "failed to update service", http.StatusInternalServerError)
		return
	}

	_ = h.Audit.Log(r.Context(), middleware.UserID(r.Context()), "update", "service", svc.ID, svc.Name)
	writeJSON(w, http.StatusOK, svc)
}

// DeleteService rejects deletion while deployments or incidents still
// reference the service.
func (h *ServiceHandler) DeleteService(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		JSONError(w, "invalid service id", http.StatusBadRequest)
		return
	}

	if err := h.Repo.Delete(r.Context(), id); err != nil {
		switch err {
		case repo.ErrServiceNotFound:
			JSONError(w, "service not found", http.StatusNotFound)
		case repo.ErrServiceHasHistory:
			JSONError(w, "service has deployments or incidents", http.StatusConflict)
		default:
			JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		}
		return
	}

	_ = h.Audit.Log(r.Context(), middleware.UserID(r.Context()), "delete", "service", id, "")
	w.WriteHeader(http.StatusNoContent)
}
