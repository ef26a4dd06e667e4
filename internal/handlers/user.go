package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/devplane-io/devplane/internal/middleware"
	"github.com/devplane-io/devplane/internal/models"
	"github.com/devplane-io/devplane/internal/repo"
)

// UserHandler serves user administration endpoints (admin only).
type UserHandler struct {
	Repo  *repo.UserRepo
	Audit *repo.AuditRepo
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r, 50, 200)
	users, err := h.Repo.List(r.Context(), limit, offset)
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// CreateUser creates a user with an explicit role.
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		JSONError(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	fields := make(map[string]string)
	if input.Username == "" {
		fields["username"] = "required"
	}
	if input.Role != "" && !models.RoleAtLeast(input.Role, models.RoleViewer) {
		fields["role"] = "must be viewer, editor, or admin"
	}
	if len(fields) > 0 {
		JSONValidationError(w, "validation failed", fields, http.StatusBadRequest)
		return
	}

	user, err := h.Repo.Create(r.Context(), input.Username, input.Password, input.Role)
	if err != nil {
		JSONError(w, "failed to create user", http.StatusInternalServerError)
		return
	}
	_ = h.Audit.Log(r.Context(), middleware.UserID(r.Context()), "create", "user", user.ID, user.Username)
	writeJSON(w, http.StatusCreated, user)
}

func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		JSONError(w, "invalid user id", http.StatusBadRequest)
		return
	}
	if err := h.Repo.Delete(r.Context(), id); err != nil {
		if err == repo.ErrUserNotFound {
			JSONError(w, "user not found", http.StatusNotFound)
			return
		}
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	_ = h.Audit.Log(r.Context(), middleware.UserID(r.Context()), "delete", "user", id, "")
	w.WriteHeader(http.StatusNoContent)
}
