package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/devplane-io/devplane/internal/middleware"
	"github.com/devplane-io/devplane/internal/repo"
	"github.com/robfig/cron/v3"
)

// ScheduleHandler handles report schedule CRUD.
type ScheduleHandler struct {
	Repo     *repo.ScheduleRepo
	Services *repo.ServiceRepo
	Audit    *repo.AuditRepo
}

type scheduleInput struct {
	ServiceID  int    `json:"service_id"`
	CronExpr   string `json:"cron_expr"`
	WindowDays int    `json:"window_days"`
	Enabled    *bool  `json:"enabled"`
}

func (h *ScheduleHandler) validate(in *scheduleInput) map[string]string {
	fields := make(map[string]string)
	if in.ServiceID <= 0 {
		fields["service_id"] = "required"
	}
	if in.CronExpr == "" {
		fields["cron_expr"] = "required"
	} else if _, err := cron.ParseStandard(in.CronExpr); err != nil {
		fields["cron_expr"] = "invalid cron expression"
	}
	if in.WindowDays == 0 {
		in.WindowDays = 30
	}
	if in.WindowDays < 1 || in.WindowDays > 365 {
		fields["window_days"] = "must be between 1 and 365"
	}
	return fields
}

// ListSchedules returns paginated schedules (query: limit, offset).
func (h *ScheduleHandler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r, 50, 100)

	list, err := h.Repo.List(r.Context(), limit, offset)
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, list)
}

// GetSchedule returns one schedule by id.
func (h *ScheduleHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		JSONError(w, "invalid schedule id", http.StatusBadRequest)
		return
	}

	s, err := h.Repo.GetByID(r.Context(), id)
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	if s == nil {
		JSONError(w, "schedule not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, s)
}

// CreateSchedule creates a schedule. Body: {"service_id": 1, "cron_expr": "0 6 * * 1", "window_days": 30, "enabled": true}.
func (h *ScheduleHandler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	var input scheduleInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		JSONError(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if fields := h.validate(&input); len(fields) > 0 {
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

	enabled := true
	if input.Enabled != nil {
		enabled = *input.Enabled
	}

	s, err := h.Repo.Create(r.Context(), input.ServiceID, input.CronExpr, input.WindowDays, enabled)
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	_ = h.Audit.Log(r.Context(), middleware.UserID(r.Context()), "create", "schedule", s.ID, s.CronExpr)
	writeJSON(w, http.StatusCreated, s)
}

// UpdateSchedule updates a schedule.
func (h *ScheduleHandler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		JSONError(w, "invalid schedule id", http.StatusBadRequest)
		return
	}

	var input scheduleInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		JSONError(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	// service_id is immutable on update
	fields := h.validate(&input)
	delete(fields, "service_id")
	if len(fields) > 0 {
		JSONValidationError(w, "validation failed", fields, http.StatusBadRequest)
		return
	}

	enabled := true
	if input.Enabled != nil {
		enabled = *input.Enabled
	}

	if err := h.Repo.Update(r.Context(), id, input.CronExpr, input.WindowDays, enabled); err != nil {
		if err == repo.ErrScheduleNotFound {
			JSONError(w, "schedule not found", http.StatusNotFound)
			return
		}
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	s, err := h.Repo.GetByID(r.Context(), id)
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	_ = h.Audit.Log(r.Context(), middleware.UserID(r.Context()), "update", "schedule", id, input.CronExpr)
	writeJSON(w, http.StatusOK, s)
}

// DeleteSchedule deletes a schedule.
func (h *ScheduleHandler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		JSONError(w, "invalid schedule id", http.StatusBadRequest)
		return
	}

	if err := h.Repo.Delete(r.Context(), id); err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	_ = h.Audit.Log(r.Context(), middleware.UserID(r.Context()), "delete", "schedule", id, "")
	w.WriteHeader(http.StatusNoContent)
}
