package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/devplane-io/devplane/internal/repo"
)

func newScheduleHandler(t *testing.T) (*ScheduleHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &ScheduleHandler{
		Repo:     repo.NewScheduleRepo(db),
		Services: repo.NewServiceRepo(db),
		Audit:    repo.NewAuditRepo(db),
	}, mock
}

var mockScheduleCols = []string{"id", "service_id", "cron_expr", "window_days", "enabled", "created_at"}

func TestUpdateSchedule(t *testing.T) {
	h, mock := newScheduleHandler(t)

	now := time.Now()
	mock.ExpectExec(`UPDATE schedules SET cron_expr = \$1, window_days = \$2, enabled = \$3 WHERE id = \$4`).
		WithArgs("0 7 * * 1", 14, true, 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`FROM schedules WHERE id = \$1`).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows(mockScheduleCols).
			AddRow(3, 1, "0 7 * * 1", 14, true, now))
	mock.ExpectExec(`INSERT INTO audit_log`).
		WithArgs(0, "update", "schedule", 3, "0 7 * * 1").
		WillReturnResult(sqlmock.NewResult(1, 1))

	req := requestWithChiURLParams("PUT", "/schedules/3",
		jsonBody(`{"cron_expr":"0 7 * * 1","window_days":14}`),
		map[string]string{"id": "3"})
	rec := httptest.NewRecorder()
	h.UpdateSchedule(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestUpdateSchedule_NotFound(t *testing.T) {
	h, mock := newScheduleHandler(t)

	mock.ExpectExec(`UPDATE schedules SET cron_expr = \$1, window_days = \$2, enabled = \$3 WHERE id = \$4`).
		WithArgs("0 7 * * 1", 14, true, 99).
		WillReturnResult(sqlmock.NewResult(0, 0))

	req := requestWithChiURLParams("PUT", "/schedules/99",
		jsonBody(`{"cron_expr":"0 7 * * 1","window_days":14}`),
		map[string]string{"id": "99"})
	rec := httptest.NewRecorder()
	h.UpdateSchedule(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "schedule not found") {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestCreateSchedule_InvalidCron(t *testing.T) {
	h, _ := newScheduleHandler(t)

	req := httptest.NewRequest("POST", "/schedules", jsonBody(
		`{"service_id":1,"cron_expr":"not a cron"}`))
	rec := httptest.NewRecorder()
	h.CreateSchedule(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "cron_expr") {
		t.Errorf("expected cron_expr in error, got %s", rec.Body.String())
	}
}
