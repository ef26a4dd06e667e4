package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/devplane-io/devplane/internal/metrics"
	"github.com/devplane-io/devplane/internal/models"
	"github.com/devplane-io/devplane/internal/repo"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newIncidentHandler(t *testing.T) (*IncidentHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &IncidentHandler{
		Repo:     repo.NewIncidentRepo(db),
		Services: repo.NewServiceRepo(db),
		Audit:    repo.NewAuditRepo(db),
	}, mock
}

var mockIncidentCols = []string{
	"id", "service_id", "title", "severity", "status", "summary",
	"detected_at", "resolved_at", "created_by", "created_at",
}

var mockServiceCols = []string{"id", "name", "owner", "repo_url", "tier", "lifecycle", "created_at"}

func TestOpenIncident(t *testing.T) {
	h, mock := newIncidentHandler(t)

	now := time.Now()
	mock.ExpectQuery(`FROM services WHERE id = \$1`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(mockServiceCols).
			AddRow(1, "checkout", "payments-team", "", 1, "ga", now))
	mock.ExpectQuery(`INSERT INTO incidents`).
		WillReturnRows(sqlmock.NewRows(mockIncidentCols).
			AddRow(5, 1, "checkout 500s", "sev2", "open", "error rate spike", now, nil, 0, now))
	mock.ExpectExec(`INSERT INTO audit_log`).
		WithArgs(0, "create", "incident", 5, "checkout 500s").
		WillReturnResult(sqlmock.NewResult(1, 1))

	req := httptest.NewRequest("POST", "/incidents", jsonBody(
		`{"service_id":1,"title":"checkout 500s","severity":"sev2","summary":"error rate spike"}`))
	rec := httptest.NewRecorder()
	h.OpenIncident(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var got models.Incident
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != 5 || got.Status != models.IncidentOpen {
		t.Errorf("unexpected incident: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestOpenIncident_BadSeverity(t *testing.T) {
	h, _ := newIncidentHandler(t)

	req := httptest.NewRequest("POST", "/incidents", jsonBody(
		`{"service_id":1,"title":"x","severity":"critical"}`))
	rec := httptest.NewRecorder()
	h.OpenIncident(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "severity") {
		t.Errorf("expected severity in error, got %s", rec.Body.String())
	}
}

func TestUpdateIncident_Backward(t *testing.T) {
	h, mock := newIncidentHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status FROM incidents WHERE id = \$1 FOR UPDATE`).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("resolved"))
	mock.ExpectRollback()

	req := requestWithChiURLParams("POST", "/incidents/7/updates",
		jsonBody(`{"status":"mitigated","message":"rollback"}`),
		map[string]string{"id": "7"})
	rec := httptest.NewRecorder()
	h.UpdateIncident(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409, body = %s", rec.Code, rec.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestUpdateIncident_Forward(t *testing.T) {
	h, mock := newIncidentHandler(t)

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status FROM incidents WHERE id = \$1 FOR UPDATE`).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("open"))
	mock.ExpectExec(`INSERT INTO incident_updates`).
		WithArgs(7, "acknowledged", "on it", "").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(`UPDATE incidents`).
		WithArgs("acknowledged", 7).
		WillReturnRows(sqlmock.NewRows(mockIncidentCols).
			AddRow(7, 1, "checkout 500s", "sev2", "acknowledged", "", now, nil, 0, now))
	mock.ExpectCommit()
	mock.ExpectExec(`INSERT INTO audit_log`).
		WithArgs(0, "update", "incident", 7, "acknowledged").
		WillReturnResult(sqlmock.NewResult(1, 1))

	req := requestWithChiURLParams("POST", "/incidents/7/updates",
		jsonBody(`{"status":"acknowledged","message":"on it"}`),
		map[string]string{"id": "7"})
	rec := httptest.NewRecorder()
	h.UpdateIncident(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

// expectResolvedUpdate queues the statements AddUpdate issues when an
// incident already at fromStatus takes a resolved update.
func expectResolvedUpdate(mock sqlmock.Sqlmock, id int, fromStatus, message string, now time.Time) {
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status FROM incidents WHERE id = \$1 FOR UPDATE`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(fromStatus))
	mock.ExpectExec(`INSERT INTO incident_updates`).
		WithArgs(id, "resolved", message, "").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(`UPDATE incidents`).
		WithArgs("resolved", id).
		WillReturnRows(sqlmock.NewRows(mockIncidentCols).
			AddRow(id, 1, "checkout 500s", "sev2", "resolved", "", now, now, 0, now))
	mock.ExpectCommit()
	mock.ExpectExec(`INSERT INTO audit_log`).
		WithArgs(0, "update", "incident", id, "resolved").
		WillReturnResult(sqlmock.NewResult(1, 1))
}

func TestUpdateIncident_ResolvedGaugeMovesOnce(t *testing.T) {
	h, mock := newIncidentHandler(t)

	now := time.Now()
	expectResolvedUpdate(mock, 7, "mitigated", "fix deployed", now)
	expectResolvedUpdate(mock, 7, "resolved", "follow-up notes", now)
	expectResolvedUpdate(mock, 7, "resolved", "more notes", now)

	before := testutil.ToFloat64(metrics.IncidentsOpen)

	post := func(body string) {
		t.Helper()
		req := requestWithChiURLParams("POST", "/incidents/7/updates",
			jsonBody(body), map[string]string{"id": "7"})
		rec := httptest.NewRecorder()
		h.UpdateIncident(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
	}

	post(`{"status":"resolved","message":"fix deployed"}`)
	if got := testutil.ToFloat64(metrics.IncidentsOpen); got != before-1 {
		t.Fatalf("gauge after transition = %v, want %v", got, before-1)
	}

	// Annotations on an already-resolved incident must leave the gauge alone.
	post(`{"status":"resolved","message":"follow-up notes"}`)
	post(`{"status":"resolved","message":"more notes"}`)
	if got := testutil.ToFloat64(metrics.IncidentsOpen); got != before-1 {
		t.Errorf("gauge after annotations = %v, want %v", got, before-1)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestPostmortem_NotResolved(t *testing.T) {
	h, mock := newIncidentHandler(t)

	now := time.Now()
	mock.ExpectQuery(`FROM incidents WHERE id = \$1`).
		WithArgs(4).
		WillReturnRows(sqlmock.NewRows(mockIncidentCols).
			AddRow(4, 1, "search latency", "sev3", "mitigated", "", now, nil, 0, now))
	mock.ExpectQuery(`FROM services WHERE id = \$1`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(mockServiceCols).
			AddRow(1, "search", "search-team", "", 2, "ga", now))
	mock.ExpectQuery(`FROM incident_updates WHERE incident_id = \$1`).
		WithArgs(4).
		WillReturnRows(sqlmock.NewRows([]string{"id", "incident_id", "status", "message", "author", "created_at"}))

	req := requestWithChiURLParams("GET", "/incidents/4/postmortem", nil, map[string]string{"id": "4"})
	rec := httptest.NewRecorder()
	h.Postmortem(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409, body = %s", rec.Code, rec.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestPostmortem_Resolved(t *testing.T) {
	h, mock := newIncidentHandler(t)

	detected := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	resolved := detected.Add(90 * time.Minute)
	mock.ExpectQuery(`FROM incidents WHERE id = \$1`).
		WithArgs(4).
		WillReturnRows(sqlmock.NewRows(mockIncidentCols).
			AddRow(4, 1, "search latency", "sev3", "resolved", "cache cold", detected, resolved, 0, detected))
	mock.ExpectQuery(`FROM services WHERE id = \$1`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(mockServiceCols).
			AddRow(1, "search", "search-team", "", 2, "ga", detected))
	mock.ExpectQuery(`FROM incident_updates WHERE incident_id = \$1`).
		WithArgs(4).
		WillReturnRows(sqlmock.NewRows([]string{"id", "incident_id", "status", "message", "author", "created_at"}).
			AddRow(1, 4, "resolved", "cache warmed", "priya", resolved))

	req := requestWithChiURLParams("GET", "/incidents/4/postmortem", nil, map[string]string{"id": "4"})
	rec := httptest.NewRecorder()
	h.Postmortem(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/markdown") {
		t.Errorf("content type = %q", ct)
	}
	body := rec.Body.String()
	for _, want := range []string{"INC-4", "search", "sev3", "priya"} {
		if !strings.Contains(body, want) {
			t.Errorf("postmortem missing %q", want)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}
