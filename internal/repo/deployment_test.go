package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/devplane-io/devplane/internal/models"
)

func TestDeploymentRepo_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	commit := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	started := commit.Add(2 * time.Hour)
	finished := commit.Add(3 * time.Hour)

	mock.ExpectQuery(`INSERT INTO deployments`).
		WithArgs(1, "prod", "v1.4.0", "abc123", commit, started, finished, "succeeded").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "service_id", "environment", "version", "commit_sha",
			"commit_at", "started_at", "finished_at", "status",
		}).AddRow(10, 1, "prod", "v1.4.0", "abc123", commit, started, finished, "succeeded"))

	repo := NewDeploymentRepo(db)
	d, err := repo.Create(context.Background(), models.Deployment{
		ServiceID:   1,
		Environment: "prod",
		Version:     "v1.4.0",
		CommitSHA:   "abc123",
		CommitAt:    commit,
		StartedAt:   started,
		FinishedAt:  finished,
		Status:      "succeeded",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if d.ID != 10 {
		t.Errorf("id = %d, want 10", d.ID)
	}
	if got := d.LeadTime(); got != 3*time.Hour {
		t.Errorf("lead time = %v, want 3h", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestDeploymentRepo_Create_NegativeLeadTime(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now()
	repo := NewDeploymentRepo(db)
	_, err = repo.Create(context.Background(), models.Deployment{
		ServiceID:  1,
		CommitAt:   now,
		FinishedAt: now.Add(-time.Minute),
	})
	if !errors.Is(err, ErrNegativeLeadTime) {
		t.Fatalf("expected ErrNegativeLeadTime, got %v", err)
	}
	// No SQL should have been issued.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestDeploymentRepo_ListWindow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	to := time.Now()
	from := to.AddDate(0, 0, -7)
	finished := to.Add(-time.Hour)

	mock.ExpectQuery(`SELECT .+ FROM deployments\s+WHERE service_id = \$1 AND finished_at >= \$2`).
		WithArgs(2, from, to).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "service_id", "environment", "version", "commit_sha",
			"commit_at", "started_at", "finished_at", "status",
		}).AddRow(1, 2, "prod", "v2.0.1", "def456", finished.Add(-time.Hour), finished.Add(-10*time.Minute), finished, "succeeded"))

	repo := NewDeploymentRepo(db)
	list, err := repo.ListWindow(context.Background(), 2, from, to)
	if err != nil {
		t.Fatalf("ListWindow: %v", err)
	}
	if len(list) != 1 || list[0].Version != "v2.0.1" {
		t.Errorf("unexpected window: %+v", list)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}
