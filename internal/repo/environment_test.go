package repo

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestEnvironmentRepo_FailStranded(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`UPDATE environments SET status = 'failed', error = \$1\s+WHERE status IN \('requested', 'provisioning'\)`).
		WithArgs("provisioning interrupted by server restart").
		WillReturnResult(sqlmock.NewResult(0, 2))

	repo := NewEnvironmentRepo(db)
	n, err := repo.FailStranded(context.Background(), "provisioning interrupted by server restart")
	if err != nil {
		t.Fatalf("FailStranded: %v", err)
	}
	if n != 2 {
		t.Errorf("swept = %d, want 2", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestEnvironmentRepo_FailStranded_NothingToSweep(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`UPDATE environments SET status = 'failed'`).
		WithArgs("restart").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewEnvironmentRepo(db)
	n, err := repo.FailStranded(context.Background(), "restart")
	if err != nil {
		t.Fatalf("FailStranded: %v", err)
	}
	if n != 0 {
		t.Errorf("swept = %d, want 0", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}
