package repo

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/devplane-io/devplane/internal/models"
	"github.com/lib/pq"
)

func assetRows(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "type", "location", "owner", "description",
		"tags", "freshness_sla_hours", "last_validated", "created_at",
	}).AddRow(42, "orders", "table", "warehouse.sales.orders", "data-eng",
		"order facts", `{pii,core}`, 24, now, now)
}

func TestAssetRepo_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`INSERT INTO assets \(name, type, location, owner, description, tags, freshness_sla_hours\)`).
		WithArgs("orders", "table", "warehouse.sales.orders", "data-eng", "order facts",
			pq.Array([]string{"pii", "core"}), 24).
		WillReturnRows(assetRows(now))

	repo := NewAssetRepo(db)
	asset, err := repo.Create(models.Asset{
		Name:              "orders",
		Type:              "table",
		Location:          "warehouse.sales.orders",
		Owner:             "data-eng",
		Description:       "order facts",
		Tags:              []string{"pii", "core"},
		FreshnessSLAHours: 24,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if asset.ID != 42 || asset.Name != "orders" || len(asset.Tags) != 2 || asset.Tags[0] != "pii" {
		t.Errorf("unexpected asset: %+v", asset)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestAssetRepo_GetByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT .+ FROM assets WHERE id = \$1`).
		WithArgs(999).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "type", "location", "owner", "description",
			"tags", "freshness_sla_hours", "last_validated", "created_at",
		}))

	repo := NewAssetRepo(db)
	_, err = repo.GetByID(999)
	if err != ErrAssetNotFound {
		t.Fatalf("expected ErrAssetNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestAssetRepo_Heartbeat(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`UPDATE assets SET last_validated = now\(\) WHERE id = \$1`).
		WithArgs(42).
		WillReturnRows(assetRows(now))

	repo := NewAssetRepo(db)
	asset, err := repo.Heartbeat(42)
	if err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}
	if asset.LastValidated == nil {
		t.Error("expected last_validated to be set")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestAssetRepo_ListStale(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT .+ FROM assets\s+WHERE freshness_sla_hours > 0`).
		WithArgs(10, 0).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "type", "location", "owner", "description",
			"tags", "freshness_sla_hours", "last_validated", "created_at",
		}).AddRow(1, "clicks", "stream", "kafka://clicks", "web", "", `{}`, 6, nil, time.Now()))

	repo := NewAssetRepo(db)
	assets, err := repo.ListStale(10, 0)
	if err != nil {
		t.Fatalf("ListStale: %v", err)
	}
	if len(assets) != 1 || assets[0].Name != "clicks" || assets[0].LastValidated != nil {
		t.Errorf("unexpected stale list: %+v", assets)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestAssetRepo_Delete_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`DELETE FROM assets WHERE id = \$1`).
		WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewAssetRepo(db)
	if err := repo.DeleteByID(7); err != ErrAssetNotFound {
		t.Fatalf("expected ErrAssetNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}
