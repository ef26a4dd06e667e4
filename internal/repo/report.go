package repo

import (
	"context"
	"database/sql"

	"github.com/devplane-io/devplane/internal/models"
)

// ReportRepo persists delivery-metrics snapshots.
type ReportRepo struct {
	db *sql.DB
}

func NewReportRepo(db *sql.DB) *ReportRepo {
	return &ReportRepo{db: db}
}

func (r *ReportRepo) Create(ctx context.Context, serviceID, windowDays int, payload string) (models.Report, error) {
	var rep models.Report
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO reports (service_id, window_days, payload) VALUES ($1, $2, $3)
		 RETURNING id, service_id, window_days, payload, created_at`,
		serviceID, windowDays, payload,
	).Scan(&rep.ID, &rep.ServiceID, &rep.WindowDays, &rep.Payload, &rep.CreatedAt)
	return rep, err
}

// List returns snapshots for a service, newest first. serviceID 0 lists all.
func (r *ReportRepo) List(ctx context.Context, serviceID, limit, offset int) ([]models.Report, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, service_id, window_days, payload, created_at FROM reports
		 WHERE ($1 = 0 OR service_id = $1)
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		serviceID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []models.Report
	for rows.Next() {
		var rep models.Report
		if err := rows.Scan(&rep.ID, &rep.ServiceID, &rep.WindowDays, &rep.Payload, &rep.CreatedAt); err != nil {
			return nil, err
		}
		reports = append(reports, rep)
	}
	return reports, rows.Err()
}
