package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/devplane-io/devplane/internal/models"
)

// ErrScheduleNotFound is returned when a schedule id does not exist.
var ErrScheduleNotFound = errors.New("schedule not found")

// ScheduleRepo persists recurring report schedules.
type ScheduleRepo struct {
	db *sql.DB
}

func NewScheduleRepo(db *sql.DB) *ScheduleRepo {
	return &ScheduleRepo{db: db}
}

const scheduleCols = `id, service_id, cron_expr, window_days, enabled, created_at`

func (r *ScheduleRepo) Create(ctx context.Context, serviceID int, cronExpr string, windowDays int, enabled bool) (models.Schedule, error) {
	var s models.Schedule
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO schedules (service_id, cron_expr, window_days, enabled)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+scheduleCols,
		serviceID, cronExpr, windowDays, enabled,
	).Scan(&s.ID, &s.ServiceID, &s.CronExpr, &s.WindowDays, &s.Enabled, &s.CreatedAt)
	return s, err
}

// GetByID returns nil when the schedule does not exist.
func (r *ScheduleRepo) GetByID(ctx context.Context, id int) (*models.Schedule, error) {
	var s models.Schedule
	err := r.db.QueryRowContext(ctx,
		`SELECT `+scheduleCols+` FROM schedules WHERE id = $1`, id,
	).Scan(&s.ID, &s.ServiceID, &s.CronExpr, &s.WindowDays, &s.Enabled, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *ScheduleRepo) Update(ctx context.Context, id int, cronExpr string, windowDays int, enabled bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE schedules SET cron_expr = $1, window_days = $2, enabled = $3 WHERE id = $4`,
		cronExpr, windowDays, enabled, id,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrScheduleNotFound
	}
	return nil
}

func (r *ScheduleRepo) Delete(ctx context.Context, id int) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	return err
}

func (r *ScheduleRepo) List(ctx context.Context, limit, offset int) ([]models.Schedule, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+scheduleCols+` FROM schedules ORDER BY id LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSchedules(rows)
}

// ListEnabled returns all enabled schedules, used by the scheduler resync.
func (r *ScheduleRepo) ListEnabled(ctx context.Context) ([]models.Schedule, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+scheduleCols+` FROM schedules WHERE enabled ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSchedules(rows)
}

func collectSchedules(rows *sql.Rows) ([]models.Schedule, error) {
	var list []models.Schedule
	for rows.Next() {
		var s models.Schedule
		if err := rows.Scan(&s.ID, &s.ServiceID, &s.CronExpr, &s.WindowDays, &s.Enabled, &s.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}
