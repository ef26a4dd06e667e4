package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/devplane-io/devplane/internal/models"
)

// ErrNegativeLeadTime is returned when finished_at precedes commit_at.
var ErrNegativeLeadTime = errors.New("finished_at precedes commit_at")

// DeploymentRepo persists deployment records.
type DeploymentRepo struct {
	db *sql.DB
}

func NewDeploymentRepo(db *sql.DB) *DeploymentRepo {
	return &DeploymentRepo{db: db}
}

const deployCols = `id, service_id, environment, version, commit_sha, commit_at, started_at, finished_at, status`

func (r *DeploymentRepo) Create(ctx context.Context, d models.Deployment) (models.Deployment, error) {
	if d.FinishedAt.Before(d.CommitAt) {
		return models.Deployment{}, ErrNegativeLeadTime
	}
	var out models.Deployment
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO deployments (service_id, environment, version, commit_sha, commit_at, started_at, finished_at, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+deployCols,
		d.ServiceID, d.Environment, d.Version, d.CommitSHA, d.CommitAt, d.StartedAt, d.FinishedAt, d.Status,
	).Scan(&out.ID, &out.ServiceID, &out.Environment, &out.Version, &out.CommitSHA,
		&out.CommitAt, &out.StartedAt, &out.FinishedAt, &out.Status)
	return out, err
}

// ListFilter narrows List results. Zero values mean no filter.
type ListFilter struct {
	ServiceID   int
	Environment string
	Since       time.Time
}

func (r *DeploymentRepo) List(ctx context.Context, f ListFilter, limit, offset int) ([]models.Deployment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+deployCols+` FROM deployments
		 WHERE ($1 = 0 OR service_id = $1)
		   AND ($2 = '' OR environment = $2)
		   AND ($3::timestamptz IS NULL OR finished_at >= $3)
		 ORDER BY finished_at DESC LIMIT $4 OFFSET $5`,
		f.ServiceID, f.Environment, nullTime(f.Since), limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deploys []models.Deployment
	for rows.Next() {
		var d models.Deployment
		if err := rows.Scan(&d.ID, &d.ServiceID, &d.Environment, &d.Version, &d.CommitSHA,
			&d.CommitAt, &d.StartedAt, &d.FinishedAt, &d.Status); err != nil {
			return nil, err
		}
		deploys = append(deploys, d)
	}
	return deploys, rows.Err()
}

// ListWindow returns all deployments for a service finished within the window,
// oldest first. Used by the delivery-metrics computation.
func (r *DeploymentRepo) ListWindow(ctx context.Context, serviceID int, from, to time.Time) ([]models.Deployment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+deployCols+` FROM deployments
		 WHERE service_id = $1 AND finished_at >= $2 AND finished_at < $3
		 ORDER BY finished_at`,
		serviceID, from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deploys []models.Deployment
	for rows.Next() {
		var d models.Deployment
		if err := rows.Scan(&d.ID, &d.ServiceID, &d.Environment, &d.Version, &d.CommitSHA,
			&d.CommitAt, &d.StartedAt, &d.FinishedAt, &d.Status); err != nil {
			return nil, err
		}
		deploys = append(deploys, d)
	}
	return deploys, rows.Err()
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
