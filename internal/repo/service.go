package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/devplane-io/devplane/internal/models"
)

// ErrServiceNotFound is returned when a service id does not exist.
var ErrServiceNotFound = errors.New("service not found")

// ErrServiceHasHistory is returned when deleting a service that still has
// deployments or incidents referencing it.
var ErrServiceHasHistory = errors.New("service has deployments or incidents")

// ServiceRepo persists the service registry.
type ServiceRepo struct {
	db *sql.DB
}

func NewServiceRepo(db *sql.DB) *ServiceRepo {
	return &ServiceRepo{db: db}
}

const serviceCols = `id, name, owner, repo_url, tier, lifecycle, created_at`

func (r *ServiceRepo) Create(ctx context.Context, name, owner, repoURL string, tier int, lifecycle string) (models.Service, error) {
	var s models.Service
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO services (name, owner, repo_url, tier, lifecycle)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+serviceCols,
		name, owner, repoURL, tier, lifecycle,
	).Scan(&s.ID, &s.Name, &s.Owner, &s.RepoURL, &s.Tier, &s.Lifecycle, &s.CreatedAt)
	return s, err
}

func (r *ServiceRepo) GetByID(ctx context.Context, id int) (models.Service, error) {
	var s models.Service
	err := r.db.QueryRowContext(ctx,
		`SELECT `+serviceCols+` FROM services WHERE id = $1`, id,
	).Scan(&s.ID, &s.Name, &s.Owner, &s.RepoURL, &s.Tier, &s.Lifecycle, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return s, ErrServiceNotFound
	}
	return s, err
}

func (r *ServiceRepo) GetByName(ctx context.Context, name string) (models.Service, error) {
	var s models.Service
	err := r.db.QueryRowContext(ctx,
		`SELECT `+serviceCols+` FROM services WHERE name = $1`, name,
	).Scan(&s.ID, &s.Name, &s.Owner, &s.RepoURL, &s.Tier, &s.Lifecycle, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return s, ErrServiceNotFound
	}
	return s, err
}

func (r *ServiceRepo) Update(ctx context.Context, id int, owner, repoURL string, tier int, lifecycle string) (models.Service, error) {
	var s models.Service
	err := r.db.QueryRowContext(ctx,
		`UPDATE services SET owner = $1, repo_url = $2, tier = $3, lifecycle = $4
		 WHERE id = $5
		 RETURNING `+serviceCols,
		owner, repoURL, tier, lifecycle, id,
	).Scan(&s.ID, &s.Name, &s.Owner, &s.RepoURL, &s.Tier, &s.Lifecycle, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return s, ErrServiceNotFound
	}
	return s, err
}

// Delete removes a service. Services with deployment or incident history
// cannot be deleted.
func (r *ServiceRepo) Delete(ctx context.Context, id int) error {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT (SELECT count(*) FROM deployments WHERE service_id = $1)
		      + (SELECT count(*) FROM incidents WHERE service_id = $1)`, id,
	).Scan(&n)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrServiceHasHistory
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM services WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrServiceNotFound
	}
	return nil
}

func (r *ServiceRepo) List(ctx context.Context, limit, offset int) ([]models.Service, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+serviceCols+` FROM services ORDER BY id LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var services []models.Service
	for rows.Next() {
		var s models.Service
		if err := rows.Scan(&s.ID, &s.Name, &s.Owner, &s.RepoURL, &s.Tier, &s.Lifecycle, &s.CreatedAt); err != nil {
			return nil, err
		}
		services = append(services, s)
	}
	return services, rows.Err()
}
