package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/devplane-io/devplane/internal/models"
)

// ErrIncidentNotFound is returned when an incident id does not exist.
var ErrIncidentNotFound = errors.New("incident not found")

// ErrStatusBackward is returned when an update would move the incident
// lifecycle backward.
var ErrStatusBackward = errors.New("incident status cannot move backward")

// IncidentRepo persists incidents and their timeline updates.
type IncidentRepo struct {
	db *sql.DB
}

func NewIncidentRepo(db *sql.DB) *IncidentRepo {
	return &IncidentRepo{db: db}
}

const incidentCols = `id, service_id, title, severity, status, summary, detected_at, resolved_at, created_by, created_at`

func scanIncident(row interface{ Scan(...any) error }) (models.Incident, error) {
	var in models.Incident
	err := row.Scan(&in.ID, &in.ServiceID, &in.Title, &in.Severity, &in.Status,
		&in.Summary, &in.DetectedAt, &in.ResolvedAt, &in.CreatedBy, &in.CreatedAt)
	return in, err
}

func (r *IncidentRepo) Create(ctx context.Context, serviceID int, title, severity, summary string, detectedAt time.Time, createdBy int) (models.Incident, error) {
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO incidents (service_id, title, severity, summary, detected_at, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+incidentCols,
		serviceID, title, severity, summary, detectedAt, createdBy,
	)
	return scanIncident(row)
}

func (r *IncidentRepo) GetByID(ctx context.Context, id int) (models.Incident, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+incidentCols+` FROM incidents WHERE id = $1`, id)
	in, err := scanIncident(row)
	if err == sql.ErrNoRows {
		return in, ErrIncidentNotFound
	}
	return in, err
}

// AddUpdate appends a timeline entry and advances the incident status.
// Backward transitions are rejected. Reaching resolved stamps resolved_at.
// The prior status is returned so callers can tell a real transition from
// an equal-status annotation.
func (r *IncidentRepo) AddUpdate(ctx context.Context, incidentID int, status, message, author string) (models.Incident, string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Incident{}, "", err
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM incidents WHERE id = $1 FOR UPDATE`, incidentID,
	).Scan(&current)
	if err == sql.ErrNoRows {
		return models.Incident{}, "", ErrIncidentNotFound
	}
	if err != nil {
		return models.Incident{}, "", err
	}
	if !models.StatusForward(current, status) {
		return models.Incident{}, "", ErrStatusBackward
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO incident_updates (incident_id, status, message, author) VALUES ($1, $2, $3, $4)`,
		incidentID, status, message, author,
	); err != nil {
		return models.Incident{}, "", err
	}

	row := tx.QueryRowContext(ctx,
		`UPDATE incidents
		 SET status = $1,
		     resolved_at = CASE WHEN $1 = 'resolved' AND resolved_at IS NULL THEN now() ELSE resolved_at END
		 WHERE id = $2
		 RETURNING `+incidentCols,
		status, incidentID,
	)
	in, err := scanIncident(row)
	if err != nil {
		return models.Incident{}, "", err
	}
	return in, current, tx.Commit()
}

// IncidentFilter narrows List results. Zero values mean no filter.
type IncidentFilter struct {
	ServiceID int
	Status    string
	Severity  string
	Since     time.Time
}

func (r *IncidentRepo) List(ctx context.Context, f IncidentFilter, limit, offset int) ([]models.Incident, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+incidentCols+` FROM incidents
		 WHERE ($1 = 0 OR service_id = $1)
		   AND ($2 = '' OR status = $2)
		   AND ($3 = '' OR severity = $3)
		   AND ($4::timestamptz IS NULL OR detected_at >= $4)
		 ORDER BY detected_at DESC LIMIT $5 OFFSET $6`,
		f.ServiceID, f.Status, f.Severity, nullTime(f.Since), limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var incidents []models.Incident
	for rows.Next() {
		in, err := scanIncident(rows)
		if err != nil {
			return nil, err
		}
		incidents = append(incidents, in)
	}
	return incidents, rows.Err()
}

// ListResolvedWindow returns incidents for a service resolved within the
// window, used for mean-time-to-recovery.
func (r *IncidentRepo) ListResolvedWindow(ctx context.Context, serviceID int, from, to time.Time) ([]models.Incident, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+incidentCols+` FROM incidents
		 WHERE service_id = $1 AND resolved_at IS NOT NULL AND resolved_at >= $2 AND resolved_at < $3
		 ORDER BY resolved_at`,
		serviceID, from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var incidents []models.Incident
	for rows.Next() {
		in, err := scanIncident(rows)
		if err != nil {
			return nil, err
		}
		incidents = append(incidents, in)
	}
	return incidents, rows.Err()
}

// Updates returns an incident's timeline, oldest first.
func (r *IncidentRepo) Updates(ctx context.Context, incidentID int) ([]models.IncidentUpdate, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, incident_id, status, message, author, created_at
		 FROM incident_updates WHERE incident_id = $1 ORDER BY created_at, id`,
		incidentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var updates []models.IncidentUpdate
	for rows.Next() {
		var u models.IncidentUpdate
		if err := rows.Scan(&u.ID, &u.IncidentID, &u.Status, &u.Message, &u.Author, &u.CreatedAt); err != nil {
			return nil, err
		}
		updates = append(updates, u)
	}
	return updates, rows.Err()
}

// CountOpen returns the number of incidents not yet resolved.
func (r *IncidentRepo) CountOpen(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM incidents WHERE status != 'resolved'`).Scan(&n)
	return n, err
}
