package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/devplane-io/devplane/internal/models"
)

// ErrEnvironmentNotFound is returned when an environment id does not exist.
var ErrEnvironmentNotFound = errors.New("environment not found")

// EnvironmentRepo persists environment provisioning requests.
type EnvironmentRepo struct {
	db *sql.DB
}

func NewEnvironmentRepo(db *sql.DB) *EnvironmentRepo {
	return &EnvironmentRepo{db: db}
}

const envCols = `id, name, team, cpu_limit, mem_limit, status, step_log, error, created_at`

func scanEnv(row interface{ Scan(...any) error }) (models.Environment, error) {
	var e models.Environment
	err := row.Scan(&e.ID, &e.Name, &e.Team, &e.CPULimit, &e.MemLimit,
		&e.Status, &e.StepLog, &e.Error, &e.CreatedAt)
	return e, err
}

func (r *EnvironmentRepo) Create(ctx context.Context, name, team, cpuLimit, memLimit string) (models.Environment, error) {
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO environments (name, team, cpu_limit, mem_limit, status)
		 VALUES ($1, $2, $3, $4, 'requested')
		 RETURNING `+envCols,
		name, team, cpuLimit, memLimit,
	)
	return scanEnv(row)
}

func (r *EnvironmentRepo) GetByID(ctx context.Context, id int) (models.Environment, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+envCols+` FROM environments WHERE id = $1`, id)
	e, err := scanEnv(row)
	if err == sql.ErrNoRows {
		return e, ErrEnvironmentNotFound
	}
	return e, err
}

// SetStatus updates status and error message.
func (r *EnvironmentRepo) SetStatus(ctx context.Context, id int, status, errMsg string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE environments SET status = $1, error = $2 WHERE id = $3`,
		status, errMsg, id,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrEnvironmentNotFound
	}
	return nil
}

// FailStranded marks environments still in a non-terminal status as failed.
// Provisioning jobs live in process memory, so anything left requested or
// provisioning after a restart can never finish. Returns the number swept.
func (r *EnvironmentRepo) FailStranded(ctx context.Context, errMsg string) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE environments SET status = 'failed', error = $1
		 WHERE status IN ('requested', 'provisioning')`,
		errMsg,
	)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// AppendStep appends one line to the environment's step log.
func (r *EnvironmentRepo) AppendStep(ctx context.Context, id int, step string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE environments SET step_log = step_log || $1 || E'\n' WHERE id = $2`,
		step, id,
	)
	return err
}

func (r *EnvironmentRepo) List(ctx context.Context, limit, offset int) ([]models.Environment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+envCols+` FROM environments ORDER BY id DESC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var envs []models.Environment
	for rows.Next() {
		e, err := scanEnv(rows)
		if err != nil {
			return nil, err
		}
		envs = append(envs, e)
	}
	return envs, rows.Err()
}
