package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/devplane-io/devplane/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// ErrUserNotFound is returned when a user does not exist.
var ErrUserNotFound = errors.New("user not found")

// UserRepo persists users.
type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

// Create registers a user. An empty password stores an empty hash, which
// restricts the account to viewer-only login.
func (r *UserRepo) Create(ctx context.Context, username, password, role string) (models.User, error) {
	hash := ""
	if password != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return models.User{}, err
		}
		hash = string(h)
	}
	if role == "" {
		role = models.RoleViewer
	}

	var u models.User
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO users (username, password_hash, role) VALUES ($1, $2, $3)
		 RETURNING id, username, password_hash, role`,
		username, hash, role,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role)
	return u, err
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (models.User, error) {
	var u models.User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, role FROM users WHERE username = $1`,
		username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role)
	if err == sql.ErrNoRows {
		return u, ErrUserNotFound
	}
	return u, err
}

func (r *UserRepo) GetByID(ctx context.Context, id int) (models.User, error) {
	var u models.User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, role FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role)
	if err == sql.ErrNoRows {
		return u, ErrUserNotFound
	}
	return u, err
}

func (r *UserRepo) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, username, password_hash, role FROM users ORDER BY id LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepo) Delete(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}
