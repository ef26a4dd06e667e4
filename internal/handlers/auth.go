package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/devplane-io/devplane/internal/models"
	"github.com/devplane-io/devplane/internal/repo"
	"github.com/golang-jwt/jwt/v5"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

// AuthHandler issues and verifies credentials.
type AuthHandler struct {
	UserRepo    *repo.UserRepo
	Secret      []byte
	TokenExpiry time.Duration
}

// Register creates a user. Registering an existing username returns the
// existing user (200) so automation can call it idempotently. Self-service
// registration always gets the viewer role; admins promote via /users.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.Username == "" {
		JSONError(w, "invalid json", http.StatusBadRequest)
		return
	}

	user, err := h.UserRepo.Create(r.Context(), input.Username, input.Password, models.RoleViewer)
	if err != nil {
		if e, ok := err.(*pq.Error); ok && e.Code == "23505" {
			user, getErr := h.UserRepo.GetByUsername(r.Context(), input.Username)
			if getErr != nil {
				JSONError(w, "failed to create user", http.StatusInternalServerError)
				return
			}
			writeJSON(w, http.StatusOK, user)
			return
		}
		slog.Error("register: create user", "error", err)
		JSONError(w, "failed to create user", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// Login verifies the password (when the account has one) and issues a JWT
// carrying user_id, username, and role.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		JSONError(w, "invalid json", http.StatusBadRequest)
		return
	}

	user, err := h.UserRepo.GetByUsername(r.Context(), input.Username)
	if err != nil {
		JSONError(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	if user.PasswordHash != "" {
		if input.Password == "" {
			JSONError(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
			JSONError(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
	}

	expiry := h.TokenExpiry
	if expiry == 0 {
		expiry = 24 * time.Hour
	}
	claims := jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"role":     user.Role,
		"exp":      time.Now().Add(expiry).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(h.Secret)
	if err != nil {
		JSONError(w, "failed to issue token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token": signed,
		"user":  user,
	})
}
