package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/devplane-io/devplane/internal/config"
	"github.com/devplane-io/devplane/internal/provision"
	"github.com/devplane-io/devplane/internal/repo"
	"golang.org/x/crypto/bcrypt"
)

// End-to-end through the real router and middleware chain: login, then use
// the token on an authenticated endpoint.
func TestRouter_LoginThenListAssets(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	cfg := config.Config{JWTSecret: "test-secret", JWTExpireHours: 1}
	engine := provision.NewEngine(repo.NewEnvironmentRepo(db), provision.KubectlRunner{Path: "kubectl"})
	srv := httptest.NewServer(newRouter(db, cfg, engine, nil))
	defer srv.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	mock.ExpectQuery(`SELECT id, username, password_hash, role FROM users WHERE username = \$1`).
		WithArgs("maria").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash", "role"}).
			AddRow(3, "maria", string(hash), "editor"))

	resp, err := http.Post(srv.URL+"/auth/login", "application/json",
		bytes.NewBufferString(`{"username":"maria","password":"s3cret"}`))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}
	var login struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&login); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	if login.Token == "" {
		t.Fatal("empty token")
	}

	mock.ExpectQuery(`FROM assets ORDER BY id`).
		WithArgs(10, 0).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "type", "location", "owner", "description",
			"tags", "freshness_sla_hours", "last_validated", "created_at",
		}))

	req, _ := http.NewRequest("GET", srv.URL+"/assets", nil)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("list assets: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("list assets status = %d", resp2.StatusCode)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestRouter_RejectsMissingToken(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	cfg := config.Config{JWTSecret: "test-secret", JWTExpireHours: 1}
	engine := provision.NewEngine(repo.NewEnvironmentRepo(db), provision.KubectlRunner{Path: "kubectl"})
	srv := httptest.NewServer(newRouter(db, cfg, engine, nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/assets")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestRouter_ViewerCannotMutate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	cfg := config.Config{JWTSecret: "test-secret", JWTExpireHours: 1}
	engine := provision.NewEngine(repo.NewEnvironmentRepo(db), provision.KubectlRunner{Path: "kubectl"})
	srv := httptest.NewServer(newRouter(db, cfg, engine, nil))
	defer srv.Close()

	mock.ExpectQuery(`FROM users WHERE username = \$1`).
		WithArgs("guest").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash", "role"}).
			AddRow(9, "guest", "", "viewer"))

	resp, err := http.Post(srv.URL+"/auth/login", "application/json",
		bytes.NewBufferString(`{"username":"guest"}`))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	defer resp.Body.Close()
	var login struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&login); err != nil {
		t.Fatalf("decode login: %v", err)
	}

	req, _ := http.NewRequest("POST", srv.URL+"/services",
		bytes.NewBufferString(`{"name":"checkout","owner":"payments-team"}`))
	req.Header.Set("Authorization", "Bearer "+login.Token)
	req.Header.Set("Content-Type", "application/json")
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp2.StatusCode)
	}
}
