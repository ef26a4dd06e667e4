package catalog

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/devplane-io/devplane/internal/models"
)

// captureOutput captures stdout during command execution.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()

	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	fn()

	_ = w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	return buf.String()
}

func TestCatalogList_TableOutput(t *testing.T) {
	assets := []models.Asset{
		{ID: 1, Name: "orders", Type: "table", Owner: "data-eng", Tags: []string{"pii"}},
		{ID: 2, Name: "clicks", Type: "stream", Owner: "web"},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/assets" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(assets)
	}))
	defer srv.Close()

	t.Setenv("DEVPLANE_API_URL", srv.URL)

	cmd := listCmd()
	out := captureOutput(t, func() {
		if err := cmd.RunE(cmd, nil); err != nil {
			t.Errorf("run: %v", err)
		}
	})

	if !strings.Contains(out, "orders") || !strings.Contains(out, "clicks") {
		t.Fatalf("expected asset names in output, got: %s", out)
	}
}

func TestCatalogList_StaleFlag(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_ = json.NewEncoder(w).Encode([]models.Asset{})
	}))
	defer srv.Close()

	t.Setenv("DEVPLANE_API_URL", srv.URL)

	cmd := listCmd()
	_ = cmd.Flags().Set("stale", "true")
	captureOutput(t, func() {
		if err := cmd.RunE(cmd, nil); err != nil {
			t.Errorf("run: %v", err)
		}
	})

	if !strings.Contains(gotQuery, "stale=true") {
		t.Fatalf("expected stale=true in query, got %q", gotQuery)
	}
}

func TestCatalogSearch(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/assets" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		gotQuery = r.URL.RawQuery
		_ = json.NewEncoder(w).Encode([]models.Asset{
			{ID: 3, Name: "orders_daily", Type: "dataset", Owner: "data-eng"},
		})
	}))
	defer srv.Close()

	t.Setenv("DEVPLANE_API_URL", srv.URL)

	cmd := searchCmd()
	out := captureOutput(t, func() {
		if err := cmd.RunE(cmd, []string{"orders"}); err != nil {
			t.Errorf("run: %v", err)
		}
	})

	if !strings.Contains(gotQuery, "q=orders") {
		t.Fatalf("expected q=orders in query, got %q", gotQuery)
	}
	if !strings.Contains(out, "orders_daily") {
		t.Fatalf("expected match in output, got: %s", out)
	}
}

func TestCatalogList_JSONOutput(t *testing.T) {
	assets := []models.Asset{{ID: 1, Name: "orders", Type: "table", Owner: "data-eng"}}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(assets)
	}))
	defer srv.Close()

	t.Setenv("DEVPLANE_API_URL", srv.URL)

	cmd := listCmd()
	_ = cmd.Flags().Set("json", "true")
	out := captureOutput(t, func() {
		if err := cmd.RunE(cmd, nil); err != nil {
			t.Errorf("run: %v", err)
		}
	})

	if !strings.Contains(out, `"name": "orders"`) {
		t.Fatalf("expected JSON output, got: %s", out)
	}
}
