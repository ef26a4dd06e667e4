package incident

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/devplane-io/devplane/internal/models"
)

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

func TestIncidentResolve(t *testing.T) {
	var gotPath string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		_ = json.NewEncoder(w).Encode(models.Incident{ID: 7, Status: "resolved"})
	}))
	defer srv.Close()

	t.Setenv("DEVPLANE_API_URL", srv.URL)

	cmd := resolveCmd()
	_ = cmd.Flags().Set("message", "rolled back the deploy")
	out := captureOutput(t, func() {
		if err := cmd.RunE(cmd, []string{"7"}); err != nil {
			t.Errorf("run: %v", err)
		}
	})

	if gotPath != "/incidents/7/updates" {
		t.Errorf("path = %q, want /incidents/7/updates", gotPath)
	}
	if gotBody["status"] != "resolved" || gotBody["message"] != "rolled back the deploy" {
		t.Errorf("unexpected payload: %+v", gotBody)
	}
	if !strings.Contains(out, "INC-7 resolved") {
		t.Errorf("unexpected output: %s", out)
	}
}
