package postmortem

import (
	"strings"
	"testing"
	"time"

	"github.com/devplane-io/devplane/internal/models"
)

func resolvedIncident() models.Incident {
	detected := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	resolved := detected.Add(135 * time.Minute)
	return models.Incident{
		ID:         7,
		ServiceID:  3,
		Title:      "checkout latency spike",
		Severity:   models.SevMajor,
		Status:     models.IncidentResolved,
		Summary:    "Cache node eviction storm increased p99 latency.",
		DetectedAt: detected,
		ResolvedAt: &resolved,
	}
}

func TestRender_NotResolved(t *testing.T) {
	in := resolvedIncident()
	in.Status = models.IncidentMitigated
	in.ResolvedAt = nil

	if _, err := Render(in, "checkout", nil); err != ErrNotResolved {
		t.Fatalf("expected ErrNotResolved, got %v", err)
	}
}

func TestRender_Content(t *testing.T) {
	updates := []models.IncidentUpdate{
		{Status: models.IncidentAcknowledged, Message: "paging on-call", Author: "maria",
			CreatedAt: time.Date(2025, 6, 1, 10, 5, 0, 0, time.UTC)},
		{Status: models.IncidentResolved, Message: "cache warmed, latency normal",
			CreatedAt: time.Date(2025, 6, 1, 12, 15, 0, 0, time.UTC)},
	}

	out, err := Render(resolvedIncident(), "checkout", updates)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	for _, want := range []string{
		"# Postmortem: checkout latency spike",
		"INC-7",
		"**Service:** checkout",
		"**Severity:** sev2",
		"**Duration:** 2h15m0s",
		"Cache node eviction storm",
		"**acknowledged** (maria): paging on-call",
		"**resolved**: cache warmed, latency normal",
		"## Action items",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
}

func TestRender_Deterministic(t *testing.T) {
	a, err := Render(resolvedIncident(), "checkout", nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	b, _ := Render(resolvedIncident(), "checkout", nil)
	if a != b {
		t.Error("output differs across runs for identical input")
	}
	if !strings.Contains(a, "_No timeline updates were recorded._") {
		t.Errorf("empty timeline placeholder missing:\n%s", a)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{45 * time.Second, "45s"},
		{90 * time.Minute, "1h30m0s"},
		{-time.Minute, "0s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.in); got != tt.want {
			t.Errorf("formatDuration(%v): got %q, want %q", tt.in, got, tt.want)
		}
	}
}
