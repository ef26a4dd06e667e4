package dora

import (
	"math"
	"testing"
	"time"

	"github.com/devplane-io/devplane/internal/models"
)

func deploy(status string, commitAt, finishedAt time.Time) models.Deployment {
	return models.Deployment{
		Status:     status,
		CommitAt:   commitAt,
		StartedAt:  finishedAt.Add(-5 * time.Minute),
		FinishedAt: finishedAt,
	}
}

func resolvedIncident(detected time.Time, recovery time.Duration) models.Incident {
	resolved := detected.Add(recovery)
	return models.Incident{
		Status:     models.IncidentResolved,
		DetectedAt: detected,
		ResolvedAt: &resolved,
	}
}

func TestCompute_EmptyWindow(t *testing.T) {
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 30)

	m := Compute(1, 30, from, to, nil, nil)

	if m.Deployments != 0 || m.SuccessfulDeploys != 0 || m.FailedDeploys != 0 {
		t.Errorf("expected zero deploy counts, got %+v", m)
	}
	if m.DeploysPerDay != 0 || m.ChangeFailureRate != 0 || m.LeadTimeMeanSecs != 0 || m.MTTRSecs != 0 {
		t.Errorf("expected zero metrics, got %+v", m)
	}
	if math.IsNaN(m.ChangeFailureRate) || math.IsNaN(m.MTTRSecs) {
		t.Error("empty window must not produce NaN")
	}
	if m.LeadTimeBand != "" || m.FailureRateBand != "" || m.MTTRBand != "" {
		t.Errorf("empty window must not assign bands, got %+v", m)
	}
	if m.DeployFreqBand != BandLow {
		t.Errorf("deploy freq band: got %q, want %q", m.DeployFreqBand, BandLow)
	}
}

func TestCompute_Counts(t *testing.T) {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	from := base
	to := base.AddDate(0, 0, 10)

	deploys := []models.Deployment{
		deploy(models.DeployStatusSucceeded, base, base.Add(2*time.Hour)),
		deploy(models.DeployStatusSucceeded, base.AddDate(0, 0, 1), base.AddDate(0, 0, 1).Add(4*time.Hour)),
		deploy(models.DeployStatusFailed, base.AddDate(0, 0, 2), base.AddDate(0, 0, 2).Add(time.Hour)),
		deploy(models.DeployStatusRolledBack, base.AddDate(0, 0, 3), base.AddDate(0, 0, 3).Add(time.Hour)),
	}
	incidents := []models.Incident{
		resolvedIncident(base.AddDate(0, 0, 2), 30*time.Minute),
		resolvedIncident(base.AddDate(0, 0, 5), 90*time.Minute),
	}

	m := Compute(7, 10, from, to, deploys, incidents)

	if m.Deployments != 4 || m.SuccessfulDeploys != 2 || m.FailedDeploys != 2 {
		t.Fatalf("deploy counts: %+v", m)
	}
	if got, want := m.DeploysPerDay, 0.2; got != want {
		t.Errorf("deploys per day: got %v, want %v", got, want)
	}
	if got, want := m.ChangeFailureRate, 0.5; got != want {
		t.Errorf("change failure rate: got %v, want %v", got, want)
	}
	// Lead times: 2h and 4h over successful deploys only.
	if got, want := m.LeadTimeMeanSecs, (3 * time.Hour).Seconds(); got != want {
		t.Errorf("lead time mean: got %v, want %v", got, want)
	}
	if got, want := m.LeadTimeMedianSecs, (3 * time.Hour).Seconds(); got != want {
		t.Errorf("lead time median: got %v, want %v", got, want)
	}
	// MTTR: mean of 30m and 90m = 60m.
	if got, want := m.MTTRSecs, time.Hour.Seconds(); got != want {
		t.Errorf("mttr: got %v, want %v", got, want)
	}
	if m.ResolvedIncidents != 2 {
		t.Errorf("resolved incidents: got %d, want 2", m.ResolvedIncidents)
	}
}

func TestCompute_IgnoresUnresolvedIncidents(t *testing.T) {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	open := models.Incident{Status: models.IncidentOpen, DetectedAt: base}

	m := Compute(1, 30, base, base.AddDate(0, 0, 30), nil,
		[]models.Incident{open, resolvedIncident(base, 10*time.Minute)})

	if m.ResolvedIncidents != 1 {
		t.Errorf("resolved incidents: got %d, want 1", m.ResolvedIncidents)
	}
	if got, want := m.MTTRSecs, (10 * time.Minute).Seconds(); got != want {
		t.Errorf("mttr: got %v, want %v", got, want)
	}
}

func TestMedian_EvenCount(t *testing.T) {
	got := median([]float64{1, 2, 3, 10})
	if got != 2.5 {
		t.Errorf("median: got %v, want 2.5", got)
	}
}

func TestBands(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"freq elite", deployFreqBand(2), BandElite},
		{"freq high", deployFreqBand(0.5), BandHigh},
		{"freq medium", deployFreqBand(0.05), BandMedium},
		{"freq low", deployFreqBand(0.01), BandLow},
		{"lead elite", leadTimeBand(3 * time.Hour), BandElite},
		{"lead high", leadTimeBand(3 * 24 * time.Hour), BandHigh},
		{"lead medium", leadTimeBand(20 * 24 * time.Hour), BandMedium},
		{"lead low", leadTimeBand(60 * 24 * time.Hour), BandLow},
		{"cfr elite", failureRateBand(0.10), BandElite},
		{"cfr medium", failureRateBand(0.25), BandMedium},
		{"cfr low", failureRateBand(0.5), BandLow},
		{"mttr elite", mttrBand(30 * time.Minute), BandElite},
		{"mttr high", mttrBand(6 * time.Hour), BandHigh},
		{"mttr medium", mttrBand(3 * 24 * time.Hour), BandMedium},
		{"mttr low", mttrBand(10 * 24 * time.Hour), BandLow},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}
