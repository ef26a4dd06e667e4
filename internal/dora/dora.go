// Package dora computes the four software-delivery performance metrics
// (deployment frequency, lead time for changes, change failure rate, and
// mean time to recovery) from deployment and incident records.
package dora

import (
	"sort"
	"time"

	"github.com/devplane-io/devplane/internal/models"
)

// Performance bands per metric, following the published research thresholds.
const (
	BandElite  = "elite"
	BandHigh   = "high"
	BandMedium = "medium"
	BandLow    = "low"
)

// Metrics is one computed snapshot for a service over a window.
type Metrics struct {
	ServiceID  int       `json:"service_id"`
	WindowDays int       `json:"window_days"`
	From       time.Time `json:"from"`
	To         time.Time `json:"to"`

	// Deployment frequency: successful deployments per day.
	Deployments        int     `json:"deployments"`
	SuccessfulDeploys  int     `json:"successful_deploys"`
	DeploysPerDay      float64 `json:"deploys_per_day"`
	DeployFreqBand     string  `json:"deploy_freq_band"`

	// Lead time: finished_at - commit_at over successful deployments.
	LeadTimeMeanSecs   float64 `json:"lead_time_mean_secs"`
	LeadTimeMedianSecs float64 `json:"lead_time_median_secs"`
	LeadTimeBand       string  `json:"lead_time_band"`

	// Change failure rate: (failed + rolled back) / total.
	FailedDeploys     int     `json:"failed_deploys"`
	ChangeFailureRate float64 `json:"change_failure_rate"`
	FailureRateBand   string  `json:"failure_rate_band"`

	// MTTR: resolved_at - detected_at over resolved incidents.
	ResolvedIncidents int     `json:"resolved_incidents"`
	MTTRSecs          float64 `json:"mttr_secs"`
	MTTRBand          string  `json:"mttr_band"`
}

// Compute aggregates deployments and resolved incidents into a Metrics
// snapshot. Empty inputs yield zero values, never NaN. windowDays must be
// positive; callers validate it.
func Compute(serviceID, windowDays int, from, to time.Time, deploys []models.Deployment, resolved []models.Incident) Metrics {
	m := Metrics{
		ServiceID:  serviceID,
		WindowDays: windowDays,
		From:       from,
		To:         to,
	}

	var leadTimes []float64
	for _, d := range deploys {
		m.Deployments++
		switch d.Status {
		case models.DeployStatusSucceeded:
			m.SuccessfulDeploys++
			leadTimes = append(leadTimes, d.LeadTime().Seconds())
		case models.DeployStatusFailed, models.DeployStatusRolledBack:
			m.FailedDeploys++
		}
	}

	if windowDays > 0 {
		m.DeploysPerDay = float64(m.SuccessfulDeploys) / float64(windowDays)
	}
	if m.Deployments > 0 {
		m.ChangeFailureRate = float64(m.FailedDeploys) / float64(m.Deployments)
	}
	m.LeadTimeMeanSecs = mean(leadTimes)
	m.LeadTimeMedianSecs = median(leadTimes)

	var recoveries []float64
	for _, in := range resolved {
		if in.ResolvedAt == nil {
			continue
		}
		m.ResolvedIncidents++
		recoveries = append(recoveries, in.ResolvedAt.Sub(in.DetectedAt).Seconds())
	}
	m.MTTRSecs = mean(recoveries)

	m.DeployFreqBand = deployFreqBand(m.DeploysPerDay)
	if len(leadTimes) > 0 {
		m.LeadTimeBand = leadTimeBand(time.Duration(m.LeadTimeMedianSecs) * time.Second)
	}
	if m.Deployments > 0 {
		m.FailureRateBand = failureRateBand(m.ChangeFailureRate)
	}
	if m.ResolvedIncidents > 0 {
		m.MTTRBand = mttrBand(time.Duration(m.MTTRSecs) * time.Second)
	}
	return m
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// deployFreqBand: elite is on-demand (multiple per day), high is daily to
// weekly, medium is weekly to monthly, low is slower.
func deployFreqBand(perDay float64) string {
	switch {
	case perDay >= 1:
		return BandElite
	case perDay >= 1.0/7:
		return BandHigh
	case perDay >= 1.0/30:
		return BandMedium
	default:
		return BandLow
	}
}

// leadTimeBand: elite < 1 day, high < 1 week, medium < 1 month.
func leadTimeBand(d time.Duration) string {
	switch {
	case d < 24*time.Hour:
		return BandElite
	case d < 7*24*time.Hour:
		return BandHigh
	case d < 30*24*time.Hour:
		return BandMedium
	default:
		return BandLow
	}
}

// failureRateBand: elite/high <= 15%, medium <= 30%.
func failureRateBand(rate float64) string {
	switch {
	case rate <= 0.15:
		return BandElite
	case rate <= 0.30:
		return BandMedium
	default:
		return BandLow
	}
}

// mttrBand: elite < 1 hour, high < 1 day, medium < 1 week.
func mttrBand(d time.Duration) string {
	switch {
	case d < time.Hour:
		return BandElite
	case d < 24*time.Hour:
		return BandHigh
	case d < 7*24*time.Hour:
		return BandMedium
	default:
		return BandLow
	}
}
