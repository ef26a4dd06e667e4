package models

import "time"

// Deployment statuses.
const (
	DeployStatusSucceeded  = "succeeded"
	DeployStatusFailed     = "failed"
	DeployStatusRolledBack = "rolled_back"
)

// Deployment records one deployment of a service version to an environment.
// CommitAt is the timestamp of the deployed commit; FinishedAt - CommitAt is
// the lead time for the change.
type Deployment struct {
	ID          int       `json:"id"`
	ServiceID   int       `json:"service_id"`
	Environment string    `json:"environment"`
	Version     string    `json:"version"`
	CommitSHA   string    `json:"commit_sha"`
	CommitAt    time.Time `json:"commit_at"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Status      string    `json:"status"`
}

// LeadTime returns FinishedAt - CommitAt.
func (d Deployment) LeadTime() time.Duration {
	return d.FinishedAt.Sub(d.CommitAt)
}

// ValidDeployStatus reports whether s is a known deployment status.
func ValidDeployStatus(s string) bool {
	switch s {
	case DeployStatusSucceeded, DeployStatusFailed, DeployStatusRolledBack:
		return true
	}
	return false
}
