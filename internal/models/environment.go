package models

import "time"

// Environment provisioning statuses.
const (
	EnvStatusRequested    = "requested"
	EnvStatusProvisioning = "provisioning"
	EnvStatusReady        = "ready"
	EnvStatusFailed       = "failed"
	EnvStatusCanceled     = "canceled"
)

// Environment is a self-service namespace request and its provisioning state.
type Environment struct {
	ID        int    `json:"id"`
	Name      string `json:"name"` // namespace name
	Team      string `json:"team"`
	CPULimit  string `json:"cpu_limit"`  // e.g. "4", "500m"
	MemLimit  string `json:"mem_limit"`  // e.g. "8Gi", "512Mi"
	Status    string `json:"status"`
	// StepLog records provisioning steps already applied, one line per step.
	// Steps are not rolled back on cancel or failure.
	StepLog   string    `json:"step_log,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
