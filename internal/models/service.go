package models

import "time"

// Service lifecycle stages.
const (
	LifecycleExperimental = "experimental"
	LifecycleProduction   = "production"
	LifecycleDeprecated   = "deprecated"
)

// Service is one entry in the service registry.
type Service struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Owner     string    `json:"owner"`
	RepoURL   string    `json:"repo_url"`
	Tier      int       `json:"tier"` // 1 = customer facing, 3 = internal tooling
	Lifecycle string    `json:"lifecycle"`
	CreatedAt time.Time `json:"created_at"`
}

// ValidLifecycle reports whether s is a known lifecycle stage.
func ValidLifecycle(s string) bool {
	switch s {
	case LifecycleExperimental, LifecycleProduction, LifecycleDeprecated:
		return true
	}
	return false
}
