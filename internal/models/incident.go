package models

import "time"

// Incident severities, sev1 is the most severe.
const (
	SevCritical = "sev1"
	SevMajor    = "sev2"
	SevMinor    = "sev3"
	SevLow      = "sev4"
)

// Incident statuses in lifecycle order.
const (
	IncidentOpen         = "open"
	IncidentAcknowledged = "acknowledged"
	IncidentMitigated    = "mitigated"
	IncidentResolved     = "resolved"
)

// Incident is one production incident tied to a service. ResolvedAt is set
// when status reaches resolved; ResolvedAt - DetectedAt is the time to
// recovery used by the delivery metrics.
type Incident struct {
	ID         int        `json:"id"`
	ServiceID  int        `json:"service_id"`
	Title      string     `json:"title"`
	Severity   string     `json:"severity"`
	Status     string     `json:"status"`
	Summary    string     `json:"summary"`
	DetectedAt time.Time  `json:"detected_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	CreatedBy  int        `json:"created_by"`
	CreatedAt  time.Time  `json:"created_at"`
}

// IncidentUpdate is one timestamped entry in an incident's timeline.
type IncidentUpdate struct {
	ID         int       `json:"id"`
	IncidentID int       `json:"incident_id"`
	Status     string    `json:"status"`
	Message    string    `json:"message"`
	Author     string    `json:"author"`
	CreatedAt  time.Time `json:"created_at"`
}

// ValidSeverity reports whether s is a known severity.
func ValidSeverity(s string) bool {
	switch s {
	case SevCritical, SevMajor, SevMinor, SevLow:
		return true
	}
	return false
}

var statusRank = map[string]int{
	IncidentOpen:         0,
	IncidentAcknowledged: 1,
	IncidentMitigated:    2,
	IncidentResolved:     3,
}

// ValidStatus reports whether s is a known incident status.
func ValidStatus(s string) bool {
	_, ok := statusRank[s]
	return ok
}

// StatusForward reports whether moving from to next is a forward (or equal)
// transition. The lifecycle is monotonic: downgrades are rejected.
func StatusForward(from, next string) bool {
	a, ok1 := statusRank[from]
	b, ok2 := statusRank[next]
	return ok1 && ok2 && b >= a
}
