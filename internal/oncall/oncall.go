// Package oncall resolves the current responder for a service from an
// escalation policy file.
package oncall

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Rotation is one service's on-call rotation.
type Rotation struct {
	Service string `yaml:"service"`
	// Responders cycle in order, each holding the pager for ShiftHours
	// starting from Anchor.
	Responders []string  `yaml:"responders"`
	ShiftHours int       `yaml:"shift_hours"`
	Anchor     time.Time `yaml:"anchor"`
	// EscalateAfterMinutes is how long an unacknowledged page waits before
	// escalating to the fallback.
	EscalateAfterMinutes int    `yaml:"escalate_after_minutes"`
	Fallback             string `yaml:"fallback"`
}

// Policy is the full escalation policy file.
type Policy struct {
	Rotations []Rotation `yaml:"rotations"`

	byService map[string]*Rotation
}

// Load reads and validates a policy YAML file.
func Load(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates policy YAML.
func Parse(data []byte) (*Policy, error) {
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse policy: %w", err)
	}
	if len(p.Rotations) == 0 {
		return nil, fmt.Errorf("policy has no rotations")
	}

	p.byService = make(map[string]*Rotation, len(p.Rotations))
	for i := range p.Rotations {
		r := &p.Rotations[i]
		if r.Service == "" {
			return nil, fmt.Errorf("rotation %d: service is required", i)
		}
		if len(r.Responders) == 0 {
			return nil, fmt.Errorf("rotation %q: responders must not be empty", r.Service)
		}
		if r.ShiftHours <= 0 {
			return nil, fmt.Errorf("rotation %q: shift_hours must be positive", r.Service)
		}
		if r.Anchor.IsZero() {
			return nil, fmt.Errorf("rotation %q: anchor is required", r.Service)
		}
		if _, dup := p.byService[r.Service]; dup {
			return nil, fmt.Errorf("rotation %q: duplicate service", r.Service)
		}
		p.byService[r.Service] = r
	}
	return &p, nil
}

// Shift describes who holds the pager for a service at a point in time.
type Shift struct {
	Service   string    `json:"service"`
	OnCall    string    `json:"on_call"`
	Next      string    `json:"next"`
	ShiftEnds time.Time `json:"shift_ends"`
	// EscalatesTo receives the page when OnCall does not acknowledge within
	// the rotation's escalation delay.
	EscalatesTo string `json:"escalates_to,omitempty"`
}

// ErrUnknownService is returned when the policy has no rotation for a service.
type ErrUnknownService struct{ Service string }

func (e ErrUnknownService) Error() string {
	return fmt.Sprintf("no on-call rotation for service %q", e.Service)
}

// At resolves the shift for service at time t by modular arithmetic over
// whole shifts elapsed since the rotation anchor. Times before the anchor
// resolve to the first responder.
func (p *Policy) At(service string, t time.Time) (Shift, error) {
	r, ok := p.byService[service]
	if !ok {
		return Shift{}, ErrUnknownService{Service: service}
	}

	shift := time.Duration(r.ShiftHours) * time.Hour
	elapsed := t.Sub(r.Anchor)
	var whole time.Duration
	if elapsed > 0 {
		whole = elapsed / shift
	}
	idx := int(whole) % len(r.Responders)
	ends := r.Anchor.Add((whole + 1) * shift)

	return Shift{
		Service:     service,
		OnCall:      r.Responders[idx],
		Next:        r.Responders[(idx+1)%len(r.Responders)],
		ShiftEnds:   ends,
		EscalatesTo: r.Fallback,
	}, nil
}

// Services lists the services covered by the policy.
func (p *Policy) Services() []string {
	out := make([]string, 0, len(p.byService))
	for _, r := range p.Rotations {
		out = append(out, r.Service)
	}
	return out
}
