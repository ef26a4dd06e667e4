// Package postmortem renders markdown postmortem documents from resolved
// incidents and their timelines.
package postmortem

import (
	"errors"
	"strings"
	"text/template"
	"time"

	"github.com/devplane-io/devplane/internal/models"
)

// ErrNotResolved is returned when rendering is attempted before the incident
// is resolved.
var ErrNotResolved = errors.New("incident is not resolved")

// Doc is the data handed to the template.
type Doc struct {
	Incident    models.Incident
	ServiceName string
	Updates     []models.IncidentUpdate
	Duration    string
}

const tmpl = `# Postmortem: {{.Incident.Title}}

- **Incident:** INC-{{.Incident.ID}}
- **Service:** {{.ServiceName}}
- **Severity:** {{.Incident.Severity}}
- **Detected:** {{stamp .Incident.DetectedAt}}
- **Resolved:** {{stamp .Incident.ResolvedAt}}
- **Duration:** {{.Duration}}

## Summary

{{if .Incident.Summary}}{{.Incident.Summary}}{{else}}_To be written by the incident commander._{{end}}

## Timeline
{{range .Updates}}
- {{stamp .CreatedAt}} — **{{.Status}}**{{if .Author}} ({{.Author}}){{end}}: {{.Message}}{{else}}
_No timeline updates were recorded._{{end}}

## Contributing factors

_To be completed during the review._

## Action items

- [ ] _Add follow-up actions with owners and due dates._
`

var doc = template.Must(template.New("postmortem").Funcs(template.FuncMap{
	"stamp": stamp,
}).Parse(tmpl))

// stamp formats both time.Time and *time.Time as UTC RFC 3339.
func stamp(v any) string {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	case *time.Time:
		if t == nil {
			return "unknown"
		}
		return t.UTC().Format(time.RFC3339)
	}
	return "unknown"
}

// Render produces the markdown document. The incident must be resolved.
// Output is deterministic for a fixed input.
func Render(in models.Incident, serviceName string, updates []models.IncidentUpdate) (string, error) {
	if in.Status != models.IncidentResolved || in.ResolvedAt == nil {
		return "", ErrNotResolved
	}

	d := Doc{
		Incident:    in,
		ServiceName: serviceName,
		Updates:     updates,
		Duration:    formatDuration(in.ResolvedAt.Sub(in.DetectedAt)),
	}

	var b strings.Builder
	if err := doc.Execute(&b, d); err != nil {
		return "", err
	}
	return b.String(), nil
}

// formatDuration renders a duration as "2h15m" style, seconds dropped past
// the first hour.
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	if d >= time.Hour {
		d = d.Round(time.Minute)
	}
	return d.String()
}
