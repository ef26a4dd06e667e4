package metrics

import (
	"regexp"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RequestDuration tracks HTTP request duration in seconds by method, path, status.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// RequestTotal counts HTTP requests by method, path, status.
	RequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// ProvisionJobsRunning is the number of provisioning jobs currently running.
	ProvisionJobsRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "provision_jobs_running",
			Help: "Number of environment provisioning jobs currently running",
		},
	)

	// ProvisionJobsTotal counts provisioning job completions by status (ready, failed, canceled).
	ProvisionJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provision_jobs_total",
			Help: "Total number of provisioning jobs finished by status",
		},
		[]string{"status"},
	)

	// IncidentsOpen is the number of incidents not yet resolved.
	IncidentsOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "incidents_open",
			Help: "Number of incidents not yet resolved",
		},
	)
)

var (
	numericPathSegment = regexp.MustCompile(`/[0-9]+(/|$)`)
	initOnce           sync.Once
)

func init() {
	initOnce.Do(func() {
		prometheus.MustRegister(RequestDuration, RequestTotal,
			ProvisionJobsRunning, ProvisionJobsTotal, IncidentsOpen)
	})
}

// NormalizePath reduces cardinality by replacing numeric path segments with {id}.
// E.g. /incidents/123/postmortem -> /incidents/{id}/postmortem.
func NormalizePath(path string) string {
	return numericPathSegment.ReplaceAllString(path, "/{id}$1")
}

// RecordRequest records duration and count for an HTTP request.
func RecordRequest(method, path string, statusCode int, durationSeconds float64) {
	path = NormalizePath(path)
	status := strconv.Itoa(statusCode)
	RequestDuration.WithLabelValues(method, path, status).Observe(durationSeconds)
	RequestTotal.WithLabelValues(method, path, status).Inc()
}
