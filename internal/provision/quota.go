package provision

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	cpuPattern = regexp.MustCompile(`^([0-9]+m|[0-9]+(\.[0-9]+)?)$`)
	memPattern = regexp.MustCompile(`^([0-9]+)(Mi|Gi)$`)
)

// Quota bounds for self-service requests. Larger quotas go through a human.
const (
	minCPUMillis = 100
	maxCPUMillis = 64000
	minMemMi     = 128
	maxMemMi     = 256 * 1024
)

// ValidateQuota checks the cpu and memory limit strings against the accepted
// Kubernetes quantity forms and the self-service bounds.
func ValidateQuota(cpu, mem string) error {
	millis, err := cpuMillis(cpu)
	if err != nil {
		return err
	}
	if millis < minCPUMillis || millis > maxCPUMillis {
		return fmt.Errorf("cpu limit %q outside allowed range 100m..64", cpu)
	}

	mi, err := memMi(mem)
	if err != nil {
		return err
	}
	if mi < minMemMi || mi > maxMemMi {
		return fmt.Errorf("memory limit %q outside allowed range 128Mi..256Gi", mem)
	}
	return nil
}

func cpuMillis(s string) (int, error) {
	if !cpuPattern.MatchString(s) {
		return 0, fmt.Errorf("cpu limit %q is not a valid quantity (e.g. 500m, 2)", s)
	}
	if strings.HasSuffix(s, "m") {
		n, err := strconv.Atoi(strings.TrimSuffix(s, "m"))
		if err != nil {
			return 0, fmt.Errorf("cpu limit %q: %w", s, err)
		}
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("cpu limit %q: %w", s, err)
	}
	return int(f * 1000), nil
}

func memMi(s string) (int, error) {
	m := memPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("memory limit %q is not a valid quantity (e.g. 512Mi, 8Gi)", s)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("memory limit %q: %w", s, err)
	}
	if m[2] == "Gi" {
		n *= 1024
	}
	return n, nil
}

var namespacePattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// ValidateName checks the namespace name against RFC 1123 label rules.
func ValidateName(name string) error {
	if !namespacePattern.MatchString(name) {
		return fmt.Errorf("environment name %q must be a lowercase RFC 1123 label", name)
	}
	return nil
}
