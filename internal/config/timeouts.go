package config

import (
	"os"
	"time"
)

// Default readiness timeouts.
const (
	DefaultNamespaceTimeout = 60 * time.Second
	DefaultWorkloadTimeout  = 5 * time.Minute
	DefaultCRDTimeout       = 2 * time.Minute
	DefaultResourceTimeout  = 10 * time.Minute
	DefaultReleaseTimeout   = 10 * time.Minute
	DefaultPollInterval     = 5 * time.Second
)

// Timeouts holds the default budgets of readiness waits. A wait's own
// timeout takes precedence.
type Timeouts struct {
	Namespace    Duration `yaml:"namespace"`
	Workload     Duration `yaml:"workload"`
	CRD          Duration `yaml:"crd"`
	Resource     Duration `yaml:"resource"`
	Release      Duration `yaml:"release"`
	PollInterval Duration `yaml:"pollInterval"`
}

// applyDefaults fills unset timeouts.
func (t *Timeouts) applyDefaults() {
	t.Namespace.Duration = t.Namespace.Or(DefaultNamespaceTimeout)
	t.Workload.Duration = t.Workload.Or(DefaultWorkloadTimeout)
	t.CRD.Duration = t.CRD.Or(DefaultCRDTimeout)
	t.Resource.Duration = t.Resource.Or(DefaultResourceTimeout)
	t.Release.Duration = t.Release.Or(DefaultReleaseTimeout)
	t.PollInterval.Duration = t.PollInterval.Or(DefaultPollInterval)
}

// applyEnv overrides timeouts from environment variables.
//
// Environment Variables:
//   - KINSTALL_TIMEOUT_NAMESPACE
//   - KINSTALL_TIMEOUT_WORKLOAD
//   - KINSTALL_TIMEOUT_CRD
//   - KINSTALL_TIMEOUT_RESOURCE
//   - KINSTALL_TIMEOUT_RELEASE
//   - KINSTALL_POLL_INTERVAL
func (t *Timeouts) applyEnv() {
	t.Namespace.Duration = parseDuration("KINSTALL_TIMEOUT_NAMESPACE", t.Namespace.Duration)
	t.Workload.Duration = parseDuration("KINSTALL_TIMEOUT_WORKLOAD", t.Workload.Duration)
	t.CRD.Duration = parseDuration("KINSTALL_TIMEOUT_CRD", t.CRD.Duration)
	t.Resource.Duration = parseDuration("KINSTALL_TIMEOUT_RESOURCE", t.Resource.Duration)
	t.Release.Duration = parseDuration("KINSTALL_TIMEOUT_RELEASE", t.Release.Duration)
	t.PollInterval.Duration = parseDuration("KINSTALL_POLL_INTERVAL", t.PollInterval.Duration)
}

// ForWait returns the default timeout of a wait kind.
func (t Timeouts) ForWait(kind string) time.Duration {
	switch kind {
	case WaitNamespace:
		return t.Namespace.Or(DefaultNamespaceTimeout)
	case WaitCRD:
		return t.CRD.Or(DefaultCRDTimeout)
	case WaitResource:
		return t.Resource.Or(DefaultResourceTimeout)
	default:
		return t.Workload.Or(DefaultWorkloadTimeout)
	}
}

// parseDuration parses a duration from an environment variable.
// If the variable is not set, invalid or not positive, the default value is returned.
func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}

	return d
}
