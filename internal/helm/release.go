package helm

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"helm.sh/helm/v3/pkg/registry"
	"k8s.io/apimachinery/pkg/util/validation"
)

// DefaultTimeout bounds a release operation that waits for its resources.
const DefaultTimeout = 10 * time.Minute

// maxReleaseNameLen is the longest release name helm accepts.
const maxReleaseNameLen = 53

// Release statuses reported by helm.
const (
	StatusDeployed = "deployed"
	StatusFailed   = "failed"
)

// ReleaseSpec is the full parameter set of an install or upgrade.
type ReleaseSpec struct {
	Name      string
	Namespace string

	// Repository is an https chart repository, an oci:// registry prefix,
	// or empty when Chart is a local path.
	Repository string
	Chart      string
	Version    string

	Values          Values
	CreateNamespace bool
	Wait            bool
	Timeout         time.Duration
}

// Validate checks the release parameters before anything is sent to the cluster.
func (s ReleaseSpec) Validate() error {
	var errs []error

	switch {
	case s.Name == "":
		errs = append(errs, errors.New("release name is required"))
	case len(s.Name) > maxReleaseNameLen:
		errs = append(errs, fmt.Errorf("release name %q exceeds %d characters", s.Name, maxReleaseNameLen))
	default:
		for _, msg := range validation.IsDNS1123Subdomain(s.Name) {
			errs = append(errs, fmt.Errorf("release name %q: %s", s.Name, msg))
		}
	}

	if s.Namespace == "" {
		errs = append(errs, errors.New("release namespace is required"))
	} else {
		for _, msg := range validation.IsDNS1123Label(s.Namespace) {
			errs = append(errs, fmt.Errorf("release namespace %q: %s", s.Namespace, msg))
		}
	}

	if s.Chart == "" {
		errs = append(errs, errors.New("chart is required"))
	}

	if s.Repository != "" && !registry.IsOCI(s.Repository) {
		u, err := url.Parse(s.Repository)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("repository %q must be an http(s) or oci:// URL", s.Repository))
		}
	}

	if s.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must not be negative, got %s", s.Timeout))
	}

	return errors.Join(errs...)
}

// ChartRef is the reference handed to the chart locator.
func (s ReleaseSpec) ChartRef() string {
	if registry.IsOCI(s.Repository) {
		return strings.TrimSuffix(s.Repository, "/") + "/" + s.Chart
	}
	return s.Chart
}

// String identifies the release in logs.
func (s ReleaseSpec) String() string {
	ref := s.ChartRef()
	if s.Repository != "" && !registry.IsOCI(s.Repository) {
		ref = s.Repository + "/" + s.Chart
	}
	if s.Version != "" {
		ref += "@" + s.Version
	}
	return fmt.Sprintf("%s/%s (%s)", s.Namespace, s.Name, ref)
}

func (s ReleaseSpec) timeout() time.Duration {
	if s.Timeout == 0 {
		return DefaultTimeout
	}
	return s.Timeout
}

// ReleaseState is the observed state of an existing release.
type ReleaseState struct {
	Name         string
	Namespace    string
	Revision     int
	Status       string
	Chart        string
	ChartVersion string
	Values       Values
}

// Deployed reports whether the last revision finished successfully.
func (s *ReleaseState) Deployed() bool {
	return s != nil && s.Status == StatusDeployed
}
