package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFile is the configuration looked up when no path is given.
const DefaultFile = "kinstall.yaml"

// Default values applied by Load.
const (
	DefaultLogDir       = "logs"
	DefaultFieldManager = "kinstall"
)

// Config is the root of the configuration file.
type Config struct {
	Cluster      ClusterConfig `yaml:"cluster"`
	LogDir       string        `yaml:"logDir"`
	FieldManager string        `yaml:"fieldManager"`
	Timeouts     Timeouts      `yaml:"timeouts"`
	Metrics      MetricsConfig `yaml:"metrics"`
	Steps        []StepConfig  `yaml:"steps" validate:"required,min=1,unique=Name,dive"`

	// baseDir is the directory relative paths are resolved against.
	baseDir string
}

// ClusterConfig identifies the target cluster. An empty kubeconfig falls
// back to $KUBECONFIG and then ~/.kube/config.
type ClusterConfig struct {
	Kubeconfig string `yaml:"kubeconfig"`
	Context    string `yaml:"context"`
}

// MetricsConfig configures the optional metrics push at the end of a run.
type MetricsConfig struct {
	Pushgateway string `yaml:"pushgateway" validate:"omitempty,url"`
}

// StepConfig declares one step. Its parts run in the order namespaces,
// manifests, release, waits.
type StepConfig struct {
	Name        string `yaml:"name" validate:"required,k8sname"`
	Description string `yaml:"description"`
	// Critical defaults to true.
	Critical   *bool          `yaml:"critical"`
	Namespaces []string       `yaml:"namespaces" validate:"dive,k8sname"`
	Manifests  []string       `yaml:"manifests" validate:"dive,required"`
	Release    *ReleaseConfig `yaml:"release"`
	Waits      []WaitConfig   `yaml:"waits" validate:"dive"`
}

// IsCritical reports whether a failure of the step aborts the run.
func (s StepConfig) IsCritical() bool {
	return s.Critical == nil || *s.Critical
}

// ReleaseConfig declares a helm release. Addon selects a catalog chart whose
// repository, chart and version may still be overridden here.
type ReleaseConfig struct {
	Name        string         `yaml:"name"`
	Namespace   string         `yaml:"namespace" validate:"omitempty,k8sname"`
	Addon       string         `yaml:"addon"`
	Repository  string         `yaml:"repository"`
	Chart       string         `yaml:"chart" validate:"required_without=Addon"`
	Version     string         `yaml:"version"`
	Values      map[string]any `yaml:"values"`
	ValuesFiles []string       `yaml:"valuesFiles" validate:"dive,required"`
	Set         []string       `yaml:"set" validate:"dive,required"`
	// CreateNamespace and Wait default to true.
	CreateNamespace *bool    `yaml:"createNamespace"`
	Wait            *bool    `yaml:"wait"`
	Timeout         Duration `yaml:"timeout"`
}

// ShouldCreateNamespace reports whether install creates the namespace.
func (r ReleaseConfig) ShouldCreateNamespace() bool {
	return boolOr(r.CreateNamespace, true)
}

// ShouldWait reports whether helm blocks until the release's resources are
// ready.
func (r ReleaseConfig) ShouldWait() bool {
	return boolOr(r.Wait, true)
}

// Wait kinds.
const (
	WaitNamespace   = "namespace"
	WaitDeployment  = "deployment"
	WaitStatefulSet = "statefulset"
	WaitDaemonSet   = "daemonset"
	WaitPods        = "pods"
	WaitCRD         = "crd"
	WaitResource    = "resource"
)

// WaitConfig declares a readiness wait.
type WaitConfig struct {
	Kind      string `yaml:"kind" validate:"required,oneof=namespace deployment statefulset daemonset pods crd resource"`
	Name      string `yaml:"name" validate:"required_unless=Kind pods"`
	Namespace string `yaml:"namespace" validate:"omitempty,k8sname"`
	Selector  string `yaml:"selector" validate:"required_if=Kind pods"`

	// APIVersion and ResourceKind address a custom resource for Kind "resource".
	APIVersion     string   `yaml:"apiVersion" validate:"required_if=Kind resource"`
	ResourceKind   string   `yaml:"resourceKind" validate:"required_if=Kind resource"`
	ReadyPhases    []string `yaml:"readyPhases"`
	TerminalPhases []string `yaml:"terminalPhases"`

	Timeout  Duration `yaml:"timeout"`
	Interval Duration `yaml:"interval"`
}

// Target names the waited-for object in logs, e.g. "deployment argocd/server".
func (w WaitConfig) Target() string {
	kind := w.Kind
	if w.Kind == WaitResource {
		kind = w.ResourceKind
	}
	name := w.Name
	if w.Kind == WaitPods {
		name = "{" + w.Selector + "}"
	}
	if w.Namespace != "" {
		return fmt.Sprintf("%s %s/%s", kind, w.Namespace, name)
	}
	return fmt.Sprintf("%s %s", kind, name)
}

// Duration is a time.Duration written as a Go duration string in YAML.
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("line %d: duration must be a string like \"90s\": %w", value.Line, err)
	}
	if s == "" {
		d.Duration = 0
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q: %w", value.Line, s, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// Or returns d, or fallback when d is unset.
func (d Duration) Or(fallback time.Duration) time.Duration {
	if d.Duration <= 0 {
		return fallback
	}
	return d.Duration
}

func boolOr(b *bool, fallback bool) bool {
	if b == nil {
		return fallback
	}
	return *b
}
