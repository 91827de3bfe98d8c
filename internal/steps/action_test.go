package steps

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/imamik/kinstall/internal/config"
	"github.com/imamik/kinstall/internal/failure"
)

const configMapManifest = `apiVersion: v1
kind: ConfigMap
metadata:
  name: settings
  namespace: tools
data:
  mode: fast
`

func activeNamespace(name string) *corev1.Namespace {
	return &corev1.Namespace{
		ObjectMeta: metav1.ObjectMeta{Name: name},
		Status:     corev1.NamespaceStatus{Phase: corev1.NamespaceActive},
	}
}

func readyDeployment(namespace, name string) *appsv1.Deployment {
	replicas := int32(1)
	return &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Namespace: namespace, Name: name},
		Spec:       appsv1.DeploymentSpec{Replicas: &replicas},
		Status: appsv1.DeploymentStatus{
			Replicas:          1,
			UpdatedReplicas:   1,
			ReadyReplicas:     1,
			AvailableReplicas: 1,
		},
	}
}

func fastTimeouts() config.Timeouts {
	return config.Timeouts{
		Namespace:    config.Duration{Duration: time.Second},
		Workload:     config.Duration{Duration: 50 * time.Millisecond},
		CRD:          config.Duration{Duration: time.Second},
		Resource:     config.Duration{Duration: time.Second},
		Release:      config.Duration{Duration: time.Minute},
		PollInterval: config.Duration{Duration: 10 * time.Millisecond},
	}
}

func TestAction_RunAllParts(t *testing.T) {
	t.Parallel()

	manifest := writeFile(t, "settings.yaml", configMapManifest)
	releases := &fakeReleases{}
	kit, c := newKit(t, releases, activeNamespace("tools"), readyDeployment("tools", "server"))

	step := config.StepConfig{
		Name:       "tools",
		Namespaces: []string{"tools"},
		Manifests:  []string{manifest},
		Release: &config.ReleaseConfig{
			Addon:  "argo-cd",
			Values: map[string]any{"replicas": 2},
		},
		Waits: []config.WaitConfig{{Kind: config.WaitDeployment, Name: "server", Namespace: "tools"}},
	}

	err := NewAction(step, fastTimeouts(), kit).Run(context.Background(), newRunContext(t))
	require.NoError(t, err)

	cm := &corev1.ConfigMap{}
	require.NoError(t, c.Get(context.Background(), client.ObjectKey{Namespace: "tools", Name: "settings"}, cm))
	assert.Equal(t, "fast", cm.Data["mode"])

	require.Len(t, releases.installs, 1)
	spec := releases.installs[0]
	assert.Equal(t, "argo-cd", spec.Name)
	assert.Equal(t, "argocd", spec.Namespace)
	assert.Equal(t, "9.3.5", spec.Version)
	assert.Equal(t, time.Minute, spec.Timeout)
	assert.True(t, spec.Wait)
	assert.True(t, spec.CreateNamespace)
	assert.Empty(t, releases.upgrades)
}

func TestAction_RunWaitTimeout(t *testing.T) {
	t.Parallel()

	kit, _ := newKit(t, nil)
	step := config.StepConfig{
		Name:  "apps",
		Waits: []config.WaitConfig{{Kind: config.WaitDeployment, Name: "missing", Namespace: "apps"}},
	}

	err := NewAction(step, fastTimeouts(), kit).Run(context.Background(), newRunContext(t))
	require.Error(t, err)
	assert.True(t, failure.IsReadinessTimeout(err), "got %v", err)
}

func TestAction_RunStopsAtFirstFailure(t *testing.T) {
	t.Parallel()

	releases := &fakeReleases{}
	kit, _ := newKit(t, releases)
	step := config.StepConfig{
		Name:      "broken",
		Manifests: []string{"/does/not/exist.yaml"},
		Release:   &config.ReleaseConfig{Addon: "karpenter"},
	}

	err := NewAction(step, fastTimeouts(), kit).Run(context.Background(), newRunContext(t))
	require.Error(t, err)
	assert.True(t, failure.IsValidation(err))
	assert.Empty(t, releases.installs)
}

func TestAction_RunWithoutKit(t *testing.T) {
	t.Parallel()

	step := config.StepConfig{Name: "ns", Namespaces: []string{"tools"}}
	err := NewAction(step, fastTimeouts(), nil).Run(context.Background(), newRunContext(t))
	require.Error(t, err)
	assert.True(t, failure.IsValidation(err))
}

func TestAction_Validate(t *testing.T) {
	t.Parallel()

	good := writeFile(t, "good.yaml", configMapManifest)
	bad := writeFile(t, "bad.yaml", "kind: ConfigMap\nmetadata:\n  name: x\n")

	tests := []struct {
		name    string
		step    config.StepConfig
		wantErr string
	}{
		{
			name: "valid",
			step: config.StepConfig{
				Name:      "ok",
				Manifests: []string{good},
				Release:   &config.ReleaseConfig{Addon: "kubeblocks"},
				Waits: []config.WaitConfig{
					{Kind: config.WaitPods, Namespace: "kb-system", Selector: "app=kubeblocks"},
					{Kind: config.WaitResource, Name: "db", APIVersion: "apps.kubeblocks.io/v1", ResourceKind: "Cluster"},
				},
			},
		},
		{
			name:    "missing manifest",
			step:    config.StepConfig{Name: "m", Manifests: []string{"/does/not/exist.yaml"}},
			wantErr: "failed to read manifest",
		},
		{
			name:    "manifest without apiVersion",
			step:    config.StepConfig{Name: "m", Manifests: []string{bad}},
			wantErr: "apiVersion",
		},
		{
			name:    "unknown addon",
			step:    config.StepConfig{Name: "r", Release: &config.ReleaseConfig{Addon: "nope"}},
			wantErr: `unknown addon "nope"`,
		},
		{
			name:    "invalid repository",
			step:    config.StepConfig{Name: "r", Release: &config.ReleaseConfig{Chart: "app", Repository: "ftp://charts"}},
			wantErr: "repository",
		},
		{
			name: "bad selector",
			step: config.StepConfig{Name: "w", Waits: []config.WaitConfig{
				{Kind: config.WaitPods, Selector: "app in (a"},
			}},
			wantErr: "invalid selector",
		},
		{
			name: "bad api version",
			step: config.StepConfig{Name: "w", Waits: []config.WaitConfig{
				{Kind: config.WaitResource, Name: "x", APIVersion: "a/b/c", ResourceKind: "X"},
			}},
			wantErr: "invalid apiVersion",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := NewAction(tt.step, fastTimeouts(), nil).Validate(context.Background())
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, failure.IsValidation(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAction_ReleaseSpec(t *testing.T) {
	t.Parallel()

	valuesFile := writeFile(t, "values.yaml", "image:\n  tag: v1\nreplicas: 1\n")
	wait := false

	step := config.StepConfig{
		Name: "app",
		Release: &config.ReleaseConfig{
			Repository:  "https://charts.example.com",
			Chart:       "stable/webapp",
			Version:     "2.0.0",
			ValuesFiles: []string{valuesFile},
			Set:         []string{"image.tag=v2"},
			Values:      map[string]any{"replicas": 3},
			Wait:        &wait,
			Timeout:     config.Duration{Duration: 90 * time.Second},
		},
	}

	spec, err := NewAction(step, fastTimeouts(), nil).releaseSpec()
	require.NoError(t, err)

	assert.Equal(t, "webapp", spec.Name)
	assert.Equal(t, "default", spec.Namespace)
	assert.Equal(t, "stable/webapp", spec.Chart)
	assert.False(t, spec.Wait)
	assert.True(t, spec.CreateNamespace)
	assert.Equal(t, 90*time.Second, spec.Timeout)
	assert.Equal(t, "v2", spec.Values["image"].(map[string]any)["tag"])
	assert.Equal(t, 3, spec.Values["replicas"])
}

func TestAction_ReleaseSpecAddonOverrides(t *testing.T) {
	t.Parallel()

	step := config.StepConfig{
		Name: "metrics",
		Release: &config.ReleaseConfig{
			Name:      "prom",
			Addon:     "kube-prometheus-stack",
			Version:   "78.0.0",
			Namespace: "observability",
		},
	}

	spec, err := NewAction(step, fastTimeouts(), nil).releaseSpec()
	require.NoError(t, err)
	assert.Equal(t, "prom", spec.Name)
	assert.Equal(t, "observability", spec.Namespace)
	assert.Equal(t, "kube-prometheus-stack", spec.Chart)
	assert.Equal(t, "78.0.0", spec.Version)
	assert.Equal(t, time.Minute, spec.Timeout)
	assert.Empty(t, spec.Values)
}

func TestAction_Describe(t *testing.T) {
	t.Parallel()

	described := NewAction(config.StepConfig{Name: "x", Description: "Install things"}, config.Timeouts{}, nil)
	assert.Equal(t, "Install things", described.Describe())

	step := config.StepConfig{
		Name:       "x",
		Namespaces: []string{"a", "b"},
		Release:    &config.ReleaseConfig{Addon: "karpenter"},
		Waits:      []config.WaitConfig{{Kind: config.WaitCRD, Name: "nodepools.karpenter.sh"}},
	}
	assert.Equal(t, "2 namespace(s), release karpenter, 1 wait(s)", NewAction(step, config.Timeouts{}, nil).Describe())
}
