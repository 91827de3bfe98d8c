package helm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"helm.sh/helm/v3/pkg/action"
	"helm.sh/helm/v3/pkg/chart"
	"helm.sh/helm/v3/pkg/chart/loader"
	"helm.sh/helm/v3/pkg/cli"
	"helm.sh/helm/v3/pkg/registry"
	"helm.sh/helm/v3/pkg/release"
	"helm.sh/helm/v3/pkg/storage/driver"

	"github.com/imamik/kinstall/internal/util/retry"
)

// Client provides Helm release operations using in-memory kubeconfig.
// Action configurations are created per namespace on first use.
type Client struct {
	kubeconfig  []byte
	contextName string
	settings    *cli.EnvSettings
	registry    *registry.Client

	mu      sync.Mutex
	configs map[string]*action.Configuration
}

// NewClient creates a Helm client from kubeconfig bytes and an optional
// context name.
func NewClient(kubeconfig []byte, contextName string) (*Client, error) {
	settings := cli.New()

	registryClient, err := registry.NewClient(
		registry.ClientOptDebug(false),
		registry.ClientOptWriter(io.Discard),
		registry.ClientOptCredentialsFile(settings.RegistryConfig),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create registry client: %w", err)
	}

	return &Client{
		kubeconfig:  kubeconfig,
		contextName: contextName,
		settings:    settings,
		registry:    registryClient,
		configs:     make(map[string]*action.Configuration),
	}, nil
}

func (c *Client) actionConfig(namespace string) (*action.Configuration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cfg, ok := c.configs[namespace]; ok {
		return cfg, nil
	}

	cfg := new(action.Configuration)
	restGetter := NewInMemoryRESTClientGetter(c.kubeconfig, c.contextName, namespace)

	// Helm's debug output is suppressed; progress is reported by the caller.
	if err := cfg.Init(restGetter, namespace, "secret", func(format string, v ...interface{}) {}); err != nil {
		return nil, fmt.Errorf("failed to initialize helm action config: %w", err)
	}
	cfg.RegistryClient = c.registry

	c.configs[namespace] = cfg
	return cfg, nil
}

// Get returns the state of the latest revision of a release, or nil when the
// release does not exist.
func (c *Client) Get(_ context.Context, namespace, name string) (*ReleaseState, error) {
	cfg, err := c.actionConfig(namespace)
	if err != nil {
		return nil, err
	}

	rel, err := action.NewGet(cfg).Run(name)
	if errors.Is(err, driver.ErrReleaseNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query release %s/%s: %w", namespace, name, err)
	}

	return stateOf(rel), nil
}

func stateOf(rel *release.Release) *ReleaseState {
	state := &ReleaseState{
		Name:      rel.Name,
		Namespace: rel.Namespace,
		Revision:  rel.Version,
		Values:    Values(rel.Config),
	}
	if rel.Info != nil {
		state.Status = rel.Info.Status.String()
	}
	if rel.Chart != nil && rel.Chart.Metadata != nil {
		state.Chart = rel.Chart.Metadata.Name
		state.ChartVersion = rel.Chart.Metadata.Version
	}
	return state
}

// Install installs spec as a new release.
func (c *Client) Install(ctx context.Context, spec ReleaseSpec) error {
	cfg, err := c.actionConfig(spec.Namespace)
	if err != nil {
		return err
	}

	installClient := action.NewInstall(cfg)
	installClient.ReleaseName = spec.Name
	installClient.Namespace = spec.Namespace
	installClient.CreateNamespace = spec.CreateNamespace
	installClient.Version = spec.Version
	installClient.Wait = spec.Wait
	installClient.Timeout = spec.timeout()

	ch, err := c.loadChart(ctx, cfg, spec)
	if err != nil {
		return err
	}

	if _, err := installClient.RunWithContext(ctx, ch, spec.Values); err != nil {
		return fmt.Errorf("failed to install %s: %w", spec, err)
	}
	return nil
}

// Upgrade upgrades the existing release to spec. Values are replaced, not
// reused from the previous revision.
func (c *Client) Upgrade(ctx context.Context, spec ReleaseSpec) error {
	cfg, err := c.actionConfig(spec.Namespace)
	if err != nil {
		return err
	}

	upgradeClient := action.NewUpgrade(cfg)
	upgradeClient.Namespace = spec.Namespace
	upgradeClient.Version = spec.Version
	upgradeClient.Wait = spec.Wait
	upgradeClient.Timeout = spec.timeout()
	upgradeClient.ReuseValues = false

	ch, err := c.loadChart(ctx, cfg, spec)
	if err != nil {
		return err
	}

	if _, err := upgradeClient.RunWithContext(ctx, spec.Name, ch, spec.Values); err != nil {
		return fmt.Errorf("failed to upgrade %s: %w", spec, err)
	}
	return nil
}

// loadChart resolves the chart from a local path, an https repository or an
// OCI registry. Remote lookups are retried since repository indexes and
// registries fail transiently.
func (c *Client) loadChart(ctx context.Context, cfg *action.Configuration, spec ReleaseSpec) (*chart.Chart, error) {
	if spec.Repository == "" {
		ch, err := loader.Load(spec.Chart)
		if err != nil {
			return nil, fmt.Errorf("failed to load chart %s: %w", spec.Chart, err)
		}
		return ch, nil
	}

	locator := action.NewInstall(cfg)
	locator.ChartPathOptions.Version = spec.Version
	if !registry.IsOCI(spec.Repository) {
		locator.ChartPathOptions.RepoURL = spec.Repository
	}

	var chartPath string
	err := retry.WithExponentialBackoff(ctx, func() error {
		path, err := locator.ChartPathOptions.LocateChart(spec.ChartRef(), c.settings)
		if err != nil {
			return err
		}
		chartPath = path
		return nil
	}, retry.WithMaxRetries(3), retry.WithInitialDelay(2*time.Second))
	if err != nil {
		return nil, fmt.Errorf("failed to find chart %s: %w", spec, err)
	}

	defer func() {
		_ = os.Remove(chartPath)
	}()

	ch, err := loader.Load(chartPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load chart %s: %w", spec, err)
	}
	return ch, nil
}
