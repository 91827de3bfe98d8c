// Package handlers implements the business logic for CLI commands.
//
// Handlers are framework-agnostic and can be tested independently of the
// CLI framework. Collaborators that reach outside the process are package
// variables so tests can replace them.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/imamik/kinstall/internal/applier"
	"github.com/imamik/kinstall/internal/config"
	"github.com/imamik/kinstall/internal/failure"
	"github.com/imamik/kinstall/internal/helm"
	"github.com/imamik/kinstall/internal/k8s"
	"github.com/imamik/kinstall/internal/orchestration"
	"github.com/imamik/kinstall/internal/readiness"
	"github.com/imamik/kinstall/internal/steps"
)

const metricsPushTimeout = 10 * time.Second

// RunOptions holds the flags of the run command.
type RunOptions struct {
	ConfigPath  string
	LogDir      string
	Select      []string
	StartFrom   string
	AutoConfirm bool
	DryRun      bool
	List        bool
}

// Factory function variables - can be replaced in tests for dependency injection.
var (
	// loadConfigFile loads config from file.
	loadConfigFile = config.LoadFile

	// readKubeconfig reads the kubeconfig named by the config.
	readKubeconfig = k8s.ReadKubeconfig

	// newClusterClient creates the Kubernetes client.
	newClusterClient = k8s.NewFromKubeconfig

	// newReleaseClient creates the helm release client.
	newReleaseClient = func(kubeconfig []byte, contextName string) (applier.ReleaseClient, error) {
		return helm.NewClient(kubeconfig, contextName)
	}

	// newGate creates the interactive confirmation gate.
	newGate = func() orchestration.Gate {
		return orchestration.DefaultGate(os.Stdin, os.Stdout)
	}

	// stdout receives console output.
	stdout io.Writer = os.Stdout

	// isTerminal reports whether console output is styled.
	isTerminal = func() bool {
		return isatty.IsTerminal(os.Stdout.Fd())
	}
)

// ErrRunFailed is returned when a run finishes with a non-zero exit code.
var ErrRunFailed = errors.New("run failed")

// Run loads the configuration and executes the selected steps.
//
// The workflow:
//  1. Loads and validates the configuration file
//  2. Lists the steps and returns when --list is set
//  3. Opens the run context; the summary printer and metrics push are
//     registered as finalizers so they run on every exit path
//  4. Connects to the cluster unless this is a dry run
//  5. Drives the selected steps and reports the exit code
func Run(ctx context.Context, opts RunOptions) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	configPath := opts.ConfigPath
	if configPath == "" {
		configPath = config.DefaultFile
	}
	cfg, err := loadConfigFile(configPath)
	if err != nil {
		return err
	}

	if opts.List {
		reg, err := steps.Build(cfg, nil)
		if err != nil {
			return err
		}
		return listSteps(stdout, reg, isTerminal())
	}

	logDir := opts.LogDir
	if logDir == "" {
		logDir = cfg.LogDir
	}
	styled := isTerminal()

	rc := orchestration.NewRunContext(orchestration.RunConfig{
		LogDir:      logDir,
		Console:     stdout,
		Styled:      styled,
		AutoConfirm: opts.AutoConfirm,
		DryRun:      opts.DryRun,
		Gate:        newGate(),
	})
	defer func() { _ = rc.Close() }()

	metrics := orchestration.NewMetrics()
	var summary *orchestration.RunSummary

	if cfg.Metrics.Pushgateway != "" {
		rc.OnClose(func() {
			pushCtx, cancel := context.WithTimeout(context.Background(), metricsPushTimeout)
			defer cancel()
			if err := metrics.Push(pushCtx, cfg.Metrics.Pushgateway, rc.ID); err != nil {
				rc.Log.Warnf("Failed to push metrics: %v", err)
			}
		})
	}
	rc.OnClose(func() {
		if summary != nil {
			_, _ = fmt.Fprintln(stdout, summary.Render(styled))
			summary.Record(rc.Log)
		}
	})

	sel := orchestration.Selection{Steps: opts.Select, StartFrom: opts.StartFrom}
	kit, checker, target := connect(cfg, rc)

	reg, err := steps.Build(cfg, kit)
	if err != nil {
		return err
	}

	printHeader(rc, reg, sel, target)

	driverOpts := []orchestration.DriverOption{orchestration.WithMetrics(metrics)}
	if checker != nil {
		driverOpts = append(driverOpts, orchestration.WithConnectivityChecker(checker))
	}
	summary = orchestration.NewDriver(reg, driverOpts...).Run(ctx, rc, sel)

	if summary.ExitCode != 0 {
		if summary.Err != nil {
			return fmt.Errorf("%w: %w", ErrRunFailed, summary.Err)
		}
		return fmt.Errorf("%w: see %s", ErrRunFailed, summary.LogPath)
	}
	return nil
}

// connect builds the step kit and the connectivity checker. Dry runs get
// neither. When the client cannot be built the checker reports the error,
// so the run fails its connectivity check with every step skipped.
func connect(cfg *config.Config, rc *orchestration.RunContext) (*steps.Kit, orchestration.ConnectivityChecker, string) {
	target := cfg.Cluster.Context
	if target == "" {
		target = "current context"
	}
	if rc.DryRun {
		return nil, nil, target
	}

	kubeconfig, err := readKubeconfig(cfg.Cluster.Kubeconfig)
	if err != nil {
		return nil, unreachable{err}, target
	}
	cluster, err := newClusterClient(kubeconfig, cfg.Cluster.Context)
	if err != nil {
		return nil, unreachable{err}, target
	}
	releases, err := newReleaseClient(kubeconfig, cfg.Cluster.Context)
	if err != nil {
		return nil, unreachable{err}, target
	}

	kit := &steps.Kit{
		Applier: applier.New(cluster,
			applier.WithFieldManager(cfg.FieldManager),
			applier.WithReleaseClient(releases),
		),
		Poller: readiness.New(rc.Log),
		Reader: cluster,
	}
	return kit, cluster, fmt.Sprintf("%s (%s)", target, cluster.Host())
}

// unreachable is the checker of a cluster whose client could not be built.
type unreachable struct {
	err error
}

func (u unreachable) Ping(context.Context) (string, error) {
	return "", failure.Connectivity("connect to cluster", u.err)
}

func printHeader(rc *orchestration.RunContext, reg *orchestration.Registry, sel orchestration.Selection, target string) {
	mode := "apply"
	if rc.DryRun {
		mode = "dry run"
	}
	rc.Log.Infof("kinstall run %s (%s)", rc.ID, mode)
	rc.Log.Infof("Cluster: %s", target)
	rc.Log.Infof("Run log: %s", rc.Log.Path())

	selected, err := reg.Resolve(sel.Steps, sel.StartFrom)
	if err != nil {
		return
	}
	names := make([]string, len(selected))
	for i, s := range selected {
		names[i] = s.Name
	}
	rc.Log.Infof("Steps: %s", strings.Join(names, ", "))
}
