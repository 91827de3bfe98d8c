package steps

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/imamik/kinstall/internal/applier"
	"github.com/imamik/kinstall/internal/config"
	"github.com/imamik/kinstall/internal/failure"
	"github.com/imamik/kinstall/internal/helm"
	"github.com/imamik/kinstall/internal/orchestration"
)

// Action runs one configured step.
type Action struct {
	step     config.StepConfig
	timeouts config.Timeouts
	kit      *Kit
}

// NewAction creates the action of step. kit may be nil when the action is
// only validated.
func NewAction(step config.StepConfig, timeouts config.Timeouts, kit *Kit) *Action {
	return &Action{step: step, timeouts: timeouts, kit: kit}
}

// Describe implements orchestration.Action.
func (a *Action) Describe() string {
	if a.step.Description != "" {
		return a.step.Description
	}

	var parts []string
	if n := len(a.step.Namespaces); n > 0 {
		parts = append(parts, fmt.Sprintf("%d namespace(s)", n))
	}
	if n := len(a.step.Manifests); n > 0 {
		parts = append(parts, fmt.Sprintf("%d manifest(s)", n))
	}
	if a.step.Release != nil {
		if spec, err := a.releaseSpec(); err == nil {
			parts = append(parts, "release "+spec.Name)
		} else {
			parts = append(parts, "release")
		}
	}
	if n := len(a.step.Waits); n > 0 {
		parts = append(parts, fmt.Sprintf("%d wait(s)", n))
	}
	return strings.Join(parts, ", ")
}

// Validate implements orchestration.Action. It reads and parses every
// referenced file and checks the release and waits without contacting the
// cluster.
func (a *Action) Validate(_ context.Context) error {
	op := "validate step " + a.step.Name
	var errs []error

	for _, m := range a.step.Manifests {
		if _, err := readManifest(m); err != nil {
			errs = append(errs, err)
		}
	}

	if a.step.Release != nil {
		spec, err := a.releaseSpec()
		if err == nil {
			err = spec.Validate()
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("release: %w", err))
		}
	}

	for i, w := range a.step.Waits {
		if _, err := condition(nil, w); err != nil {
			errs = append(errs, fmt.Errorf("waits[%d]: %w", i, err))
		}
	}

	if len(errs) > 0 {
		return failure.Validation(op, errors.Join(errs...))
	}
	return nil
}

// Run implements orchestration.Action.
func (a *Action) Run(ctx context.Context, rc *orchestration.RunContext) error {
	if a.kit == nil || a.kit.Applier == nil || a.kit.Poller == nil || a.kit.Reader == nil {
		return failure.Validationf("step %s: no cluster access configured", a.step.Name)
	}

	if err := a.ensureNamespaces(ctx, rc); err != nil {
		return err
	}
	if err := a.applyManifests(ctx, rc); err != nil {
		return err
	}
	if err := a.applyRelease(ctx, rc); err != nil {
		return err
	}
	return a.awaitAll(ctx, rc)
}

func (a *Action) ensureNamespaces(ctx context.Context, rc *orchestration.RunContext) error {
	for _, name := range a.step.Namespaces {
		ns := &unstructured.Unstructured{}
		ns.SetAPIVersion("v1")
		ns.SetKind("Namespace")
		ns.SetName(name)

		res, err := a.kit.Applier.Apply(ctx, ns)
		if err != nil {
			return err
		}
		rc.Log.Infof("%s %s", res.Identity, res.Outcome)

		w := config.WaitConfig{Kind: config.WaitNamespace, Name: name}
		if err := a.await(ctx, rc, w); err != nil {
			return err
		}
	}
	return nil
}

func (a *Action) applyManifests(ctx context.Context, rc *orchestration.RunContext) error {
	for _, m := range a.step.Manifests {
		data, err := readManifest(m)
		if err != nil {
			return failure.Validation("apply "+m, err)
		}

		rc.Log.Infof("Applying %s", m)
		results, err := a.kit.Applier.ApplyAll(ctx, m, data)
		for _, res := range results {
			if res.Outcome != applier.OutcomeError {
				rc.Log.Infof("%s %s", res.Identity, res.Outcome)
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (a *Action) applyRelease(ctx context.Context, rc *orchestration.RunContext) error {
	if a.step.Release == nil {
		return nil
	}

	spec, err := a.releaseSpec()
	if err != nil {
		return failure.Validation("release for step "+a.step.Name, err)
	}

	rc.Log.Infof("Applying release %s", spec)
	res, err := a.kit.Applier.ApplyRelease(ctx, spec)
	if err != nil {
		return err
	}
	rc.Log.Infof("%s %s", res.Identity, res.Outcome)
	return nil
}

func (a *Action) awaitAll(ctx context.Context, rc *orchestration.RunContext) error {
	for _, w := range a.step.Waits {
		if err := a.await(ctx, rc, w); err != nil {
			return err
		}
	}
	return nil
}

func (a *Action) await(ctx context.Context, rc *orchestration.RunContext, w config.WaitConfig) error {
	cond, err := condition(a.kit.Reader, w)
	if err != nil {
		return failure.Validation("wait "+w.Target(), err)
	}

	timeout, interval := budget(w, a.timeouts)
	res, err := a.kit.Poller.Await(ctx, w.Target(), cond, timeout, interval)
	if err != nil {
		return err
	}
	rc.Log.Successf("%s ready after %s", w.Target(), res.Elapsed.Truncate(time.Second))
	return nil
}

// releaseSpec expands the configured release: catalog defaults, the release
// name and namespace fallbacks and the merged values.
func (a *Action) releaseSpec() (helm.ReleaseSpec, error) {
	rel := a.step.Release

	chart := helm.ChartSpec{
		Repository: rel.Repository,
		Name:       rel.Chart,
		Version:    rel.Version,
		Namespace:  rel.Namespace,
	}
	if rel.Addon != "" {
		var err error
		chart, err = helm.LookupChart(rel.Addon, chart)
		if err != nil {
			return helm.ReleaseSpec{}, err
		}
	}

	name := rel.Name
	if name == "" {
		name = rel.Addon
	}
	if name == "" {
		name = path.Base(chart.Name)
	}

	namespace := chart.Namespace
	if namespace == "" {
		namespace = "default"
	}

	sources := helm.ValueSources{
		Files:  rel.ValuesFiles,
		Set:    rel.Set,
		Inline: helm.Values(rel.Values),
	}
	values := helm.Values{}
	if !sources.Empty() {
		var err error
		values, err = sources.Resolve()
		if err != nil {
			return helm.ReleaseSpec{}, err
		}
	}

	return helm.ReleaseSpec{
		Name:            name,
		Namespace:       namespace,
		Repository:      chart.Repository,
		Chart:           chart.Name,
		Version:         chart.Version,
		Values:          values,
		CreateNamespace: rel.ShouldCreateNamespace(),
		Wait:            rel.ShouldWait(),
		Timeout:         rel.Timeout.Or(a.timeouts.Release.Or(config.DefaultReleaseTimeout)),
	}, nil
}

func readManifest(p string) ([]byte, error) {
	// #nosec G304
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	if _, err := applier.ParseDescriptors(p, data); err != nil {
		return nil, err
	}
	return data, nil
}
