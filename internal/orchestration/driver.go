package orchestration

import (
	"context"
	"fmt"
	"time"

	"k8s.io/utils/clock"

	"github.com/imamik/kinstall/internal/failure"
)

// ConnectivityChecker verifies that the target cluster is reachable and
// returns its version.
type ConnectivityChecker interface {
	Ping(ctx context.Context) (string, error)
}

// Selection restricts and positions a run. An empty Steps list selects every
// registered step.
type Selection struct {
	Steps     []string
	StartFrom string
}

// Driver runs registered steps.
type Driver struct {
	registry *Registry
	checker  ConnectivityChecker
	clock    clock.PassiveClock
	metrics  *Metrics
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithConnectivityChecker sets the check performed before the first step of
// a non dry run.
func WithConnectivityChecker(c ConnectivityChecker) DriverOption {
	return func(d *Driver) {
		d.checker = c
	}
}

// WithDriverClock sets the clock used to time steps.
func WithDriverClock(c clock.PassiveClock) DriverOption {
	return func(d *Driver) {
		d.clock = c
	}
}

// WithMetrics records every run in m.
func WithMetrics(m *Metrics) DriverOption {
	return func(d *Driver) {
		d.metrics = m
	}
}

// NewDriver creates a driver over registry.
func NewDriver(registry *Registry, opts ...DriverOption) *Driver {
	d := &Driver{
		registry: registry,
		clock:    clock.RealClock{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// run carries the bookkeeping of one Driver.Run call.
type run struct {
	rc      *RunContext
	steps   []Step
	summary *RunSummary
}

// Run executes the selection and returns its summary. It never returns nil
// and never panics because of a step.
func (d *Driver) Run(ctx context.Context, rc *RunContext, sel Selection) *RunSummary {
	start := d.clock.Now()
	summary := &RunSummary{
		RunID:   rc.ID,
		DryRun:  rc.DryRun,
		LogPath: rc.Log.Path(),
	}
	defer func() {
		summary.Duration = d.clock.Since(start)
		summary.computeExitCode()
		d.metrics.Observe(summary)
	}()

	steps, err := d.registry.Resolve(sel.Steps, sel.StartFrom)
	if err != nil {
		rc.Log.Errorf("Invalid step selection: %v", err)
		summary.Err = err
		return summary
	}
	rc.selectSteps(steps)

	r := &run{rc: rc, steps: steps, summary: summary}
	summary.Results = make([]StepResult, len(steps))
	for i, step := range steps {
		summary.Results[i] = StepResult{
			Name:     step.Name,
			Ordinal:  step.Ordinal,
			Critical: step.Critical,
			Status:   StatusPending,
		}
	}

	if len(steps) == 0 {
		rc.Log.Warnf("No steps selected")
		return summary
	}

	if rc.DryRun {
		d.validateAll(ctx, r)
		return summary
	}

	if d.checker != nil {
		version, err := d.checker.Ping(ctx)
		if err != nil {
			if !failure.IsConnectivity(err) {
				err = failure.Connectivity("connect to cluster", err)
			}
			rc.Log.Errorf("Cluster is not reachable: %v", err)
			summary.Err = err
			r.skipFrom(0, "cluster not reachable")
			return summary
		}
		rc.Log.Successf("Connected to cluster (server %s)", version)
	}

	d.execute(ctx, r)
	return summary
}

func (d *Driver) execute(ctx context.Context, r *run) {
	rc := r.rc
	confirmed := false

	for i, step := range r.steps {
		if ctx.Err() != nil {
			rc.Log.Warnf("Run canceled before step %s", step.Name)
			r.skipFrom(i, "run canceled")
			return
		}

		if i > 0 && !confirmed {
			if !rc.Confirm(ctx, fmt.Sprintf("Continue with step %s?", step.Name)) {
				rc.Log.Warnf("Run stopped before step %s", step.Name)
				r.skipFrom(i, "not confirmed")
				return
			}
		}
		confirmed = false

		res := d.runStep(ctx, r, i)
		if res.Status != StatusFailed {
			continue
		}

		remaining := i < len(r.steps)-1
		switch {
		case res.Kind == failure.KindCanceled:
			r.skipFrom(i+1, "run canceled")
			return
		case step.Critical:
			if remaining {
				rc.Log.Errorf("Critical step %s failed, skipping remaining steps", step.Name)
			}
			r.skipFrom(i+1, "critical step "+step.Name+" failed")
			return
		}

		rc.Log.Warnf("Step %s is not critical, its failure does not stop the run", step.Name)
		if len(r.steps) > 1 {
			if !rc.Confirm(ctx, fmt.Sprintf("Step %s failed. Continue?", step.Name)) {
				if remaining {
					rc.Log.Warnf("Run stopped after failed step %s", step.Name)
				}
				r.skipFrom(i+1, "not confirmed after failure of "+step.Name)
				return
			}
			confirmed = true
		}
	}
}

// runStep executes one step and records its terminal status.
func (d *Driver) runStep(ctx context.Context, r *run, i int) StepResult {
	rc := r.rc
	step := r.steps[i]
	res := &r.summary.Results[i]

	r.setStatus(i, StatusRunning)
	rc.Log.Stepf("Step %d/%d: %s", i+1, len(r.steps), step.Name)

	start := d.clock.Now()
	err := invoke(step, func() error {
		if err := step.Action.Validate(ctx); err != nil {
			return err
		}
		return step.Action.Run(ctx, rc)
	})
	res.Duration = d.clock.Since(start)

	if err != nil && ctx.Err() != nil && !failure.IsCanceled(err) {
		err = failure.Canceled("step "+step.Name, err)
	}

	if err != nil {
		res.Kind = failure.KindOf(err)
		res.Message = err.Error()
		r.setStatus(i, StatusFailed)
		rc.Log.Errorf("Step %s failed after %s: %v", step.Name, res.Duration.Round(time.Millisecond), err)
		return *res
	}

	r.setStatus(i, StatusSuccess)
	rc.Log.Successf("Step %s completed in %s", step.Name, res.Duration.Round(time.Millisecond))
	return *res
}

// validateAll runs every step's validation without touching the cluster.
// A failing step does not stop the others from being validated.
func (d *Driver) validateAll(ctx context.Context, r *run) {
	rc := r.rc
	for i, step := range r.steps {
		res := &r.summary.Results[i]
		r.setStatus(i, StatusRunning)

		start := d.clock.Now()
		err := invoke(step, func() error { return step.Action.Validate(ctx) })
		res.Duration = d.clock.Since(start)

		if err != nil {
			if failure.KindOf(err) == failure.KindUnknown {
				err = failure.Validation("validate "+step.Name, err)
			}
			res.Kind = failure.KindOf(err)
			res.Message = err.Error()
			r.setStatus(i, StatusFailed)
			rc.Log.Errorf("Step %s: %v", step.Name, err)
			continue
		}

		res.Message = OutcomeValidated
		r.setStatus(i, StatusSuccess)
		rc.Log.Successf("Step %s: %s", step.Name, OutcomeValidated)
	}
}

// invoke runs fn and turns a panic into an error.
func invoke(step Step, fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("step %s panicked: %v", step.Name, rec)
		}
	}()
	return fn()
}

// skipFrom marks every pending step from index i on as SKIPPED.
func (r *run) skipFrom(i int, reason string) {
	for j := i; j < len(r.steps); j++ {
		if r.summary.Results[j].Status != StatusPending {
			continue
		}
		r.setStatus(j, StatusSkipped)
		r.summary.Results[j].Message = "skipped: " + reason
	}
}

// setStatus mirrors a transition into the run context and the summary. The
// driver only requests forward transitions; a rejected one is a bug and is
// logged rather than applied.
func (r *run) setStatus(i int, next StepStatus) {
	name := r.steps[i].Name
	if err := r.rc.transition(name, next); err != nil {
		r.rc.Log.Errorf("%v", err)
		return
	}
	r.summary.Results[i].Status = next
}
