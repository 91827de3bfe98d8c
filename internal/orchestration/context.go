package orchestration

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/imamik/kinstall/internal/runlog"
)

// RunIDLayout formats the start time into a run ID.
const RunIDLayout = "20060102-150405"

// RunID returns the run ID for a run started at t.
func RunID(t time.Time) string {
	return t.Format(RunIDLayout)
}

// RunConfig configures a RunContext.
type RunConfig struct {
	// StartedAt defaults to the current time.
	StartedAt   time.Time
	LogDir      string
	Console     io.Writer
	Styled      bool
	AutoConfirm bool
	DryRun      bool
	// Gate answers confirmations when AutoConfirm is off. Without a gate
	// every confirmation is declined.
	Gate Gate
}

// RunContext carries the state of one invocation: its ID, the run log, the
// run flags and the status of every selected step. Close releases the log
// and runs the registered finalizers; it is meant to be deferred right after
// construction.
type RunContext struct {
	ID          string
	StartedAt   time.Time
	Log         *runlog.Logger
	AutoConfirm bool
	DryRun      bool
	Selected    []string

	gate     Gate
	status   map[string]StepStatus
	mu       sync.Mutex
	finalize []func()
	closed   bool
}

// NewRunContext creates the run context. The log file is not created until
// the first entry is emitted.
func NewRunContext(cfg RunConfig) *RunContext {
	started := cfg.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	id := RunID(started)

	return &RunContext{
		ID:        id,
		StartedAt: started,
		Log: runlog.New(runlog.Options{
			Dir:     cfg.LogDir,
			RunID:   id,
			Console: cfg.Console,
			Styled:  cfg.Styled,
		}),
		AutoConfirm: cfg.AutoConfirm,
		DryRun:      cfg.DryRun,
		gate:        cfg.Gate,
		status:      make(map[string]StepStatus),
	}
}

// Confirm asks the gate for permission to continue. With AutoConfirm set it
// returns true without prompting.
func (rc *RunContext) Confirm(ctx context.Context, prompt string) bool {
	if rc.AutoConfirm {
		return true
	}
	if rc.gate == nil || ctx.Err() != nil {
		return false
	}
	return rc.gate.Confirm(ctx, prompt)
}

// selectSteps records the resolved steps, all PENDING.
func (rc *RunContext) selectSteps(steps []Step) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	rc.Selected = make([]string, len(steps))
	rc.status = make(map[string]StepStatus, len(steps))
	for i, step := range steps {
		rc.Selected[i] = step.Name
		rc.status[step.Name] = StatusPending
	}
}

// Status returns the current status of a selected step.
func (rc *RunContext) Status(name string) (StepStatus, bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	s, ok := rc.status[name]
	return s, ok
}

// Statuses returns a copy of the status map.
func (rc *RunContext) Statuses() map[string]StepStatus {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	out := make(map[string]StepStatus, len(rc.status))
	for k, v := range rc.status {
		out[k] = v
	}
	return out
}

// transition moves a step forward. Backward moves and rewrites of a terminal
// status are rejected.
func (rc *RunContext) transition(name string, next StepStatus) error {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	current, ok := rc.status[name]
	if !ok || !current.CanTransition(next) {
		return &TransitionError{Step: name, From: current, To: next}
	}
	rc.status[name] = next
	return nil
}

// OnClose registers fn to run when the context is closed. Finalizers run in
// reverse registration order.
func (rc *RunContext) OnClose(fn func()) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	rc.finalize = append(rc.finalize, fn)
}

// Close runs the finalizers once, then flushes and closes the run log.
// Later calls do nothing.
func (rc *RunContext) Close() error {
	rc.mu.Lock()
	if rc.closed {
		rc.mu.Unlock()
		return nil
	}
	rc.closed = true
	finalizers := rc.finalize
	rc.finalize = nil
	rc.mu.Unlock()

	for i := len(finalizers) - 1; i >= 0; i-- {
		runFinalizer(rc, finalizers[i])
	}
	return rc.Log.Close()
}

// runFinalizer keeps a panicking finalizer from skipping the others.
func runFinalizer(rc *RunContext, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			rc.Log.Errorf("Finalizer panicked: %v", r)
		}
	}()
	fn()
}
