package readiness

import (
	"context"
	"fmt"
	"time"

	"k8s.io/utils/clock"

	"github.com/imamik/kinstall/internal/failure"
)

// Status is what a condition observed on one evaluation.
type Status struct {
	// Ready is true when the target reached the desired state.
	Ready bool
	// Terminal is true when the target is in a state that cannot become
	// ready without outside intervention. It takes precedence over Ready.
	Terminal bool
	// Message describes the observation for progress output.
	Message string
}

// NotReady returns a not-ready Status with a formatted message.
func NotReady(format string, args ...any) Status {
	return Status{Message: fmt.Sprintf(format, args...)}
}

// Ready returns a ready Status with a formatted message.
func Ready(format string, args ...any) Status {
	return Status{Ready: true, Message: fmt.Sprintf(format, args...)}
}

// Terminal returns a terminal Status with a formatted message.
func Terminal(format string, args ...any) Status {
	return Status{Terminal: true, Message: fmt.Sprintf(format, args...)}
}

// Condition observes the target once. A returned error means the state could
// not be queried and is treated as not ready.
type Condition func(ctx context.Context) (Status, error)

// Outcome is the final state of a wait.
type Outcome string

// Wait outcomes.
const (
	OutcomeReady    Outcome = "Ready"
	OutcomeTimeout  Outcome = "Timeout"
	OutcomeTerminal Outcome = "TerminalFailure"
	OutcomeCanceled Outcome = "Canceled"
)

// Result describes a finished wait.
type Result struct {
	Outcome  Outcome
	Elapsed  time.Duration
	Attempts int
	// Message is the last observation reported by the condition.
	Message string
}

// Reporter receives one progress line per evaluation.
type Reporter interface {
	Infof(format string, args ...any)
}

// Poller runs bounded waits. The zero value is not usable; use New.
type Poller struct {
	clock    clock.Clock
	reporter Reporter
}

// Option configures a Poller.
type Option func(*Poller)

// WithClock replaces the real clock.
func WithClock(c clock.Clock) Option {
	return func(p *Poller) {
		p.clock = c
	}
}

// New creates a Poller reporting progress to r. A nil reporter discards progress.
func New(r Reporter, opts ...Option) *Poller {
	p := &Poller{clock: clock.RealClock{}, reporter: r}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Await blocks until cond reports ready, reports a terminal state, or timeout
// elapses. The condition is evaluated immediately and then every interval;
// the final sleep is shortened so the last evaluation happens exactly at the
// timeout, which is never reported early.
//
// A nil error is returned only for OutcomeReady. Timeouts, terminal states
// and cancellation return a failure error of the matching kind.
func (p *Poller) Await(ctx context.Context, target string, cond Condition, timeout, interval time.Duration) (Result, error) {
	if timeout <= 0 {
		return Result{}, failure.Validationf("wait %s: timeout must be positive, got %s", target, timeout)
	}
	if interval <= 0 {
		return Result{}, failure.Validationf("wait %s: poll interval must be positive, got %s", target, interval)
	}

	op := "wait " + target
	start := p.clock.Now()
	var res Result

	for {
		res.Attempts++
		status, err := cond(ctx)
		res.Elapsed = p.clock.Since(start)
		if err != nil {
			res.Message = fmt.Sprintf("not ready: %v", err)
		} else {
			res.Message = status.Message
		}
		p.progress(target, res)

		switch {
		case err == nil && status.Terminal:
			res.Outcome = OutcomeTerminal
			return res, failure.Terminal(op, fmt.Errorf("%s", status.Message))
		case err == nil && status.Ready:
			res.Outcome = OutcomeReady
			return res, nil
		case res.Elapsed >= timeout:
			res.Outcome = OutcomeTimeout
			return res, failure.ReadinessTimeout(op, fmt.Errorf("not ready after %s: %s", timeout, res.Message))
		}

		sleep := interval
		if remaining := timeout - res.Elapsed; remaining < sleep {
			sleep = remaining
		}

		timer := p.clock.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			res.Outcome = OutcomeCanceled
			return res, failure.Canceled(op, ctx.Err())
		case <-timer.C():
		}
	}
}

func (p *Poller) progress(target string, res Result) {
	if p.reporter == nil {
		return
	}
	p.reporter.Infof("Waiting for %s (%s elapsed, attempt %d): %s",
		target, res.Elapsed.Truncate(time.Second), res.Attempts, res.Message)
}
