package orchestration

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// events records the order of calls across actions, gates and checkers.
type events struct {
	mu   sync.Mutex
	list []string
}

func (e *events) add(s string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.list = append(e.list, s)
}

func (e *events) all() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.list...)
}

func (e *events) action(name string, validateErr, runErr error) FuncAction {
	return FuncAction{
		Description: "test step " + name,
		ValidateFn: func(context.Context) error {
			e.add("validate:" + name)
			return validateErr
		},
		RunFn: func(context.Context, *RunContext) error {
			e.add("run:" + name)
			return runErr
		},
	}
}

type scriptedGate struct {
	ev      *events
	answers []bool
	prompts []string
}

func (g *scriptedGate) Confirm(_ context.Context, prompt string) bool {
	g.prompts = append(g.prompts, prompt)
	if g.ev != nil {
		g.ev.add("gate")
	}
	if len(g.answers) == 0 {
		return false
	}
	answer := g.answers[0]
	g.answers = g.answers[1:]
	return answer
}

type fakeChecker struct {
	ev  *events
	err error
}

func (c *fakeChecker) Ping(context.Context) (string, error) {
	if c.ev != nil {
		c.ev.add("ping")
	}
	if c.err != nil {
		return "", c.err
	}
	return "v1.31.0", nil
}

func newTestRunContext(t *testing.T, cfg RunConfig) *RunContext {
	t.Helper()
	if cfg.LogDir == "" {
		cfg.LogDir = t.TempDir()
	}
	if cfg.Console == nil {
		cfg.Console = io.Discard
	}
	rc := NewRunContext(cfg)
	t.Cleanup(func() { _ = rc.Close() })
	return rc
}

func mustRegister(t *testing.T, r *Registry, name string, critical bool, action Action) {
	t.Helper()
	require.NoError(t, r.Register(name, critical, action))
}

var errBoom = errors.New("boom")
