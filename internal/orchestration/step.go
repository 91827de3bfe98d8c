package orchestration

import "context"

// Action is the work behind a step.
type Action interface {
	// Describe summarizes what the action does, for listings.
	Describe() string
	// Validate checks the action's inputs without touching the cluster.
	Validate(ctx context.Context) error
	// Run performs the action.
	Run(ctx context.Context, rc *RunContext) error
}

// Step is a registered unit of work. Ordinal is the 1-based registration
// position.
type Step struct {
	Name     string
	Ordinal  int
	Critical bool
	Action   Action
}

// FuncAction adapts plain functions to Action. Nil functions succeed.
type FuncAction struct {
	Description string
	ValidateFn  func(ctx context.Context) error
	RunFn       func(ctx context.Context, rc *RunContext) error
}

// Describe implements Action.
func (f FuncAction) Describe() string { return f.Description }

// Validate implements Action.
func (f FuncAction) Validate(ctx context.Context) error {
	if f.ValidateFn == nil {
		return nil
	}
	return f.ValidateFn(ctx)
}

// Run implements Action.
func (f FuncAction) Run(ctx context.Context, rc *RunContext) error {
	if f.RunFn == nil {
		return nil
	}
	return f.RunFn(ctx, rc)
}
