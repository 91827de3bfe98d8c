package orchestration

import (
	"errors"
	"fmt"
	"strings"

	"github.com/imamik/kinstall/internal/failure"
)

// Registry holds steps in registration order.
type Registry struct {
	steps []Step
	index map[string]int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Register appends a step. Names must be unique and non-empty.
func (r *Registry) Register(name string, critical bool, action Action) error {
	if strings.TrimSpace(name) == "" {
		return failure.Validationf("step name must not be empty")
	}
	if action == nil {
		return failure.Validationf("step %q has no action", name)
	}
	if _, exists := r.index[name]; exists {
		return failure.Validationf("step %q is registered twice", name)
	}

	r.index[name] = len(r.steps)
	r.steps = append(r.steps, Step{
		Name:     name,
		Ordinal:  len(r.steps) + 1,
		Critical: critical,
		Action:   action,
	})
	return nil
}

// Len returns the number of registered steps.
func (r *Registry) Len() int {
	return len(r.steps)
}

// Steps returns a copy of all steps in registration order.
func (r *Registry) Steps() []Step {
	return append([]Step(nil), r.steps...)
}

// Lookup returns the step registered under name.
func (r *Registry) Lookup(name string) (Step, bool) {
	i, ok := r.index[name]
	if !ok {
		return Step{}, false
	}
	return r.steps[i], true
}

// Resolve returns the steps to execute. An empty selection selects every
// step. Selected steps keep registration order regardless of the order they
// were named in. When startFrom is set, iteration begins at that step and
// earlier selected steps are dropped; startFrom must itself be selected.
func (r *Registry) Resolve(selection []string, startFrom string) ([]Step, error) {
	selected := r.Steps()
	if len(selection) > 0 {
		wanted := make(map[string]bool, len(selection))
		var unknown []string
		for _, name := range selection {
			if _, ok := r.index[name]; !ok {
				unknown = append(unknown, name)
				continue
			}
			wanted[name] = true
		}
		if len(unknown) > 0 {
			return nil, failure.Validation("resolve selection", fmt.Errorf("unknown step(s) %s (available: %s)",
				strings.Join(unknown, ", "), strings.Join(r.names(), ", ")))
		}

		selected = selected[:0]
		for _, step := range r.steps {
			if wanted[step.Name] {
				selected = append(selected, step)
			}
		}
	}

	if startFrom == "" {
		return selected, nil
	}
	if _, ok := r.index[startFrom]; !ok {
		return nil, failure.Validation("resolve start point", fmt.Errorf("unknown step %q (available: %s)",
			startFrom, strings.Join(r.names(), ", ")))
	}
	for i, step := range selected {
		if step.Name == startFrom {
			return selected[i:], nil
		}
	}
	return nil, failure.Validation("resolve start point", errors.New("step "+startFrom+" is not part of the selection"))
}

func (r *Registry) names() []string {
	names := make([]string, len(r.steps))
	for i, step := range r.steps {
		names[i] = step.Name
	}
	return names
}
