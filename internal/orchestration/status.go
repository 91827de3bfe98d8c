package orchestration

import "fmt"

// StepStatus is the lifecycle state of one selected step.
type StepStatus string

// Step statuses.
const (
	StatusPending StepStatus = "PENDING"
	StatusRunning StepStatus = "RUNNING"
	StatusSuccess StepStatus = "SUCCESS"
	StatusFailed  StepStatus = "FAILED"
	StatusSkipped StepStatus = "SKIPPED"
)

// Terminal reports whether no further transition is allowed.
func (s StepStatus) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed || s == StatusSkipped
}

// transitions lists the allowed successors of each status.
var transitions = map[StepStatus][]StepStatus{
	StatusPending: {StatusRunning, StatusSkipped},
	StatusRunning: {StatusSuccess, StatusFailed},
}

// CanTransition reports whether moving from s to next is allowed.
func (s StepStatus) CanTransition(next StepStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// TransitionError is returned for a transition that would move a step
// backwards or rewrite a terminal status.
type TransitionError struct {
	Step     string
	From, To StepStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("step %q: invalid status transition %s -> %s", e.Step, e.From, e.To)
}
