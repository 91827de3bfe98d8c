// Package orchestration sequences named provisioning steps.
//
// A [Registry] holds steps in registration order. The [Driver] resolves a
// selection and an optional resume point, checks that the cluster is
// reachable, runs each step through its [Action] and records a forward-only
// [StepStatus] per step in the [RunContext]. Between steps, and after a
// non-critical failure, the run context's confirmation gate decides whether
// to continue. The result of a run is a [RunSummary] with one entry per
// selected step and the process exit code.
package orchestration
