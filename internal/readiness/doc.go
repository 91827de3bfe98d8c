// Package readiness implements the bounded wait used whenever a step has to
// wait for the cluster to converge.
//
// [Poller.Await] evaluates a caller-supplied [Condition] immediately and then
// once per poll interval until it reports ready, reports a terminal state, or
// the timeout elapses. Condition errors are transient: a resource that does
// not exist yet is simply not ready. The clock is injectable so timeout and
// short-circuit behavior can be tested without real delays.
package readiness
