// Package steps turns configured steps into orchestration actions.
//
// A configured step runs its parts in a fixed order: namespaces are created
// and awaited, manifests are applied, the helm release is installed or
// upgraded, and finally the declared readiness waits are polled.
package steps
