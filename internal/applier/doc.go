// Package applier creates or updates cluster resources and helm releases
// idempotently.
//
// Descriptors are looked up by identity. An absent resource is created, a
// present one is merge-patched with the declared fields only, and a resource
// whose declared fields already match is left untouched. Every descriptor is
// validated before any request reaches the cluster.
package applier
