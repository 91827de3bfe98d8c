// Package helm manages bundled releases through the Helm v3 SDK.
//
// It provides a release client working from in-memory kubeconfig bytes, a
// catalog of known charts with default repositories and versions, and value
// resolution that merges values files, --set style overrides and inline
// values. Install and upgrade are driven by the same [ReleaseSpec] so the two
// paths cannot drift apart.
package helm
