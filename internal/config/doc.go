// Package config loads the kinstall configuration file.
//
// A configuration names the target cluster, default readiness timeouts and
// the ordered list of steps. Each step declares namespaces to create,
// manifest files to apply, an optional helm release and readiness waits.
// Values are read from YAML, completed with defaults, overridden from the
// environment and validated before any step is built.
package config
