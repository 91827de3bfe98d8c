// Package main is the entry point for the kinstall CLI.
//
// kinstall installs platform components into an existing Kubernetes cluster
// as an ordered list of steps: namespaces, manifests, helm releases and
// readiness waits. Each step is confirmed, applied and awaited before the
// next one starts, and every run writes its own log file.
//
// Commands: run, version.
//
// For detailed usage information, run:
//
//	kinstall --help
package main

import (
	"fmt"
	"os"

	"github.com/imamik/kinstall/cmd/kinstall/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
