// Package commands defines the CLI command structure and flag bindings.
//
// Command execution is delegated to handler functions in the handlers
// package.
package commands

import "github.com/spf13/cobra"

// Root returns the root command for the kinstall CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "kinstall",
		Short:         "Install platform components into a Kubernetes cluster",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(Run())
	cmd.AddCommand(Version())

	return cmd
}
