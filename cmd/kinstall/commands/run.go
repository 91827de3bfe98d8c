package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/kinstall/cmd/kinstall/handlers"
)

// Run returns the command that executes the configured steps.
//
// Optional flags:
//
//	--config, -c: Path to configuration YAML file (default: kinstall.yaml)
//	--select, -s: Steps to run, repeatable or comma separated (default: all)
//	--start-from: First step to run within the selection
//	--auto-confirm, -y: Do not ask before each step
//	--dry-run: Validate the selected steps without touching the cluster
//	--list: Print the configured steps and exit
//	--log-dir: Directory of the run log (default: logDir from config)
//
// Environment variables:
//
//	KUBECONFIG: kubeconfig used when the config file names none
//	KINSTALL_TIMEOUT_*, KINSTALL_POLL_INTERVAL: readiness timeout overrides
func Run() *cobra.Command {
	var opts handlers.RunOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the configured installation steps",
		Long: `Run the installation steps declared in the configuration file.

Steps run one at a time in the order they are declared. Before each step
you are asked to confirm unless --auto-confirm is set. A failed critical
step aborts the run; a failed optional step asks whether to continue.

Examples:
  # Run every step from kinstall.yaml
  kinstall run

  # Run two steps without prompting
  kinstall run --select karpenter,monitoring -y

  # Resume after a failure
  kinstall run --start-from monitoring

  # Check manifests, charts and waits without touching the cluster
  kinstall run --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Run(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to configuration file (default: kinstall.yaml)")
	cmd.Flags().StringSliceVarP(&opts.Select, "select", "s", nil, "Steps to run (default: all)")
	cmd.Flags().StringVar(&opts.StartFrom, "start-from", "", "Step to start from within the selection")
	cmd.Flags().BoolVarP(&opts.AutoConfirm, "auto-confirm", "y", false, "Do not ask for confirmation")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Validate steps without applying anything")
	cmd.Flags().BoolVar(&opts.List, "list", false, "List the configured steps and exit")
	cmd.Flags().StringVar(&opts.LogDir, "log-dir", "", "Directory for the run log (default: logDir from config)")

	return cmd
}
