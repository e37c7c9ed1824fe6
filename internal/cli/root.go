package cli

import (
	"github.com/spf13/cobra"
)

// RootCmd returns the caseflow command tree.
func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "caseflow",
		Short: "Batch transfer of cases and open tasks between caseworkers",
		Long: `caseflow moves cases and their open tasks from one caseworker to another
in the case management service. Transfer requests are ingested into a local
ledger; each run processes the pending rows once and records the outcome.

Configuration is read from the environment and from .env / .env.local.`,
		SilenceUsage: true,
	}

	root.AddCommand(IngestCmd())
	root.AddCommand(ConvertCmd())
	root.AddCommand(RunCmd())
	root.AddCommand(StatusCmd())
	root.AddCommand(ExportCmd())
	root.AddCommand(ResetCmd())
	return root
}
