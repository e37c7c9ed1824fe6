package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/caseflow/internal/export"
)

// ExportCmd writes the ledger to an Excel workbook.
func ExportCmd() *cobra.Command {
	var (
		out    string
		status string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the ledger to an .xlsx report",
		Long: `Write every ledger row, or only rows with the given status, to an Excel
workbook with a Ledger sheet and a Summary sheet.

Examples:
  caseflow export --out report.xlsx
  caseflow export --out failed.xlsx --status FAILED`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			filter, err := parseStatus(status)
			if err != nil {
				return err
			}
			a, err := openApp(ctx, cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			data, err := export.NewService(a.ledger, a.logger).ExportLedgerXLSX(ctx, filter)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "wrote %s (%d bytes)\n", out, len(data))
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "caseflow-ledger.xlsx", "output file")
	cmd.Flags().StringVar(&status, "status", "", "only export rows with this status")
	return cmd
}
