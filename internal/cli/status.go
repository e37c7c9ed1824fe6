package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/caseflow/constants"
)

// StatusCmd shows ledger counts and rows, or the detail of one case.
func StatusCmd() *cobra.Command {
	var (
		limit  int
		status string
	)

	cmd := &cobra.Command{
		Use:   "status [case-number]",
		Short: "Show ledger progress",
		Long: `Show how many ledger rows are pending, succeeded and failed, followed by a
table of rows. With a case number, show every recorded field of that row.

Examples:
  caseflow status
  caseflow status --status FAILED --limit 50
  caseflow status S2021-292593`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if len(args) == 1 {
				row, err := a.ledger.Get(ctx, args[0])
				if err != nil {
					return err
				}
				rowDetail(a.out, row)
				return nil
			}

			filter, err := parseStatus(status)
			if err != nil {
				return err
			}
			counts, err := a.ledger.Counts(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s %d  %s %d  %s %d\n",
				skipColor.Sprint("pending"), counts[constants.RowStatusPending],
				okColor.Sprint("succeeded"), counts[constants.RowStatusSucceeded],
				failColor.Sprint("failed"), counts[constants.RowStatusFailed])

			rows, err := a.ledger.List(ctx, filter, limit)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				return nil
			}
			fmt.Fprintln(a.out, ledgerTable(rows))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 25, "number of rows to list (0 = all)")
	cmd.Flags().StringVar(&status, "status", "", "only list rows with this status (PENDING, SUCCEEDED, FAILED)")
	return cmd
}

// parseStatus accepts an empty string (no filter) or a row status in any case.
func parseStatus(s string) (constants.RowStatus, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	switch constants.RowStatus(s) {
	case "", constants.RowStatusPending, constants.RowStatusSucceeded, constants.RowStatusFailed:
		return constants.RowStatus(s), nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}
