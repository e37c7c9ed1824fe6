package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// ResetCmd puts rows back to PENDING so the next run picks them up.
func ResetCmd() *cobra.Command {
	var failed bool

	cmd := &cobra.Command{
		Use:   "reset [case-number...]",
		Short: "Mark ledger rows pending again",
		Long: `Clear the recorded outcome of the named cases, or of every FAILED row with
--failed, so that the next run processes them again. Response snapshots and
the attempt counter are kept.

Examples:
  caseflow reset S2021-292593
  caseflow reset --failed`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if failed == (len(args) > 0) {
				return errors.New("give either case numbers or --failed")
			}
			ctx := cmd.Context()
			a, err := openApp(ctx, cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if failed {
				n, err := a.ledger.ResetFailed(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "reset %d failed rows\n", n)
				return nil
			}
			for _, cn := range args {
				if err := a.ledger.Reset(ctx, cn); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "reset %s\n", cn)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&failed, "failed", false, "reset every FAILED row")
	return cmd
}
