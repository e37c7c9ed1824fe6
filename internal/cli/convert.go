package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/caseflow/internal/entity"
	"github.com/joseph-ayodele/caseflow/internal/ingest"
)

// ConvertCmd rewrites a batch spreadsheet as a comma-separated text file.
func ConvertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "convert <input.xlsx> <output.txt>",
		Short: "Convert a batch spreadsheet to a text batch file",
		Long: `Convert an .xlsx batch file to the comma-separated text format, one
sagsnummer,oldazident,newazident line per request. Rows with a missing field are dropped
and reported.

Example:
  caseflow convert transfers.xlsx transfers.txt`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := ingest.ReadFile(args[0])
			if err != nil {
				return err
			}
			reqs := make([]entity.TransferRequest, 0, len(records))
			for _, rec := range records {
				if err := ingest.Validate(rec.Request); err != nil {
					_, _ = failColor.Fprintf(cmd.ErrOrStderr(), "line %d: %v\n", rec.Line, err)
					continue
				}
				reqs = append(reqs, rec.Request)
			}

			out, err := os.Create(args[1])
			if err != nil {
				return err
			}
			if err := ingest.WriteText(out, reqs); err != nil {
				_ = out.Close()
				return err
			}
			if err := out.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d of %d rows to %s\n", len(reqs), len(records), args[1])
			return nil
		},
	}
}
