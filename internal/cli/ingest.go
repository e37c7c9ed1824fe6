package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/caseflow/internal/ingest"
)

// IngestCmd loads transfer requests from a batch file or directory into the ledger.
func IngestCmd() *cobra.Command {
	var (
		watch      bool
		skipHidden bool
		debounce   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "ingest <file-or-directory>",
		Short: "Load transfer requests into the ledger",
		Long: `Read transfer requests from an .xlsx, .csv or .txt file, or from every such
file in a directory, and add them to the ledger as PENDING rows.

Files need the columns sagsnummer, oldazident and newazident. Re-ingesting a
case number overwrites its owner fields and keeps its status.

With --watch the directory is scanned once and then every new or modified
batch file is ingested until interrupted.

Examples:
  caseflow ingest transfers.xlsx
  caseflow ingest ./drop
  caseflow ingest ./drop --watch`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := openApp(ctx, cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()
			ing := ingest.NewFSIngestor(a.ledger, a.logger)

			path := args[0]
			info, err := os.Stat(path)
			if err != nil {
				return err
			}
			if watch {
				if !info.IsDir() {
					return fmt.Errorf("--watch needs a directory, got %s", path)
				}
				return watchDir(ctx, a, ing, path, debounce)
			}
			if info.IsDir() {
				results, stats, err := ing.IngestDirectory(ctx, path, skipHidden)
				printIngestResults(a.out, results)
				fmt.Fprintf(a.out, "files: %d matched, %d ok, %d failed; records: %d inserted, %d updated, %d invalid\n",
					stats.Matched, stats.Succeeded, stats.Failed,
					stats.Records.Inserted, stats.Records.Updated, stats.Records.Invalid)
				return err
			}
			return ingestOne(ctx, a.out, ing, path)
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "keep watching the directory for new batch files")
	cmd.Flags().BoolVar(&skipHidden, "skip-hidden", true, "skip dotfiles and spreadsheet lock files")
	cmd.Flags().DurationVar(&debounce, "debounce", 2*time.Second, "quiet period before a changed file is ingested")
	return cmd
}

func ingestOne(ctx context.Context, w io.Writer, ing ingest.Ingestor, path string) error {
	results, stats, err := ing.IngestFile(ctx, path)
	printIngestResults(w, results)
	fmt.Fprintf(w, "%s: %d records, %d inserted, %d updated, %d invalid\n",
		path, stats.Records, stats.Inserted, stats.Updated, stats.Invalid)
	return err
}

func watchDir(ctx context.Context, a *app, ing ingest.Ingestor, dir string, debounce time.Duration) error {
	paths, errs, err := ingest.Watch(ctx, ingest.WatchConfig{Dir: dir, InitialScan: true, Debounce: debounce}, a.logger)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "watching %s (Ctrl-C to stop)\n", dir)
	for {
		select {
		case p, ok := <-paths:
			if !ok {
				return nil
			}
			if err := ingestOne(ctx, a.out, ing, p); err != nil {
				a.logger.Error("ingest failed", "path", p, "err", err)
			}
		case err, ok := <-errs:
			if ok && err != nil {
				a.logger.Warn("watch error", "err", err)
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func printIngestResults(w io.Writer, results []ingest.IngestionResult) {
	for _, r := range results {
		if r.Err != "" {
			_, _ = failColor.Fprintf(w, "  %s:%d %s: %s\n", r.SourcePath, r.Line, r.CaseNumber, r.Err)
		}
	}
}
