package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/caseflow/internal/batch"
	"github.com/joseph-ayodele/caseflow/internal/common"
	"github.com/joseph-ayodele/caseflow/internal/core"
	"github.com/joseph-ayodele/caseflow/internal/nova"
	"github.com/joseph-ayodele/caseflow/internal/telemetry"
)

// Version is set at build time with -ldflags.
var Version = "dev"

// RunCmd processes the pending ledger rows against the case service.
func RunCmd() *cobra.Command {
	var (
		limit      int
		caseNumber string
		dryRun     bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process pending transfer requests",
		Long: `Process every PENDING ledger row once, in ingestion order.

For each row the case is located under the old caseworker, the new caseworker
is resolved, open tasks are reassigned, the case owner is changed and a
confirmation note is created. Every outcome is written to the ledger before
the next row starts. Failed rows are not retried; use 'caseflow reset' first.

Examples:
  caseflow run
  caseflow run --limit 20
  caseflow run --case S2021-292593 --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runBatch(ctx, cmd, batch.Options{Limit: limit, CaseNumber: caseNumber, DryRun: dryRun})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "process at most N pending rows (0 = all)")
	cmd.Flags().StringVar(&caseNumber, "case", "", "process only this case number")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "plan rows without changing anything")
	return cmd
}

func runBatch(ctx context.Context, cmd *cobra.Command, opts batch.Options) error {
	a, err := openApp(ctx, cmd, true)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.cfg.ValidateRemote(); err != nil {
		return err
	}

	providers, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:     a.cfg.Telemetry.Enabled,
		Stdout:      a.cfg.Telemetry.Stdout,
		ServiceName: a.cfg.Telemetry.ServiceName,
		Version:     Version,
		Writer:      cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("telemetry shutdown failed", "err", err)
		}
	}()
	metrics, err := telemetry.NewRunMetrics()
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	ctx = common.WithRunID(ctx, runID)
	logger := a.logger.With("run_id", runID)

	tokens := nova.NewTokenSource(ctx, nova.Credentials{
		TokenURL:     a.cfg.Nova.TokenURL,
		ClientID:     a.cfg.Nova.ClientID,
		ClientSecret: a.cfg.Nova.ClientSecret,
		Scope:        a.cfg.Nova.Scope,
	})
	client := nova.NewClient(nova.Options{
		BaseURL:    a.cfg.Nova.BaseURL,
		APIVersion: a.cfg.Nova.APIVersion,
		PageSize:   a.cfg.Nova.PageSize,
		HTTPClient: nova.NewHTTPClient(ctx, tokens, a.cfg.Nova.HTTPTimeout),
		Logger:     logger,
	})

	sess := core.NewSession(client, tokens, core.NoteSettings{
		Title:    a.cfg.Note.Title,
		TaskType: a.cfg.Note.TaskType,
		Status:   a.cfg.Note.Status,
	}, runID, logger)
	if err := sess.Authenticate(); err != nil {
		logger.Error("authentication failed", "err", err)
		return err
	}

	driver := batch.NewDriver(a.ledger, core.NewProcessor(sess), metrics, logger)
	driver.OnRow = rowPrinter(a.out)

	stats, err := driver.Run(ctx, opts)
	printStats(a.out, stats, opts.DryRun)
	return err
}

func printStats(w io.Writer, s batch.Stats, dryRun bool) {
	if dryRun {
		fmt.Fprintf(w, "\nplanned %d of %d rows (skipped %d)\n", s.Planned, s.Selected, s.Skipped)
		return
	}
	fmt.Fprintf(w, "\n%s %d  %s %d  skipped %d  (selected %d)\n",
		okColor.Sprint("succeeded"), s.Succeeded,
		failColor.Sprint("failed"), s.Failed,
		s.Skipped, s.Selected)
}
