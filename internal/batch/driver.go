package batch

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/joseph-ayodele/caseflow/constants"
	"github.com/joseph-ayodele/caseflow/internal/common"
	"github.com/joseph-ayodele/caseflow/internal/core"
	"github.com/joseph-ayodele/caseflow/internal/entity"
	"github.com/joseph-ayodele/caseflow/internal/repository"
	"github.com/joseph-ayodele/caseflow/internal/telemetry"
)

// RowProcessor runs or plans one transfer request. *core.Processor implements it.
type RowProcessor interface {
	Process(ctx context.Context, req entity.TransferRequest) (entity.Outcome, error)
	Plan(ctx context.Context, req entity.TransferRequest) (*core.Plan, error)
}

type Options struct {
	// Limit caps the number of pending rows taken; 0 means all.
	Limit int
	// CaseNumber restricts the run to one row, which must be pending.
	CaseNumber string
	// DryRun plans each row without mutations and without ledger writes.
	DryRun bool
}

// RowEvent is reported once per row after it has been handled.
type RowEvent struct {
	Row     *entity.LedgerRow
	Outcome *entity.Outcome
	Plan    *core.Plan
	Err     error
	Skipped bool
	Elapsed time.Duration
}

type Stats struct {
	Selected  int
	Succeeded int
	Failed    int
	Planned   int
	Skipped   int
}

// Driver loads pending ledger rows and runs each through the processor once,
// sequentially, persisting every outcome before the next row starts.
type Driver struct {
	ledger  repository.LedgerRepository
	proc    RowProcessor
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *telemetry.RunMetrics

	// OnRow, when set, is called after each row.
	OnRow func(RowEvent)
}

func NewDriver(ledger repository.LedgerRepository, proc RowProcessor, metrics *telemetry.RunMetrics, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		ledger:  ledger,
		proc:    proc,
		logger:  logger,
		tracer:  telemetry.Tracer("github.com/joseph-ayodele/caseflow/internal/batch"),
		metrics: metrics,
	}
}

// Run processes the selected rows. Row failures are persisted and do not stop the
// run. An authentication failure is persisted with the row's partial outcome and
// then aborts the run; a ledger failure aborts it at once. Context cancellation is
// honoured between rows.
func (d *Driver) Run(ctx context.Context, opts Options) (Stats, error) {
	var stats Stats
	runID := common.RunIDFromContext(ctx)

	rows, err := d.selectRows(ctx, opts)
	if err != nil {
		return stats, err
	}
	stats.Selected = len(rows)
	d.logger.Info("batch.run.started", "run_id", runID, "rows", len(rows), "dry_run", opts.DryRun)

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			d.logger.Warn("batch.run.cancelled", "run_id", runID, "err", err)
			return stats, err
		}
		if !row.Pending() {
			stats.Skipped++
			d.emit(RowEvent{Row: row, Skipped: true})
			continue
		}

		var err error
		if opts.DryRun {
			err = d.planRow(ctx, row, &stats)
		} else {
			err = d.processRow(ctx, row, &stats)
		}
		if err != nil {
			d.logger.Error("batch.run.aborted", "run_id", runID, "case_number", row.CaseNumber, "err", err)
			return stats, err
		}
	}

	d.logger.Info("batch.run.finished",
		"run_id", runID,
		"selected", stats.Selected,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
		"planned", stats.Planned,
		"skipped", stats.Skipped,
	)
	return stats, nil
}

func (d *Driver) selectRows(ctx context.Context, opts Options) ([]*entity.LedgerRow, error) {
	if opts.CaseNumber == "" {
		return d.ledger.SelectPending(ctx, opts.Limit)
	}
	row, err := d.ledger.Get(ctx, opts.CaseNumber)
	if err != nil {
		return nil, err
	}
	return []*entity.LedgerRow{row}, nil
}

func (d *Driver) processRow(ctx context.Context, row *entity.LedgerRow, stats *Stats) error {
	ctx, span := d.tracer.Start(ctx, "caseflow.row",
		trace.WithAttributes(attribute.String("caseflow.case_number", row.CaseNumber)))
	defer span.End()

	start := time.Now()
	out, rowErr := d.proc.Process(ctx, row.Request())
	elapsed := time.Since(start)

	// partial outcomes are recorded even when the run is about to abort
	if err := d.ledger.RecordOutcome(ctx, row.CaseNumber, out); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence")
		return err
	}

	if out.Succeeded() {
		stats.Succeeded++
	} else {
		stats.Failed++
		span.SetStatus(codes.Error, string(out.FailedStage))
	}
	status := out.Status
	if status == "" {
		status = constants.RowStatusFailed
	}
	d.metrics.RecordRow(ctx, string(status), string(out.FailedStage), elapsed)
	d.logger.Info("batch.row.processed",
		"case_number", row.CaseNumber,
		"status", status,
		"failed_stage", out.FailedStage,
		"elapsed_ms", elapsed.Milliseconds(),
	)
	d.emit(RowEvent{Row: row, Outcome: &out, Err: rowErr, Elapsed: elapsed})

	if rowErr != nil && common.IsFatal(rowErr) {
		span.RecordError(rowErr)
		span.SetStatus(codes.Error, "fatal")
		return rowErr
	}
	return nil
}

func (d *Driver) planRow(ctx context.Context, row *entity.LedgerRow, stats *Stats) error {
	start := time.Now()
	plan, err := d.proc.Plan(ctx, row.Request())
	if err != nil && common.IsFatal(err) {
		return err
	}
	stats.Planned++
	d.emit(RowEvent{Row: row, Plan: plan, Err: err, Elapsed: time.Since(start)})
	return nil
}

func (d *Driver) emit(ev RowEvent) {
	if d.OnRow != nil {
		d.OnRow(ev)
	}
}
