package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/caseflow/constants"
	"github.com/joseph-ayodele/caseflow/internal/entity"
	"github.com/joseph-ayodele/caseflow/internal/repository"
)

const (
	ledgerSheet  = "Ledger"
	summarySheet = "Summary"
	timeLayout   = "2006-01-02 15:04:05"
)

// Service produces XLSX audit reports of the transfer ledger.
type Service struct {
	ledger repository.LedgerRepository
	logger *slog.Logger
}

func NewService(ledger repository.LedgerRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{ledger: ledger, logger: logger}
}

var ledgerHeaders = []string{
	"Case Number",
	"Old Owner",
	"New Owner",
	"Status",
	"Failed Stage",
	"Error",
	"Fetch Case",
	"Lookup New Caseworker",
	"Update Tasks",
	"Update Case",
	"Create Task",
	"Attempts",
	"Last Attempt",
	"Processed At",
}

// ExportLedgerXLSX returns a workbook with one row per ledger row (filtered by
// status unless it is empty) and a per-status summary sheet.
func (s *Service) ExportLedgerXLSX(ctx context.Context, status constants.RowStatus) ([]byte, error) {
	start := time.Now()

	rows, err := s.ledger.List(ctx, status, 0)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	counts, err := s.ledger.Counts(ctx)
	if err != nil {
		return nil, fmt.Errorf("count ledger: %w", err)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), ledgerSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, err
	}
	activeIndex, _ := f.GetSheetIndex(ledgerSheet)
	f.SetActiveSheet(activeIndex)

	if err := f.SetSheetRow(ledgerSheet, "A1", &ledgerHeaders); err != nil {
		return nil, err
	}
	for i, r := range rows {
		values := ledgerValues(r)
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(ledgerSheet, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %s: %w", r.CaseNumber, err)
		}
	}
	if err := f.AutoFilter(ledgerSheet, fmt.Sprintf("A1:N%d", len(rows)+1), nil); err != nil {
		s.logger.Warn("export.xlsx.autofilter_failed", "err", err)
	}

	_ = f.SetColWidth(ledgerSheet, "A", "A", 18) // case number
	_ = f.SetColWidth(ledgerSheet, "B", "C", 12) // owners
	_ = f.SetColWidth(ledgerSheet, "D", "E", 22) // status, stage
	_ = f.SetColWidth(ledgerSheet, "F", "F", 60) // error
	_ = f.SetColWidth(ledgerSheet, "G", "K", 20) // stage statuses
	_ = f.SetColWidth(ledgerSheet, "M", "N", 20) // timestamps

	summary := [][]any{{"Status", "Rows"}}
	for _, st := range []constants.RowStatus{constants.RowStatusPending, constants.RowStatusSucceeded, constants.RowStatusFailed} {
		summary = append(summary, []any{string(st), counts[st]})
	}
	for i, values := range summary {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &values); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"status_filter", string(status),
		"rows", len(rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func ledgerValues(r *entity.LedgerRow) []any {
	return []any{
		r.CaseNumber,
		r.OldOwnerID,
		r.NewOwnerID,
		r.Status,
		deref(r.FailedStage),
		truncate(deref(r.ErrorMessage), 300),
		deref(r.FetchCaseStatus),
		deref(r.LookupNewCaseworkerStatus),
		deref(r.UpdateTasksStatus),
		deref(r.UpdateCaseStatus),
		deref(r.CreateTaskStatus),
		r.Attempts,
		formatMillis(r.LastAttemptAt),
		formatMillis(r.ProcessedAt),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatMillis(ms *int64) string {
	if ms == nil {
		return ""
	}
	return time.UnixMilli(*ms).UTC().Format(timeLayout)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
