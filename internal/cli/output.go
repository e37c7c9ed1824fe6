package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/fatih/color"

	"github.com/joseph-ayodele/caseflow/constants"
	"github.com/joseph-ayodele/caseflow/internal/batch"
	"github.com/joseph-ayodele/caseflow/internal/entity"
)

var (
	okColor   = color.New(color.FgGreen)
	failColor = color.New(color.FgRed)
	skipColor = color.New(color.FgYellow)
	planColor = color.New(color.FgCyan)
)

// rowPrinter writes one console line per handled row.
func rowPrinter(w io.Writer) func(batch.RowEvent) {
	return func(ev batch.RowEvent) {
		caseNumber := ev.Row.CaseNumber
		switch {
		case ev.Skipped:
			_, _ = skipColor.Fprintf(w, "SKIP  %s (status %s)\n", caseNumber, ev.Row.Status)

		case ev.Plan != nil:
			p := ev.Plan
			_, _ = planColor.Fprintf(w, "PLAN  %s case=%s %s -> %s tasks=%d\n",
				caseNumber, p.Case.InternalID, ev.Row.OldOwnerID, p.NewOwner.DisplayName(), len(p.Tasks))
			for _, t := range p.Tasks {
				fmt.Fprintf(w, "      - %s %s [%s]\n", t.UUID, t.Title, t.StatusCode)
			}

		case ev.Outcome == nil:
			_, _ = failColor.Fprintf(w, "FAIL  %s %v\n", caseNumber, ev.Err)

		case ev.Outcome.Succeeded():
			_, _ = okColor.Fprintf(w, "OK    %s %s (%dms)\n",
				caseNumber, deref(ev.Outcome.UpdateTasksStatus), ev.Elapsed.Milliseconds())

		default:
			_, _ = failColor.Fprintf(w, "FAIL  %s at %s: %s\n",
				caseNumber, ev.Outcome.FailedStage, ev.Outcome.ErrorMessage)
		}
	}
}

func statusColor(status string) *color.Color {
	switch constants.RowStatus(status) {
	case constants.RowStatusSucceeded:
		return okColor
	case constants.RowStatusFailed:
		return failColor
	default:
		return skipColor
	}
}

// ledgerTable renders rows as a bordered table.
func ledgerTable(rows []*entity.LedgerRow) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers("CASE", "OLD", "NEW", "STATUS", "STAGE", "TASKS", "ATTEMPTS", "PROCESSED")
	for _, r := range rows {
		processed := ""
		if ts := r.ProcessedTime(); !ts.IsZero() {
			processed = ts.Local().Format("2006-01-02 15:04")
		}
		t.Row(
			r.CaseNumber,
			r.OldOwnerID,
			r.NewOwnerID,
			r.Status,
			deref(r.FailedStage),
			deref(r.UpdateTasksStatus),
			fmt.Sprint(r.Attempts),
			processed,
		)
	}
	return t.String()
}

func rowDetail(w io.Writer, r *entity.LedgerRow) {
	line := func(k, v string) {
		if v != "" {
			fmt.Fprintf(w, "%-28s %s\n", k+":", v)
		}
	}
	line("case_number", r.CaseNumber)
	line("old_owner_id", r.OldOwnerID)
	line("new_owner_id", r.NewOwnerID)
	fmt.Fprintf(w, "%-28s %s\n", "status:", statusColor(r.Status).Sprint(r.Status))
	line("failed_stage", deref(r.FailedStage))
	line("error_message", deref(r.ErrorMessage))
	line("fetch_case_status", deref(r.FetchCaseStatus))
	line("lookup_new_caseworker_status", deref(r.LookupNewCaseworkerStatus))
	line("update_tasks_status", deref(r.UpdateTasksStatus))
	line("update_case_status", deref(r.UpdateCaseStatus))
	line("create_task_status", deref(r.CreateTaskStatus))
	line("attempts", fmt.Sprint(r.Attempts))
	if ts := r.ProcessedTime(); !ts.IsZero() {
		line("processed_at", ts.Format("2006-01-02 15:04:05Z07:00"))
	}
	line("update_tasks_response", shorten(deref(r.UpdateTasksResponse), 400))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func shorten(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
