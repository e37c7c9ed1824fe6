package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/jmoiron/sqlx"

	"github.com/joseph-ayodele/caseflow/constants"
	"github.com/joseph-ayodele/caseflow/internal/common"
	"github.com/joseph-ayodele/caseflow/internal/entity"
)

// maxSnapshotLen caps the audit response snapshots stored per stage.
const maxSnapshotLen = 4000

type LedgerRepository interface {
	UpsertRequest(ctx context.Context, req entity.TransferRequest) (inserted bool, err error)
	SelectPending(ctx context.Context, limit int) ([]*entity.LedgerRow, error)
	RecordOutcome(ctx context.Context, caseNumber string, out entity.Outcome) error
	Get(ctx context.Context, caseNumber string) (*entity.LedgerRow, error)
	List(ctx context.Context, status constants.RowStatus, limit int) ([]*entity.LedgerRow, error)
	Counts(ctx context.Context) (map[constants.RowStatus]int, error)
	Reset(ctx context.Context, caseNumber string) error
	ResetFailed(ctx context.Context) (int64, error)
}

type ledgerRepo struct {
	db  *sqlx.DB
	log *slog.Logger
	now func() time.Time
}

func NewLedgerRepository(db *sqlx.DB, log *slog.Logger) LedgerRepository {
	if log == nil {
		log = slog.Default()
	}
	return &ledgerRepo{db: db, log: log, now: time.Now}
}

const ledgerColumns = `id, case_number, old_owner_id, new_owner_id, status, failed_stage, error_message,
	fetch_case_status, lookup_new_caseworker_status, update_tasks_status, update_case_status, create_task_status,
	fetch_case_response, update_tasks_response, update_case_response, create_task_response,
	attempts, created_at, last_attempt_at, processed_at`

// UpsertRequest inserts a new request or overwrites the owner fields of an existing one.
// Status and outcome columns of an existing row are left untouched.
func (r *ledgerRepo) UpsertRequest(ctx context.Context, req entity.TransferRequest) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, common.PersistenceError("begin upsert", err)
	}
	defer func() { _ = tx.Rollback() }()

	var existing int
	if err := tx.GetContext(ctx, &existing,
		tx.Rebind(`SELECT COUNT(*) FROM transfer_ledger WHERE case_number = ?`), req.CaseNumber); err != nil {
		return false, common.PersistenceError("lookup request", err)
	}

	_, err = tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO transfer_ledger (case_number, old_owner_id, new_owner_id, status, attempts, created_at)
		VALUES (?, ?, ?, ?, 0, ?)
		ON CONFLICT (case_number) DO UPDATE SET
			old_owner_id = excluded.old_owner_id,
			new_owner_id = excluded.new_owner_id`),
		req.CaseNumber, req.OldOwnerID, req.NewOwnerID, string(constants.RowStatusPending), r.now().UnixMilli())
	if err != nil {
		r.log.Error("ledger upsert failed", "case_number", req.CaseNumber, "err", err)
		return false, common.PersistenceError("upsert request", err)
	}
	if err := tx.Commit(); err != nil {
		return false, common.PersistenceError("commit upsert", err)
	}
	return existing == 0, nil
}

// SelectPending returns pending rows in insertion order. limit <= 0 means no limit.
func (r *ledgerRepo) SelectPending(ctx context.Context, limit int) ([]*entity.LedgerRow, error) {
	rows, err := r.List(ctx, constants.RowStatusPending, limit)
	if err != nil {
		return nil, common.PersistenceError("select pending", err)
	}
	return rows, nil
}

// RecordOutcome overwrites the outcome columns of a row in one transaction. A row is
// never left PENDING by this call.
func (r *ledgerRepo) RecordOutcome(ctx context.Context, caseNumber string, out entity.Outcome) error {
	status := out.Status
	if status == "" || status == constants.RowStatusPending {
		status = constants.RowStatusFailed
	}
	processedAt := out.ProcessedAt
	if processedAt.IsZero() {
		processedAt = r.now()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return common.PersistenceError("begin record outcome", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, tx.Rebind(`
		UPDATE transfer_ledger SET
			status = ?,
			failed_stage = ?,
			error_message = ?,
			fetch_case_status = ?,
			lookup_new_caseworker_status = ?,
			update_tasks_status = ?,
			update_case_status = ?,
			create_task_status = ?,
			fetch_case_response = ?,
			update_tasks_response = ?,
			update_case_response = ?,
			create_task_response = ?,
			attempts = attempts + 1,
			last_attempt_at = ?,
			processed_at = ?
		WHERE case_number = ?`),
		string(status),
		nullIfEmpty(string(out.FailedStage)),
		nullIfEmpty(out.ErrorMessage),
		out.FetchCaseStatus,
		out.LookupNewCaseworkerStatus,
		out.UpdateTasksStatus,
		out.UpdateCaseStatus,
		out.CreateTaskStatus,
		truncateSnapshot(out.FetchCaseResponse),
		truncateSnapshot(out.UpdateTasksResponse),
		truncateSnapshot(out.UpdateCaseResponse),
		truncateSnapshot(out.CreateTaskResponse),
		r.now().UnixMilli(),
		processedAt.UnixMilli(),
		caseNumber,
	)
	if err != nil {
		r.log.Error("ledger record outcome failed", "case_number", caseNumber, "err", err)
		return common.PersistenceError("record outcome", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.PersistenceError("record outcome", common.NotFoundf("ledger row %s", caseNumber))
	}
	if err := tx.Commit(); err != nil {
		return common.PersistenceError("commit record outcome", err)
	}
	r.log.Debug("ledger outcome recorded", "case_number", caseNumber, "status", status, "failed_stage", out.FailedStage)
	return nil
}

func (r *ledgerRepo) Get(ctx context.Context, caseNumber string) (*entity.LedgerRow, error) {
	var row entity.LedgerRow
	err := r.db.GetContext(ctx, &row,
		r.db.Rebind(`SELECT `+ledgerColumns+` FROM transfer_ledger WHERE case_number = ?`), caseNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFoundf("ledger row %s", caseNumber)
	}
	if err != nil {
		return nil, common.PersistenceError("get row", err)
	}
	return &row, nil
}

// List returns rows in insertion order, filtered by status unless status is empty.
func (r *ledgerRepo) List(ctx context.Context, status constants.RowStatus, limit int) ([]*entity.LedgerRow, error) {
	query := `SELECT ` + ledgerColumns + ` FROM transfer_ledger`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY id`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	var rows []*entity.LedgerRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ledgerRepo) Counts(ctx context.Context) (map[constants.RowStatus]int, error) {
	var rows []struct {
		Status string `db:"status"`
		N      int    `db:"n"`
	}
	if err := r.db.SelectContext(ctx, &rows,
		`SELECT status, COUNT(*) AS n FROM transfer_ledger GROUP BY status`); err != nil {
		return nil, common.PersistenceError("count rows", err)
	}
	out := map[constants.RowStatus]int{}
	for _, row := range rows {
		out[constants.RowStatus(row.Status)] = row.N
	}
	return out, nil
}

const resetColumns = `
	status = ?,
	failed_stage = NULL,
	error_message = NULL,
	fetch_case_status = NULL,
	lookup_new_caseworker_status = NULL,
	update_tasks_status = NULL,
	update_case_status = NULL,
	create_task_status = NULL,
	processed_at = NULL`

// Reset clears the stage fields of one row so the next run picks it up again.
// Response snapshots, attempts and last_attempt_at are kept for audit.
func (r *ledgerRepo) Reset(ctx context.Context, caseNumber string) error {
	res, err := r.db.ExecContext(ctx,
		r.db.Rebind(`UPDATE transfer_ledger SET`+resetColumns+` WHERE case_number = ?`),
		string(constants.RowStatusPending), caseNumber)
	if err != nil {
		return common.PersistenceError("reset row", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.NotFoundf("ledger row %s", caseNumber)
	}
	r.log.Info("ledger row reset", "case_number", caseNumber)
	return nil
}

// ResetFailed makes every FAILED row pending again and returns how many were reset.
func (r *ledgerRepo) ResetFailed(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		r.db.Rebind(`UPDATE transfer_ledger SET`+resetColumns+` WHERE status = ?`),
		string(constants.RowStatusPending), string(constants.RowStatusFailed))
	if err != nil {
		return 0, common.PersistenceError("reset failed rows", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, common.PersistenceError("reset failed rows", err)
	}
	r.log.Info("ledger failed rows reset", "count", n)
	return n, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func truncateSnapshot(s *string) *string {
	if s == nil || utf8.RuneCountInString(*s) <= maxSnapshotLen {
		return s
	}
	t := string([]rune(*s)[:maxSnapshotLen-1]) + "…"
	return &t
}
