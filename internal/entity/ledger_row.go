package entity

import (
	"time"

	"github.com/joseph-ayodele/caseflow/constants"
)

// LedgerRow is one row of transfer_ledger. Timestamps are unix milliseconds so the
// same schema works on SQLite and PostgreSQL.
type LedgerRow struct {
	ID         int64  `db:"id" json:"id"`
	CaseNumber string `db:"case_number" json:"case_number"`
	OldOwnerID string `db:"old_owner_id" json:"old_owner_id"`
	NewOwnerID string `db:"new_owner_id" json:"new_owner_id"`

	Status       string  `db:"status" json:"status"`
	FailedStage  *string `db:"failed_stage" json:"failed_stage,omitempty"`
	ErrorMessage *string `db:"error_message" json:"error_message,omitempty"`

	FetchCaseStatus           *string `db:"fetch_case_status" json:"fetch_case_status,omitempty"`
	LookupNewCaseworkerStatus *string `db:"lookup_new_caseworker_status" json:"lookup_new_caseworker_status,omitempty"`
	UpdateTasksStatus         *string `db:"update_tasks_status" json:"update_tasks_status,omitempty"`
	UpdateCaseStatus          *string `db:"update_case_status" json:"update_case_status,omitempty"`
	CreateTaskStatus          *string `db:"create_task_status" json:"create_task_status,omitempty"`

	FetchCaseResponse   *string `db:"fetch_case_response" json:"fetch_case_response,omitempty"`
	UpdateTasksResponse *string `db:"update_tasks_response" json:"update_tasks_response,omitempty"`
	UpdateCaseResponse  *string `db:"update_case_response" json:"update_case_response,omitempty"`
	CreateTaskResponse  *string `db:"create_task_response" json:"create_task_response,omitempty"`

	Attempts      int    `db:"attempts" json:"attempts"`
	CreatedAt     int64  `db:"created_at" json:"created_at"`
	LastAttemptAt *int64 `db:"last_attempt_at" json:"last_attempt_at,omitempty"`
	ProcessedAt   *int64 `db:"processed_at" json:"processed_at,omitempty"`
}

// Request returns the transfer triple of the row.
func (r *LedgerRow) Request() TransferRequest {
	return TransferRequest{CaseNumber: r.CaseNumber, OldOwnerID: r.OldOwnerID, NewOwnerID: r.NewOwnerID}
}

// Pending reports whether the driver may pick the row up.
func (r *LedgerRow) Pending() bool {
	return r.Status == string(constants.RowStatusPending)
}

// ProcessedTime returns processed_at as a time, or the zero time.
func (r *LedgerRow) ProcessedTime() time.Time {
	if r.ProcessedAt == nil {
		return time.Time{}
	}
	return time.UnixMilli(*r.ProcessedAt).UTC()
}

// Outcome carries the result of one row's pipeline run. Stage fields that were not
// reached stay nil.
type Outcome struct {
	Status       constants.RowStatus
	FailedStage  constants.Stage
	ErrorMessage string

	FetchCaseStatus           *string
	LookupNewCaseworkerStatus *string
	UpdateTasksStatus         *string
	UpdateCaseStatus          *string
	CreateTaskStatus          *string

	FetchCaseResponse   *string
	UpdateTasksResponse *string
	UpdateCaseResponse  *string
	CreateTaskResponse  *string

	ProcessedAt time.Time
}

// Fail marks the outcome failed at stage with err.
func (o *Outcome) Fail(stage constants.Stage, err error) {
	o.Status = constants.RowStatusFailed
	o.FailedStage = stage
	if err != nil {
		o.ErrorMessage = err.Error()
	}
}

// Succeeded reports whether the row reached the terminal success state.
func (o *Outcome) Succeeded() bool {
	return o.Status == constants.RowStatusSucceeded
}

// StrPtr returns a pointer to s.
func StrPtr(s string) *string {
	return &s
}
