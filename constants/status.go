package constants

// RowStatus is the canonical status for rows in transfer_ledger.
type RowStatus string

// Stable values (store these exact strings in DB).
const (
	RowStatusPending   RowStatus = "PENDING"   // eligible for the next run
	RowStatusSucceeded RowStatus = "SUCCEEDED" // confirmation note created
	RowStatusFailed    RowStatus = "FAILED"    // aborted at failed_stage
)

// Stage names one step of the per-row pipeline. A failed row records the
// stage it was in when the error happened.
type Stage string

const (
	StageNotStarted  Stage = ""
	StageFetchCase   Stage = "FETCH_CASE"
	StageLookupOwner Stage = "LOOKUP_NEW_CASEWORKER"
	StageUpdateTasks Stage = "UPDATE_TASKS"
	StageUpdateCase  Stage = "UPDATE_CASE"
	StageCreateTask  Stage = "CREATE_TASK"
)

// Stage status values written into the ledger besides plain HTTP status codes.
const (
	StatusOK       = "200"
	StatusNotFound = "404"
	StatusError    = "ERROR"
)

// TaskStatusClosed is the terminal task status code; every other code is open.
const TaskStatusClosed = "F"

// RowState is the in-memory state machine position of a row while it is processed.
type RowState string

const (
	StatePending       RowState = "PENDING"
	StateCaseLocated   RowState = "CASE_LOCATED"
	StateOwnerResolved RowState = "OWNER_RESOLVED"
	StateTasksUpdated  RowState = "TASKS_UPDATED"
	StateCaseFinalized RowState = "CASE_FINALIZED"
	StateNoteCreated   RowState = "NOTE_CREATED"
	StateFailed        RowState = "FAILED"
)

// NextStage returns the stage entered when leaving state s.
func (s RowState) NextStage() Stage {
	switch s {
	case StatePending:
		return StageFetchCase
	case StateCaseLocated:
		return StageLookupOwner
	case StateOwnerResolved:
		return StageUpdateTasks
	case StateTasksUpdated:
		return StageUpdateCase
	case StateCaseFinalized:
		return StageCreateTask
	default:
		return StageNotStarted
	}
}

// Terminal reports whether no further transition is possible from s.
func (s RowState) Terminal() bool {
	return s == StateNoteCreated || s == StateFailed
}
