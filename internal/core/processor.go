package core

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/joseph-ayodele/caseflow/constants"
	"github.com/joseph-ayodele/caseflow/internal/common"
	"github.com/joseph-ayodele/caseflow/internal/entity"
	"github.com/joseph-ayodele/caseflow/internal/nova"
)

// Processor runs one transfer request through the row state machine:
// PENDING, CASE_LOCATED, OWNER_RESOLVED, TASKS_UPDATED, CASE_FINALIZED, NOTE_CREATED.
// Any stage error moves the row to FAILED and skips the remaining stages.
type Processor struct {
	sess       *Session
	locator    *Locator
	resolver   *Resolver
	reassigner *Reassigner
	finalizer  *Finalizer
	tracer     trace.Tracer
	logger     *slog.Logger
}

func NewProcessor(sess *Session) *Processor {
	return &Processor{
		sess:       sess,
		locator:    NewLocator(sess.Service, sess.Logger),
		resolver:   NewResolver(sess.Service, sess.Cache, sess.Logger),
		reassigner: NewReassigner(sess.Service, sess.Logger),
		finalizer:  NewFinalizer(sess.Service, sess.Note, sess.Now, sess.Logger),
		tracer:     otel.Tracer("github.com/joseph-ayodele/caseflow/internal/core"),
		logger:     sess.Logger,
	}
}

// rowRun carries what earlier stages produced for later ones.
type rowRun struct {
	req      entity.TransferRequest
	ref      *CaseRef
	newOwner *Identity
	final    *FinalizeResult
	out      entity.Outcome
}

// Process runs all stages for req. The outcome is always usable for the ledger;
// the returned error is the stage error that failed the row, if any.
func (p *Processor) Process(ctx context.Context, req entity.TransferRequest) (entity.Outcome, error) {
	run := &rowRun{req: req}
	ctx = common.WithCaseNumber(ctx, req.CaseNumber)

	state := constants.StatePending
	var rowErr error
	for !state.Terminal() {
		stage := state.NextStage()
		next, err := p.runStage(ctx, run, state, stage)
		if err != nil {
			run.out.Fail(stage, err)
			rowErr = err
			state = constants.StateFailed
			p.logger.Warn("processor.row.failed",
				"case_number", req.CaseNumber,
				"stage", stage,
				"status", common.StageStatus(err),
				"err", err,
			)
			break
		}
		p.logger.Debug("processor.row.transition", "case_number", req.CaseNumber, "from", state, "to", next)
		state = next
	}

	if state == constants.StateNoteCreated {
		run.out.Status = constants.RowStatusSucceeded
	}
	run.out.ProcessedAt = p.sess.Now()
	return run.out, rowErr
}

func (p *Processor) runStage(ctx context.Context, run *rowRun, from constants.RowState, stage constants.Stage) (constants.RowState, error) {
	ctx, span := p.tracer.Start(ctx, "caseflow.stage",
		trace.WithAttributes(
			attribute.String("caseflow.stage", string(stage)),
			attribute.String("caseflow.case_number", run.req.CaseNumber),
		))
	defer span.End()

	next, err := p.stage(ctx, run, from, stage)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, common.StageStatus(err))
	}
	return next, err
}

func (p *Processor) stage(ctx context.Context, run *rowRun, from constants.RowState, stage constants.Stage) (constants.RowState, error) {
	out := &run.out
	switch stage {
	case constants.StageFetchCase:
		ref, raw, err := p.locator.Locate(ctx, run.req.CaseNumber, run.req.OldOwnerID)
		out.FetchCaseResponse = snapshot(raw)
		out.FetchCaseStatus = entity.StrPtr(common.StageStatus(err))
		if err != nil {
			return from, err
		}
		run.ref = ref
		return constants.StateCaseLocated, nil

	case constants.StageLookupOwner:
		id, err := p.resolver.Resolve(ctx, run.req.NewOwnerID)
		if err == nil && id == nil {
			err = common.NotFoundf("caseworker %s", run.req.NewOwnerID)
		}
		out.LookupNewCaseworkerStatus = entity.StrPtr(common.StageStatus(err))
		if err != nil {
			return from, err
		}
		run.newOwner = id
		return constants.StateOwnerResolved, nil

	case constants.StageUpdateTasks:
		report, err := p.reassigner.ReassignOpenTasks(ctx, run.ref.InternalID, run.req.OldOwnerID, run.newOwner)
		if err != nil {
			out.UpdateTasksStatus = entity.StrPtr(common.StageStatus(err))
			return from, err
		}
		out.UpdateTasksStatus = entity.StrPtr(report.Summary())
		if b, err := json.Marshal(report); err == nil {
			out.UpdateTasksResponse = snapshot(b)
		}
		return constants.StateTasksUpdated, nil

	case constants.StageUpdateCase:
		// both finalize calls happen here; CREATE_TASK records the second one
		res := p.finalizer.Finalize(ctx, run.ref.InternalID, run.newOwner,
			run.ref.OwnerDisplayName, run.newOwner.DisplayName())
		run.final = &res
		out.UpdateCaseStatus, out.UpdateCaseResponse = responseFields(res.Case, res.CaseErr)
		if res.CaseErr != nil {
			return from, res.CaseErr
		}
		return constants.StateCaseFinalized, nil

	case constants.StageCreateTask:
		if run.final == nil {
			break
		}
		out.CreateTaskStatus, out.CreateTaskResponse = responseFields(run.final.Note, run.final.NoteErr)
		if run.final.NoteErr != nil {
			return from, run.final.NoteErr
		}
		return constants.StateNoteCreated, nil
	}
	return constants.StateFailed, common.NewAppError("STATE_ERROR", "no stage after "+string(from), nil)
}

// Plan is what a row would change, computed without any mutation.
type Plan struct {
	Case     *CaseRef
	NewOwner *Identity
	Tasks    []nova.Task
}

// Plan locates the case, resolves the new owner and lists the tasks that would move.
func (p *Processor) Plan(ctx context.Context, req entity.TransferRequest) (*Plan, error) {
	ref, _, err := p.locator.Locate(ctx, req.CaseNumber, req.OldOwnerID)
	if err != nil {
		return nil, err
	}
	id, err := p.resolver.Resolve(ctx, req.NewOwnerID)
	if err != nil {
		return nil, err
	}
	if id == nil {
		return nil, common.NotFoundf("caseworker %s", req.NewOwnerID)
	}
	tasks, err := p.reassigner.OpenTasks(ctx, ref.InternalID, req.OldOwnerID)
	if err != nil {
		return nil, err
	}
	return &Plan{Case: ref, NewOwner: id, Tasks: tasks}, nil
}

func responseFields(resp *nova.Response, err error) (status, body *string) {
	if err != nil {
		var rce *common.RemoteCallError
		if errors.As(err, &rce) {
			return entity.StrPtr(common.StageStatus(err)), entity.StrPtr(rce.Body)
		}
		return entity.StrPtr(common.StageStatus(err)), nil
	}
	return entity.StrPtr(strconv.Itoa(resp.StatusCode)), snapshot(resp.Body)
}

func snapshot(b []byte) *string {
	if len(b) == 0 {
		return nil
	}
	s := string(b)
	return &s
}
