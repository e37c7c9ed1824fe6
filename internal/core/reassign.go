package core

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/joseph-ayodele/caseflow/constants"
	"github.com/joseph-ayodele/caseflow/internal/common"
	"github.com/joseph-ayodele/caseflow/internal/nova"
)

// TaskResult is the outcome of one task update.
type TaskResult struct {
	TaskID string `json:"task_id"`
	Title  string `json:"title"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type TaskReport struct {
	Tasks   []TaskResult `json:"tasks"`
	Updated int          `json:"updated"`
	Failed  int          `json:"failed"`
}

// Summary is the value stored in update_tasks_status.
func (r *TaskReport) Summary() string {
	return fmt.Sprintf("updated:%d;failed:%d", r.Updated, r.Failed)
}

type Reassigner struct {
	svc    CaseService
	logger *slog.Logger
}

func NewReassigner(svc CaseService, logger *slog.Logger) *Reassigner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reassigner{svc: svc, logger: logger}
}

// OpenTasks lists the tasks of a case that are open and owned by oldOwnerID.
// The owner comparison is exact.
func (r *Reassigner) OpenTasks(ctx context.Context, caseID, oldOwnerID string) ([]nova.Task, error) {
	all, err := r.svc.ListTasksByCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	open := make([]nova.Task, 0, len(all))
	for _, t := range all {
		if t.Caseworker.RacfID() != oldOwnerID {
			continue
		}
		if t.StatusCode == constants.TaskStatusClosed {
			continue
		}
		open = append(open, t)
	}
	return open, nil
}

// ReassignOpenTasks moves every open task of oldOwnerID on the case to newOwner.
// A failing task is recorded and the remaining tasks are still attempted; only a
// failure to enumerate the tasks is returned as an error.
func (r *Reassigner) ReassignOpenTasks(ctx context.Context, caseID, oldOwnerID string, newOwner *Identity) (*TaskReport, error) {
	tasks, err := r.OpenTasks(ctx, caseID, oldOwnerID)
	if err != nil {
		return nil, err
	}

	report := &TaskReport{Tasks: make([]TaskResult, 0, len(tasks))}
	ksp := newOwner.Ksp()
	for _, t := range tasks {
		res := TaskResult{TaskID: t.UUID, Title: t.Title}
		status, err := r.updateTask(ctx, caseID, t, ksp)
		if err != nil {
			res.Status = constants.StatusError
			res.Error = err.Error()
			report.Failed++
			r.logger.Warn("reassign.task.failed", "case_uuid", caseID, "task_uuid", t.UUID, "err", err)
		} else {
			res.Status = status
			report.Updated++
			r.logger.Debug("reassign.task.updated", "case_uuid", caseID, "task_uuid", t.UUID, "status", status)
		}
		report.Tasks = append(report.Tasks, res)
	}
	return report, nil
}

func (r *Reassigner) updateTask(ctx context.Context, caseID string, t nova.Task, ksp nova.KspIdentity) (string, error) {
	if t.CaseUUID == "" {
		t = t.WithCaseUUID(caseID)
	}
	update, err := nova.BuildTaskUpdate(t, ksp)
	if err != nil {
		return "", err
	}
	resp, err := r.svc.UpdateTask(ctx, update)
	if err != nil {
		return common.StageStatus(err), err
	}
	return strconv.Itoa(resp.StatusCode), nil
}
