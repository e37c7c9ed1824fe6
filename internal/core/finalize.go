package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/caseflow/internal/nova"
)

// noteDateLayout is the timestamp format the case service uses for task dates.
const noteDateLayout = "2006-01-02T15:04:05"

// FinalizeResult records both finalize calls. Note is nil when the case update failed.
type FinalizeResult struct {
	Case    *nova.Response
	CaseErr error
	Note    *nova.Response
	NoteErr error
}

// Finalizer moves the case itself to the new owner and documents the transfer
// with a confirmation task. The two calls are not atomic.
type Finalizer struct {
	svc    CaseService
	note   NoteSettings
	now    func() time.Time
	logger *slog.Logger
}

func NewFinalizer(svc CaseService, note NoteSettings, now func() time.Time, logger *slog.Logger) *Finalizer {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Finalizer{svc: svc, note: note.withDefaults(), now: now, logger: logger}
}

// Finalize replaces the case owner and, only if that succeeded, creates the
// confirmation note. The note is created even when no task moved.
func (f *Finalizer) Finalize(ctx context.Context, caseID string, newOwner *Identity, oldName, newName string) FinalizeResult {
	var res FinalizeResult
	res.Case, res.CaseErr = f.updateCase(ctx, caseID, newOwner)
	if res.CaseErr != nil {
		return res
	}
	res.Note, res.NoteErr = f.createNote(ctx, caseID, newOwner, oldName, newName)
	return res
}

func (f *Finalizer) updateCase(ctx context.Context, caseID string, newOwner *Identity) (*nova.Response, error) {
	resp, err := f.svc.UpdateCaseCaseworker(ctx, caseID, newOwner.Ksp())
	if err != nil {
		f.logger.Warn("finalize.case.failed", "case_uuid", caseID, "err", err)
		return nil, err
	}
	return resp, nil
}

func (f *Finalizer) createNote(ctx context.Context, caseID string, newOwner *Identity, oldName, newName string) (*nova.Response, error) {
	resp, err := f.svc.CreateTask(ctx, f.noteTask(caseID, newOwner, oldName, newName))
	if err != nil {
		f.logger.Warn("finalize.note.failed", "case_uuid", caseID, "err", err)
		return nil, err
	}
	return resp, nil
}

func (f *Finalizer) noteTask(caseID string, newOwner *Identity, oldName, newName string) nova.NewTask {
	return nova.NewTask{
		CaseUUID:    caseID,
		Title:       f.note.Title,
		Description: NoteDescription(oldName, newName),
		StatusCode:  f.note.Status,
		TaskType:    f.note.TaskType,
		StartDate:   f.now().Format(noteDateLayout),
		Caseworker:  newOwner.Ksp(),
	}
}

// NoteDescription is the confirmation text naming the previous and the new owner.
func NoteDescription(oldName, newName string) string {
	return fmt.Sprintf("Sagsbehandler skiftet fra %s til %s", oldName, newName)
}
