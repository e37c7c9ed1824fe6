package core

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/caseflow/constants"
	"github.com/joseph-ayodele/caseflow/internal/common"
)

func TestLocate_PicksFirstCandidateMatchingOwnerAndNumber(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *fakeNova)
		want  string
	}{
		{
			name: "first candidate has another owner",
			setup: func(f *fakeNova) {
				f.addCase("case-a", "S1", "SOMEONE", "Someone")
				f.addCase("case-b", "s1", "az60026", "Old Owner")
			},
			want: "case-b",
		},
		{
			name: "first candidate has another case number",
			setup: func(f *fakeNova) {
				f.addCase("case-a", "S1-2", "AZ60026", "Old Owner")
				f.addCase("case-b", "S1", "AZ60026", "Old Owner")
			},
			want: "case-b",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeNova(t)
			tt.setup(f)

			ref, raw, err := NewLocator(f.client(500), quietLogger()).Locate(context.Background(), "S1", "AZ60026")
			require.NoError(t, err)
			assert.Equal(t, tt.want, ref.InternalID)
			assert.Equal(t, "Old Owner", ref.OwnerDisplayName)
			assert.NotEmpty(t, raw)
		})
	}
}

func TestLocate_NoMatch(t *testing.T) {
	f := newFakeNova(t)
	_, raw, err := NewLocator(f.client(500), quietLogger()).Locate(context.Background(), "S404", "AZ60026")
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.NotEmpty(t, raw)
	assert.Equal(t, constants.StatusNotFound, common.StageStatus(err))
}

func TestResolve_FallsBackToTaskSearch(t *testing.T) {
	f := newFakeNova(t)
	f.addTask("case-x", "t-1", "a", "S", "AZMTM01")

	r := NewResolver(f.client(500), NewIdentityCache(), quietLogger())
	id, err := r.Resolve(context.Background(), "azmtm01")
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, "AZMTM01", id.OwnerID())
	assert.Equal(t, "nova-azmtm01", id.InternalUserID())
	assert.Equal(t, "Team AZMTM01", id.OrgUnit().FullName)
	assert.Equal(t, 1, f.count("case.by_worker"))
	assert.Equal(t, 1, f.count("task.by_worker"))
}

func TestResolve_CachesHitsAndMisses(t *testing.T) {
	f := newFakeNova(t)
	f.addCase("case-1", "S1", "AZMTM01", "New Owner")
	cache := NewIdentityCache()
	r := NewResolver(f.client(500), cache, quietLogger())
	ctx := context.Background()

	first, err := r.Resolve(ctx, "AZMTM01")
	require.NoError(t, err)
	second, err := r.Resolve(ctx, "azmtm01")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, f.count("case.by_worker"))

	for range 2 {
		missing, err := r.Resolve(ctx, "GHOST")
		require.NoError(t, err)
		assert.Nil(t, missing)
	}
	assert.Equal(t, 2, f.count("case.by_worker"))
	assert.Equal(t, 1, f.count("task.by_worker"))
	assert.Equal(t, 2, cache.Len())
}

func TestReassign_FiltersClosedAndForeignTasks(t *testing.T) {
	f := newFakeNova(t)
	f.addTask("case-1", "open-1", "a", "S", "AZ60026")
	f.addTask("case-1", "closed", "b", constants.TaskStatusClosed, "AZ60026")
	f.addTask("case-1", "foreign", "c", "S", "AZ99999")
	f.addTask("case-1", "lower", "d", "S", "az60026")
	f.addTask("case-1", "open-2", "e", "N", "AZ60026")

	newOwner := &Identity{}
	require.NoError(t, jsonInto(caseworker("AZMTM01", "New Owner"), &newOwner.Caseworker))

	report, err := NewReassigner(f.client(2), quietLogger()).
		ReassignOpenTasks(context.Background(), "case-1", "AZ60026", newOwner)
	require.NoError(t, err)

	assert.Equal(t, "updated:2;failed:0", report.Summary())
	require.Len(t, report.Tasks, 2)
	assert.Equal(t, "open-1", report.Tasks[0].TaskID)
	assert.Equal(t, "open-2", report.Tasks[1].TaskID)
	assert.Equal(t, "200", report.Tasks[0].Status)
	assert.Equal(t, 3, f.count("task.by_case"))
}

func TestReassign_MalformedTaskFailsAlone(t *testing.T) {
	f := newFakeNova(t)
	f.addTask("case-1", "good", "a", "S", "AZ60026")
	f.addTask("case-1", "bad", "b", "S", "AZ60026")
	f.tasks["case-1"][1]["taskTitle"] = 42
	f.addTask("case-1", "no-case", "c", "S", "AZ60026")
	delete(f.tasks["case-1"][2], "caseUuid")

	newOwner := &Identity{}
	require.NoError(t, jsonInto(caseworker("AZMTM01", "New Owner"), &newOwner.Caseworker))

	report, err := NewReassigner(f.client(500), quietLogger()).
		ReassignOpenTasks(context.Background(), "case-1", "AZ60026", newOwner)
	require.NoError(t, err)

	assert.Equal(t, "updated:2;failed:1", report.Summary())
	require.Len(t, report.Tasks, 3)
	assert.Equal(t, constants.StatusError, report.Tasks[1].Status)
	assert.Contains(t, report.Tasks[1].Error, "schema")
	assert.Equal(t, 2, f.count("task.update"))
	require.Len(t, f.taskUpdates, 2)
	assert.Equal(t, "no-case", f.taskUpdates[1]["uuid"])
	assert.Equal(t, "case-1", f.taskUpdates[1]["caseUuid"])
}

func TestReassign_EnumerationFailureIsRowError(t *testing.T) {
	f := newFakeNova(t)
	f.srv.Close()

	_, err := NewReassigner(f.client(500), quietLogger()).
		ReassignOpenTasks(context.Background(), "case-1", "AZ60026", &Identity{})
	assert.Error(t, err)
}

func TestFinalize_CaseFailureSkipsNote(t *testing.T) {
	f := newFakeNova(t)
	f.caseUpdateStatus = http.StatusForbidden
	owner := &Identity{}
	require.NoError(t, jsonInto(caseworker("AZMTM01", "New Owner"), &owner.Caseworker))

	res := NewFinalizer(f.client(500), NoteSettings{}, nil, quietLogger()).
		Finalize(context.Background(), "case-1", owner, "Old", "New")
	require.Error(t, res.CaseErr)
	assert.Nil(t, res.Note)
	assert.NoError(t, res.NoteErr)
	assert.Equal(t, 0, f.count("task.import"))

	f.caseUpdateStatus = 0
	res = NewFinalizer(f.client(500), NoteSettings{Title: "Skift"}, nil, quietLogger()).
		Finalize(context.Background(), "case-1", owner, "Old", "New")
	require.NoError(t, res.CaseErr)
	require.NoError(t, res.NoteErr)
	assert.Equal(t, "Skift", f.imports[0]["title"])
	assert.Equal(t, NoteDescription("Old", "New"), f.imports[0]["description"])
}

func TestRowStateOrder(t *testing.T) {
	want := []constants.Stage{
		constants.StageFetchCase,
		constants.StageLookupOwner,
		constants.StageUpdateTasks,
		constants.StageUpdateCase,
		constants.StageCreateTask,
	}
	states := []constants.RowState{
		constants.StatePending,
		constants.StateCaseLocated,
		constants.StateOwnerResolved,
		constants.StateTasksUpdated,
		constants.StateCaseFinalized,
	}
	for i, s := range states {
		assert.Equal(t, want[i], s.NextStage())
		assert.False(t, s.Terminal())
	}
	assert.True(t, constants.StateNoteCreated.Terminal())
	assert.True(t, constants.StateFailed.Terminal())
}
