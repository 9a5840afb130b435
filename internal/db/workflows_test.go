package db

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	derrors "github.com/randalmurphal/dossier/internal/errors"
	"github.com/randalmurphal/dossier/internal/model"
	"github.com/randalmurphal/dossier/internal/workflow"
)

var baseTime = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

func newWorkflow(due time.Time) *workflow.Workflow {
	return &workflow.Workflow{
		ID:           uuid.NewString(),
		DocumentID:   "doc-" + uuid.NewString()[:8],
		DocumentType: "contract",
		Title:        "Master services agreement",
		Stage:        workflow.StageValidation,
		Status:       workflow.StatusInReview,
		Priority:     workflow.PriorityNormal,
		SLAHours:     24,
		DueAt:        due,
		SubmittedBy:  "alice",
		Metadata:     json.RawMessage(`{"amount":100}`),
		CreatedAt:    baseTime,
		UpdatedAt:    baseTime,
		Version:      1,
	}
}

func newItem(wf *workflow.Workflow, approver string) *workflow.QueueItem {
	return &workflow.QueueItem{
		ID:         uuid.NewString(),
		WorkflowID: wf.ID,
		Stage:      wf.Stage,
		ApproverID: approver,
		Status:     workflow.QueuePending,
		AssignedAt: baseTime,
		DueAt:      wf.DueAt,
	}
}

func insert(t *testing.T, s *WorkflowStore, wf *workflow.Workflow, approver string) *workflow.QueueItem {
	t.Helper()
	item := newItem(wf, approver)
	require.NoError(t, s.RunInTx(context.Background(), func(tx workflow.Tx) error {
		if err := tx.InsertWorkflow(wf); err != nil {
			return err
		}
		return tx.InsertQueueItem(item)
	}))
	return item
}

func TestWorkflowStore_InsertAndGet(t *testing.T) {
	t.Parallel()
	d := NewTestDB(t)
	s := d.Workflows()
	ctx := context.Background()

	wf := newWorkflow(baseTime.Add(24 * time.Hour))
	insert(t, s, wf, "bob")

	got, err := s.GetWorkflow(ctx, wf.ID)
	require.NoError(t, err)
	assert.Equal(t, wf.DocumentID, got.DocumentID)
	assert.Equal(t, workflow.StageValidation, got.Stage)
	assert.True(t, wf.DueAt.Equal(got.DueAt))
	assert.JSONEq(t, `{"amount":100}`, string(got.Metadata))
	assert.Nil(t, got.LastEscalatedAt)
	assert.Nil(t, got.CompletedAt)
	assert.Empty(t, got.ProjectID)

	_, err = s.GetWorkflow(ctx, "missing")
	assert.True(t, derrors.HasCode(err, derrors.CodeWorkflowNotFound))
}

func TestWorkflowStore_InsertLinksProjectClient(t *testing.T) {
	t.Parallel()
	d := NewTestDB(t)
	s := d.Workflows()
	ctx := context.Background()

	c := seedClient(t, d, "Acme")
	other := seedClient(t, d, "Other")
	p := &model.Project{ClientID: c.ID, Name: "Roof", Status: model.ProjectActive}
	require.NoError(t, d.CreateProject(ctx, p))

	wf := newWorkflow(baseTime)
	wf.ProjectID = p.ID
	insert(t, s, wf, "bob")
	assert.Equal(t, c.ID, wf.ClientID, "client is inherited from the project")

	tests := []struct {
		name      string
		projectID string
		clientID  string
		field     string
	}{
		{"unknown project", "missing", "", "projectId"},
		{"unknown client", "", "missing", "clientId"},
		{"client does not own project", p.ID, other.ID, "clientId"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wf := newWorkflow(baseTime)
			wf.ProjectID, wf.ClientID = tt.projectID, tt.clientID
			err := s.RunInTx(ctx, func(tx workflow.Tx) error { return tx.InsertWorkflow(wf) })
			de := derrors.AsDossierError(err)
			require.NotNil(t, de)
			assert.Equal(t, derrors.CodeValidationFailed, de.Code)
			assert.Contains(t, de.Fields, tt.field)
		})
	}
}

func TestWorkflowStore_UpdateVersionConflict(t *testing.T) {
	t.Parallel()
	d := NewTestDB(t)
	s := d.Workflows()
	ctx := context.Background()

	wf := newWorkflow(baseTime)
	insert(t, s, wf, "bob")

	stale := *wf
	wf.Stage = workflow.StageCompliance
	require.NoError(t, s.RunInTx(ctx, func(tx workflow.Tx) error { return tx.UpdateWorkflow(wf) }))
	assert.Equal(t, 2, wf.Version)

	stale.Priority = workflow.PriorityUrgent
	err := s.RunInTx(ctx, func(tx workflow.Tx) error { return tx.UpdateWorkflow(&stale) })
	assert.True(t, derrors.HasCode(err, derrors.CodeConflict))
	assert.Equal(t, 1, stale.Version)

	got, err := s.GetWorkflow(ctx, wf.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.PriorityNormal, got.Priority)
	assert.Equal(t, workflow.StageCompliance, got.Stage)

	missing := newWorkflow(baseTime)
	err = s.RunInTx(ctx, func(tx workflow.Tx) error { return tx.UpdateWorkflow(missing) })
	assert.True(t, derrors.HasCode(err, derrors.CodeWorkflowNotFound))
}

func TestWorkflowStore_OnePendingItemPerWorkflow(t *testing.T) {
	t.Parallel()
	d := NewTestDB(t)
	s := d.Workflows()
	ctx := context.Background()

	wf := newWorkflow(baseTime)
	first := insert(t, s, wf, "bob")

	err := s.RunInTx(ctx, func(tx workflow.Tx) error { return tx.InsertQueueItem(newItem(wf, "carol")) })
	require.Error(t, err)

	require.NoError(t, s.RunInTx(ctx, func(tx workflow.Tx) error {
		if err := tx.UpdateQueueItemStatus(first.ID, workflow.QueueReassigned, baseTime); err != nil {
			return err
		}
		return tx.InsertQueueItem(newItem(wf, "carol"))
	}))

	err = s.RunInTx(ctx, func(tx workflow.Tx) error {
		return tx.UpdateQueueItemStatus(first.ID, workflow.QueueApproved, baseTime)
	})
	assert.True(t, derrors.HasCode(err, derrors.CodeConflict))

	err = s.RunInTx(ctx, func(tx workflow.Tx) error {
		return tx.UpdateQueueItemStatus("missing", workflow.QueueApproved, baseTime)
	})
	assert.True(t, derrors.HasCode(err, derrors.CodeQueueItemNotFound))

	var pending []*workflow.QueueItem
	require.NoError(t, s.RunInTx(ctx, func(tx workflow.Tx) error {
		var err error
		pending, err = tx.PendingQueueItems(wf.ID)
		return err
	}))
	require.Len(t, pending, 1)
	assert.Equal(t, "carol", pending[0].ApproverID)
	assert.Equal(t, wf.Title, pending[0].Title)
}

func TestWorkflowStore_HistoryAppendOnly(t *testing.T) {
	t.Parallel()
	d := NewTestDB(t)
	s := d.Workflows()
	ctx := context.Background()

	wf := newWorkflow(baseTime)
	insert(t, s, wf, "bob")

	for _, action := range []workflow.HistoryAction{workflow.ActionSubmitted, workflow.ActionApproved} {
		e := &workflow.HistoryEntry{
			ID:         uuid.NewString(),
			WorkflowID: wf.ID,
			Action:     action,
			Stage:      wf.Stage,
			ActorID:    "bob",
			Details:    json.RawMessage(`{"k":"v"}`),
			CreatedAt:  baseTime,
		}
		require.NoError(t, s.RunInTx(ctx, func(tx workflow.Tx) error { return tx.AppendHistory(e) }))
	}

	entries, err := s.ListHistory(ctx, wf.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 1, entries[0].Seq)
	assert.Equal(t, 2, entries[1].Seq)
	assert.Equal(t, workflow.ActionApproved, entries[1].Action)
	assert.JSONEq(t, `{"k":"v"}`, string(entries[0].Details))

	_, err = d.ExecContext(ctx, `UPDATE workflow_history SET actor_id = 'mallory' WHERE workflow_id = ?`, wf.ID)
	assert.Error(t, err)
	_, err = d.ExecContext(ctx, `DELETE FROM workflow_history WHERE workflow_id = ?`, wf.ID)
	assert.Error(t, err)

	entries, err = s.ListHistory(ctx, wf.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestWorkflowStore_ListQueue(t *testing.T) {
	t.Parallel()
	d := NewTestDB(t)
	s := d.Workflows()
	ctx := context.Background()
	now := baseTime

	overdue := newWorkflow(now.Add(-2 * time.Hour))
	overdue.Priority = workflow.PriorityHigh
	soon := newWorkflow(now.Add(3 * time.Hour))
	soon.DocumentType = "invoice"
	later := newWorkflow(now.Add(72 * time.Hour))
	insert(t, s, overdue, "bob")
	insert(t, s, soon, "bob")
	insert(t, s, later, "carol")

	tests := []struct {
		name   string
		filter workflow.QueueFilter
		want   []string
	}{
		{"approver", workflow.QueueFilter{ApproverID: "bob"}, []string{overdue.ID, soon.ID}},
		{"overdue only", workflow.QueueFilter{OverdueOnly: true}, []string{overdue.ID}},
		{"due within", workflow.QueueFilter{DueWithin: 24 * time.Hour}, []string{overdue.ID, soon.ID}},
		{"priority", workflow.QueueFilter{Priority: workflow.PriorityHigh}, []string{overdue.ID}},
		{"document type", workflow.QueueFilter{DocumentType: "invoice"}, []string{soon.ID}},
		{"stage", workflow.QueueFilter{Stage: workflow.StageLegal}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.filter.AsOf = now
			items, err := s.ListQueue(ctx, tt.filter)
			require.NoError(t, err)
			ids := []string{}
			for _, it := range items {
				ids = append(ids, it.WorkflowID)
			}
			if tt.want == nil {
				assert.Empty(t, ids)
				return
			}
			assert.ElementsMatch(t, tt.want, ids)
		})
	}
}

func TestWorkflowStore_ListWorkflows(t *testing.T) {
	t.Parallel()
	d := NewTestDB(t)
	s := d.Workflows()
	ctx := context.Background()

	a := newWorkflow(baseTime.Add(-time.Hour))
	b := newWorkflow(baseTime.Add(time.Hour))
	b.CreatedAt = baseTime.Add(time.Minute)
	b.Priority = workflow.PriorityUrgent
	insert(t, s, a, "bob")
	insert(t, s, b, "bob")

	all, err := s.ListWorkflows(ctx, workflow.WorkflowFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, b.ID, all[0].ID, "newest first")

	od, err := s.ListWorkflows(ctx, workflow.WorkflowFilter{Overdue: true, AsOf: baseTime})
	require.NoError(t, err)
	require.Len(t, od, 1)
	assert.Equal(t, a.ID, od[0].ID)

	urgent, err := s.ListWorkflows(ctx, workflow.WorkflowFilter{Priority: workflow.PriorityUrgent})
	require.NoError(t, err)
	require.Len(t, urgent, 1)

	page, err := s.ListWorkflows(ctx, workflow.WorkflowFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, a.ID, page[0].ID)
}

func TestWorkflowStore_ListEscalationCandidates(t *testing.T) {
	t.Parallel()
	d := NewTestDB(t)
	s := d.Workflows()
	ctx := context.Background()
	now := baseTime

	fresh := newWorkflow(now.Add(-time.Hour))
	recent := newWorkflow(now.Add(-5 * time.Hour))
	justNow := now.Add(-30 * time.Minute)
	recent.EscalationLevel, recent.LastEscalatedAt = 1, &justNow
	capped := newWorkflow(now.Add(-10 * time.Hour))
	capped.EscalationLevel = 3
	notDue := newWorkflow(now.Add(time.Hour))
	for _, wf := range []*workflow.Workflow{fresh, recent, capped, notDue} {
		insert(t, s, wf, "bob")
	}

	got, err := s.ListEscalationCandidates(ctx, now, now.Add(-4*time.Hour), 3)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, fresh.ID, got[0].ID)

	got, err = s.ListEscalationCandidates(ctx, now, now, 0)
	require.NoError(t, err)
	ids := []string{}
	for _, wf := range got {
		ids = append(ids, wf.ID)
	}
	assert.Equal(t, []string{capped.ID, recent.ID, fresh.ID}, ids, "most overdue first")
}
