package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/dossier/internal/workflow"
)

func TestWorkflowApprovalOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	wf := env.start(t, "doc-1")
	assert.Equal(t, workflow.StageValidation, wf.Stage)
	assert.Equal(t, workflow.StatusInReview, wf.Status)

	approvers := []string{"val", "comp", "legal", "boss"}
	for i, approver := range approvers {
		var out workflow.Workflow
		status := env.do(t, http.MethodPost, "/api/workflows/"+wf.ID+"/approve", map[string]any{
			"approverId": approver,
			"comment":    "ok",
		}, &out)
		require.Equal(t, http.StatusOK, status, "stage %d", i+1)
		if i < len(approvers)-1 {
			assert.Equal(t, workflow.Stage(i+2), out.Stage)
		} else {
			assert.Equal(t, workflow.StatusApproved, out.Status)
		}
	}

	var history []workflow.HistoryEntry
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/workflows/"+wf.ID+"/history", nil, &history))
	require.NotEmpty(t, history)
	assert.Equal(t, workflow.ActionSubmitted, history[0].Action)
	assert.Equal(t, workflow.ActionCompleted, history[len(history)-1].Action)
}

func TestWorkflowDecisionErrors(t *testing.T) {
	env := newTestEnv(t)
	wf := env.start(t, "doc-1")

	tests := []struct {
		name     string
		path     string
		body     map[string]any
		status   int
		wantCode string
	}{
		{
			name:     "wrong approver",
			path:     "/approve",
			body:     map[string]any{"approverId": "mallory"},
			status:   http.StatusForbidden,
			wantCode: "APPROVER_NOT_ASSIGNED",
		},
		{
			name:     "stage mismatch",
			path:     "/approve",
			body:     map[string]any{"approverId": "val", "stage": 3},
			status:   http.StatusConflict,
			wantCode: "STAGE_MISMATCH",
		},
		{
			name:     "reject without reason",
			path:     "/reject",
			body:     map[string]any{"approverId": "val"},
			status:   http.StatusBadRequest,
			wantCode: "VALIDATION_FAILED",
		},
		{
			name:     "cancel without actor",
			path:     "/cancel",
			body:     map[string]any{},
			status:   http.StatusBadRequest,
			wantCode: "VALIDATION_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var apiErr APIError
			status := env.do(t, http.MethodPost, "/api/workflows/"+wf.ID+tt.path, tt.body, &apiErr)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.wantCode, apiErr.Code)
		})
	}

	var apiErr APIError
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/workflows/missing", nil, &apiErr))
	assert.Equal(t, "WORKFLOW_NOT_FOUND", apiErr.Code)
}

func TestWorkflowRejectAndCancel(t *testing.T) {
	env := newTestEnv(t)
	rejected := env.start(t, "doc-1")
	cancelled := env.start(t, "doc-2")

	var out workflow.Workflow
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/workflows/"+rejected.ID+"/reject",
		map[string]any{"approverId": "val", "comment": "missing signature"}, &out))
	assert.Equal(t, workflow.StatusRejected, out.Status)

	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/workflows/"+cancelled.ID+"/cancel",
		map[string]any{"actorId": "alice", "reason": "superseded"}, &out))
	assert.Equal(t, workflow.StatusCancelled, out.Status)

	var apiErr APIError
	assert.Equal(t, http.StatusConflict, env.do(t, http.MethodPost, "/api/workflows/"+cancelled.ID+"/approve",
		map[string]any{"approverId": "val"}, &apiErr))
	assert.Equal(t, "WORKFLOW_INVALID_STATE", apiErr.Code)
}

func TestListWorkflowsFilters(t *testing.T) {
	env := newTestEnv(t)
	first := env.start(t, "doc-1")
	env.start(t, "doc-2")
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/workflows/"+first.ID+"/approve",
		map[string]any{"approverId": "val"}, nil))

	tests := []struct {
		name   string
		query  string
		want   int
		status int
	}{
		{name: "all", query: "", want: 2, status: http.StatusOK},
		{name: "by stage", query: "?stage=2", want: 1, status: http.StatusOK},
		{name: "by status", query: "?status=in_review", want: 2, status: http.StatusOK},
		{name: "limit", query: "?limit=1", want: 1, status: http.StatusOK},
		{name: "overdue", query: "?overdue=true", want: 0, status: http.StatusOK},
		{name: "bad stage", query: "?stage=9", status: http.StatusBadRequest},
		{name: "bad bool", query: "?overdue=maybe", status: http.StatusBadRequest},
		{name: "bad status", query: "?status=lost", status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.status != http.StatusOK {
				assert.Equal(t, tt.status, env.do(t, http.MethodGet, "/api/workflows"+tt.query, nil, nil))
				return
			}
			var list []workflow.Workflow
			require.Equal(t, tt.status, env.do(t, http.MethodGet, "/api/workflows"+tt.query, nil, &list))
			assert.Len(t, list, tt.want)
		})
	}
}

func TestManualEscalation(t *testing.T) {
	env := newTestEnv(t)
	wf := env.start(t, "doc-1")

	var out workflow.Workflow
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/workflows/"+wf.ID+"/escalate",
		map[string]any{"actorId": "manager", "reason": "customer waiting"}, &out))
	assert.Equal(t, 1, out.EscalationLevel)
	assert.NotNil(t, out.LastEscalatedAt)
}
