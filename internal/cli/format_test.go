package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	derrors "github.com/randalmurphal/dossier/internal/errors"
	"github.com/randalmurphal/dossier/internal/workflow"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		input    string
		maxLen   int
		expected string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is a longer string", 10, "this is..."},
		{"", 5, ""},
		{"abcd", 3, "..."},
		{"héllo wörld", 8, "héllo..."},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, truncate(tt.input, tt.maxLen), "truncate(%q, %d)", tt.input, tt.maxLen)
	}
}

func TestRelativeDue(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		due      time.Time
		expected string
	}{
		{now.Add(30 * time.Second), "in <1m"},
		{now.Add(45 * time.Minute), "in 45m"},
		{now.Add(5 * time.Hour), "in 5h"},
		{now.Add(72 * time.Hour), "in 3d"},
		{now.Add(-3 * time.Hour), "3h overdue"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, relativeDue(tt.due, now))
	}
}

func TestStatusIcon(t *testing.T) {
	assert.Equal(t, "⏳", statusIcon(workflow.StatusInReview))
	assert.Equal(t, "✅", statusIcon(workflow.StatusApproved))
	assert.Equal(t, "❌", statusIcon(workflow.StatusRejected))
	assert.Equal(t, "⊘", statusIcon(workflow.StatusCancelled))
	assert.Equal(t, "❓", statusIcon(workflow.Status("lost")))
}

func TestPrintQueue(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	summary := &workflow.QueueSummary{
		ApproverID: "val",
		Pending:    2,
		Overdue:    1,
		ByStage:    map[workflow.Stage]int{workflow.StageLegal: 1, workflow.StageValidation: 1},
	}
	items := []*workflow.QueueItem{
		{
			ID: "q-1", WorkflowID: "wf-1", Stage: workflow.StageLegal, Title: "Master services agreement",
			DocumentType: "contract", Priority: workflow.PriorityHigh, DueAt: now.Add(-2 * time.Hour),
			EscalationLevel: 2, Urgency: 144, Overdue: true,
		},
		{
			ID: "q-2", WorkflowID: "wf-2", Stage: workflow.StageValidation, Title: "Invoice",
			DocumentType: "invoice", Priority: workflow.PriorityNormal, DueAt: now.Add(30 * time.Hour), Urgency: 30,
		},
	}

	var buf bytes.Buffer
	printQueue(&buf, terminal{width: 80}, summary, items, now)
	out := buf.String()

	assert.Contains(t, out, "Queue for val")
	assert.Contains(t, out, "2 pending, 1 overdue")
	assert.Contains(t, out, "stage 1: 1 · stage 3: 1")
	assert.Contains(t, out, "2h overdue")
	assert.Contains(t, out, "↑2")
	assert.Contains(t, out, "workflow wf-2")
	assert.Less(t, strings.Index(out, "wf-1"), strings.Index(out, "wf-2"))
	assert.NotContains(t, out, "\x1b[")
}

func TestPrintError(t *testing.T) {
	var buf bytes.Buffer
	PrintError(&buf, derrors.ErrValidation("invalid workflow submission", map[string]string{
		"title":      "required",
		"documentId": "required",
	}))
	out := buf.String()
	assert.Contains(t, out, "invalid workflow submission")
	assert.Less(t, strings.Index(out, "documentId"), strings.Index(out, "title"))

	buf.Reset()
	PrintError(&buf, errors.New("boom"))
	assert.Equal(t, "Error: boom\n", buf.String())
}
