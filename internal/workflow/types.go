// Package workflow implements the four-stage document approval engine:
// stage transitions, SLA due dates, escalation, approver routing and the
// urgency-ordered approval queue.
package workflow

import (
	"encoding/json"
	"time"
)

// Stage is one of the four fixed review steps.
type Stage int

const (
	StageValidation Stage = 1
	StageCompliance Stage = 2
	StageLegal      Stage = 3
	StageFinal      Stage = 4
)

const (
	FirstStage = StageValidation
	LastStage  = StageFinal
)

var stageNames = map[Stage]string{
	StageValidation: "Automated Validation",
	StageCompliance: "Compliance Review",
	StageLegal:      "Legal Review",
	StageFinal:      "Final Approval",
}

// Name returns the human-readable stage name.
func (s Stage) Name() string {
	if n, ok := stageNames[s]; ok {
		return n
	}
	return "Unknown"
}

// Valid reports whether s is one of the four stages.
func (s Stage) Valid() bool {
	return s >= FirstStage && s <= LastStage
}

// Next returns the following stage, or false at the final stage.
func (s Stage) Next() (Stage, bool) {
	if s >= LastStage || !s.Valid() {
		return s, false
	}
	return s + 1, true
}

// StageInfo describes a stage for listings.
type StageInfo struct {
	Number Stage  `json:"number"`
	Name   string `json:"name"`
}

// Stages returns all stages in order.
func Stages() []StageInfo {
	out := make([]StageInfo, 0, int(LastStage))
	for s := FirstStage; s <= LastStage; s++ {
		out = append(out, StageInfo{Number: s, Name: s.Name()})
	}
	return out
}

// Status is the lifecycle state of a workflow.
type Status string

const (
	StatusInReview  Status = "in_review"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusInReview, StatusApproved, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusCancelled
}

// Priority orders work in the approval queue.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Weight is the priority's contribution to the urgency score.
func (p Priority) Weight() int {
	switch p {
	case PriorityUrgent:
		return 100
	case PriorityHigh:
		return 60
	case PriorityLow:
		return 10
	default:
		return 30
	}
}

// Workflow is a single document's progress through the approval pipeline.
type Workflow struct {
	ID              string          `json:"id"`
	DocumentID      string          `json:"documentId"`
	DocumentType    string          `json:"documentType"`
	Title           string          `json:"title"`
	ProjectID       string          `json:"projectId,omitempty"`
	ClientID        string          `json:"clientId,omitempty"`
	Stage           Stage           `json:"stage"`
	Status          Status          `json:"status"`
	Priority        Priority        `json:"priority"`
	SLAHours        int             `json:"slaHours"`
	DueAt           time.Time       `json:"dueAt"`
	EscalationLevel int             `json:"escalationLevel"`
	LastEscalatedAt *time.Time      `json:"lastEscalatedAt,omitempty"`
	SubmittedBy     string          `json:"submittedBy"`
	Metadata        json.RawMessage `json:"metadata,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
	CompletedAt     *time.Time      `json:"completedAt,omitempty"`
	Version         int             `json:"version"`
}

// Overdue reports whether an in-review workflow has passed its due date.
func (w *Workflow) Overdue(now time.Time) bool {
	return w.Status == StatusInReview && now.After(w.DueAt)
}

// QueueStatus is the state of an approval queue item.
type QueueStatus string

const (
	QueuePending    QueueStatus = "pending"
	QueueApproved   QueueStatus = "approved"
	QueueRejected   QueueStatus = "rejected"
	QueueCancelled  QueueStatus = "cancelled"
	QueueReassigned QueueStatus = "reassigned"
)

// QueueItem assigns an approver to a workflow's stage.
type QueueItem struct {
	ID         string      `json:"id"`
	WorkflowID string      `json:"workflowId"`
	Stage      Stage       `json:"stage"`
	ApproverID string      `json:"approverId"`
	Status     QueueStatus `json:"status"`
	AssignedAt time.Time   `json:"assignedAt"`
	DueAt      time.Time   `json:"dueAt"`
	DecidedAt  *time.Time  `json:"decidedAt,omitempty"`

	// Joined from the workflow for listings.
	Title           string   `json:"title,omitempty"`
	DocumentType    string   `json:"documentType,omitempty"`
	Priority        Priority `json:"priority,omitempty"`
	EscalationLevel int      `json:"escalationLevel"`

	Urgency int  `json:"urgency"`
	Overdue bool `json:"overdue"`
}

// HistoryAction names an audit trail entry.
type HistoryAction string

const (
	ActionSubmitted        HistoryAction = "submitted"
	ActionApproved         HistoryAction = "approved"
	ActionRejected         HistoryAction = "rejected"
	ActionStageAdvanced    HistoryAction = "stage_advanced"
	ActionEscalated        HistoryAction = "escalated"
	ActionReassigned       HistoryAction = "reassigned"
	ActionCancelled        HistoryAction = "cancelled"
	ActionCompleted        HistoryAction = "completed"
	ActionValidationFailed HistoryAction = "validation_failed"
)

// HistoryEntry is one append-only audit record.
type HistoryEntry struct {
	ID         string          `json:"id"`
	WorkflowID string          `json:"workflowId"`
	Seq        int             `json:"seq"`
	Action     HistoryAction   `json:"action"`
	Stage      Stage           `json:"stage"`
	ActorID    string          `json:"actorId"`
	Comment    string          `json:"comment,omitempty"`
	Details    json.RawMessage `json:"details,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// WorkflowFilter narrows workflow listings. Zero values mean "any".
type WorkflowFilter struct {
	Status       Status
	Stage        Stage
	Priority     Priority
	ProjectID    string
	ClientID     string
	DocumentType string
	Overdue      bool
	// AsOf is the reference time for Overdue. The engine fills it in.
	AsOf   time.Time
	Limit  int
	Offset int
}

// QueueSort selects the approval queue ordering.
type QueueSort string

const (
	SortUrgency  QueueSort = "urgency"
	SortDue      QueueSort = "due"
	SortPriority QueueSort = "priority"
	SortAssigned QueueSort = "assigned"
)

// Valid reports whether s is a known ordering. Empty means urgency.
func (s QueueSort) Valid() bool {
	switch s {
	case "", SortUrgency, SortDue, SortPriority, SortAssigned:
		return true
	}
	return false
}

// QueueFilter narrows pending queue listings. Zero values mean "any".
type QueueFilter struct {
	ApproverID   string
	Stage        Stage
	Priority     Priority
	DocumentType string
	OverdueOnly  bool
	DueWithin    time.Duration
	Sort         QueueSort
	Limit        int
	Offset       int
	// AsOf is the reference time for overdue and due-within checks.
	AsOf time.Time
}

// QueueSummary counts an approver's pending work.
type QueueSummary struct {
	ApproverID string        `json:"approverId"`
	Pending    int           `json:"pending"`
	Overdue    int           `json:"overdue"`
	DueSoon    int           `json:"dueSoon"`
	ByStage    map[Stage]int `json:"byStage"`
}
