// Package events provides workflow event types and in-process fan-out.
package events

import (
	"time"
)

// EventType defines the type of event.
type EventType string

const (
	// EventWorkflowStarted indicates a document entered the approval pipeline.
	EventWorkflowStarted EventType = "workflow_started"
	// EventStageAdvanced indicates a stage was approved and the next one opened.
	EventStageAdvanced EventType = "stage_advanced"
	// EventWorkflowApproved indicates final approval.
	EventWorkflowApproved EventType = "workflow_approved"
	// EventWorkflowRejected indicates a rejection at any stage.
	EventWorkflowRejected EventType = "workflow_rejected"
	// EventWorkflowEscalated indicates the escalation level was raised.
	EventWorkflowEscalated EventType = "workflow_escalated"
	// EventWorkflowCancelled indicates the submitter withdrew the document.
	EventWorkflowCancelled EventType = "workflow_cancelled"
	// EventQueueReassigned indicates a pending queue item moved to another approver.
	EventQueueReassigned EventType = "queue_reassigned"
)

// Event represents a published event.
type Event struct {
	Type       EventType `json:"type"`
	WorkflowID string    `json:"workflow_id"`
	Data       any       `json:"data"`
	Time       time.Time `json:"time"`
}

// NewEvent creates a new event with the current timestamp.
func NewEvent(eventType EventType, workflowID string, data any) Event {
	return Event{
		Type:       eventType,
		WorkflowID: workflowID,
		Data:       data,
		Time:       time.Now().UTC(),
	}
}

// StageChange is the payload for stage_advanced events.
type StageChange struct {
	FromStage  int       `json:"from_stage"`
	ToStage    int       `json:"to_stage"`
	ApproverID string    `json:"approver_id"`
	DueAt      time.Time `json:"due_at"`
}

// Escalation is the payload for workflow_escalated events.
type Escalation struct {
	Level  int    `json:"level"`
	Stage  int    `json:"stage"`
	Reason string `json:"reason"`
	Actor  string `json:"actor"`
}

// Reassignment is the payload for queue_reassigned events.
type Reassignment struct {
	QueueItemID string `json:"queue_item_id"`
	FromID      string `json:"from_approver_id"`
	ToID        string `json:"to_approver_id"`
	Stage       int    `json:"stage"`
}
