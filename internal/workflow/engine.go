package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	derrors "github.com/randalmurphal/dossier/internal/errors"
	"github.com/randalmurphal/dossier/internal/events"
	"github.com/randalmurphal/dossier/internal/tracing"
)

// ReasonSLABreached is the escalation reason used by the sweeper.
const ReasonSLABreached = "sla_breached"

// DefaultDocumentType is used when a start request names none.
const DefaultDocumentType = "general"

// Engine drives workflows through their stages. All mutations run in a
// single store transaction; events are published only after commit.
type Engine struct {
	store     Store
	settings  Settings
	router    *Router
	validator *Validator
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
	onChange  []func(workflowID string)
}

// NewEngine creates an engine over store.
func NewEngine(store Store, opts ...Option) (*Engine, error) {
	e := &Engine{
		store:    store,
		settings: DefaultSettings(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.publisher == nil {
		e.publisher = events.NewNopPublisher()
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}

	router, err := NewRouter(e.settings.Routing, e.settings.StageApprovers)
	if err != nil {
		return nil, derrors.ErrConfigInvalid("workflow.routing", err.Error())
	}
	e.router = router

	validator, err := NewValidator(e.settings.Validation)
	if err != nil {
		return nil, derrors.ErrConfigInvalid("workflow.validation", err.Error())
	}
	e.validator = validator

	return e, nil
}

// Settings returns the engine policy.
func (e *Engine) Settings() Settings {
	return e.settings
}

// StartRequest submits a document for review.
type StartRequest struct {
	DocumentID   string          `json:"documentId"`
	DocumentType string          `json:"documentType"`
	Title        string          `json:"title"`
	ProjectID    string          `json:"projectId,omitempty"`
	ClientID     string          `json:"clientId,omitempty"`
	Priority     Priority        `json:"priority,omitempty"`
	SLAHours     int             `json:"slaHours,omitempty"`
	SubmittedBy  string          `json:"submittedBy"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
}

// DecisionRequest approves or rejects the current stage. Stage 0 means
// "whatever stage the workflow is at". Comment is required for rejections.
type DecisionRequest struct {
	WorkflowID string `json:"workflowId"`
	Stage      Stage  `json:"stage,omitempty"`
	ApproverID string `json:"approverId"`
	Comment    string `json:"comment,omitempty"`
}

// EscalateRequest raises a workflow's escalation level by hand.
type EscalateRequest struct {
	WorkflowID string `json:"workflowId"`
	ActorID    string `json:"actorId"`
	Reason     string `json:"reason,omitempty"`
}

// CancelRequest withdraws a workflow.
type CancelRequest struct {
	WorkflowID string `json:"workflowId"`
	ActorID    string `json:"actorId"`
	Reason     string `json:"reason,omitempty"`
}

// ReassignRequest moves a pending queue item to another approver.
type ReassignRequest struct {
	QueueItemID  string `json:"queueItemId"`
	ToApproverID string `json:"toApproverId"`
	ActorID      string `json:"actorId"`
	Comment      string `json:"comment,omitempty"`
}

// EscalationPolicy bounds automatic escalation.
type EscalationPolicy struct {
	ReescalateAfter time.Duration
	MaxLevel        int
}

// op is the state of one mutation: its transaction, its clock reading and
// the events to publish once it commits.
type op struct {
	tx     Tx
	now    time.Time
	events []events.Event
}

func (o *op) emit(t events.EventType, workflowID string, data any) {
	o.events = append(o.events, events.Event{Type: t, WorkflowID: workflowID, Data: data, Time: o.now})
}

func (e *Engine) mutate(ctx context.Context, name, workflowID string, fn func(o *op) error) error {
	ctx, span := tracing.StartSpan(ctx, "workflow."+name)
	if workflowID != "" {
		span.WithAttributes(map[string]string{"workflow_id": workflowID})
	}

	o := &op{now: e.now().UTC()}
	err := e.store.RunInTx(ctx, func(tx Tx) error {
		o.tx = tx
		o.events = o.events[:0]
		return fn(o)
	})
	span.End(err)
	if err != nil {
		return err
	}

	seen := make(map[string]bool)
	for _, ev := range o.events {
		if !seen[ev.WorkflowID] {
			seen[ev.WorkflowID] = true
			for _, hook := range e.onChange {
				hook(ev.WorkflowID)
			}
		}
		e.publisher.Publish(ev)
	}
	return nil
}

func (e *Engine) record(o *op, wf *Workflow, action HistoryAction, actor, comment string, details any) error {
	entry := &HistoryEntry{
		ID:         e.newID(),
		WorkflowID: wf.ID,
		Action:     action,
		Stage:      wf.Stage,
		ActorID:    actor,
		Comment:    comment,
		CreatedAt:  o.now,
	}
	if details != nil {
		b, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("marshal history details: %w", err)
		}
		entry.Details = b
	}
	return o.tx.AppendHistory(entry)
}

func (e *Engine) assign(o *op, wf *Workflow, approver string) (*QueueItem, error) {
	item := &QueueItem{
		ID:         e.newID(),
		WorkflowID: wf.ID,
		Stage:      wf.Stage,
		ApproverID: approver,
		Status:     QueuePending,
		AssignedAt: o.now,
		DueAt:      wf.DueAt,
	}
	if err := o.tx.InsertQueueItem(item); err != nil {
		return nil, err
	}
	return item, nil
}

func (e *Engine) dueAt(from time.Time, stage Stage, workflowHours int) time.Time {
	return from.Add(time.Duration(e.settings.slaHours(stage, workflowHours)) * time.Hour)
}

func snapshot(wf *Workflow) *Workflow {
	cp := *wf
	return &cp
}

// Start creates a workflow at stage 1 and queues it for its first approver.
// With auto-validation on, stage 1 is decided before Start returns.
func (e *Engine) Start(ctx context.Context, req StartRequest) (*Workflow, error) {
	if err := normalizeStart(&req); err != nil {
		return nil, err
	}

	var wf *Workflow
	err := e.mutate(ctx, "start", "", func(o *op) error {
		wf = &Workflow{
			ID:           e.newID(),
			DocumentID:   req.DocumentID,
			DocumentType: req.DocumentType,
			Title:        req.Title,
			ProjectID:    req.ProjectID,
			ClientID:     req.ClientID,
			Stage:        FirstStage,
			Status:       StatusInReview,
			Priority:     req.Priority,
			SLAHours:     req.SLAHours,
			DueAt:        e.dueAt(o.now, FirstStage, req.SLAHours),
			SubmittedBy:  req.SubmittedBy,
			Metadata:     req.Metadata,
			CreatedAt:    o.now,
			UpdatedAt:    o.now,
			Version:      1,
		}
		if err := o.tx.InsertWorkflow(wf); err != nil {
			return err
		}
		if err := e.record(o, wf, ActionSubmitted, req.SubmittedBy, "", map[string]any{
			"document_id": wf.DocumentID,
			"priority":    wf.Priority,
		}); err != nil {
			return err
		}

		approver := e.router.Assign(wf.DocumentType, FirstStage)
		if e.settings.AutoValidate {
			approver = SystemActor
		}
		item, err := e.assign(o, wf, approver)
		if err != nil {
			return err
		}
		o.emit(events.EventWorkflowStarted, wf.ID, snapshot(wf))

		if e.settings.AutoValidate {
			return e.autoValidate(o, wf, item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("workflow started",
		"workflow_id", wf.ID,
		"document_id", wf.DocumentID,
		"stage", int(wf.Stage),
		"status", wf.Status,
	)
	return wf, nil
}

func normalizeStart(req *StartRequest) error {
	req.DocumentID = strings.TrimSpace(req.DocumentID)
	req.Title = strings.TrimSpace(req.Title)
	req.SubmittedBy = strings.TrimSpace(req.SubmittedBy)
	req.DocumentType = strings.TrimSpace(req.DocumentType)
	if req.DocumentType == "" {
		req.DocumentType = DefaultDocumentType
	}
	if req.Priority == "" {
		req.Priority = PriorityNormal
	}

	fields := map[string]string{}
	if req.DocumentID == "" {
		fields["documentId"] = "required"
	}
	if req.Title == "" {
		fields["title"] = "required"
	}
	if req.SubmittedBy == "" {
		fields["submittedBy"] = "required"
	}
	if !req.Priority.Valid() {
		fields["priority"] = fmt.Sprintf("unknown priority %q", req.Priority)
	}
	if req.SLAHours < 0 {
		fields["slaHours"] = "must not be negative"
	}
	if len(req.Metadata) > 0 && !gjson.ParseBytes(req.Metadata).IsObject() {
		fields["metadata"] = "must be a JSON object"
	}
	if len(fields) > 0 {
		return derrors.ErrValidation("invalid workflow submission", fields)
	}
	return nil
}

func (e *Engine) autoValidate(o *op, wf *Workflow, item *QueueItem) error {
	violations := e.validator.Validate(wf.Metadata)
	if len(violations) == 0 {
		return e.approveTx(o, wf, item, SystemActor, "automated validation passed")
	}
	if err := e.record(o, wf, ActionValidationFailed, SystemActor, "", map[string]any{
		"violations": violations,
	}); err != nil {
		return err
	}
	return e.rejectTx(o, wf, item, SystemActor, summarize(violations))
}

// Approve records an approval of the current stage and advances the
// workflow, or completes it at the final stage.
func (e *Engine) Approve(ctx context.Context, req DecisionRequest) (*Workflow, error) {
	if err := requireDecision(req, false); err != nil {
		return nil, err
	}

	var out *Workflow
	err := e.mutate(ctx, "approve", req.WorkflowID, func(o *op) error {
		wf, item, err := e.decisionTarget(o, req, "approve")
		if err != nil {
			return err
		}
		if err := e.approveTx(o, wf, item, req.ApproverID, req.Comment); err != nil {
			return err
		}
		out = wf
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("workflow approved",
		"workflow_id", out.ID,
		"approver_id", req.ApproverID,
		"stage", int(out.Stage),
		"status", out.Status,
	)
	return out, nil
}

// Reject ends the workflow at its current stage.
func (e *Engine) Reject(ctx context.Context, req DecisionRequest) (*Workflow, error) {
	if err := requireDecision(req, true); err != nil {
		return nil, err
	}

	var out *Workflow
	err := e.mutate(ctx, "reject", req.WorkflowID, func(o *op) error {
		wf, item, err := e.decisionTarget(o, req, "reject")
		if err != nil {
			return err
		}
		if err := e.rejectTx(o, wf, item, req.ApproverID, req.Comment); err != nil {
			return err
		}
		out = wf
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("workflow rejected",
		"workflow_id", out.ID,
		"approver_id", req.ApproverID,
		"stage", int(out.Stage),
	)
	return out, nil
}

func requireDecision(req DecisionRequest, needComment bool) error {
	fields := map[string]string{}
	if req.WorkflowID == "" {
		fields["workflowId"] = "required"
	}
	if req.ApproverID == "" {
		fields["approverId"] = "required"
	}
	if req.Stage != 0 && !req.Stage.Valid() {
		fields["stage"] = "must be between 1 and 4"
	}
	if needComment && strings.TrimSpace(req.Comment) == "" {
		fields["comment"] = "a rejection reason is required"
	}
	if len(fields) > 0 {
		return derrors.ErrValidation("invalid decision", fields)
	}
	return nil
}

// decisionTarget loads the workflow and the approver's pending item for
// its current stage, enforcing the decision preconditions.
func (e *Engine) decisionTarget(o *op, req DecisionRequest, action string) (*Workflow, *QueueItem, error) {
	wf, err := o.tx.GetWorkflow(req.WorkflowID)
	if err != nil {
		return nil, nil, err
	}
	if wf.Status != StatusInReview {
		return nil, nil, derrors.ErrWorkflowInvalidState(wf.ID, string(wf.Status), action)
	}
	if req.Stage != 0 && req.Stage != wf.Stage {
		return nil, nil, derrors.ErrStageMismatch(wf.ID, int(wf.Stage), int(req.Stage))
	}

	items, err := o.tx.PendingQueueItems(wf.ID)
	if err != nil {
		return nil, nil, err
	}
	for _, it := range items {
		if it.Stage == wf.Stage && it.ApproverID == req.ApproverID {
			return wf, it, nil
		}
	}
	return nil, nil, derrors.ErrApproverNotAssigned(wf.ID, req.ApproverID, int(wf.Stage))
}

func (e *Engine) approveTx(o *op, wf *Workflow, item *QueueItem, actor, comment string) error {
	if err := o.tx.UpdateQueueItemStatus(item.ID, QueueApproved, o.now); err != nil {
		return err
	}
	if err := e.record(o, wf, ActionApproved, actor, comment, nil); err != nil {
		return err
	}

	next, ok := wf.Stage.Next()
	if !ok {
		completed := o.now
		wf.Status = StatusApproved
		wf.CompletedAt = &completed
		wf.UpdatedAt = o.now
		if err := o.tx.UpdateWorkflow(wf); err != nil {
			return err
		}
		if err := e.record(o, wf, ActionCompleted, actor, "", nil); err != nil {
			return err
		}
		o.emit(events.EventWorkflowApproved, wf.ID, snapshot(wf))
		return nil
	}

	from := wf.Stage
	wf.Stage = next
	wf.DueAt = e.dueAt(o.now, next, wf.SLAHours)
	if e.settings.ResetEscalationOnAdvance {
		wf.EscalationLevel = 0
		wf.LastEscalatedAt = nil
	}
	wf.UpdatedAt = o.now
	if err := o.tx.UpdateWorkflow(wf); err != nil {
		return err
	}

	approver := e.router.Assign(wf.DocumentType, next)
	if _, err := e.assign(o, wf, approver); err != nil {
		return err
	}
	change := events.StageChange{
		FromStage:  int(from),
		ToStage:    int(next),
		ApproverID: approver,
		DueAt:      wf.DueAt,
	}
	if err := e.record(o, wf, ActionStageAdvanced, actor, "", change); err != nil {
		return err
	}
	o.emit(events.EventStageAdvanced, wf.ID, change)
	return nil
}

func (e *Engine) rejectTx(o *op, wf *Workflow, item *QueueItem, actor, reason string) error {
	if err := o.tx.UpdateQueueItemStatus(item.ID, QueueRejected, o.now); err != nil {
		return err
	}
	if err := e.cancelPending(o, wf.ID); err != nil {
		return err
	}

	completed := o.now
	wf.Status = StatusRejected
	wf.CompletedAt = &completed
	wf.UpdatedAt = o.now
	if err := o.tx.UpdateWorkflow(wf); err != nil {
		return err
	}
	if err := e.record(o, wf, ActionRejected, actor, reason, nil); err != nil {
		return err
	}
	o.emit(events.EventWorkflowRejected, wf.ID, snapshot(wf))
	return nil
}

func (e *Engine) cancelPending(o *op, workflowID string) error {
	items, err := o.tx.PendingQueueItems(workflowID)
	if err != nil {
		return err
	}
	for _, it := range items {
		if err := o.tx.UpdateQueueItemStatus(it.ID, QueueCancelled, o.now); err != nil {
			return err
		}
	}
	return nil
}

// Escalate raises the escalation level of an in-review workflow.
func (e *Engine) Escalate(ctx context.Context, req EscalateRequest) (*Workflow, error) {
	if req.WorkflowID == "" || req.ActorID == "" {
		return nil, derrors.ErrValidation("workflowId and actorId are required", nil)
	}
	if req.Reason == "" {
		req.Reason = "manual"
	}

	var out *Workflow
	err := e.mutate(ctx, "escalate", req.WorkflowID, func(o *op) error {
		wf, err := o.tx.GetWorkflow(req.WorkflowID)
		if err != nil {
			return err
		}
		if wf.Status != StatusInReview {
			return derrors.ErrWorkflowInvalidState(wf.ID, string(wf.Status), "escalate")
		}
		if err := e.escalateTx(o, wf, req.ActorID, req.Reason); err != nil {
			return err
		}
		out = wf
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Warn("workflow escalated",
		"workflow_id", out.ID,
		"level", out.EscalationLevel,
		"actor_id", req.ActorID,
		"reason", req.Reason,
	)
	return out, nil
}

// EscalationCandidates lists workflows eligible for automatic escalation now.
func (e *Engine) EscalationCandidates(ctx context.Context, p EscalationPolicy) ([]*Workflow, error) {
	now := e.now().UTC()
	return e.store.ListEscalationCandidates(ctx, now, now.Add(-p.ReescalateAfter), p.MaxLevel)
}

// EscalateOverdue escalates id as the system actor if it is still eligible
// under p when the transaction reads it. It reports whether it escalated.
func (e *Engine) EscalateOverdue(ctx context.Context, id string, p EscalationPolicy) (bool, error) {
	escalated := false
	err := e.mutate(ctx, "escalate_overdue", id, func(o *op) error {
		wf, err := o.tx.GetWorkflow(id)
		if err != nil {
			return err
		}
		if !eligible(wf, o.now, p) {
			return nil
		}
		escalated = true
		return e.escalateTx(o, wf, SystemActor, ReasonSLABreached)
	})
	if err != nil {
		return false, err
	}
	return escalated, nil
}

func eligible(wf *Workflow, now time.Time, p EscalationPolicy) bool {
	if !wf.Overdue(now) {
		return false
	}
	if p.MaxLevel > 0 && wf.EscalationLevel >= p.MaxLevel {
		return false
	}
	if wf.LastEscalatedAt != nil && wf.LastEscalatedAt.After(now.Add(-p.ReescalateAfter)) {
		return false
	}
	return true
}

func (e *Engine) escalateTx(o *op, wf *Workflow, actor, reason string) error {
	escalatedAt := o.now
	wf.EscalationLevel++
	wf.LastEscalatedAt = &escalatedAt
	wf.UpdatedAt = o.now
	if err := o.tx.UpdateWorkflow(wf); err != nil {
		return err
	}

	esc := events.Escalation{
		Level:  wf.EscalationLevel,
		Stage:  int(wf.Stage),
		Reason: reason,
		Actor:  actor,
	}
	if err := e.record(o, wf, ActionEscalated, actor, reason, esc); err != nil {
		return err
	}
	o.emit(events.EventWorkflowEscalated, wf.ID, esc)

	to := e.settings.EscalationApprovers[wf.Stage]
	if to == "" || e.settings.ReassignAtLevel <= 0 || wf.EscalationLevel < e.settings.ReassignAtLevel {
		return nil
	}
	items, err := o.tx.PendingQueueItems(wf.ID)
	if err != nil {
		return err
	}
	for _, it := range items {
		if it.Stage != wf.Stage || it.ApproverID == to {
			continue
		}
		comment := fmt.Sprintf("escalation level %d", wf.EscalationLevel)
		if _, err := e.reassignTx(o, wf, it, to, actor, comment); err != nil {
			return err
		}
	}
	return nil
}

// Reassign moves a pending queue item to another approver, keeping its
// stage and due date.
func (e *Engine) Reassign(ctx context.Context, req ReassignRequest) (*QueueItem, error) {
	fields := map[string]string{}
	if req.QueueItemID == "" {
		fields["queueItemId"] = "required"
	}
	if strings.TrimSpace(req.ToApproverID) == "" {
		fields["toApproverId"] = "required"
	}
	if req.ActorID == "" {
		fields["actorId"] = "required"
	}
	if len(fields) > 0 {
		return nil, derrors.ErrValidation("invalid reassignment", fields)
	}

	var out *QueueItem
	err := e.mutate(ctx, "reassign", "", func(o *op) error {
		item, err := o.tx.GetQueueItem(req.QueueItemID)
		if err != nil {
			return err
		}
		if item.Status != QueuePending {
			return derrors.ErrConflict(
				fmt.Sprintf("queue item %s is %s", item.ID, item.Status),
				"only pending items can be reassigned",
			)
		}
		if item.ApproverID == req.ToApproverID {
			return derrors.ErrValidation("item is already assigned to "+req.ToApproverID, nil)
		}
		wf, err := o.tx.GetWorkflow(item.WorkflowID)
		if err != nil {
			return err
		}
		if wf.Status != StatusInReview {
			return derrors.ErrWorkflowInvalidState(wf.ID, string(wf.Status), "reassign")
		}

		out, err = e.reassignTx(o, wf, item, req.ToApproverID, req.ActorID, req.Comment)
		if err != nil {
			return err
		}
		wf.UpdatedAt = o.now
		return o.tx.UpdateWorkflow(wf)
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("queue item reassigned",
		"workflow_id", out.WorkflowID,
		"queue_item_id", req.QueueItemID,
		"approver_id", out.ApproverID,
	)
	return out, nil
}

func (e *Engine) reassignTx(o *op, wf *Workflow, item *QueueItem, to, actor, comment string) (*QueueItem, error) {
	if err := o.tx.UpdateQueueItemStatus(item.ID, QueueReassigned, o.now); err != nil {
		return nil, err
	}
	next := &QueueItem{
		ID:         e.newID(),
		WorkflowID: wf.ID,
		Stage:      item.Stage,
		ApproverID: to,
		Status:     QueuePending,
		AssignedAt: o.now,
		DueAt:      item.DueAt,
	}
	if err := o.tx.InsertQueueItem(next); err != nil {
		return nil, err
	}

	r := events.Reassignment{
		QueueItemID: next.ID,
		FromID:      item.ApproverID,
		ToID:        to,
		Stage:       int(item.Stage),
	}
	if err := e.record(o, wf, ActionReassigned, actor, comment, r); err != nil {
		return nil, err
	}
	o.emit(events.EventQueueReassigned, wf.ID, r)
	return next, nil
}

// Cancel withdraws an in-review workflow and clears its pending items.
func (e *Engine) Cancel(ctx context.Context, req CancelRequest) (*Workflow, error) {
	if req.WorkflowID == "" || req.ActorID == "" {
		return nil, derrors.ErrValidation("workflowId and actorId are required", nil)
	}

	var out *Workflow
	err := e.mutate(ctx, "cancel", req.WorkflowID, func(o *op) error {
		wf, err := o.tx.GetWorkflow(req.WorkflowID)
		if err != nil {
			return err
		}
		if wf.Status != StatusInReview {
			return derrors.ErrWorkflowInvalidState(wf.ID, string(wf.Status), "cancel")
		}
		if err := e.cancelPending(o, wf.ID); err != nil {
			return err
		}

		completed := o.now
		wf.Status = StatusCancelled
		wf.CompletedAt = &completed
		wf.UpdatedAt = o.now
		if err := o.tx.UpdateWorkflow(wf); err != nil {
			return err
		}
		if err := e.record(o, wf, ActionCancelled, req.ActorID, req.Reason, nil); err != nil {
			return err
		}
		o.emit(events.EventWorkflowCancelled, wf.ID, snapshot(wf))
		out = wf
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("workflow cancelled", "workflow_id", out.ID, "actor_id", req.ActorID)
	return out, nil
}

// Get returns a workflow by ID.
func (e *Engine) Get(ctx context.Context, id string) (*Workflow, error) {
	return e.store.GetWorkflow(ctx, id)
}

// List returns workflows matching f, newest first.
func (e *Engine) List(ctx context.Context, f WorkflowFilter) ([]*Workflow, error) {
	fields := map[string]string{}
	if f.Status != "" && !f.Status.Valid() {
		fields["status"] = fmt.Sprintf("unknown status %q", f.Status)
	}
	if f.Priority != "" && !f.Priority.Valid() {
		fields["priority"] = fmt.Sprintf("unknown priority %q", f.Priority)
	}
	if f.Stage != 0 && !f.Stage.Valid() {
		fields["stage"] = "must be between 1 and 4"
	}
	if len(fields) > 0 {
		return nil, derrors.ErrValidation("invalid workflow filter", fields)
	}
	if f.AsOf.IsZero() {
		f.AsOf = e.now().UTC()
	}
	return e.store.ListWorkflows(ctx, f)
}

// History returns a workflow's audit trail in order.
func (e *Engine) History(ctx context.Context, id string) ([]*HistoryEntry, error) {
	if _, err := e.store.GetWorkflow(ctx, id); err != nil {
		return nil, err
	}
	return e.store.ListHistory(ctx, id)
}

// Queue returns pending items matching f, scored and sorted.
func (e *Engine) Queue(ctx context.Context, f QueueFilter) ([]*QueueItem, error) {
	fields := map[string]string{}
	if !f.Sort.Valid() {
		fields["sort"] = fmt.Sprintf("unknown sort %q", f.Sort)
	}
	if f.Priority != "" && !f.Priority.Valid() {
		fields["priority"] = fmt.Sprintf("unknown priority %q", f.Priority)
	}
	if f.Stage != 0 && !f.Stage.Valid() {
		fields["stage"] = "must be between 1 and 4"
	}
	if f.Limit < 0 || f.Offset < 0 {
		fields["limit"] = "limit and offset must not be negative"
	}
	if len(fields) > 0 {
		return nil, derrors.ErrValidation("invalid queue filter", fields)
	}
	if f.AsOf.IsZero() {
		f.AsOf = e.now().UTC()
	}

	items, err := e.store.ListQueue(ctx, f)
	if err != nil {
		return nil, err
	}
	scoreQueue(items, f.AsOf)
	SortQueue(items, f.Sort)
	return paginate(items, f.Limit, f.Offset), nil
}

// Summary counts an approver's pending, overdue and due-soon items.
func (e *Engine) Summary(ctx context.Context, approverID string) (*QueueSummary, error) {
	now := e.now().UTC()
	items, err := e.store.ListQueue(ctx, QueueFilter{ApproverID: approverID, AsOf: now})
	if err != nil {
		return nil, err
	}

	s := &QueueSummary{ApproverID: approverID, ByStage: make(map[Stage]int)}
	for _, it := range items {
		s.Pending++
		s.ByStage[it.Stage]++
		switch {
		case now.After(it.DueAt):
			s.Overdue++
		case it.DueAt.Sub(now) <= dueSoonWindow:
			s.DueSoon++
		}
	}
	return s, nil
}
