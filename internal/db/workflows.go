package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	derrors "github.com/randalmurphal/dossier/internal/errors"
	"github.com/randalmurphal/dossier/internal/util"
	"github.com/randalmurphal/dossier/internal/workflow"
)

const workflowColumns = `id, document_id, document_type, title, project_id, client_id, stage, status,
	priority, sla_hours, due_at, escalation_level, last_escalated_at, submitted_by, metadata,
	created_at, updated_at, completed_at, version`

const queueColumns = `q.id, q.workflow_id, q.stage, q.approver_id, q.status, q.assigned_at, q.due_at,
	q.decided_at, w.title, w.document_type, w.priority, w.escalation_level`

const queueFrom = ` FROM approval_queue q JOIN workflows w ON w.id = q.workflow_id`

const historyColumns = `id, workflow_id, seq, action, stage, actor_id, comment, details, created_at`

// WorkflowStore persists workflows, queue items and history. It
// implements workflow.Store.
type WorkflowStore struct {
	db *DB
}

// Workflows returns the workflow store backed by d.
func (d *DB) Workflows() *WorkflowStore {
	return &WorkflowStore{db: d}
}

var _ workflow.Store = (*WorkflowStore)(nil)

// RunInTx runs fn in one transaction.
func (s *WorkflowStore) RunInTx(ctx context.Context, fn func(tx workflow.Tx) error) error {
	return s.db.RunInTx(ctx, func(tx *TxOps) error {
		return fn(&workflowTx{q: tx})
	})
}

// GetWorkflow returns a workflow by ID.
func (s *WorkflowStore) GetWorkflow(ctx context.Context, id string) (*workflow.Workflow, error) {
	return getWorkflow(s.db.with(ctx), id)
}

// ListWorkflows returns workflows matching f, newest first.
func (s *WorkflowStore) ListWorkflows(ctx context.Context, f workflow.WorkflowFilter) ([]*workflow.Workflow, error) {
	var w where
	if f.Status != "" {
		w.add("status = ?", string(f.Status))
	}
	if f.Stage != 0 {
		w.add("stage = ?", int(f.Stage))
	}
	if f.Priority != "" {
		w.add("priority = ?", string(f.Priority))
	}
	if f.ProjectID != "" {
		w.add("project_id = ?", f.ProjectID)
	}
	if f.ClientID != "" {
		w.add("client_id = ?", f.ClientID)
	}
	if f.DocumentType != "" {
		w.add("document_type = ?", f.DocumentType)
	}
	if f.Overdue {
		w.add("status = ? AND due_at < ?", string(workflow.StatusInReview), util.FormatTimestamp(f.AsOf))
	}
	query := `SELECT ` + workflowColumns + ` FROM workflows` + w.String() + ` ORDER BY created_at DESC, id DESC`
	query += w.page(s.db.Dialect(), f.Limit, f.Offset)

	return queryWorkflows(s.db.with(ctx), query, w.args...)
}

// ListQueue returns pending items matching f.
func (s *WorkflowStore) ListQueue(ctx context.Context, f workflow.QueueFilter) ([]*workflow.QueueItem, error) {
	var w where
	w.add("q.status = ?", string(workflow.QueuePending))
	if f.ApproverID != "" {
		w.add("q.approver_id = ?", f.ApproverID)
	}
	if f.Stage != 0 {
		w.add("q.stage = ?", int(f.Stage))
	}
	if f.Priority != "" {
		w.add("w.priority = ?", string(f.Priority))
	}
	if f.DocumentType != "" {
		w.add("w.document_type = ?", f.DocumentType)
	}
	if f.OverdueOnly {
		w.add("q.due_at < ?", util.FormatTimestamp(f.AsOf))
	}
	if f.DueWithin > 0 {
		w.add("q.due_at <= ?", util.FormatTimestamp(f.AsOf.Add(f.DueWithin)))
	}

	return queryQueue(s.db.with(ctx), `SELECT `+queueColumns+queueFrom+w.String(), w.args...)
}

// ListHistory returns a workflow's history in sequence order.
func (s *WorkflowStore) ListHistory(ctx context.Context, workflowID string) ([]*workflow.HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+historyColumns+` FROM workflow_history WHERE workflow_id = ? ORDER BY seq`, workflowID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []*workflow.HistoryEntry{}
	for rows.Next() {
		e, err := scanHistory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListEscalationCandidates returns overdue in-review workflows eligible
// for another escalation, most overdue first.
func (s *WorkflowStore) ListEscalationCandidates(ctx context.Context, asOf, escalatedBefore time.Time, maxLevel int) ([]*workflow.Workflow, error) {
	var w where
	w.add("status = ?", string(workflow.StatusInReview))
	w.add("due_at < ?", util.FormatTimestamp(asOf))
	w.add("(last_escalated_at IS NULL OR last_escalated_at <= ?)", util.FormatTimestamp(escalatedBefore))
	if maxLevel > 0 {
		w.add("escalation_level < ?", maxLevel)
	}
	query := `SELECT ` + workflowColumns + ` FROM workflows` + w.String() + ` ORDER BY due_at, id`
	return queryWorkflows(s.db.with(ctx), query, w.args...)
}

// workflowTx implements workflow.Tx over a TxOps.
type workflowTx struct {
	q *TxOps
}

func (t *workflowTx) GetWorkflow(id string) (*workflow.Workflow, error) {
	return getWorkflow(t.q, id)
}

func (t *workflowTx) InsertWorkflow(wf *workflow.Workflow) error {
	if err := t.checkLinks(wf); err != nil {
		return err
	}
	_, err := t.q.Exec(`INSERT INTO workflows (`+workflowColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		wf.ID, wf.DocumentID, wf.DocumentType, wf.Title, nullable(wf.ProjectID), nullable(wf.ClientID),
		int(wf.Stage), string(wf.Status), string(wf.Priority), wf.SLAHours,
		util.FormatTimestamp(wf.DueAt), wf.EscalationLevel, util.FormatTimestampPtr(wf.LastEscalatedAt),
		wf.SubmittedBy, nullableJSON(wf.Metadata),
		util.FormatTimestamp(wf.CreatedAt), util.FormatTimestamp(wf.UpdatedAt),
		util.FormatTimestampPtr(wf.CompletedAt), wf.Version,
	)
	if err != nil {
		return fmt.Errorf("insert workflow: %w", err)
	}
	return nil
}

// checkLinks verifies the project and client references. A project
// without a client inherits the project's client.
func (t *workflowTx) checkLinks(wf *workflow.Workflow) error {
	fields := map[string]string{}
	if wf.ProjectID != "" {
		p, err := getProject(t.q, wf.ProjectID)
		switch {
		case derrors.HasCode(err, derrors.CodeProjectNotFound):
			fields["projectId"] = fmt.Sprintf("project %s does not exist", wf.ProjectID)
		case err != nil:
			return err
		case wf.ClientID == "":
			wf.ClientID = p.ClientID
		case wf.ClientID != p.ClientID:
			fields["clientId"] = fmt.Sprintf("project %s belongs to client %s", p.ID, p.ClientID)
		}
	}
	if wf.ClientID != "" && len(fields) == 0 {
		if _, err := getClient(t.q, wf.ClientID); err != nil {
			if !derrors.HasCode(err, derrors.CodeClientNotFound) {
				return err
			}
			fields["clientId"] = fmt.Sprintf("client %s does not exist", wf.ClientID)
		}
	}
	if len(fields) > 0 {
		return derrors.ErrValidation("invalid workflow submission", fields)
	}
	return nil
}

func (t *workflowTx) UpdateWorkflow(wf *workflow.Workflow) error {
	res, err := t.q.Exec(`UPDATE workflows SET
			stage = ?, status = ?, priority = ?, due_at = ?, escalation_level = ?,
			last_escalated_at = ?, updated_at = ?, completed_at = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		int(wf.Stage), string(wf.Status), string(wf.Priority), util.FormatTimestamp(wf.DueAt),
		wf.EscalationLevel, util.FormatTimestampPtr(wf.LastEscalatedAt), util.FormatTimestamp(wf.UpdatedAt),
		util.FormatTimestampPtr(wf.CompletedAt), wf.ID, wf.Version,
	)
	if err != nil {
		return fmt.Errorf("update workflow %s: %w", wf.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update workflow %s: %w", wf.ID, err)
	}
	if n == 0 {
		if _, err := getWorkflow(t.q, wf.ID); err != nil {
			return err
		}
		return derrors.ErrConflict(
			fmt.Sprintf("workflow %s was modified concurrently", wf.ID),
			fmt.Sprintf("expected version %d", wf.Version),
		)
	}
	wf.Version++
	return nil
}

func (t *workflowTx) GetQueueItem(id string) (*workflow.QueueItem, error) {
	items, err := queryQueue(t.q, `SELECT `+queueColumns+queueFrom+` WHERE q.id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, derrors.ErrQueueItemNotFound(id)
	}
	return items[0], nil
}

func (t *workflowTx) PendingQueueItems(workflowID string) ([]*workflow.QueueItem, error) {
	return queryQueue(t.q, `SELECT `+queueColumns+queueFrom+
		` WHERE q.workflow_id = ? AND q.status = ? ORDER BY q.assigned_at, q.id`,
		workflowID, string(workflow.QueuePending))
}

func (t *workflowTx) InsertQueueItem(item *workflow.QueueItem) error {
	_, err := t.q.Exec(`INSERT INTO approval_queue
			(id, workflow_id, stage, approver_id, status, assigned_at, due_at, decided_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.WorkflowID, int(item.Stage), item.ApproverID, string(item.Status),
		util.FormatTimestamp(item.AssignedAt), util.FormatTimestamp(item.DueAt),
		util.FormatTimestampPtr(item.DecidedAt),
	)
	if err != nil {
		return fmt.Errorf("insert queue item: %w", err)
	}
	return nil
}

func (t *workflowTx) UpdateQueueItemStatus(id string, status workflow.QueueStatus, decidedAt time.Time) error {
	res, err := t.q.Exec(`UPDATE approval_queue SET status = ?, decided_at = ? WHERE id = ? AND status = ?`,
		string(status), util.FormatTimestamp(decidedAt), id, string(workflow.QueuePending))
	if err != nil {
		return fmt.Errorf("update queue item %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update queue item %s: %w", id, err)
	}
	if n == 0 {
		item, err := t.GetQueueItem(id)
		if err != nil {
			return err
		}
		return derrors.ErrConflict(
			fmt.Sprintf("queue item %s is already %s", id, item.Status),
			"it was decided or reassigned concurrently",
		)
	}
	return nil
}

func (t *workflowTx) AppendHistory(e *workflow.HistoryEntry) error {
	if err := t.q.QueryRow(`SELECT COALESCE(MAX(seq), 0) + 1 FROM workflow_history WHERE workflow_id = ?`,
		e.WorkflowID).Scan(&e.Seq); err != nil {
		return fmt.Errorf("next history seq: %w", err)
	}
	_, err := t.q.Exec(`INSERT INTO workflow_history (`+historyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.WorkflowID, e.Seq, string(e.Action), int(e.Stage), e.ActorID,
		nullable(e.Comment), nullableJSON(e.Details), util.FormatTimestamp(e.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

func getWorkflow(q querier, id string) (*workflow.Workflow, error) {
	wf, err := scanWorkflow(q.QueryRow(`SELECT `+workflowColumns+` FROM workflows WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, derrors.ErrWorkflowNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("get workflow %s: %w", id, err)
	}
	return wf, nil
}

func queryWorkflows(q querier, query string, args ...any) ([]*workflow.Workflow, error) {
	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []*workflow.Workflow{}
	for rows.Next() {
		wf, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan workflow: %w", err)
		}
		out = append(out, wf)
	}
	return out, rows.Err()
}

func scanWorkflow(s scanner) (*workflow.Workflow, error) {
	var (
		wf                            workflow.Workflow
		projectID, clientID, metadata sql.NullString
		lastEscalated, completed      sql.NullString
		stage                         int
		status, priority              string
		dueAt, createdAt, updatedAt   string
	)
	if err := s.Scan(&wf.ID, &wf.DocumentID, &wf.DocumentType, &wf.Title, &projectID, &clientID,
		&stage, &status, &priority, &wf.SLAHours, &dueAt, &wf.EscalationLevel, &lastEscalated,
		&wf.SubmittedBy, &metadata, &createdAt, &updatedAt, &completed, &wf.Version); err != nil {
		return nil, err
	}

	wf.ProjectID = projectID.String
	wf.ClientID = clientID.String
	wf.Stage = workflow.Stage(stage)
	wf.Status = workflow.Status(status)
	wf.Priority = workflow.Priority(priority)
	if metadata.Valid && metadata.String != "" {
		wf.Metadata = json.RawMessage(metadata.String)
	}

	var err error
	if wf.DueAt, err = util.ParseTimestamp(dueAt); err != nil {
		return nil, err
	}
	if wf.CreatedAt, err = util.ParseTimestamp(createdAt); err != nil {
		return nil, err
	}
	if wf.UpdatedAt, err = util.ParseTimestamp(updatedAt); err != nil {
		return nil, err
	}
	if wf.LastEscalatedAt, err = parseNullTimestamp(lastEscalated); err != nil {
		return nil, err
	}
	if wf.CompletedAt, err = parseNullTimestamp(completed); err != nil {
		return nil, err
	}
	return &wf, nil
}

func queryQueue(q querier, query string, args ...any) ([]*workflow.QueueItem, error) {
	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list queue: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []*workflow.QueueItem{}
	for rows.Next() {
		var (
			it                workflow.QueueItem
			stage             int
			status, priority  string
			assignedAt, dueAt string
			decidedAt         sql.NullString
		)
		if err := rows.Scan(&it.ID, &it.WorkflowID, &stage, &it.ApproverID, &status, &assignedAt, &dueAt,
			&decidedAt, &it.Title, &it.DocumentType, &priority, &it.EscalationLevel); err != nil {
			return nil, fmt.Errorf("scan queue item: %w", err)
		}
		it.Stage = workflow.Stage(stage)
		it.Status = workflow.QueueStatus(status)
		it.Priority = workflow.Priority(priority)
		if it.AssignedAt, err = util.ParseTimestamp(assignedAt); err != nil {
			return nil, err
		}
		if it.DueAt, err = util.ParseTimestamp(dueAt); err != nil {
			return nil, err
		}
		if it.DecidedAt, err = parseNullTimestamp(decidedAt); err != nil {
			return nil, err
		}
		out = append(out, &it)
	}
	return out, rows.Err()
}

func scanHistory(s scanner) (*workflow.HistoryEntry, error) {
	var (
		e                workflow.HistoryEntry
		action           string
		stage            int
		comment, details sql.NullString
		createdAt        string
	)
	if err := s.Scan(&e.ID, &e.WorkflowID, &e.Seq, &action, &stage, &e.ActorID, &comment, &details, &createdAt); err != nil {
		return nil, err
	}
	e.Action = workflow.HistoryAction(action)
	e.Stage = workflow.Stage(stage)
	e.Comment = comment.String
	if details.Valid && details.String != "" {
		e.Details = json.RawMessage(details.String)
	}
	var err error
	if e.CreatedAt, err = util.ParseTimestamp(createdAt); err != nil {
		return nil, err
	}
	return &e, nil
}

func parseNullTimestamp(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := util.ParseTimestamp(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullableJSON(raw json.RawMessage) sql.NullString {
	return sql.NullString{String: string(raw), Valid: len(raw) > 0}
}
