package workflow

import (
	"context"
	"time"
)

// Store is the persistence the engine needs. Reads outside a transaction
// serve listings; every mutation goes through RunInTx.
type Store interface {
	RunInTx(ctx context.Context, fn func(tx Tx) error) error

	GetWorkflow(ctx context.Context, id string) (*Workflow, error)
	ListWorkflows(ctx context.Context, f WorkflowFilter) ([]*Workflow, error)
	// ListQueue returns pending items matching f, unsorted and unpaginated.
	ListQueue(ctx context.Context, f QueueFilter) ([]*QueueItem, error)
	ListHistory(ctx context.Context, workflowID string) ([]*HistoryEntry, error)
	// ListEscalationCandidates returns in-review workflows due before asOf,
	// last escalated at or before escalatedBefore (or never), below maxLevel.
	ListEscalationCandidates(ctx context.Context, asOf, escalatedBefore time.Time, maxLevel int) ([]*Workflow, error)
}

// Tx is a unit of work. It carries the context it was opened with.
type Tx interface {
	GetWorkflow(id string) (*Workflow, error)
	InsertWorkflow(w *Workflow) error
	// UpdateWorkflow writes w if its Version still matches the stored row,
	// then increments w.Version. A mismatch is a CONFLICT error.
	UpdateWorkflow(w *Workflow) error

	GetQueueItem(id string) (*QueueItem, error)
	PendingQueueItems(workflowID string) ([]*QueueItem, error)
	InsertQueueItem(q *QueueItem) error
	// UpdateQueueItemStatus moves a pending item to status. An item that is
	// no longer pending is a CONFLICT error.
	UpdateQueueItemStatus(id string, status QueueStatus, decidedAt time.Time) error

	// AppendHistory assigns the next sequence number and stores e.
	AppendHistory(e *HistoryEntry) error
}
