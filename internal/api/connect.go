package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"connectrpc.com/connect"

	"github.com/randalmurphal/dossier/internal/workflow"
)

// Connect procedure paths.
const (
	WorkflowServiceName = "dossier.v1.WorkflowService"
	QueueServiceName    = "dossier.v1.QueueService"

	ProcStartWorkflow = "/" + WorkflowServiceName + "/StartWorkflow"
	ProcGetWorkflow   = "/" + WorkflowServiceName + "/GetWorkflow"
	ProcApprove       = "/" + WorkflowServiceName + "/Approve"
	ProcReject        = "/" + WorkflowServiceName + "/Reject"
	ProcEscalate      = "/" + WorkflowServiceName + "/Escalate"
	ProcCancel        = "/" + WorkflowServiceName + "/Cancel"
	ProcGetHistory    = "/" + WorkflowServiceName + "/GetHistory"
	ProcListQueue     = "/" + QueueServiceName + "/ListQueue"
	ProcGetSummary    = "/" + QueueServiceName + "/GetSummary"
	ProcReassign      = "/" + QueueServiceName + "/Reassign"
)

// JSONCodec carries plain Go structs over Connect as JSON. Use it on
// clients with connect.WithCodec.
type JSONCodec struct{}

// Name implements connect.Codec.
func (JSONCodec) Name() string { return "json" }

// Marshal implements connect.Codec.
func (JSONCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal implements connect.Codec. Unknown fields are rejected.
func (JSONCodec) Unmarshal(data []byte, v any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// GetWorkflowRequest names a workflow.
type GetWorkflowRequest struct {
	WorkflowID string `json:"workflowId"`
}

// HistoryResponse is a workflow's audit trail.
type HistoryResponse struct {
	Entries []*workflow.HistoryEntry `json:"entries"`
}

// ListQueueRequest mirrors the REST queue query parameters.
type ListQueueRequest struct {
	ApproverID     string             `json:"approverId"`
	Stage          workflow.Stage     `json:"stage,omitempty"`
	Priority       workflow.Priority  `json:"priority,omitempty"`
	DocumentType   string             `json:"documentType,omitempty"`
	OverdueOnly    bool               `json:"overdueOnly,omitempty"`
	DueWithinHours int                `json:"dueWithinHours,omitempty"`
	Sort           workflow.QueueSort `json:"sort,omitempty"`
	Limit          int                `json:"limit,omitempty"`
	Offset         int                `json:"offset,omitempty"`
}

// ListQueueResponse carries queue items in display order.
type ListQueueResponse struct {
	Items []*workflow.QueueItem `json:"items"`
}

// GetSummaryRequest names an approver.
type GetSummaryRequest struct {
	ApproverID string `json:"approverId"`
}

// unary adapts a plain function to a Connect unary handler.
func unary[Req, Res any](fn func(context.Context, *Req) (*Res, error)) func(context.Context, *connect.Request[Req]) (*connect.Response[Res], error) {
	return func(ctx context.Context, req *connect.Request[Req]) (*connect.Response[Res], error) {
		res, err := fn(ctx, req.Msg)
		if err != nil {
			return nil, err
		}
		return connect.NewResponse(res), nil
	}
}

// registerConnectHandlers mounts the RPC services next to the REST routes.
func (s *Server) registerConnectHandlers() {
	opts := []connect.HandlerOption{
		connect.WithCodec(JSONCodec{}),
		connect.WithInterceptors(
			RecoverInterceptor(s.logger),
			ErrorInterceptor(),
			LoggingInterceptor(s.logger),
		),
	}
	handle := func(path string, h http.Handler) {
		s.mux.Handle(path, corsHandler(h))
	}

	e := s.engine
	handle(ProcStartWorkflow, connect.NewUnaryHandler(ProcStartWorkflow, unary(
		func(ctx context.Context, req *workflow.StartRequest) (*workflow.Workflow, error) {
			return e.Start(ctx, *req)
		}), opts...))
	handle(ProcGetWorkflow, connect.NewUnaryHandler(ProcGetWorkflow, unary(
		func(ctx context.Context, req *GetWorkflowRequest) (*workflow.Workflow, error) {
			return e.Get(ctx, req.WorkflowID)
		}), opts...))
	handle(ProcApprove, connect.NewUnaryHandler(ProcApprove, unary(
		func(ctx context.Context, req *workflow.DecisionRequest) (*workflow.Workflow, error) {
			return e.Approve(ctx, *req)
		}), opts...))
	handle(ProcReject, connect.NewUnaryHandler(ProcReject, unary(
		func(ctx context.Context, req *workflow.DecisionRequest) (*workflow.Workflow, error) {
			return e.Reject(ctx, *req)
		}), opts...))
	handle(ProcEscalate, connect.NewUnaryHandler(ProcEscalate, unary(
		func(ctx context.Context, req *workflow.EscalateRequest) (*workflow.Workflow, error) {
			return e.Escalate(ctx, *req)
		}), opts...))
	handle(ProcCancel, connect.NewUnaryHandler(ProcCancel, unary(
		func(ctx context.Context, req *workflow.CancelRequest) (*workflow.Workflow, error) {
			return e.Cancel(ctx, *req)
		}), opts...))
	handle(ProcGetHistory, connect.NewUnaryHandler(ProcGetHistory, unary(
		func(ctx context.Context, req *GetWorkflowRequest) (*HistoryResponse, error) {
			entries, err := e.History(ctx, req.WorkflowID)
			if err != nil {
				return nil, err
			}
			return &HistoryResponse{Entries: entries}, nil
		}), opts...))

	handle(ProcListQueue, connect.NewUnaryHandler(ProcListQueue, unary(
		func(ctx context.Context, req *ListQueueRequest) (*ListQueueResponse, error) {
			items, err := s.queueListing(ctx, workflow.QueueFilter{
				ApproverID:   req.ApproverID,
				Stage:        req.Stage,
				Priority:     req.Priority,
				DocumentType: req.DocumentType,
				OverdueOnly:  req.OverdueOnly,
				DueWithin:    hours(req.DueWithinHours),
				Sort:         req.Sort,
				Limit:        req.Limit,
				Offset:       req.Offset,
			})
			if err != nil {
				return nil, err
			}
			return &ListQueueResponse{Items: items}, nil
		}), opts...))
	handle(ProcGetSummary, connect.NewUnaryHandler(ProcGetSummary, unary(
		func(ctx context.Context, req *GetSummaryRequest) (*workflow.QueueSummary, error) {
			return e.Summary(ctx, req.ApproverID)
		}), opts...))
	handle(ProcReassign, connect.NewUnaryHandler(ProcReassign, unary(
		func(ctx context.Context, req *workflow.ReassignRequest) (*workflow.QueueItem, error) {
			return e.Reassign(ctx, *req)
		}), opts...))
}

// corsHandler wraps an http.Handler with CORS headers for browser clients.
func corsHandler(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "Dossier-Error-Code, Dossier-Field-Error")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		h.ServeHTTP(w, r)
	})
}
