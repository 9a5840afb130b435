package api

import (
	"net/http"

	"github.com/randalmurphal/dossier/internal/workflow"
)

// handleApproverQueue returns an approver's pending items, most urgent
// first unless ?sort= says otherwise.
func (s *Server) handleApproverQueue(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pageParams(r)
	if err != nil {
		HandleError(w, err)
		return
	}
	stage, err := stageParam(r)
	if err != nil {
		HandleError(w, err)
		return
	}
	overdue, err := boolParam(r, "overdue")
	if err != nil {
		HandleError(w, err)
		return
	}
	within, err := durationParam(r, "due_within")
	if err != nil {
		HandleError(w, err)
		return
	}

	q := r.URL.Query()
	items, err := s.queueListing(r.Context(), workflow.QueueFilter{
		ApproverID:   r.PathValue("id"),
		Stage:        stage,
		Priority:     workflow.Priority(q.Get("priority")),
		DocumentType: q.Get("document_type"),
		OverdueOnly:  overdue,
		DueWithin:    within,
		Sort:         workflow.QueueSort(q.Get("sort")),
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		HandleError(w, err)
		return
	}
	JSONResponse(w, items)
}

func (s *Server) handleApproverSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.engine.Summary(r.Context(), r.PathValue("id"))
	if err != nil {
		HandleError(w, err)
		return
	}
	JSONResponse(w, summary)
}

func (s *Server) handleReassign(w http.ResponseWriter, r *http.Request) {
	var req workflow.ReassignRequest
	if err := decodeJSON(r, &req); err != nil {
		HandleError(w, err)
		return
	}
	req.QueueItemID = r.PathValue("id")
	item, err := s.engine.Reassign(r.Context(), req)
	if err != nil {
		HandleError(w, err)
		return
	}
	JSONResponse(w, item)
}

// handleSweep runs one escalation pass immediately.
func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	if s.sweeper == nil {
		JSONError(w, "escalation sweeper is disabled", http.StatusServiceUnavailable)
		return
	}
	res, err := s.sweeper.SweepOnce(r.Context())
	if err != nil {
		HandleError(w, err)
		return
	}
	JSONResponse(w, res)
}
