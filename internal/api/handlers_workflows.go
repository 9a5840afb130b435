package api

import (
	"net/http"
	"strconv"

	"github.com/randalmurphal/dossier/internal/workflow"
)

// stageParam reads a stage number from the query string. Zero means any.
func stageParam(r *http.Request) (workflow.Stage, error) {
	raw := r.URL.Query().Get("stage")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || !workflow.Stage(n).Valid() {
		return 0, badQuery("stage", "must be between 1 and 4, got %q", raw)
	}
	return workflow.Stage(n), nil
}

func (s *Server) handleListStages(w http.ResponseWriter, r *http.Request) {
	settings := s.engine.Settings()
	type stageView struct {
		workflow.StageInfo
		SLAHours int    `json:"slaHours"`
		Approver string `json:"defaultApprover,omitempty"`
	}
	out := make([]stageView, 0, 4)
	for _, info := range workflow.Stages() {
		sla := settings.DefaultSLAHours
		if h, ok := settings.StageSLAHours[info.Number]; ok && h > 0 {
			sla = h
		}
		out = append(out, stageView{
			StageInfo: info,
			SLAHours:  sla,
			Approver:  settings.StageApprovers[info.Number],
		})
	}
	JSONResponse(w, out)
}

func (s *Server) handleListWorkflows(w http.ResponseWriter, r *http.Request) {
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
	q := r.URL.Query()
	list, err := s.engine.List(r.Context(), workflow.WorkflowFilter{
		Status:       workflow.Status(q.Get("status")),
		Stage:        stage,
		Priority:     workflow.Priority(q.Get("priority")),
		ProjectID:    q.Get("project_id"),
		ClientID:     q.Get("client_id"),
		DocumentType: q.Get("document_type"),
		Overdue:      overdue,
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		HandleError(w, err)
		return
	}
	JSONResponse(w, list)
}

func (s *Server) handleStartWorkflow(w http.ResponseWriter, r *http.Request) {
	var req workflow.StartRequest
	if err := decodeJSON(r, &req); err != nil {
		HandleError(w, err)
		return
	}
	wf, err := s.engine.Start(r.Context(), req)
	if err != nil {
		HandleError(w, err)
		return
	}
	JSONResponseStatus(w, wf, http.StatusCreated)
}

func (s *Server) handleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	wf, err := s.engine.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		HandleError(w, err)
		return
	}
	JSONResponse(w, wf)
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	var req workflow.DecisionRequest
	if err := decodeJSON(r, &req); err != nil {
		HandleError(w, err)
		return
	}
	req.WorkflowID = r.PathValue("id")
	wf, err := s.engine.Approve(r.Context(), req)
	if err != nil {
		HandleError(w, err)
		return
	}
	JSONResponse(w, wf)
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	var req workflow.DecisionRequest
	if err := decodeJSON(r, &req); err != nil {
		HandleError(w, err)
		return
	}
	req.WorkflowID = r.PathValue("id")
	wf, err := s.engine.Reject(r.Context(), req)
	if err != nil {
		HandleError(w, err)
		return
	}
	JSONResponse(w, wf)
}

func (s *Server) handleEscalate(w http.ResponseWriter, r *http.Request) {
	var req workflow.EscalateRequest
	if err := decodeJSON(r, &req); err != nil {
		HandleError(w, err)
		return
	}
	req.WorkflowID = r.PathValue("id")
	wf, err := s.engine.Escalate(r.Context(), req)
	if err != nil {
		HandleError(w, err)
		return
	}
	JSONResponse(w, wf)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	var req workflow.CancelRequest
	if err := decodeJSON(r, &req); err != nil {
		HandleError(w, err)
		return
	}
	req.WorkflowID = r.PathValue("id")
	wf, err := s.engine.Cancel(r.Context(), req)
	if err != nil {
		HandleError(w, err)
		return
	}
	JSONResponse(w, wf)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.engine.History(r.Context(), r.PathValue("id"))
	if err != nil {
		HandleError(w, err)
		return
	}
	JSONResponse(w, entries)
}
