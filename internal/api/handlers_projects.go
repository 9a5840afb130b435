package api

import (
	"net/http"

	"github.com/randalmurphal/dossier/internal/model"
	"github.com/randalmurphal/dossier/internal/transform"
)

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pageParams(r)
	if err != nil {
		HandleError(w, err)
		return
	}
	q := r.URL.Query()
	projects, err := s.db.ListProjects(r.Context(), model.ProjectFilter{
		Status:   model.ProjectStatus(q.Get("status")),
		ClientID: q.Get("client_id"),
		Search:   q.Get("search"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		HandleError(w, err)
		return
	}
	JSONResponse(w, projects)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var form transform.ProjectForm
	if err := decodeJSON(r, &form); err != nil {
		HandleError(w, err)
		return
	}
	p, err := transform.ProjectFromForm(form)
	if err != nil {
		HandleError(w, err)
		return
	}
	if err := s.db.CreateProject(r.Context(), p); err != nil {
		HandleError(w, err)
		return
	}
	JSONResponseStatus(w, p, http.StatusCreated)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	p, err := s.db.GetProject(r.Context(), r.PathValue("id"))
	if err != nil {
		HandleError(w, err)
		return
	}
	JSONResponse(w, p)
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	var form transform.ProjectForm
	if err := decodeJSON(r, &form); err != nil {
		HandleError(w, err)
		return
	}
	p, err := transform.ProjectFromForm(form)
	if err != nil {
		HandleError(w, err)
		return
	}
	p.ID = r.PathValue("id")
	if err := s.db.UpdateProject(r.Context(), p); err != nil {
		HandleError(w, err)
		return
	}
	JSONResponse(w, p)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := s.db.DeleteProject(r.Context(), r.PathValue("id")); err != nil {
		HandleError(w, err)
		return
	}
	NoContent(w)
}
