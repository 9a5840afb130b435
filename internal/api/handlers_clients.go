package api

import (
	"net/http"

	"github.com/randalmurphal/dossier/internal/model"
	"github.com/randalmurphal/dossier/internal/transform"
)

// handleListClients returns clients filtered by status and search.
func (s *Server) handleListClients(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pageParams(r)
	if err != nil {
		HandleError(w, err)
		return
	}
	q := r.URL.Query()
	clients, err := s.db.ListClients(r.Context(), model.ClientFilter{
		Status: model.ClientStatus(q.Get("status")),
		Search: q.Get("search"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		HandleError(w, err)
		return
	}
	JSONResponse(w, clients)
}

func (s *Server) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	var form transform.ClientForm
	if err := decodeJSON(r, &form); err != nil {
		HandleError(w, err)
		return
	}
	c, err := transform.ClientFromForm(form)
	if err != nil {
		HandleError(w, err)
		return
	}
	if err := s.db.CreateClient(r.Context(), c); err != nil {
		HandleError(w, err)
		return
	}
	JSONResponseStatus(w, c, http.StatusCreated)
}

func (s *Server) handleGetClient(w http.ResponseWriter, r *http.Request) {
	c, err := s.db.GetClient(r.Context(), r.PathValue("id"))
	if err != nil {
		HandleError(w, err)
		return
	}
	JSONResponse(w, c)
}

func (s *Server) handleUpdateClient(w http.ResponseWriter, r *http.Request) {
	var form transform.ClientForm
	if err := decodeJSON(r, &form); err != nil {
		HandleError(w, err)
		return
	}
	c, err := transform.ClientFromForm(form)
	if err != nil {
		HandleError(w, err)
		return
	}
	c.ID = r.PathValue("id")
	if err := s.db.UpdateClient(r.Context(), c); err != nil {
		HandleError(w, err)
		return
	}
	JSONResponse(w, c)
}

func (s *Server) handleDeleteClient(w http.ResponseWriter, r *http.Request) {
	if err := s.db.DeleteClient(r.Context(), r.PathValue("id")); err != nil {
		HandleError(w, err)
		return
	}
	NoContent(w)
}

// handleListClientProjects returns the projects owned by a client.
func (s *Server) handleListClientProjects(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.db.GetClient(r.Context(), id); err != nil {
		HandleError(w, err)
		return
	}
	projects, err := s.db.ListProjects(r.Context(), model.ProjectFilter{ClientID: id})
	if err != nil {
		HandleError(w, err)
		return
	}
	JSONResponse(w, projects)
}
