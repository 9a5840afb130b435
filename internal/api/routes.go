package api

import "net/http"

// registerRoutes sets up all REST routes.
func (s *Server) registerRoutes() {
	cors := func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			h(w, r)
		}
	}

	s.mux.HandleFunc("GET /api/health", cors(s.handleHealth))

	// Clients
	s.mux.HandleFunc("GET /api/clients", cors(s.handleListClients))
	s.mux.HandleFunc("POST /api/clients", cors(s.handleCreateClient))
	s.mux.HandleFunc("GET /api/clients/{id}", cors(s.handleGetClient))
	s.mux.HandleFunc("PUT /api/clients/{id}", cors(s.handleUpdateClient))
	s.mux.HandleFunc("DELETE /api/clients/{id}", cors(s.handleDeleteClient))
	s.mux.HandleFunc("GET /api/clients/{id}/projects", cors(s.handleListClientProjects))

	// Projects
	s.mux.HandleFunc("GET /api/projects", cors(s.handleListProjects))
	s.mux.HandleFunc("POST /api/projects", cors(s.handleCreateProject))
	s.mux.HandleFunc("GET /api/projects/{id}", cors(s.handleGetProject))
	s.mux.HandleFunc("PUT /api/projects/{id}", cors(s.handleUpdateProject))
	s.mux.HandleFunc("DELETE /api/projects/{id}", cors(s.handleDeleteProject))

	// Workflows
	s.mux.HandleFunc("GET /api/stages", cors(s.handleListStages))
	s.mux.HandleFunc("GET /api/workflows", cors(s.handleListWorkflows))
	s.mux.HandleFunc("POST /api/workflows", cors(s.handleStartWorkflow))
	s.mux.HandleFunc("GET /api/workflows/{id}", cors(s.handleGetWorkflow))
	s.mux.HandleFunc("POST /api/workflows/{id}/approve", cors(s.handleApprove))
	s.mux.HandleFunc("POST /api/workflows/{id}/reject", cors(s.handleReject))
	s.mux.HandleFunc("POST /api/workflows/{id}/escalate", cors(s.handleEscalate))
	s.mux.HandleFunc("POST /api/workflows/{id}/cancel", cors(s.handleCancel))
	s.mux.HandleFunc("GET /api/workflows/{id}/history", cors(s.handleHistory))

	// Approval queue
	s.mux.HandleFunc("GET /api/approvers/{id}/queue", cors(s.handleApproverQueue))
	s.mux.HandleFunc("GET /api/approvers/{id}/summary", cors(s.handleApproverSummary))
	s.mux.HandleFunc("POST /api/queue/{id}/reassign", cors(s.handleReassign))
	s.mux.HandleFunc("POST /api/escalations/sweep", cors(s.handleSweep))

	// Live events
	s.mux.Handle("GET /api/ws", s.wsHandler)
}
