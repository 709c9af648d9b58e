package server

import (
	"net/http"

	"github.com/venturedesk/pipeline/internal/db"
)

// handleListWorkflowLogs returns the audit trail across all workflows,
// filterable by workflow_id, startup_id, status and action_type.
func (s *Server) handleListWorkflowLogs(w http.ResponseWriter, r *http.Request) {
	workflowID, ok := queryUUID(r, "workflow_id")
	if !ok {
		s.errorResponse(w, http.StatusBadRequest, "Invalid workflow_id")
		return
	}
	startupID, ok := queryUUID(r, "startup_id")
	if !ok {
		s.errorResponse(w, http.StatusBadRequest, "Invalid startup_id")
		return
	}

	filter := db.LogFilter{
		WorkflowID: workflowID,
		StartupID:  startupID,
		Status:     r.URL.Query().Get("status"),
		ActionType: r.URL.Query().Get("action_type"),
	}
	s.writeLogPage(w, r, filter)
}

// handleWorkflowLogs returns the audit trail for one workflow.
func (s *Server) handleWorkflowLogs(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.errorResponse(w, http.StatusBadRequest, "Invalid workflow ID")
		return
	}
	s.writeLogPage(w, r, db.LogFilter{
		WorkflowID: &id,
		Status:     r.URL.Query().Get("status"),
		ActionType: r.URL.Query().Get("action_type"),
	})
}

// handleStartupWorkflowLogs returns the audit trail for one startup.
func (s *Server) handleStartupWorkflowLogs(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.errorResponse(w, http.StatusBadRequest, "Invalid startup ID")
		return
	}
	s.writeLogPage(w, r, db.LogFilter{
		StartupID:  &id,
		Status:     r.URL.Query().Get("status"),
		ActionType: r.URL.Query().Get("action_type"),
	})
}

func (s *Server) writeLogPage(w http.ResponseWriter, r *http.Request, filter db.LogFilter) {
	limit, offset, page := pagination(r)

	logs, total, err := s.db.ListWorkflowLogs(r.Context(), filter, limit, offset)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, listResponse{Items: logs, Total: total, Page: page, Limit: limit})
}
