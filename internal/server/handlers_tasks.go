package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/venturedesk/pipeline/internal/db"
	"github.com/venturedesk/pipeline/internal/server/middleware"
	"github.com/venturedesk/pipeline/internal/types"
)

func taskFromRequest(req *types.TaskRequest) *db.Task {
	priority := req.Priority
	if priority == "" {
		priority = "medium"
	}
	status := req.Status
	if status == "" {
		status = "todo"
	}
	return &db.Task{
		Title:       req.Title,
		Description: req.Description,
		StartupID:   req.StartupID,
		AssigneeID:  req.AssigneeID,
		Priority:    priority,
		Status:      status,
		DueDate:     req.DueDate,
	}
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	startupID, ok := queryUUID(r, "startup_id")
	if !ok {
		s.errorResponse(w, http.StatusBadRequest, "Invalid startup_id")
		return
	}
	assigneeID, ok := queryUUID(r, "assignee_id")
	if !ok {
		s.errorResponse(w, http.StatusBadRequest, "Invalid assignee_id")
		return
	}
	limit, offset, page := pagination(r)

	tasks, total, err := s.db.ListTasks(r.Context(), startupID, assigneeID, limit, offset)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, listResponse{Items: tasks, Total: total, Page: page, Limit: limit})
}

// handleCreateTask creates a task and fires task_creation workflows.
// Tasks created by workflow actions take a different path and never
// re-trigger.
func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req types.TaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	task := taskFromRequest(&req)
	if task.StartupID != nil {
		startup, err := s.db.GetStartup(r.Context(), *task.StartupID)
		if err != nil {
			s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
			return
		}
		if startup == nil {
			s.errorResponse(w, http.StatusBadRequest, "Unknown startup: "+task.StartupID.String())
			return
		}
	}

	actor, _ := middleware.GetUserID(r)
	task.CreatedBy = &actor

	id, err := s.db.CreateTask(r.Context(), task)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}

	s.engine.OnTaskCreated(context.WithoutCancel(r.Context()), id, actor)

	s.jsonResponse(w, http.StatusCreated, map[string]string{"id": id.String()})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.errorResponse(w, http.StatusBadRequest, "Invalid task ID")
		return
	}

	task, err := s.db.GetTask(r.Context(), id)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if task == nil {
		s.errorResponse(w, http.StatusNotFound, "Task not found")
		return
	}
	s.jsonResponse(w, http.StatusOK, task)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.errorResponse(w, http.StatusBadRequest, "Invalid task ID")
		return
	}

	var req types.TaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	task := taskFromRequest(&req)
	task.ID = id
	if err := s.db.UpdateTask(r.Context(), task); err != nil {
		if strings.Contains(err.Error(), "not found") {
			s.errorResponse(w, http.StatusNotFound, "Task not found")
			return
		}
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.errorResponse(w, http.StatusBadRequest, "Invalid task ID")
		return
	}

	if err := s.db.DeleteTask(r.Context(), id); err != nil {
		if strings.Contains(err.Error(), "not found") {
			s.errorResponse(w, http.StatusNotFound, "Task not found")
			return
		}
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "deleted"})
}
