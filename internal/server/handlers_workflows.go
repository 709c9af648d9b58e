package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/venturedesk/pipeline/internal/schemas"
	"github.com/venturedesk/pipeline/internal/server/middleware"
	"github.com/venturedesk/pipeline/internal/types"
	"github.com/venturedesk/pipeline/internal/workflow"
)

func (s *Server) handleListWorkflows(w http.ResponseWriter, r *http.Request) {
	workflows, err := s.db.ListWorkflows(r.Context())
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, workflows)
}

func (s *Server) handleCreateWorkflow(w http.ResponseWriter, r *http.Request) {
	var req types.WorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	trigger := workflow.TriggerType(req.TriggerType)
	details := req.TriggerDetails
	if len(details) == 0 {
		details = json.RawMessage(`{}`)
	}
	if err := schemas.ValidateTriggerDetails(req.TriggerType, details); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid trigger details: "+err.Error())
		return
	}
	if _, err := workflow.ParseTriggerDetails(trigger, details); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid trigger details: "+err.Error())
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	wf := &workflow.Workflow{
		Name:           req.Name,
		Description:    req.Description,
		TriggerType:    trigger,
		TriggerDetails: details,
		IsActive:       active,
	}

	id, err := s.db.CreateWorkflow(r.Context(), wf)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusCreated, map[string]string{"id": id.String()})
}

func (s *Server) handleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.errorResponse(w, http.StatusBadRequest, "Invalid workflow ID")
		return
	}

	wf, err := s.db.GetWorkflow(r.Context(), id)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if wf == nil {
		s.errorResponse(w, http.StatusNotFound, "Workflow not found")
		return
	}
	s.jsonResponse(w, http.StatusOK, wf)
}

func (s *Server) handleUpdateWorkflow(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.errorResponse(w, http.StatusBadRequest, "Invalid workflow ID")
		return
	}

	var req types.WorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	trigger := workflow.TriggerType(req.TriggerType)
	details := req.TriggerDetails
	if len(details) == 0 {
		details = json.RawMessage(`{}`)
	}
	if err := schemas.ValidateTriggerDetails(req.TriggerType, details); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid trigger details: "+err.Error())
		return
	}
	if _, err := workflow.ParseTriggerDetails(trigger, details); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid trigger details: "+err.Error())
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	wf := &workflow.Workflow{
		ID:             id,
		Name:           req.Name,
		Description:    req.Description,
		TriggerType:    trigger,
		TriggerDetails: details,
		IsActive:       active,
	}

	if err := s.db.UpdateWorkflow(r.Context(), wf); err != nil {
		if strings.Contains(err.Error(), "not found") {
			s.errorResponse(w, http.StatusNotFound, "Workflow not found")
			return
		}
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "updated"})
}

// handleSetWorkflowActive toggles a workflow on or off without touching
// the rest of its definition.
func (s *Server) handleSetWorkflowActive(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.errorResponse(w, http.StatusBadRequest, "Invalid workflow ID")
		return
	}

	var req struct {
		IsActive *bool `json:"is_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IsActive == nil {
		s.errorResponse(w, http.StatusBadRequest, "is_active is required")
		return
	}

	if err := s.db.SetWorkflowActive(r.Context(), id, *req.IsActive); err != nil {
		if strings.Contains(err.Error(), "not found") {
			s.errorResponse(w, http.StatusNotFound, "Workflow not found")
			return
		}
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) handleDeleteWorkflow(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.errorResponse(w, http.StatusBadRequest, "Invalid workflow ID")
		return
	}

	if err := s.db.DeleteWorkflow(r.Context(), id); err != nil {
		if strings.Contains(err.Error(), "not found") {
			s.errorResponse(w, http.StatusNotFound, "Workflow not found")
			return
		}
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleListActions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.errorResponse(w, http.StatusBadRequest, "Invalid workflow ID")
		return
	}

	actions, err := s.db.ListActions(r.Context(), id)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, actions)
}

func (s *Server) handleAddAction(w http.ResponseWriter, r *http.Request) {
	workflowID, ok := pathID(r, "id")
	if !ok {
		s.errorResponse(w, http.StatusBadRequest, "Invalid workflow ID")
		return
	}

	var req types.ActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	actionType := workflow.ActionType(req.ActionType)
	if err := schemas.ValidateActionDetails(req.ActionType, req.ActionDetails); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid action details: "+err.Error())
		return
	}
	if _, err := workflow.ParseActionDetails(actionType, req.ActionDetails); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid action details: "+err.Error())
		return
	}

	wf, err := s.db.GetWorkflow(r.Context(), workflowID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if wf == nil {
		s.errorResponse(w, http.StatusNotFound, "Workflow not found")
		return
	}

	action := &workflow.Action{
		WorkflowID:     workflowID,
		ActionType:     actionType,
		ActionDetails:  req.ActionDetails,
		ExecutionOrder: req.ExecutionOrder,
	}
	id, err := s.db.AddAction(r.Context(), action)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusCreated, map[string]string{"id": id.String()})
}

func (s *Server) handleDeleteAction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.errorResponse(w, http.StatusBadRequest, "Invalid action ID")
		return
	}

	if err := s.db.DeleteAction(r.Context(), id); err != nil {
		if strings.Contains(err.Error(), "not found") {
			s.errorResponse(w, http.StatusNotFound, "Action not found")
			return
		}
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleListConditions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.errorResponse(w, http.StatusBadRequest, "Invalid workflow ID")
		return
	}

	conditions, err := s.db.ListConditions(r.Context(), id)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, conditions)
}

func (s *Server) handleAddCondition(w http.ResponseWriter, r *http.Request) {
	workflowID, ok := pathID(r, "id")
	if !ok {
		s.errorResponse(w, http.StatusBadRequest, "Invalid workflow ID")
		return
	}

	var req types.ConditionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	wf, err := s.db.GetWorkflow(r.Context(), workflowID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if wf == nil {
		s.errorResponse(w, http.StatusNotFound, "Workflow not found")
		return
	}

	condition := &workflow.Condition{
		WorkflowID: workflowID,
		FieldName:  req.FieldName,
		Operator:   workflow.Operator(req.Operator),
		Value:      req.Value,
	}
	id, err := s.db.AddCondition(r.Context(), condition)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusCreated, map[string]string{"id": id.String()})
}

func (s *Server) handleDeleteCondition(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.errorResponse(w, http.StatusBadRequest, "Invalid condition ID")
		return
	}

	if err := s.db.DeleteCondition(r.Context(), id); err != nil {
		if strings.Contains(err.Error(), "not found") {
			s.errorResponse(w, http.StatusNotFound, "Condition not found")
			return
		}
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleExecuteWorkflow runs one workflow against one entity on
// demand, bypassing trigger filtering but not condition evaluation.
func (s *Server) handleExecuteWorkflow(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.errorResponse(w, http.StatusBadRequest, "Invalid workflow ID")
		return
	}

	var req types.ExecuteWorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	actor, _ := middleware.GetUserID(r)
	ref := workflow.EntityRef{
		Type: workflow.EntityType(req.EntityType),
		ID:   req.EntityID,
	}

	if err := s.engine.Execute(r.Context(), id, ref, actor); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "executed"})
}
