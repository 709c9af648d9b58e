package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/venturedesk/pipeline/internal/db"
	"github.com/venturedesk/pipeline/internal/fields"
	"github.com/venturedesk/pipeline/internal/server/middleware"
	"github.com/venturedesk/pipeline/internal/types"
	"github.com/venturedesk/pipeline/internal/workflow"
)

func startupFromRequest(req *types.StartupRequest) *db.Startup {
	priority := req.Priority
	if priority == "" {
		priority = "medium"
	}
	return &db.Startup{
		Name:               req.Name,
		Description:        req.Description,
		Website:            req.Website,
		Sector:             req.Sector,
		BusinessModel:      req.BusinessModel,
		City:               req.City,
		State:              req.State,
		CEOName:            req.CEOName,
		CEOEmail:           req.CEOEmail,
		CEOPhone:           req.CEOPhone,
		MRR:                req.MRR,
		ClientCount:        req.ClientCount,
		AccumulatedRevenue: req.AccumulatedRevenue,
		TotalRevenue:       req.TotalRevenue,
		TAM:                req.TAM,
		SAM:                req.SAM,
		SOM:                req.SOM,
		FoundedDate:        req.FoundedDate,
		MarketAnalysis:     req.MarketAnalysis,
		Differentials:      req.Differentials,
		Competitors:        req.Competitors,
		Priority:           priority,
		PitchDeckURL:       req.PitchDeckURL,
		StatusID:           req.StatusID,
	}
}

func (s *Server) handleListStartups(w http.ResponseWriter, r *http.Request) {
	statusID, ok := queryUUID(r, "status_id")
	if !ok {
		s.errorResponse(w, http.StatusBadRequest, "Invalid status_id")
		return
	}
	limit, offset, page := pagination(r)

	startups, total, err := s.db.ListStartups(r.Context(), statusID, limit, offset)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, listResponse{Items: startups, Total: total, Page: page, Limit: limit})
}

func (s *Server) handleCreateStartup(w http.ResponseWriter, r *http.Request) {
	var req types.StartupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	startup := startupFromRequest(&req)
	if startup.StatusID != nil {
		status, err := s.db.GetStatus(r.Context(), *startup.StatusID)
		if err != nil {
			s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
			return
		}
		if status == nil {
			s.errorResponse(w, http.StatusBadRequest, "Unknown status: "+startup.StatusID.String())
			return
		}
	}

	id, err := s.db.CreateStartup(r.Context(), startup)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusCreated, map[string]string{"id": id.String()})
}

func (s *Server) handleGetStartup(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.errorResponse(w, http.StatusBadRequest, "Invalid startup ID")
		return
	}

	startup, err := s.db.GetStartup(r.Context(), id)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if startup == nil {
		s.errorResponse(w, http.StatusNotFound, "Startup not found")
		return
	}
	s.jsonResponse(w, http.StatusOK, startup)
}

// handleUpdateStartup replaces the full record (the edit form). Every
// attribute the edit actually changed gets a field history row and
// fires attribute_change workflows, same as the single-field path.
func (s *Server) handleUpdateStartup(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.errorResponse(w, http.StatusBadRequest, "Invalid startup ID")
		return
	}

	var req types.StartupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	ref := workflow.EntityRef{Type: workflow.EntityStartup, ID: id}
	before, err := s.db.Snapshot(r.Context(), ref)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if before == nil {
		s.errorResponse(w, http.StatusNotFound, "Startup not found")
		return
	}

	startup := startupFromRequest(&req)
	startup.ID = id
	if err := s.db.UpdateStartup(r.Context(), startup); err != nil {
		if strings.Contains(err.Error(), "not found") {
			s.errorResponse(w, http.StatusNotFound, "Startup not found")
			return
		}
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}

	after, err := s.db.Snapshot(r.Context(), ref)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}

	actor, _ := middleware.GetUserID(r)
	bg := context.WithoutCancel(r.Context())
	for _, field := range changedCatalogFields(before, after) {
		oldValue := before[field]
		newValue := after[field]
		if err := s.db.AppendFieldHistory(r.Context(), id, field, &oldValue, &newValue, &actor); err != nil {
			log.Printf("[startups] failed to record field history for %s: %v", id, err)
		}
		s.engine.OnAttributeChange(bg, id, field, actor)
	}

	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "updated"})
}

// changedCatalogFields returns the catalog keys whose value differs
// between two snapshots, in catalog order.
func changedCatalogFields(before, after workflow.Snapshot) []string {
	var changed []string
	for _, f := range fields.Catalog() {
		if before[f.Key] != after[f.Key] {
			changed = append(changed, f.Key)
		}
	}
	return changed
}

func (s *Server) handleDeleteStartup(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.errorResponse(w, http.StatusBadRequest, "Invalid startup ID")
		return
	}

	if err := s.db.DeleteStartup(r.Context(), id); err != nil {
		if strings.Contains(err.Error(), "not found") {
			s.errorResponse(w, http.StatusNotFound, "Startup not found")
			return
		}
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleMoveStartup changes the pipeline stage (board drag and drop)
// and fires status_change workflows. The move itself succeeds even when
// a workflow action fails.
func (s *Server) handleMoveStartup(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.errorResponse(w, http.StatusBadRequest, "Invalid startup ID")
		return
	}

	var req types.MoveStartupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	status, err := s.db.GetStatus(r.Context(), req.StatusID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if status == nil {
		s.errorResponse(w, http.StatusBadRequest, "Unknown status: "+req.StatusID.String())
		return
	}

	actor, _ := middleware.GetUserID(r)
	actorPtr := &actor

	fromStatus, err := s.db.MoveStartup(r.Context(), id, req.StatusID, actorPtr)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			s.errorResponse(w, http.StatusNotFound, "Startup not found")
			return
		}
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}

	from := uuid.Nil
	if fromStatus != nil {
		from = *fromStatus
	}
	s.engine.OnStatusChange(context.WithoutCancel(r.Context()), id, from, req.StatusID, actor)

	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "moved"})
}

// handleUpdateStartupField edits one attribute through the field
// catalog coercion rules, records field history and fires
// attribute_change workflows.
func (s *Server) handleUpdateStartupField(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.errorResponse(w, http.StatusBadRequest, "Invalid startup ID")
		return
	}

	var req types.UpdateFieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, known := fields.Lookup(req.Field); !known {
		s.errorResponse(w, http.StatusBadRequest, "Unknown field: "+req.Field)
		return
	}

	value, warning, err := fields.Coerce(req.Field, req.Value)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, fmt.Sprintf("Invalid value for %s: %v", req.Field, err))
		return
	}

	before, err := s.db.Snapshot(r.Context(), workflow.EntityRef{Type: workflow.EntityStartup, ID: id})
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if before == nil {
		s.errorResponse(w, http.StatusNotFound, "Startup not found")
		return
	}

	if err := s.db.UpdateStartupColumn(r.Context(), id, req.Field, value); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}

	actor, _ := middleware.GetUserID(r)
	oldValue := before[req.Field]
	newValue := req.Value
	if err := s.db.AppendFieldHistory(r.Context(), id, req.Field, &oldValue, &newValue, &actor); err != nil {
		// History is best effort; the edit itself already landed.
		log.Printf("[startups] failed to record field history for %s: %v", id, err)
	}

	s.engine.OnAttributeChange(context.WithoutCancel(r.Context()), id, req.Field, actor)

	resp := map[string]string{"status": "updated"}
	if warning != "" {
		resp["warning"] = warning
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

// handleStartupHistory returns both the stage transitions and the field
// edit log.
func (s *Server) handleStartupHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.errorResponse(w, http.StatusBadRequest, "Invalid startup ID")
		return
	}

	statusHistory, err := s.db.ListStatusHistory(r.Context(), id)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	fieldHistory, err := s.db.ListFieldHistory(r.Context(), id)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status_history": statusHistory,
		"field_history":  fieldHistory,
	})
}
