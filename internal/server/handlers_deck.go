package server

import (
	"context"
	"log"
	"net/http"

	"github.com/venturedesk/pipeline/internal/deck"
	"github.com/venturedesk/pipeline/internal/fields"
	"github.com/venturedesk/pipeline/internal/server/middleware"
	"github.com/venturedesk/pipeline/internal/workflow"
)

// handleExtractPitchDeck downloads the startup's pitch deck PDF and
// fills catalog attributes from it. Extraction only fills fields that
// are currently empty: an analyst's hand-entered value always wins
// over the model. Each filled field gets a history row and fires
// attribute_change workflows, same as a manual edit.
func (s *Server) handleExtractPitchDeck(w http.ResponseWriter, r *http.Request) {
	if s.extractor == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "Pitch deck extraction is not configured (set GEMINI_API_KEY)")
		return
	}

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
	if startup.PitchDeckURL == nil || *startup.PitchDeckURL == "" {
		s.errorResponse(w, http.StatusBadRequest, "Startup has no pitch deck URL")
		return
	}

	pdf, err := deck.Fetch(r.Context(), *startup.PitchDeckURL)
	if err != nil {
		s.errorResponse(w, http.StatusBadGateway, "Failed to fetch pitch deck: "+err.Error())
		return
	}

	extracted, err := s.extractor.Extract(r.Context(), pdf)
	if err != nil {
		s.errorResponse(w, http.StatusBadGateway, "Pitch deck extraction failed: "+err.Error())
		return
	}

	ref := workflow.EntityRef{Type: workflow.EntityStartup, ID: id}
	before, err := s.db.Snapshot(r.Context(), ref)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}

	actor, _ := middleware.GetUserID(r)
	var applied []string
	warnings := make(map[string]string)
	for _, f := range fields.Catalog() {
		raw, found := extracted[f.Key]
		if !found || before[f.Key] != "" {
			continue
		}

		value, warning, cerr := fields.Coerce(f.Key, raw)
		if cerr != nil {
			warnings[f.Key] = cerr.Error()
			continue
		}
		if warning != "" {
			warnings[f.Key] = warning
		}
		if value == nil {
			continue
		}

		if err := s.db.UpdateStartupColumn(r.Context(), id, f.Key, value); err != nil {
			s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
			return
		}
		oldValue := ""
		if err := s.db.AppendFieldHistory(r.Context(), id, f.Key, &oldValue, &raw, &actor); err != nil {
			log.Printf("[deck] failed to record field history for %s: %v", id, err)
		}
		applied = append(applied, f.Key)
	}

	bg := context.WithoutCancel(r.Context())
	for _, field := range applied {
		s.engine.OnAttributeChange(bg, id, field, actor)
	}

	resp := map[string]any{
		"applied": applied,
		"skipped": len(extracted) - len(applied),
	}
	if len(warnings) > 0 {
		resp["warnings"] = warnings
	}
	s.jsonResponse(w, http.StatusOK, resp)
}
