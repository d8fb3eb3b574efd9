package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-crm/meridian-core/internal/automation"
)

// maxQueryParamLen limits query parameter length to prevent abuse via
// oversized URL params.
const maxQueryParamLen = 100

// handleListAutomations returns all automation rules, with an optional
// trigger_type query filter.
func (s *Server) handleListAutomations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if triggerType := r.URL.Query().Get("trigger_type"); triggerType != "" {
		if len(triggerType) > maxQueryParamLen {
			writeBadRequest(w, "trigger_type exceeds maximum length")
			return
		}
		activeOnly := r.URL.Query().Get("active") == "true"
		automations, err := s.registry.ListByTrigger(ctx, automation.TriggerType(triggerType), activeOnly)
		if err != nil {
			writeInternalError(w, "failed to list automations")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"automations": automations, "count": len(automations)})
		return
	}

	automations, err := s.registry.List(ctx)
	if err != nil {
		writeInternalError(w, "failed to list automations")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"automations": automations, "count": len(automations)})
}

// handleGetAutomation returns a single automation rule by ID.
func (s *Server) handleGetAutomation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid automation ID")
		return
	}

	a, err := s.registry.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, automation.ErrNotFound) {
			writeNotFound(w, "automation not found")
			return
		}
		writeInternalError(w, "failed to get automation")
		return
	}

	writeJSON(w, http.StatusOK, a)
}

// handleCreateAutomation creates a new automation rule.
func (s *Server) handleCreateAutomation(w http.ResponseWriter, r *http.Request) {
	var a automation.Automation
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	// Stamp the creator from the authenticated agent so stats can be
	// scoped per creator later.
	if a.CreatedBy == nil {
		if claims := claimsFromContext(r.Context()); claims != nil {
			a.CreatedBy = &claims.Subject
		}
	}

	if err := s.registry.Create(r.Context(), &a); err != nil {
		if isValidationError(err) {
			writeBadRequest(w, err.Error())
			return
		}
		if errors.Is(err, automation.ErrExists) {
			writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
			return
		}
		writeInternalError(w, "failed to create automation")
		return
	}

	writeJSON(w, http.StatusCreated, a)
}

// handleUpdateAutomation replaces an automation rule. The action set is
// replaced wholesale, so the body must carry the full rule.
func (s *Server) handleUpdateAutomation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid automation ID")
		return
	}

	var a automation.Automation
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	a.ID = id // ID comes from the URL, not the body

	if err := s.registry.Update(r.Context(), &a); err != nil {
		if errors.Is(err, automation.ErrNotFound) {
			writeNotFound(w, "automation not found")
			return
		}
		if isValidationError(err) {
			writeBadRequest(w, err.Error())
			return
		}
		writeInternalError(w, "failed to update automation")
		return
	}

	writeJSON(w, http.StatusOK, a)
}

// handleDeleteAutomation removes an automation rule by ID.
func (s *Server) handleDeleteAutomation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid automation ID")
		return
	}

	if err := s.registry.Delete(r.Context(), id); err != nil {
		if errors.Is(err, automation.ErrNotFound) {
			writeNotFound(w, "automation not found")
			return
		}
		writeInternalError(w, "failed to delete automation")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// toggleRequest is the request body for POST /automations/{id}/toggle.
type toggleRequest struct {
	Active bool `json:"active"`
}

// handleToggleAutomation activates or deactivates an automation rule.
func (s *Server) handleToggleAutomation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid automation ID")
		return
	}

	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.registry.SetActive(r.Context(), id, req.Active); err != nil {
		if errors.Is(err, automation.ErrNotFound) {
			writeNotFound(w, "automation not found")
			return
		}
		writeInternalError(w, "failed to toggle automation")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"id": id, "is_active": req.Active})
}

// handleExecuteAutomation runs an automation rule against a caller-supplied
// payload. Condition matching is bypassed; this is the manual test hook the
// admin UI uses when building rules.
func (s *Server) handleExecuteAutomation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid automation ID")
		return
	}

	var payload map[string]any
	if r.Body != nil && r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeBadRequest(w, "invalid JSON body")
			return
		}
	}
	if payload == nil {
		payload = map[string]any{}
	}

	result, err := s.engine.Execute(r.Context(), id, payload)
	if err != nil {
		if errors.Is(err, automation.ErrNotFound) {
			writeNotFound(w, "automation not found")
			return
		}
		if errors.Is(err, automation.ErrInactive) {
			writeError(w, http.StatusConflict, ErrCodeConflict, "automation is inactive")
			return
		}
		if errors.Is(err, automation.ErrUnknownActionType) {
			writeBadRequest(w, err.Error())
			return
		}
		// Recording failures still carry the per-action log.
		writeJSON(w, http.StatusInternalServerError, result)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleListExecutions returns execution history for one automation rule.
func (s *Server) handleListExecutions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid automation ID")
		return
	}

	// Verify the automation exists so a typo'd ID reads as 404, not empty history.
	if _, err := s.registry.Get(r.Context(), id); err != nil {
		if errors.Is(err, automation.ErrNotFound) {
			writeNotFound(w, "automation not found")
			return
		}
		writeInternalError(w, "failed to get automation")
		return
	}

	executions, err := s.repo.ListExecutions(r.Context(), id, s.historyLimit(r))
	if err != nil {
		writeInternalError(w, "failed to list executions")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"executions": executions, "count": len(executions)})
}

// handleListRecentExecutions returns the most recent executions across all rules.
func (s *Server) handleListRecentExecutions(w http.ResponseWriter, r *http.Request) {
	createdBy, ok := creatorFilter(w, r)
	if !ok {
		return
	}

	executions, err := s.repo.ListRecentExecutions(r.Context(), s.historyLimit(r), createdBy)
	if err != nil {
		writeInternalError(w, "failed to list executions")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"executions": executions, "count": len(executions)})
}

// handleAutomationStats returns dashboard statistics, optionally scoped to
// one creator via the created_by query parameter.
func (s *Server) handleAutomationStats(w http.ResponseWriter, r *http.Request) {
	createdBy, ok := creatorFilter(w, r)
	if !ok {
		return
	}

	stats, err := s.stats.GetStats(r.Context(), createdBy)
	if err != nil {
		writeInternalError(w, "failed to compute stats")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// creatorFilter extracts the created_by query parameter. A false return
// means the filter was invalid and an error response was written.
func creatorFilter(w http.ResponseWriter, r *http.Request) (string, bool) {
	createdBy := r.URL.Query().Get("created_by")
	if len(createdBy) > maxQueryParamLen {
		writeBadRequest(w, "created_by parameter too long")
		return "", false
	}
	return createdBy, true
}

// historyLimit resolves the execution history limit from the limit query
// parameter, capped by configuration.
func (s *Server) historyLimit(r *http.Request) int {
	limit := s.autoCfg.ExecutionHistoryLimit
	if limit <= 0 {
		limit = 50
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n < limit {
			limit = n
		}
	}
	return limit
}

// isValidationError reports whether the error is one of the automation
// validation sentinels that map to a 400 response.
func isValidationError(err error) bool {
	return errors.Is(err, automation.ErrInvalid) ||
		errors.Is(err, automation.ErrInvalidName) ||
		errors.Is(err, automation.ErrNoActions) ||
		errors.Is(err, automation.ErrInvalidAction) ||
		errors.Is(err, automation.ErrUnknownTriggerType) ||
		errors.Is(err, automation.ErrUnknownActionType)
}
