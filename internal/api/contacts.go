package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-crm/meridian-core/internal/crm"
)

// handleListContacts returns contacts, with an optional status query filter.
func (s *Server) handleListContacts(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if len(status) > maxQueryParamLen {
		writeBadRequest(w, "status exceeds maximum length")
		return
	}

	contacts, err := s.crm.ListContacts(r.Context(), crm.ContactStatus(status), 0)
	if err != nil {
		writeInternalError(w, "failed to list contacts")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"contacts": contacts, "count": len(contacts)})
}

// handleCreateContact creates a new contact.
func (s *Server) handleCreateContact(w http.ResponseWriter, r *http.Request) {
	var contact crm.Contact
	if err := json.NewDecoder(r.Body).Decode(&contact); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if contact.Name == "" {
		writeBadRequest(w, "name is required")
		return
	}

	if err := s.crm.CreateContact(r.Context(), &contact); err != nil {
		if errors.Is(err, crm.ErrContactExists) {
			writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
			return
		}
		if errors.Is(err, crm.ErrInvalidStatus) {
			writeBadRequest(w, err.Error())
			return
		}
		writeInternalError(w, "failed to create contact")
		return
	}

	writeJSON(w, http.StatusCreated, contact)
}

// handleGetContact returns a single contact by ID.
func (s *Server) handleGetContact(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid contact ID")
		return
	}

	contact, err := s.crm.GetContact(r.Context(), id)
	if err != nil {
		if errors.Is(err, crm.ErrContactNotFound) {
			writeNotFound(w, "contact not found")
			return
		}
		writeInternalError(w, "failed to get contact")
		return
	}

	writeJSON(w, http.StatusOK, contact)
}

// handleListContactTasks returns the tasks linked to a contact.
func (s *Server) handleListContactTasks(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid contact ID")
		return
	}

	if _, err := s.crm.GetContact(r.Context(), id); err != nil {
		if errors.Is(err, crm.ErrContactNotFound) {
			writeNotFound(w, "contact not found")
			return
		}
		writeInternalError(w, "failed to get contact")
		return
	}

	tasks, err := s.crm.ListTasks(r.Context(), id, 0)
	if err != nil {
		writeInternalError(w, "failed to list tasks")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks, "count": len(tasks)})
}
