package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Auth endpoints (no auth required)
		r.Post("/auth/login", s.handleLogin)

		// WebSocket. Browsers cannot set an Authorization header on a
		// WebSocket connect, so this sits outside the bearer-token group;
		// the handler validates the JWT from the token query parameter.
		r.Get("/ws", s.handleWebSocket)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			// Automation endpoints. Reads are open to any agent; writes
			// and manual execution require the admin role.
			r.Route("/automations", func(r chi.Router) {
				r.Get("/", s.handleListAutomations)
				r.Get("/stats", s.handleAutomationStats)
				r.Get("/executions", s.handleListRecentExecutions)

				r.Group(func(r chi.Router) {
					r.Use(s.requireAdmin)
					r.Post("/", s.handleCreateAutomation)
				})

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetAutomation)
					r.Get("/executions", s.handleListExecutions)

					r.Group(func(r chi.Router) {
						r.Use(s.requireAdmin)
						r.Put("/", s.handleUpdateAutomation)
						r.Delete("/", s.handleDeleteAutomation)
						r.Post("/toggle", s.handleToggleAutomation)
						r.Post("/execute", s.handleExecuteAutomation)
					})
				})
			})

			// CRM endpoints
			r.Route("/contacts", func(r chi.Router) {
				r.Get("/", s.handleListContacts)
				r.Post("/", s.handleCreateContact)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetContact)
					r.Get("/tasks", s.handleListContactTasks)
				})
			})
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	health := map[string]any{
		"status":  "ok",
		"version": s.version,
	}
	if s.mqtt != nil {
		health["mqtt_connected"] = s.mqtt.IsConnected()
	}
	writeJSON(w, http.StatusOK, health)
}
