package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/meridian-crm/meridian-core/internal/auth"
)

// loginRequest is the request body for POST /auth/login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginResponse is the response body for a successful login.
type loginResponse struct {
	Token string      `json:"token"`
	Agent *auth.Agent `json:"agent"`
}

// handleLogin verifies agent credentials and issues a JWT access token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.agents == nil {
		writeInternalError(w, "authentication not configured")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeBadRequest(w, "username and password are required")
		return
	}

	agent, err := auth.Authenticate(r.Context(), s.agents, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeUnauthorized(w, "invalid credentials")
			return
		}
		s.logger.Error("login failed", "username", req.Username, "error", err)
		writeInternalError(w, "login failed")
		return
	}

	token, err := auth.GenerateAccessToken(agent, s.secCfg.JWT.Secret, s.secCfg.JWT.AccessTokenTTL)
	if err != nil {
		s.logger.Error("token generation failed", "error", err)
		writeInternalError(w, "login failed")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{Token: token, Agent: agent})
}
