package auth

import (
	"errors"
	"regexp"
	"time"
)

// usernamePattern defines the valid format for usernames:
// alphanumeric, dots, hyphens, underscores, 1-64 characters.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,64}$`)

// IsValidUsername checks if a username meets format requirements.
func IsValidUsername(username string) bool {
	return usernamePattern.MatchString(username)
}

// Role represents an authorisation tier in the system.
type Role string

const (
	// RoleAgent is a travel agent. Can manage contacts, tasks, and quotes,
	// and view automations and their execution history.
	RoleAgent Role = "agent"

	// RoleAdmin can additionally create, edit, delete, and toggle
	// automations, and trigger manual executions.
	RoleAdmin Role = "admin"
)

// ValidRoles is the set of valid agent roles.
var ValidRoles = []Role{RoleAgent, RoleAdmin}

// IsValidRole returns true if the role is a valid agent role.
func IsValidRole(r Role) bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// Agent represents an authenticated staff account.
type Agent struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"` // never serialised
	Role         Role      `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Domain errors, checked with errors.Is().
var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrAgentNotFound      = errors.New("auth: agent not found")
	ErrAgentInactive      = errors.New("auth: agent account is inactive")
	ErrUsernameExists     = errors.New("auth: username already exists")
	ErrTokenInvalid       = errors.New("auth: invalid token")
	ErrForbidden          = errors.New("auth: insufficient permissions")
)
