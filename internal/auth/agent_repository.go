package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AgentRepository defines the interface for agent account persistence.
type AgentRepository interface {
	Create(ctx context.Context, agent *Agent) error
	GetByID(ctx context.Context, id string) (*Agent, error)
	GetByUsername(ctx context.Context, username string) (*Agent, error)
	List(ctx context.Context) ([]Agent, error)
	SetActive(ctx context.Context, id string, active bool) error
	Count(ctx context.Context) (int, error)
}

const agentColumns = "id, username, display_name, email, password_hash, role, is_active, created_at, updated_at"

// SQLiteAgentRepository implements AgentRepository using SQLite.
type SQLiteAgentRepository struct {
	db *sql.DB
}

// NewAgentRepository creates a new SQLite-backed agent repository.
func NewAgentRepository(db *sql.DB) *SQLiteAgentRepository {
	return &SQLiteAgentRepository{db: db}
}

// Create inserts a new agent account. The ID is generated if empty.
func (r *SQLiteAgentRepository) Create(ctx context.Context, agent *Agent) error {
	if agent.ID == "" {
		agent.ID = "agt-" + uuid.NewString()[:8]
	}
	if agent.Role == "" {
		agent.Role = RoleAgent
	}
	if !IsValidRole(agent.Role) {
		return fmt.Errorf("invalid role %q", agent.Role)
	}
	if !IsValidUsername(agent.Username) {
		return fmt.Errorf("invalid username %q", agent.Username)
	}

	now := time.Now().UTC().Truncate(time.Second)
	agent.CreatedAt = now
	agent.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO agents (`+agentColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		agent.ID, agent.Username, agent.DisplayName, nullString(agent.Email),
		agent.PasswordHash, string(agent.Role), boolToInt(agent.IsActive),
		now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique constraint") {
			return ErrUsernameExists
		}
		return fmt.Errorf("creating agent: %w", err)
	}
	return nil
}

// GetByID retrieves an agent by their unique ID.
func (r *SQLiteAgentRepository) GetByID(ctx context.Context, id string) (*Agent, error) {
	return r.getAgent(ctx, "SELECT "+agentColumns+" FROM agents WHERE id = ?", id)
}

// GetByUsername retrieves an agent by their username.
func (r *SQLiteAgentRepository) GetByUsername(ctx context.Context, username string) (*Agent, error) {
	return r.getAgent(ctx, "SELECT "+agentColumns+" FROM agents WHERE username = ?", username)
}

// List returns all agents ordered by creation date.
func (r *SQLiteAgentRepository) List(ctx context.Context) ([]Agent, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+agentColumns+" FROM agents ORDER BY created_at ASC")
	if err != nil {
		return nil, fmt.Errorf("listing agents: %w", err)
	}
	defer rows.Close()

	var agents []Agent
	for rows.Next() {
		a, scanErr := scanAgent(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		agents = append(agents, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating agents: %w", err)
	}

	if agents == nil {
		agents = []Agent{}
	}
	return agents, nil
}

// SetActive enables or disables an agent account.
func (r *SQLiteAgentRepository) SetActive(ctx context.Context, id string, active bool) error {
	now := time.Now().UTC().Format(time.RFC3339)
	result, err := r.db.ExecContext(ctx,
		`UPDATE agents SET is_active = ?, updated_at = ? WHERE id = ?`,
		boolToInt(active), now, id,
	)
	if err != nil {
		return fmt.Errorf("updating agent: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrAgentNotFound
	}
	return nil
}

// Count returns the number of agent accounts.
func (r *SQLiteAgentRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM agents").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting agents: %w", err)
	}
	return count, nil
}

// Authenticate verifies a username/password pair and returns the agent on
// success. Inactive accounts and unknown usernames both report
// ErrInvalidCredentials so a caller cannot probe for valid usernames.
func Authenticate(ctx context.Context, repo AgentRepository, username, password string) (*Agent, error) {
	agent, err := repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrAgentNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !agent.IsActive {
		return nil, ErrInvalidCredentials
	}

	ok, err := VerifyPassword(password, agent.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verifying password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	return agent, nil
}

func (r *SQLiteAgentRepository) getAgent(ctx context.Context, query string, arg any) (*Agent, error) {
	row := r.db.QueryRowContext(ctx, query, arg)
	a, err := scanAgent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAgentNotFound
		}
		return nil, fmt.Errorf("querying agent: %w", err)
	}
	return a, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgent(scanner rowScanner) (*Agent, error) {
	var a Agent
	var email sql.NullString
	var role, createdAt, updatedAt string
	var isActive int

	err := scanner.Scan(&a.ID, &a.Username, &a.DisplayName, &email,
		&a.PasswordHash, &role, &isActive, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	a.Role = Role(role)
	a.IsActive = isActive != 0
	if email.Valid {
		a.Email = email.String
	}
	if t, parseErr := time.Parse(time.RFC3339, createdAt); parseErr == nil {
		a.CreatedAt = t
	}
	if t, parseErr := time.Parse(time.RFC3339, updatedAt); parseErr == nil {
		a.UpdatedAt = t
	}
	return &a, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
