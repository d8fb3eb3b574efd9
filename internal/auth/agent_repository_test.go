package auth

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func setupTestRepo(t *testing.T) *SQLiteAgentRepository {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `
		CREATE TABLE agents (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			display_name TEXT NOT NULL,
			email TEXT,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'agent',
			is_active INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("creating test schema: %v", err)
	}

	return NewAgentRepository(db)
}

func seedAgent(t *testing.T, repo *SQLiteAgentRepository, username, password string, role Role) *Agent {
	t.Helper()

	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}
	agent := &Agent{
		Username:     username,
		DisplayName:  "Test Agent",
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	if err := repo.Create(context.Background(), agent); err != nil {
		t.Fatalf("creating agent: %v", err)
	}
	return agent
}

func TestAgentRepository_CreateAndGet(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	created := seedAgent(t, repo, "laura.m", "secret123", RoleAdmin)
	if created.ID == "" {
		t.Fatal("expected generated agent ID")
	}

	got, err := repo.GetByUsername(ctx, "laura.m")
	if err != nil {
		t.Fatalf("GetByUsername failed: %v", err)
	}
	if got.ID != created.ID || got.Role != RoleAdmin || !got.IsActive {
		t.Errorf("unexpected agent: %+v", got)
	}

	byID, err := repo.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if byID.Username != "laura.m" {
		t.Errorf("username = %q", byID.Username)
	}
}

func TestAgentRepository_DuplicateUsername(t *testing.T) {
	repo := setupTestRepo(t)

	seedAgent(t, repo, "laura.m", "secret123", RoleAgent)

	err := repo.Create(context.Background(), &Agent{
		Username:     "laura.m",
		DisplayName:  "Otra Laura",
		PasswordHash: "$argon2id$...",
		Role:         RoleAgent,
	})
	if !errors.Is(err, ErrUsernameExists) {
		t.Errorf("expected ErrUsernameExists, got %v", err)
	}
}

func TestAgentRepository_InvalidUsername(t *testing.T) {
	repo := setupTestRepo(t)

	err := repo.Create(context.Background(), &Agent{
		Username:     "laura martinez",
		DisplayName:  "Laura",
		PasswordHash: "h",
	})
	if err == nil {
		t.Error("expected error for username with spaces")
	}
}

func TestAgentRepository_SetActive(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	agent := seedAgent(t, repo, "pedro.d", "secret123", RoleAgent)

	if err := repo.SetActive(ctx, agent.ID, false); err != nil {
		t.Fatalf("SetActive failed: %v", err)
	}

	got, err := repo.GetByID(ctx, agent.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.IsActive {
		t.Error("agent should be inactive")
	}

	if err := repo.SetActive(ctx, "ghost", true); !errors.Is(err, ErrAgentNotFound) {
		t.Errorf("expected ErrAgentNotFound, got %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	seedAgent(t, repo, "laura.m", "secret123", RoleAdmin)

	agent, err := Authenticate(ctx, repo, "laura.m", "secret123")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if agent.Username != "laura.m" {
		t.Errorf("username = %q", agent.Username)
	}

	if _, err := Authenticate(ctx, repo, "laura.m", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := Authenticate(ctx, repo, "nobody", "secret123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user: expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthenticate_InactiveAgent(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	agent := seedAgent(t, repo, "ex.agente", "secret123", RoleAgent)
	if err := repo.SetActive(ctx, agent.ID, false); err != nil {
		t.Fatalf("SetActive failed: %v", err)
	}

	if _, err := Authenticate(ctx, repo, "ex.agente", "secret123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAgentRepository_ListAndCount(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	seedAgent(t, repo, "uno", "p1", RoleAgent)
	seedAgent(t, repo, "dos", "p2", RoleAdmin)

	agents, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(agents) != 2 {
		t.Errorf("expected 2 agents, got %d", len(agents))
	}

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}
