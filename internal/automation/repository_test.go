package automation

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates an in-memory SQLite database with the automation schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}

	// Matches the migration schema
	schema := `
		CREATE TABLE automations (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT,
			trigger_type TEXT NOT NULL,
			trigger_conditions TEXT NOT NULL DEFAULT '{}',
			is_active INTEGER NOT NULL DEFAULT 1,
			actions TEXT NOT NULL DEFAULT '[]',
			created_by TEXT,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;

		CREATE TABLE automation_executions (
			id TEXT PRIMARY KEY,
			automation_id TEXT NOT NULL,
			trigger_payload TEXT NOT NULL DEFAULT '{}',
			status TEXT NOT NULL DEFAULT 'running',
			started_at TEXT NOT NULL,
			completed_at TEXT,
			error TEXT,
			actions_executed TEXT,
			duration_ms INTEGER,
			FOREIGN KEY (automation_id) REFERENCES automations(id) ON DELETE CASCADE
		) STRICT;

		CREATE TABLE scheduled_actions (
			id TEXT PRIMARY KEY,
			automation_id TEXT NOT NULL,
			execution_id TEXT NOT NULL,
			action TEXT NOT NULL,
			trigger_payload TEXT NOT NULL DEFAULT '{}',
			execute_at TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			result TEXT,
			error TEXT,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			completed_at TEXT,
			FOREIGN KEY (automation_id) REFERENCES automations(id) ON DELETE CASCADE
		) STRICT;`

	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("creating schema: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLiteRepository_CreateAndGet(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	desc := "Da la bienvenida a contactos nuevos"
	a := &Automation{
		ID:                "a-1",
		Name:              "Bienvenida",
		Description:       &desc,
		TriggerType:       TriggerContactCreated,
		TriggerConditions: map[string]any{"status": "NUEVO"},
		IsActive:          true,
		Actions: []Action{
			{ID: "act-2", ActionType: ActionSendMessage, Parameters: map[string]any{"templateId": "welcome"}, Order: 2},
			{ID: "act-1", ActionType: ActionAddTag, Parameters: map[string]any{"tags": []any{"nuevo"}}, Order: 1},
		},
	}

	if err := repo.Create(ctx, a); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetByID(ctx, "a-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != "Bienvenida" {
		t.Errorf("Name = %q", got.Name)
	}
	if got.Description == nil || *got.Description != desc {
		t.Error("description did not round-trip")
	}
	if got.TriggerConditions["status"] != "NUEVO" {
		t.Error("trigger conditions did not round-trip")
	}
	// Actions come back sorted by order regardless of stored order.
	if len(got.Actions) != 2 || got.Actions[0].ID != "act-1" {
		t.Errorf("actions not sorted by order: %+v", got.Actions)
	}
}

func TestSQLiteRepository_Get_NotFound(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	_, err := repo.GetByID(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSQLiteRepository_Create_Duplicate(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	a := testAutomation("a-1", "Original")
	if err := repo.Create(ctx, a); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Create(ctx, testAutomation("a-1", "Duplicada")); !errors.Is(err, ErrExists) {
		t.Errorf("err = %v, want ErrExists", err)
	}
}

func TestSQLiteRepository_Update_ReplacesActions(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	a := testAutomation("a-1", "Bienvenida")
	a.Actions = []Action{
		{ID: "old-1", ActionType: ActionAddTag, Parameters: map[string]any{"tags": []any{"a"}}, Order: 1},
		{ID: "old-2", ActionType: ActionUpdateStatus, Parameters: map[string]any{"status": "INTERESADO"}, Order: 2},
	}
	if err := repo.Create(ctx, a); err != nil {
		t.Fatalf("Create: %v", err)
	}

	a.Actions = []Action{
		{ID: "new-1", ActionType: ActionSendMessage, Parameters: map[string]any{"templateId": "welcome"}, Order: 1},
	}
	if err := repo.Update(ctx, a); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, _ := repo.GetByID(ctx, "a-1")
	if len(got.Actions) != 1 || got.Actions[0].ID != "new-1" {
		t.Errorf("stored actions = %+v, want only new-1", got.Actions)
	}
}

func TestSQLiteRepository_ListByTriggerType(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	active := testAutomation("a-1", "Activa")
	inactive := testAutomation("a-2", "Inactiva")
	inactive.IsActive = false
	other := testAutomation("a-3", "Pago vencido")
	other.TriggerType = TriggerPaymentOverdue

	for _, a := range []*Automation{active, inactive, other} {
		if err := repo.Create(ctx, a); err != nil {
			t.Fatalf("Create %s: %v", a.ID, err)
		}
	}

	got, err := repo.ListByTriggerType(ctx, TriggerContactCreated, true)
	if err != nil {
		t.Fatalf("ListByTriggerType: %v", err)
	}
	if len(got) != 1 || got[0].ID != "a-1" {
		t.Errorf("got %d rows, want only the active contact-created rule", len(got))
	}
}

func TestSQLiteRepository_ExecutionLifecycle(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.Create(ctx, testAutomation("a-1", "Bienvenida")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	started := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	exec := &Execution{
		ID:             "e-1",
		AutomationID:   "a-1",
		TriggerPayload: map[string]any{ContactIDKey: "c-1"},
		Status:         StatusRunning,
		StartedAt:      started,
	}
	if err := repo.CreateExecution(ctx, exec); err != nil {
		t.Fatalf("CreateExecution: %v", err)
	}

	completed := started.Add(42 * time.Millisecond)
	duration := 42
	errMsg := "plantilla no encontrada"
	exec.Status = StatusCompleted
	exec.CompletedAt = &completed
	exec.DurationMS = &duration
	exec.ActionsLog = []ActionLogEntry{
		{ActionID: "act-1", ActionType: ActionAddTag, Order: 1, Status: ActionStatusCompleted, Timestamp: started},
		{ActionID: "act-2", ActionType: ActionSendMessage, Order: 2, Status: ActionStatusFailed, Error: &errMsg, Timestamp: started},
	}
	if err := repo.UpdateExecution(ctx, exec); err != nil {
		t.Fatalf("UpdateExecution: %v", err)
	}

	got, err := repo.GetExecution(ctx, "e-1")
	if err != nil {
		t.Fatalf("GetExecution: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Errorf("Status = %s", got.Status)
	}
	if len(got.ActionsLog) != 2 {
		t.Fatalf("ActionsLog = %d entries", len(got.ActionsLog))
	}
	if got.ActionsLog[1].Error == nil || *got.ActionsLog[1].Error != errMsg {
		t.Error("per-action error did not round-trip")
	}
	if got.DurationMS == nil || *got.DurationMS != 42 {
		t.Error("duration did not round-trip")
	}
}

func TestSQLiteRepository_CountExecutionsSince(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.Create(ctx, testAutomation("a-1", "Bienvenida")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	seed := func(id string, at time.Time, status ExecutionStatus) {
		exec := &Execution{ID: id, AutomationID: "a-1", Status: status, StartedAt: at}
		if err := repo.CreateExecution(ctx, exec); err != nil {
			t.Fatalf("CreateExecution %s: %v", id, err)
		}
	}
	seed("e-1", now.Add(-time.Hour), StatusCompleted)
	seed("e-2", now.Add(-2*time.Hour), StatusFailed)
	seed("e-3", now.Add(-10*24*time.Hour), StatusCompleted)

	total, completedCount, err := repo.CountExecutionsSince(ctx, now.Add(-7*24*time.Hour), "")
	if err != nil {
		t.Fatalf("CountExecutionsSince: %v", err)
	}
	if total != 2 || completedCount != 1 {
		t.Errorf("total = %d completed = %d, want 2 and 1", total, completedCount)
	}
}

func TestSQLiteRepository_StatsCreatorFilter(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	laura := "agt-laura"
	carlos := "agt-carlos"

	mine := testAutomation("a-1", "Bienvenida")
	mine.CreatedBy = &laura
	other := testAutomation("a-2", "Recordatorio")
	other.CreatedBy = &carlos
	if err := repo.Create(ctx, mine); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Create(ctx, other); err != nil {
		t.Fatalf("Create: %v", err)
	}

	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	seed := func(id, automationID string, status ExecutionStatus) {
		exec := &Execution{ID: id, AutomationID: automationID, Status: status, StartedAt: now.Add(-time.Hour)}
		if err := repo.CreateExecution(ctx, exec); err != nil {
			t.Fatalf("CreateExecution %s: %v", id, err)
		}
	}
	seed("e-1", "a-1", StatusCompleted)
	seed("e-2", "a-1", StatusFailed)
	seed("e-3", "a-2", StatusCompleted)

	total, active, err := repo.CountAutomations(ctx, laura)
	if err != nil {
		t.Fatalf("CountAutomations: %v", err)
	}
	if total != 1 || active != 1 {
		t.Errorf("automations = %d/%d, want 1/1", total, active)
	}

	count, err := repo.CountExecutions(ctx, laura)
	if err != nil {
		t.Fatalf("CountExecutions: %v", err)
	}
	if count != 2 {
		t.Errorf("executions = %d, want 2", count)
	}

	winTotal, winCompleted, err := repo.CountExecutionsSince(ctx, now.Add(-7*24*time.Hour), laura)
	if err != nil {
		t.Fatalf("CountExecutionsSince: %v", err)
	}
	if winTotal != 2 || winCompleted != 1 {
		t.Errorf("window = %d/%d, want 2/1", winTotal, winCompleted)
	}

	recent, err := repo.ListRecentExecutions(ctx, 10, laura)
	if err != nil {
		t.Fatalf("ListRecentExecutions: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("recent = %d, want 2", len(recent))
	}
	for _, exec := range recent {
		if exec.AutomationID != "a-1" {
			t.Errorf("execution %s belongs to %s, want a-1", exec.ID, exec.AutomationID)
		}
	}
}

func TestSQLiteRepository_ScheduledActionClaim(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.Create(ctx, testAutomation("a-1", "Bienvenida")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	sa := &ScheduledAction{
		ID:             "s-1",
		AutomationID:   "a-1",
		ExecutionID:    "e-1",
		Action:         Action{ID: "act-1", ActionType: ActionSendMessage, Parameters: map[string]any{"templateId": "followup"}, DelayMinutes: 30, Order: 1},
		TriggerPayload: map[string]any{ContactIDKey: "c-1"},
		ExecuteAt:      now.Add(30 * time.Minute),
		Status:         ScheduledPending,
	}
	if err := repo.CreateScheduledAction(ctx, sa); err != nil {
		t.Fatalf("CreateScheduledAction: %v", err)
	}

	// Not yet due.
	due, err := repo.ClaimDueScheduledActions(ctx, now, 10)
	if err != nil {
		t.Fatalf("ClaimDueScheduledActions: %v", err)
	}
	if len(due) != 0 {
		t.Fatal("claimed an action before its due time")
	}

	// Due now; claim returns it once.
	due, err = repo.ClaimDueScheduledActions(ctx, now.Add(time.Hour), 10)
	if err != nil {
		t.Fatalf("ClaimDueScheduledActions: %v", err)
	}
	if len(due) != 1 || due[0].ID != "s-1" {
		t.Fatalf("claimed %d actions, want s-1 once", len(due))
	}
	if due[0].Action.ActionType != ActionSendMessage {
		t.Error("claimed action payload did not round-trip")
	}

	again, err := repo.ClaimDueScheduledActions(ctx, now.Add(time.Hour), 10)
	if err != nil {
		t.Fatalf("ClaimDueScheduledActions: %v", err)
	}
	if len(again) != 0 {
		t.Error("claimed the same action twice")
	}

	if err := repo.CompleteScheduledAction(ctx, "s-1", map[string]any{"sent": true}, nil); err != nil {
		t.Fatalf("CompleteScheduledAction: %v", err)
	}
}

func TestSQLiteRepository_Delete_Cascades(t *testing.T) {
	db := setupTestDB(t)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enabling foreign keys: %v", err)
	}
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	if err := repo.Create(ctx, testAutomation("a-1", "Bienvenida")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	exec := &Execution{ID: "e-1", AutomationID: "a-1", Status: StatusCompleted, StartedAt: time.Now().UTC()}
	if err := repo.CreateExecution(ctx, exec); err != nil {
		t.Fatalf("CreateExecution: %v", err)
	}

	if err := repo.Delete(ctx, "a-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.GetExecution(ctx, "e-1"); !errors.Is(err, ErrExecutionNotFound) {
		t.Errorf("err = %v, want ErrExecutionNotFound after cascade", err)
	}
}
