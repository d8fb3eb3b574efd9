package automation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for automation persistence.
// This abstraction allows different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// Automation CRUD
	GetByID(ctx context.Context, id string) (*Automation, error)
	List(ctx context.Context) ([]Automation, error)
	ListByTriggerType(ctx context.Context, triggerType TriggerType, activeOnly bool) ([]Automation, error)
	Create(ctx context.Context, a *Automation) error
	Update(ctx context.Context, a *Automation) error
	Delete(ctx context.Context, id string) error
	SetActive(ctx context.Context, id string, active bool) error

	// Execution logging
	CreateExecution(ctx context.Context, exec *Execution) error
	UpdateExecution(ctx context.Context, exec *Execution) error
	GetExecution(ctx context.Context, id string) (*Execution, error)
	ListExecutions(ctx context.Context, automationID string, limit int) ([]Execution, error)
	ListRecentExecutions(ctx context.Context, limit int, createdBy string) ([]Execution, error)

	// Stats queries. An empty createdBy means no owner restriction;
	// otherwise counts cover only automations created by that agent
	// (executions are scoped through their owning automation).
	CountAutomations(ctx context.Context, createdBy string) (total, active int, err error)
	CountExecutions(ctx context.Context, createdBy string) (int, error)
	CountExecutionsSince(ctx context.Context, since time.Time, createdBy string) (total, completed int, err error)

	// Deferred actions
	CreateScheduledAction(ctx context.Context, sa *ScheduledAction) error
	ClaimDueScheduledActions(ctx context.Context, now time.Time, limit int) ([]ScheduledAction, error)
	CompleteScheduledAction(ctx context.Context, id string, result map[string]any, execErr error) error
}

// automationColumns is the SELECT column list for automation queries.
const automationColumns = `id, name, description, trigger_type, trigger_conditions,
			is_active, actions, created_by, created_at, updated_at`

// executionColumns is the SELECT column list for execution queries.
const executionColumns = `id, automation_id, trigger_payload, status, started_at,
			completed_at, error, actions_executed, duration_ms`

// executionColumnsPrefixed is executionColumns qualified with the `e`
// alias, for queries joining automations.
const executionColumnsPrefixed = `e.id, e.automation_id, e.trigger_payload, e.status, e.started_at,
			e.completed_at, e.error, e.actions_executed, e.duration_ms`

// scheduledColumns is the SELECT column list for scheduled action queries.
const scheduledColumns = `id, automation_id, execution_id, action, trigger_payload,
			execute_at, status, result, error, created_at, completed_at`

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// GetByID retrieves an automation by its unique identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Automation, error) {
	query := `SELECT ` + automationColumns + ` FROM automations WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	a, err := scanAutomationRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying automation by id: %w", err)
	}
	return a, nil
}

// List retrieves all automations ordered by name.
func (r *SQLiteRepository) List(ctx context.Context) ([]Automation, error) {
	query := `SELECT ` + automationColumns + ` FROM automations ORDER BY name`
	return r.queryAutomations(ctx, query)
}

// ListByTriggerType retrieves automations for a trigger type, optionally
// restricted to active ones. This is the event intake's hot path.
func (r *SQLiteRepository) ListByTriggerType(ctx context.Context, triggerType TriggerType, activeOnly bool) ([]Automation, error) {
	query := `SELECT ` + automationColumns + ` FROM automations WHERE trigger_type = ?`
	if activeOnly {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY name`
	return r.queryAutomations(ctx, query, string(triggerType))
}

// Create inserts a new automation.
func (r *SQLiteRepository) Create(ctx context.Context, a *Automation) error {
	actionsJSON, err := json.Marshal(a.Actions)
	if err != nil {
		return fmt.Errorf("marshalling actions: %w", err)
	}
	conditionsJSON, err := marshalMap(a.TriggerConditions)
	if err != nil {
		return fmt.Errorf("marshalling trigger conditions: %w", err)
	}

	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	query := `
		INSERT INTO automations (
			id, name, description, trigger_type, trigger_conditions,
			is_active, actions, created_by, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		a.ID,
		a.Name,
		nullableString(a.Description),
		string(a.TriggerType),
		conditionsJSON,
		boolToInt(a.IsActive),
		string(actionsJSON),
		nullableString(a.CreatedBy),
		a.CreatedAt.Format(time.RFC3339),
		a.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrExists
		}
		return fmt.Errorf("inserting automation: %w", err)
	}
	return nil
}

// Update modifies an existing automation. The stored action set is
// replaced wholesale with the one on the struct.
func (r *SQLiteRepository) Update(ctx context.Context, a *Automation) error {
	actionsJSON, err := json.Marshal(a.Actions)
	if err != nil {
		return fmt.Errorf("marshalling actions: %w", err)
	}
	conditionsJSON, err := marshalMap(a.TriggerConditions)
	if err != nil {
		return fmt.Errorf("marshalling trigger conditions: %w", err)
	}

	a.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE automations SET
			name = ?, description = ?, trigger_type = ?, trigger_conditions = ?,
			is_active = ?, actions = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		a.Name,
		nullableString(a.Description),
		string(a.TriggerType),
		conditionsJSON,
		boolToInt(a.IsActive),
		string(actionsJSON),
		a.UpdatedAt.Format(time.RFC3339),
		a.ID,
	)
	if err != nil {
		return fmt.Errorf("updating automation: %w", err)
	}

	return requireRowAffected(result, ErrNotFound)
}

// Delete removes an automation by ID. Execution history and scheduled
// actions cascade via foreign keys.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM automations WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting automation: %w", err)
	}
	return requireRowAffected(result, ErrNotFound)
}

// SetActive toggles an automation's active flag.
func (r *SQLiteRepository) SetActive(ctx context.Context, id string, active bool) error {
	query := `UPDATE automations SET is_active = ?, updated_at = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query,
		boolToInt(active),
		time.Now().UTC().Format(time.RFC3339),
		id,
	)
	if err != nil {
		return fmt.Errorf("toggling automation: %w", err)
	}
	return requireRowAffected(result, ErrNotFound)
}

// CreateExecution inserts a new execution record.
func (r *SQLiteRepository) CreateExecution(ctx context.Context, exec *Execution) error {
	payloadJSON, err := marshalMap(exec.TriggerPayload)
	if err != nil {
		return fmt.Errorf("marshalling trigger payload: %w", err)
	}
	logJSON, err := marshalActionLog(exec.ActionsLog)
	if err != nil {
		return fmt.Errorf("marshalling actions log: %w", err)
	}

	query := `
		INSERT INTO automation_executions (
			id, automation_id, trigger_payload, status, started_at,
			completed_at, error, actions_executed, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		exec.ID,
		exec.AutomationID,
		payloadJSON,
		string(exec.Status),
		exec.StartedAt.Format(time.RFC3339),
		nullableTime(exec.CompletedAt),
		nullableString(exec.Error),
		logJSON,
		nullableInt(exec.DurationMS),
	)
	if err != nil {
		return fmt.Errorf("inserting execution: %w", err)
	}
	return nil
}

// UpdateExecution updates an existing execution record.
func (r *SQLiteRepository) UpdateExecution(ctx context.Context, exec *Execution) error {
	logJSON, err := marshalActionLog(exec.ActionsLog)
	if err != nil {
		return fmt.Errorf("marshalling actions log: %w", err)
	}

	query := `
		UPDATE automation_executions SET
			status = ?, completed_at = ?, error = ?, actions_executed = ?, duration_ms = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		string(exec.Status),
		nullableTime(exec.CompletedAt),
		nullableString(exec.Error),
		logJSON,
		nullableInt(exec.DurationMS),
		exec.ID,
	)
	if err != nil {
		return fmt.Errorf("updating execution: %w", err)
	}
	return requireRowAffected(result, ErrExecutionNotFound)
}

// GetExecution retrieves an execution by ID.
func (r *SQLiteRepository) GetExecution(ctx context.Context, id string) (*Execution, error) {
	query := `SELECT ` + executionColumns + ` FROM automation_executions WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	exec, err := scanExecutionRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrExecutionNotFound
		}
		return nil, fmt.Errorf("querying execution: %w", err)
	}
	return exec, nil
}

// ListExecutions retrieves recent executions for an automation.
func (r *SQLiteRepository) ListExecutions(ctx context.Context, automationID string, limit int) ([]Execution, error) {
	limit = clampLimit(limit)

	query := `SELECT ` + executionColumns + `
		FROM automation_executions
		WHERE automation_id = ?
		ORDER BY started_at DESC
		LIMIT ?`

	return r.queryExecutions(ctx, query, automationID, limit)
}

// ListRecentExecutions retrieves the most recent executions across all
// automations, newest first. A non-empty createdBy restricts the list to
// executions of automations created by that agent.
func (r *SQLiteRepository) ListRecentExecutions(ctx context.Context, limit int, createdBy string) ([]Execution, error) {
	limit = clampLimit(limit)

	query := `SELECT ` + executionColumnsPrefixed + `
		FROM automation_executions e`
	args := []any{}
	if createdBy != "" {
		query += `
		JOIN automations a ON a.id = e.automation_id
		WHERE a.created_by = ?`
		args = append(args, createdBy)
	}
	query += `
		ORDER BY e.started_at DESC
		LIMIT ?`
	args = append(args, limit)

	return r.queryExecutions(ctx, query, args...)
}

// CountAutomations returns total and active automation counts, optionally
// restricted to one creator.
func (r *SQLiteRepository) CountAutomations(ctx context.Context, createdBy string) (total, active int, err error) {
	query := `SELECT COUNT(*), COALESCE(SUM(is_active), 0) FROM automations`
	args := []any{}
	if createdBy != "" {
		query += ` WHERE created_by = ?`
		args = append(args, createdBy)
	}
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&total, &active); err != nil {
		return 0, 0, fmt.Errorf("counting automations: %w", err)
	}
	return total, active, nil
}

// CountExecutions returns the total number of execution records,
// optionally restricted to automations of one creator.
func (r *SQLiteRepository) CountExecutions(ctx context.Context, createdBy string) (int, error) {
	query := `SELECT COUNT(*) FROM automation_executions e`
	args := []any{}
	if createdBy != "" {
		query += ` JOIN automations a ON a.id = e.automation_id WHERE a.created_by = ?`
		args = append(args, createdBy)
	}

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting executions: %w", err)
	}
	return count, nil
}

// CountExecutionsSince returns the total and completed execution counts
// whose started_at falls at or after the given instant, optionally
// restricted to automations of one creator.
func (r *SQLiteRepository) CountExecutionsSince(ctx context.Context, since time.Time, createdBy string) (total, completed int, err error) {
	query := `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN e.status = 'completed' THEN 1 ELSE 0 END), 0)
		FROM automation_executions e`
	args := []any{}
	if createdBy != "" {
		query += `
		JOIN automations a ON a.id = e.automation_id`
	}
	query += `
		WHERE e.started_at >= ?`
	args = append(args, since.UTC().Format(time.RFC3339))
	if createdBy != "" {
		query += ` AND a.created_by = ?`
		args = append(args, createdBy)
	}

	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&total, &completed); err != nil {
		return 0, 0, fmt.Errorf("counting recent executions: %w", err)
	}
	return total, completed, nil
}

// CreateScheduledAction inserts a deferred action row.
func (r *SQLiteRepository) CreateScheduledAction(ctx context.Context, sa *ScheduledAction) error {
	actionJSON, err := json.Marshal(sa.Action)
	if err != nil {
		return fmt.Errorf("marshalling action: %w", err)
	}
	payloadJSON, err := marshalMap(sa.TriggerPayload)
	if err != nil {
		return fmt.Errorf("marshalling trigger payload: %w", err)
	}

	if sa.CreatedAt.IsZero() {
		sa.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO scheduled_actions (
			id, automation_id, execution_id, action, trigger_payload,
			execute_at, status, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		sa.ID,
		sa.AutomationID,
		sa.ExecutionID,
		string(actionJSON),
		payloadJSON,
		sa.ExecuteAt.UTC().Format(time.RFC3339),
		string(sa.Status),
		sa.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting scheduled action: %w", err)
	}
	return nil
}

// ClaimDueScheduledActions atomically marks due pending actions as running
// and returns them. A claimed action is never returned to a second caller,
// so concurrent pollers do not double-execute.
func (r *SQLiteRepository) ClaimDueScheduledActions(ctx context.Context, now time.Time, limit int) ([]ScheduledAction, error) {
	limit = clampLimit(limit)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning claim transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `SELECT ` + scheduledColumns + `
		FROM scheduled_actions
		WHERE status = 'pending' AND execute_at <= ?
		ORDER BY execute_at
		LIMIT ?`

	rows, err := tx.QueryContext(ctx, query, now.UTC().Format(time.RFC3339), limit)
	if err != nil {
		return nil, fmt.Errorf("querying due actions: %w", err)
	}

	var due []ScheduledAction
	for rows.Next() {
		sa, scanErr := scanScheduledRow(rows)
		if scanErr != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning scheduled action: %w", scanErr)
		}
		due = append(due, *sa)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterating due actions: %w", err)
	}
	rows.Close()

	for i := range due {
		if _, err := tx.ExecContext(ctx,
			`UPDATE scheduled_actions SET status = 'running' WHERE id = ?`, due[i].ID); err != nil {
			return nil, fmt.Errorf("claiming scheduled action: %w", err)
		}
		due[i].Status = ScheduledRunning
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing claim: %w", err)
	}
	return due, nil
}

// CompleteScheduledAction records the outcome of a claimed action.
func (r *SQLiteRepository) CompleteScheduledAction(ctx context.Context, id string, result map[string]any, execErr error) error {
	status := ScheduledCompleted
	var errMsg sql.NullString
	if execErr != nil {
		status = ScheduledFailed
		errMsg = sql.NullString{String: execErr.Error(), Valid: true}
	}

	resultJSON := sql.NullString{}
	if len(result) > 0 {
		data, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("marshalling result: %w", err)
		}
		resultJSON = sql.NullString{String: string(data), Valid: true}
	}

	query := `
		UPDATE scheduled_actions SET
			status = ?, result = ?, error = ?, completed_at = ?
		WHERE id = ?`

	res, err := r.db.ExecContext(ctx, query,
		string(status),
		resultJSON,
		errMsg,
		time.Now().UTC().Format(time.RFC3339),
		id,
	)
	if err != nil {
		return fmt.Errorf("completing scheduled action: %w", err)
	}
	return requireRowAffected(res, ErrScheduledActionNotFound)
}

// queryAutomations executes a query and returns a slice of automations.
func (r *SQLiteRepository) queryAutomations(ctx context.Context, query string, args ...any) ([]Automation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying automations: %w", err)
	}
	defer rows.Close()

	var automations []Automation
	for rows.Next() {
		a, scanErr := scanAutomationRow(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning automation: %w", scanErr)
		}
		automations = append(automations, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating automations: %w", err)
	}
	return automations, nil
}

// queryExecutions executes a query and returns a slice of executions.
func (r *SQLiteRepository) queryExecutions(ctx context.Context, query string, args ...any) ([]Execution, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying executions: %w", err)
	}
	defer rows.Close()

	var executions []Execution
	for rows.Next() {
		exec, scanErr := scanExecutionRow(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning execution: %w", scanErr)
		}
		executions = append(executions, *exec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating executions: %w", err)
	}
	return executions, nil
}

// ─── Row Scanning Helpers ───────────────────────────────────────────────────

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAutomationRow(scanner rowScanner) (*Automation, error) {
	var a Automation
	var description, createdBy sql.NullString
	var triggerType, conditionsJSON, actionsJSON string
	var isActive int
	var createdAt, updatedAt string

	err := scanner.Scan(
		&a.ID,
		&a.Name,
		&description,
		&triggerType,
		&conditionsJSON,
		&isActive,
		&actionsJSON,
		&createdBy,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if description.Valid {
		a.Description = &description.String
	}
	if createdBy.Valid {
		a.CreatedBy = &createdBy.String
	}
	a.TriggerType = TriggerType(triggerType)
	a.IsActive = isActive != 0

	if t, parseErr := time.Parse(time.RFC3339, createdAt); parseErr == nil {
		a.CreatedAt = t
	}
	if t, parseErr := time.Parse(time.RFC3339, updatedAt); parseErr == nil {
		a.UpdatedAt = t
	}

	if err := unmarshalMap(conditionsJSON, &a.TriggerConditions); err != nil {
		return nil, fmt.Errorf("unmarshalling trigger conditions: %w", err)
	}
	if actionsJSON != "" && actionsJSON != "[]" {
		if jsonErr := json.Unmarshal([]byte(actionsJSON), &a.Actions); jsonErr != nil {
			return nil, fmt.Errorf("unmarshalling actions: %w", jsonErr)
		}
	}
	if a.Actions == nil {
		a.Actions = []Action{}
	}
	SortActions(a.Actions)

	return &a, nil
}

func scanExecutionRow(scanner rowScanner) (*Execution, error) {
	var e Execution
	var payloadJSON, status, startedAt string
	var completedAt, errMsg, logJSON sql.NullString
	var durationMS sql.NullInt64

	err := scanner.Scan(
		&e.ID,
		&e.AutomationID,
		&payloadJSON,
		&status,
		&startedAt,
		&completedAt,
		&errMsg,
		&logJSON,
		&durationMS,
	)
	if err != nil {
		return nil, err
	}

	e.Status = ExecutionStatus(status)
	if t, parseErr := time.Parse(time.RFC3339, startedAt); parseErr == nil {
		e.StartedAt = t
	}
	if completedAt.Valid {
		if t, parseErr := time.Parse(time.RFC3339, completedAt.String); parseErr == nil {
			e.CompletedAt = &t
		}
	}
	if errMsg.Valid {
		e.Error = &errMsg.String
	}
	if durationMS.Valid {
		d := int(durationMS.Int64)
		e.DurationMS = &d
	}

	if err := unmarshalMap(payloadJSON, &e.TriggerPayload); err != nil {
		return nil, fmt.Errorf("unmarshalling trigger payload: %w", err)
	}
	if logJSON.Valid && logJSON.String != "" && logJSON.String != "null" {
		if jsonErr := json.Unmarshal([]byte(logJSON.String), &e.ActionsLog); jsonErr != nil {
			return nil, fmt.Errorf("unmarshalling actions log: %w", jsonErr)
		}
	}

	return &e, nil
}

func scanScheduledRow(scanner rowScanner) (*ScheduledAction, error) {
	var sa ScheduledAction
	var actionJSON, payloadJSON, executeAt, status, createdAt string
	var resultJSON, errMsg, completedAt sql.NullString

	err := scanner.Scan(
		&sa.ID,
		&sa.AutomationID,
		&sa.ExecutionID,
		&actionJSON,
		&payloadJSON,
		&executeAt,
		&status,
		&resultJSON,
		&errMsg,
		&createdAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	sa.Status = ScheduledActionState(status)
	if t, parseErr := time.Parse(time.RFC3339, executeAt); parseErr == nil {
		sa.ExecuteAt = t
	}
	if t, parseErr := time.Parse(time.RFC3339, createdAt); parseErr == nil {
		sa.CreatedAt = t
	}
	if completedAt.Valid {
		if t, parseErr := time.Parse(time.RFC3339, completedAt.String); parseErr == nil {
			sa.CompletedAt = &t
		}
	}
	if errMsg.Valid {
		sa.Error = &errMsg.String
	}

	if jsonErr := json.Unmarshal([]byte(actionJSON), &sa.Action); jsonErr != nil {
		return nil, fmt.Errorf("unmarshalling action: %w", jsonErr)
	}
	if err := unmarshalMap(payloadJSON, &sa.TriggerPayload); err != nil {
		return nil, fmt.Errorf("unmarshalling trigger payload: %w", err)
	}
	if resultJSON.Valid {
		if err := unmarshalMap(resultJSON.String, &sa.Result); err != nil {
			return nil, fmt.Errorf("unmarshalling result: %w", err)
		}
	}

	return &sa, nil
}

// ─── SQL Helpers ────────────────────────────────────────────────────────────

func nullableString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullableTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(time.RFC3339), Valid: true}
}

func nullableInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// marshalMap serialises a map to JSON, emitting "{}" for nil so the
// NOT NULL columns always hold valid JSON.
func marshalMap(m map[string]any) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func unmarshalMap(s string, dst *map[string]any) error {
	if s == "" || s == "{}" || s == "null" {
		return nil
	}
	return json.Unmarshal([]byte(s), dst)
}

func marshalActionLog(entries []ActionLogEntry) (sql.NullString, error) {
	if len(entries) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func requireRowAffected(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") ||
		strings.Contains(msg, "unique constraint")
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 10
	}
	if limit > 100 {
		return 100
	}
	return limit
}
