package crm

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// contactColumns is the SELECT column list for contact queries.
const contactColumns = `id, name, email, phone, status, source, budget_range,
			tags, assigned_agent_id, last_activity_at, created_at, updated_at`

// Store persists CRM records in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore creates a SQLite-backed CRM store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Pre-computed validation set for O(1) status lookups.
var validStatuses map[ContactStatus]struct{}

func init() {
	validStatuses = make(map[ContactStatus]struct{}, len(AllContactStatuses()))
	for _, s := range AllContactStatuses() {
		validStatuses[s] = struct{}{}
	}
}

// CreateContact inserts a new contact. A zero status defaults to NUEVO.
func (s *Store) CreateContact(ctx context.Context, c *Contact) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Status == "" {
		c.Status = StatusNuevo
	}
	if _, ok := validStatuses[c.Status]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, c.Status)
	}

	tagsJSON, err := marshalTags(c.Tags)
	if err != nil {
		return fmt.Errorf("marshalling tags: %w", err)
	}

	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	query := `
		INSERT INTO contacts (
			id, name, email, phone, status, source, budget_range,
			tags, assigned_agent_id, last_activity_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		c.ID,
		c.Name,
		nullableString(c.Email),
		nullableString(c.Phone),
		string(c.Status),
		nullableString(c.Source),
		nullableString(c.BudgetRange),
		tagsJSON,
		nullableString(c.AssignedAgentID),
		nullableTime(c.LastActivityAt),
		c.CreatedAt.Format(time.RFC3339),
		c.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique constraint") {
			return ErrContactExists
		}
		return fmt.Errorf("inserting contact: %w", err)
	}
	return nil
}

// GetContact retrieves a contact by ID.
func (s *Store) GetContact(ctx context.Context, id string) (*Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE id = ?`

	row := s.db.QueryRowContext(ctx, query, id)
	c, err := scanContact(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrContactNotFound
		}
		return nil, fmt.Errorf("querying contact: %w", err)
	}
	return c, nil
}

// ListContacts retrieves contacts, optionally filtered by status.
func (s *Store) ListContacts(ctx context.Context, status ContactStatus, limit int) ([]Contact, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + contactColumns + ` FROM contacts`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY updated_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying contacts: %w", err)
	}
	defer rows.Close()

	var contacts []Contact
	for rows.Next() {
		c, scanErr := scanContact(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning contact: %w", scanErr)
		}
		contacts = append(contacts, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating contacts: %w", err)
	}
	return contacts, nil
}

// AddTags unions tags into the contact's existing set and returns the
// resulting deduplicated set. The read and write happen in one
// transaction so concurrent tag additions do not lose each other.
func (s *Store) AddTags(ctx context.Context, contactID string, tags []string) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning tag transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var tagsJSON string
	err = tx.QueryRowContext(ctx, `SELECT tags FROM contacts WHERE id = ?`, contactID).Scan(&tagsJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrContactNotFound
		}
		return nil, fmt.Errorf("reading tags: %w", err)
	}

	var existing []string
	if tagsJSON != "" && tagsJSON != "[]" {
		if jsonErr := json.Unmarshal([]byte(tagsJSON), &existing); jsonErr != nil {
			return nil, fmt.Errorf("unmarshalling tags: %w", jsonErr)
		}
	}

	seen := make(map[string]struct{}, len(existing))
	for _, tag := range existing {
		seen[tag] = struct{}{}
	}
	for _, tag := range tags {
		if _, dup := seen[tag]; !dup {
			existing = append(existing, tag)
			seen[tag] = struct{}{}
		}
	}

	updated, err := marshalTags(existing)
	if err != nil {
		return nil, fmt.Errorf("marshalling tags: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx,
		`UPDATE contacts SET tags = ?, last_activity_at = ?, updated_at = ? WHERE id = ?`,
		updated, now, now, contactID); err != nil {
		return nil, fmt.Errorf("writing tags: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing tags: %w", err)
	}
	return existing, nil
}

// SetStatus updates the contact's pipeline status.
func (s *Store) SetStatus(ctx context.Context, contactID string, status ContactStatus) error {
	if _, ok := validStatuses[status]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	result, err := s.db.ExecContext(ctx,
		`UPDATE contacts SET status = ?, last_activity_at = ?, updated_at = ? WHERE id = ?`,
		string(status), now, now, contactID)
	if err != nil {
		return fmt.Errorf("updating status: %w", err)
	}
	return requireContact(result)
}

// AssignAgent sets the contact's assigned-agent reference.
func (s *Store) AssignAgent(ctx context.Context, contactID, agentID string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	result, err := s.db.ExecContext(ctx,
		`UPDATE contacts SET assigned_agent_id = ?, last_activity_at = ?, updated_at = ? WHERE id = ?`,
		agentID, now, now, contactID)
	if err != nil {
		return fmt.Errorf("assigning agent: %w", err)
	}
	return requireContact(result)
}

// CreateTask inserts a task. Empty priority and status take the defaults
// agency staff expect (MEDIA, PENDIENTE).
func (s *Store) CreateTask(ctx context.Context, t *Task) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.Priority == "" {
		t.Priority = "MEDIA"
	}
	if t.Status == "" {
		t.Status = "PENDIENTE"
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO tasks (
			id, contact_id, title, description, priority,
			assigned_to_id, due_date, status, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		t.ID,
		nullableString(t.ContactID),
		t.Title,
		nullableString(t.Description),
		t.Priority,
		nullableString(t.AssignedToID),
		nullableTime(t.DueDate),
		t.Status,
		t.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting task: %w", err)
	}
	return nil
}

// ListTasks retrieves tasks for a contact, newest first.
func (s *Store) ListTasks(ctx context.Context, contactID string, limit int) ([]Task, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, contact_id, title, description, priority,
			assigned_to_id, due_date, status, created_at
		FROM tasks
		WHERE contact_id = ?
		ORDER BY created_at DESC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, contactID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		t, scanErr := scanTask(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning task: %w", scanErr)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tasks: %w", err)
	}
	return tasks, nil
}

// CreateQuote inserts a draft quote for a contact.
func (s *Store) CreateQuote(ctx context.Context, q *Quote) error {
	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	if q.Currency == "" {
		q.Currency = "USD"
	}
	if q.Status == "" {
		q.Status = "BORRADOR"
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}

	detailsJSON := "{}"
	if len(q.Details) > 0 {
		data, err := json.Marshal(q.Details)
		if err != nil {
			return fmt.Errorf("marshalling details: %w", err)
		}
		detailsJSON = string(data)
	}

	query := `
		INSERT INTO quotes (
			id, contact_id, destination, amount, currency, status, details, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		q.ID,
		q.ContactID,
		nullableString(q.Destination),
		nullableFloat(q.Amount),
		q.Currency,
		q.Status,
		detailsJSON,
		q.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting quote: %w", err)
	}
	return nil
}

// GetQuote retrieves a quote by ID.
func (s *Store) GetQuote(ctx context.Context, id string) (*Quote, error) {
	query := `
		SELECT id, contact_id, destination, amount, currency, status, details, created_at
		FROM quotes WHERE id = ?`

	var q Quote
	var destination sql.NullString
	var amount sql.NullFloat64
	var detailsJSON, createdAt string

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&q.ID,
		&q.ContactID,
		&destination,
		&amount,
		&q.Currency,
		&q.Status,
		&detailsJSON,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrQuoteNotFound
		}
		return nil, fmt.Errorf("querying quote: %w", err)
	}

	if destination.Valid {
		q.Destination = &destination.String
	}
	if amount.Valid {
		q.Amount = &amount.Float64
	}
	if detailsJSON != "" && detailsJSON != "{}" {
		if jsonErr := json.Unmarshal([]byte(detailsJSON), &q.Details); jsonErr != nil {
			return nil, fmt.Errorf("unmarshalling details: %w", jsonErr)
		}
	}
	if t, parseErr := time.Parse(time.RFC3339, createdAt); parseErr == nil {
		q.CreatedAt = t
	}

	return &q, nil
}

// ─── Row Scanning Helpers ───────────────────────────────────────────────────

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContact(scanner rowScanner) (*Contact, error) {
	var c Contact
	var email, phone, source, budgetRange, agentID, lastActivity sql.NullString
	var status, tagsJSON, createdAt, updatedAt string

	err := scanner.Scan(
		&c.ID,
		&c.Name,
		&email,
		&phone,
		&status,
		&source,
		&budgetRange,
		&tagsJSON,
		&agentID,
		&lastActivity,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Status = ContactStatus(status)
	if email.Valid {
		c.Email = &email.String
	}
	if phone.Valid {
		c.Phone = &phone.String
	}
	if source.Valid {
		c.Source = &source.String
	}
	if budgetRange.Valid {
		c.BudgetRange = &budgetRange.String
	}
	if agentID.Valid {
		c.AssignedAgentID = &agentID.String
	}
	if lastActivity.Valid {
		if t, parseErr := time.Parse(time.RFC3339, lastActivity.String); parseErr == nil {
			c.LastActivityAt = &t
		}
	}
	if t, parseErr := time.Parse(time.RFC3339, createdAt); parseErr == nil {
		c.CreatedAt = t
	}
	if t, parseErr := time.Parse(time.RFC3339, updatedAt); parseErr == nil {
		c.UpdatedAt = t
	}

	if tagsJSON != "" && tagsJSON != "[]" {
		if jsonErr := json.Unmarshal([]byte(tagsJSON), &c.Tags); jsonErr != nil {
			return nil, fmt.Errorf("unmarshalling tags: %w", jsonErr)
		}
	}
	if c.Tags == nil {
		c.Tags = []string{}
	}

	return &c, nil
}

func scanTask(scanner rowScanner) (*Task, error) {
	var t Task
	var contactID, description, assignedTo, dueDate sql.NullString
	var createdAt string

	err := scanner.Scan(
		&t.ID,
		&contactID,
		&t.Title,
		&description,
		&t.Priority,
		&assignedTo,
		&dueDate,
		&t.Status,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	if contactID.Valid {
		t.ContactID = &contactID.String
	}
	if description.Valid {
		t.Description = &description.String
	}
	if assignedTo.Valid {
		t.AssignedToID = &assignedTo.String
	}
	if dueDate.Valid {
		if parsed, parseErr := time.Parse(time.RFC3339, dueDate.String); parseErr == nil {
			t.DueDate = &parsed
		}
	}
	if parsed, parseErr := time.Parse(time.RFC3339, createdAt); parseErr == nil {
		t.CreatedAt = parsed
	}

	return &t, nil
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
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func nullableFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func marshalTags(tags []string) (string, error) {
	if len(tags) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func requireContact(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrContactNotFound
	}
	return nil
}
