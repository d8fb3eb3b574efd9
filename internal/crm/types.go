package crm

import "time"

// ContactStatus is a contact's position in the sales pipeline.
type ContactStatus string

const (
	StatusNuevo      ContactStatus = "NUEVO"
	StatusInteresado ContactStatus = "INTERESADO"
	StatusCotizado   ContactStatus = "COTIZADO"
	StatusCliente    ContactStatus = "CLIENTE"
)

// AllContactStatuses returns every valid pipeline status.
func AllContactStatuses() []ContactStatus {
	return []ContactStatus{StatusNuevo, StatusInteresado, StatusCotizado, StatusCliente}
}

// Contact is a person the agency is selling to.
type Contact struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	Email           *string       `json:"email,omitempty"`
	Phone           *string       `json:"phone,omitempty"`
	Status          ContactStatus `json:"status"`
	Source          *string       `json:"source,omitempty"`
	BudgetRange     *string       `json:"budget_range,omitempty"`
	Tags            []string      `json:"tags"`
	AssignedAgentID *string       `json:"assigned_agent_id,omitempty"`
	LastActivityAt  *time.Time    `json:"last_activity_at,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// Task is a unit of follow-up work, usually linked to a contact.
type Task struct {
	ID           string     `json:"id"`
	ContactID    *string    `json:"contact_id,omitempty"`
	Title        string     `json:"title"`
	Description  *string    `json:"description,omitempty"`
	Priority     string     `json:"priority"` // BAJA, MEDIA, ALTA
	AssignedToID *string    `json:"assigned_to_id,omitempty"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	Status       string     `json:"status"` // PENDIENTE, EN_CURSO, COMPLETADA
	CreatedAt    time.Time  `json:"created_at"`
}

// Quote is a draft travel quote generated for a contact.
type Quote struct {
	ID          string         `json:"id"`
	ContactID   string         `json:"contact_id"`
	Destination *string        `json:"destination,omitempty"`
	Amount      *float64       `json:"amount,omitempty"`
	Currency    string         `json:"currency"`
	Status      string         `json:"status"` // BORRADOR, ENVIADA, ACEPTADA
	Details     map[string]any `json:"details,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}
