package automation

import (
	"context"
	"fmt"
	"time"
)

// ContactIDKey is the well-known trigger payload key carrying the contact
// identifier most action types require.
const ContactIDKey = "contactId"

// defaultCallDelay is how far ahead a scheduled call lands when the action
// parameters do not name an explicit time.
const defaultCallDelay = 24 * time.Hour

// TaskSpec describes a task to be created against the CRM collaborator.
type TaskSpec struct {
	ContactID    string
	Title        string
	Description  string
	Priority     string
	AssignedToID string
	DueDate      *time.Time
}

// CRMGateway is the interface the dispatcher needs from the CRM
// persistence layer. It covers the record mutations action handlers
// perform against contacts, tasks, and quotes.
type CRMGateway interface {
	// AddContactTags unions tags into the contact's existing set and
	// returns the resulting deduplicated set.
	AddContactTags(ctx context.Context, contactID string, tags []string) ([]string, error)

	// SetContactStatus updates the contact's pipeline status.
	SetContactStatus(ctx context.Context, contactID, status string) error

	// AssignAgent sets the contact's assigned-agent reference.
	AssignAgent(ctx context.Context, contactID, agentID string) error

	// CreateTask creates a task record and returns its ID.
	CreateTask(ctx context.Context, task TaskSpec) (string, error)

	// CreateQuote creates a draft quote for the contact and returns its ID.
	CreateQuote(ctx context.Context, contactID string, details map[string]any) (string, error)
}

// Messenger is the interface for outbound message delivery.
type Messenger interface {
	// Send formats the named template and delivers it to the contact on
	// the default channel.
	Send(ctx context.Context, contactID, templateID string, data map[string]any) error

	// SendExternal delivers through a specific external channel
	// (e.g. "whatsapp", "sms").
	SendExternal(ctx context.Context, channel, contactID, templateID string, data map[string]any) error
}

// Dispatcher executes individual actions against the CRM collaborators.
//
// It is polymorphic over ActionType: each handler validates that the
// trigger payload and parameters carry what it needs, performs its side
// effect, and returns a small result map for the execution log.
type Dispatcher struct {
	crm       CRMGateway
	messenger Messenger
	clock     Clock
	logger    Logger
}

// NewDispatcher creates an action dispatcher.
func NewDispatcher(crm CRMGateway, messenger Messenger, clock Clock, logger Logger) *Dispatcher {
	if clock == nil {
		clock = SystemClock()
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Dispatcher{
		crm:       crm,
		messenger: messenger,
		clock:     clock,
		logger:    logger,
	}
}

// Dispatch runs a single action synchronously with the trigger payload.
// It does not know about delays; the engine routes delayed actions to the
// scheduler before calling here.
func (d *Dispatcher) Dispatch(ctx context.Context, action Action, payload map[string]any) (map[string]any, error) {
	switch action.ActionType {
	case ActionSendMessage:
		return d.sendMessage(ctx, action, payload)
	case ActionCreateTask:
		return d.createTask(ctx, action, payload)
	case ActionAddTag:
		return d.addTag(ctx, action, payload)
	case ActionUpdateStatus:
		return d.updateStatus(ctx, action, payload)
	case ActionAssignAgent:
		return d.assignAgent(ctx, action, payload)
	case ActionGenerateQuote:
		return d.generateQuote(ctx, action, payload)
	case ActionScheduleCall:
		return d.scheduleCall(ctx, action, payload)
	case ActionSendExternalMessage:
		return d.sendExternalMessage(ctx, action, payload)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownActionType, action.ActionType)
	}
}

func (d *Dispatcher) sendMessage(ctx context.Context, action Action, payload map[string]any) (map[string]any, error) {
	contactID, err := contactRef(payload)
	if err != nil {
		return nil, err
	}
	templateID, err := stringParam(action.Parameters, "templateId")
	if err != nil {
		return nil, err
	}

	if err := d.messenger.Send(ctx, contactID, templateID, payload); err != nil {
		return nil, fmt.Errorf("sending message: %w", err)
	}

	return map[string]any{"sent": true, "template_id": templateID}, nil
}

func (d *Dispatcher) createTask(ctx context.Context, action Action, payload map[string]any) (map[string]any, error) {
	contactID, err := contactRef(payload)
	if err != nil {
		return nil, err
	}
	title, err := stringParam(action.Parameters, "title")
	if err != nil {
		return nil, err
	}

	spec := TaskSpec{
		ContactID:    contactID,
		Title:        title,
		Description:  optionalString(action.Parameters, "description"),
		Priority:     optionalString(action.Parameters, "priority"),
		AssignedToID: optionalString(action.Parameters, "assignedToId"),
	}
	if spec.Priority == "" {
		spec.Priority = "MEDIA"
	}
	if due := optionalString(action.Parameters, "dueDate"); due != "" {
		t, parseErr := time.Parse(time.RFC3339, due)
		if parseErr != nil {
			return nil, fmt.Errorf("%w: dueDate must be RFC3339", ErrMissingParameter)
		}
		spec.DueDate = &t
	}

	taskID, err := d.crm.CreateTask(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}

	return map[string]any{"task_id": taskID}, nil
}

func (d *Dispatcher) addTag(ctx context.Context, action Action, payload map[string]any) (map[string]any, error) {
	contactID, err := contactRef(payload)
	if err != nil {
		return nil, err
	}
	tags, err := stringSliceParam(action.Parameters, "tags")
	if err != nil {
		return nil, err
	}

	updated, err := d.crm.AddContactTags(ctx, contactID, tags)
	if err != nil {
		return nil, fmt.Errorf("adding tags: %w", err)
	}

	return map[string]any{"tags": updated}, nil
}

func (d *Dispatcher) updateStatus(ctx context.Context, action Action, payload map[string]any) (map[string]any, error) {
	contactID, err := contactRef(payload)
	if err != nil {
		return nil, err
	}
	status, err := stringParam(action.Parameters, "status")
	if err != nil {
		return nil, err
	}

	if err := d.crm.SetContactStatus(ctx, contactID, status); err != nil {
		return nil, fmt.Errorf("updating status: %w", err)
	}

	return map[string]any{"status": status}, nil
}

func (d *Dispatcher) assignAgent(ctx context.Context, action Action, payload map[string]any) (map[string]any, error) {
	contactID, err := contactRef(payload)
	if err != nil {
		return nil, err
	}
	agentID, err := stringParam(action.Parameters, "agentId")
	if err != nil {
		return nil, err
	}

	if err := d.crm.AssignAgent(ctx, contactID, agentID); err != nil {
		return nil, fmt.Errorf("assigning agent: %w", err)
	}

	return map[string]any{"agent_id": agentID}, nil
}

func (d *Dispatcher) generateQuote(ctx context.Context, action Action, payload map[string]any) (map[string]any, error) {
	contactID, err := contactRef(payload)
	if err != nil {
		return nil, err
	}

	quoteID, err := d.crm.CreateQuote(ctx, contactID, action.Parameters)
	if err != nil {
		return nil, fmt.Errorf("generating quote: %w", err)
	}

	return map[string]any{"quote_id": quoteID}, nil
}

func (d *Dispatcher) scheduleCall(ctx context.Context, action Action, payload map[string]any) (map[string]any, error) {
	contactID, err := contactRef(payload)
	if err != nil {
		return nil, err
	}

	scheduledAt := d.clock.Now().Add(defaultCallDelay)
	if at := optionalString(action.Parameters, "scheduledAt"); at != "" {
		t, parseErr := time.Parse(time.RFC3339, at)
		if parseErr != nil {
			return nil, fmt.Errorf("%w: scheduledAt must be RFC3339", ErrMissingParameter)
		}
		scheduledAt = t
	}

	title := optionalString(action.Parameters, "title")
	if title == "" {
		title = "Llamada de seguimiento"
	}

	taskID, err := d.crm.CreateTask(ctx, TaskSpec{
		ContactID:    contactID,
		Title:        title,
		Description:  optionalString(action.Parameters, "notes"),
		Priority:     "ALTA",
		AssignedToID: optionalString(action.Parameters, "assignedToId"),
		DueDate:      &scheduledAt,
	})
	if err != nil {
		return nil, fmt.Errorf("scheduling call: %w", err)
	}

	return map[string]any{
		"task_id":      taskID,
		"scheduled_at": scheduledAt.UTC().Format(time.RFC3339),
	}, nil
}

func (d *Dispatcher) sendExternalMessage(ctx context.Context, action Action, payload map[string]any) (map[string]any, error) {
	contactID, err := contactRef(payload)
	if err != nil {
		return nil, err
	}
	channel, err := stringParam(action.Parameters, "channel")
	if err != nil {
		return nil, err
	}
	templateID, err := stringParam(action.Parameters, "templateId")
	if err != nil {
		return nil, err
	}

	if err := d.messenger.SendExternal(ctx, channel, contactID, templateID, payload); err != nil {
		return nil, fmt.Errorf("sending external message: %w", err)
	}

	return map[string]any{"sent": true, "channel": channel, "template_id": templateID}, nil
}

// ─── Parameter Helpers ──────────────────────────────────────────────────────

// contactRef extracts the contact identifier every contact-scoped action
// needs from the trigger payload.
func contactRef(payload map[string]any) (string, error) {
	if id, ok := payload[ContactIDKey].(string); ok && id != "" {
		return id, nil
	}
	return "", ErrMissingContactRef
}

func stringParam(params map[string]any, key string) (string, error) {
	if v, ok := params[key].(string); ok && v != "" {
		return v, nil
	}
	return "", fmt.Errorf("%w: %s", ErrMissingParameter, key)
}

func optionalString(params map[string]any, key string) string {
	v, _ := params[key].(string)
	return v
}

// stringSliceParam reads a parameter that may arrive as []string (authored
// in Go) or []any (decoded from JSON).
func stringSliceParam(params map[string]any, key string) ([]string, error) {
	switch v := params[key].(type) {
	case []string:
		if len(v) > 0 {
			return v, nil
		}
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s must contain strings", ErrMissingParameter, key)
			}
			out = append(out, s)
		}
		if len(out) > 0 {
			return out, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrMissingParameter, key)
}
