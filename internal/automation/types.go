package automation

import "time"

// Automation is a stored rule: a trigger plus an ordered list of actions.
// Actions are replaced wholesale on update; there are no partial edits.
type Automation struct {
	// Identity
	ID   string `json:"id"`
	Name string `json:"name"`

	// Description (optional)
	Description *string `json:"description,omitempty"`

	// Trigger
	TriggerType       TriggerType    `json:"trigger_type"`
	TriggerConditions map[string]any `json:"trigger_conditions,omitempty"`

	// Configuration
	IsActive bool `json:"is_active"`

	// Actions to execute (ordered by Order)
	Actions []Action `json:"actions"`

	// Creator reference (optional)
	CreatedBy *string `json:"created_by,omitempty"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Action is one step of an automation.
//
// Actions execute strictly in ascending Order. An action with
// DelayMinutes > 0 is handed to the scheduler instead of running
// synchronously.
type Action struct {
	// Identity within the automation
	ID string `json:"id"`

	// What to do (e.g. "send-message", "add-tag")
	ActionType ActionType `json:"action_type"`

	// Parameters whose shape is defined per action type
	Parameters map[string]any `json:"parameters,omitempty"`

	// Delay before executing (minutes, default 0 = immediate)
	DelayMinutes int `json:"delay_minutes"`

	// Execution order within the automation (positive, unique)
	Order int `json:"order"`
}

// Execution is one historical record of a rule firing.
type Execution struct {
	ID             string           `json:"id"`
	AutomationID   string           `json:"automation_id"`
	TriggerPayload map[string]any   `json:"trigger_payload,omitempty"`
	Status         ExecutionStatus  `json:"status"`
	StartedAt      time.Time        `json:"started_at"`
	CompletedAt    *time.Time       `json:"completed_at,omitempty"`
	Error          *string          `json:"error,omitempty"`
	ActionsLog     []ActionLogEntry `json:"actions_executed"`
	DurationMS     *int             `json:"duration_ms,omitempty"`
}

// ActionLogEntry records the outcome of one action within an execution.
//
// A delayed action is logged as completed with a result describing the
// schedule; its side effect happens later via the scheduler.
type ActionLogEntry struct {
	ActionID   string         `json:"action_id"`
	ActionType ActionType     `json:"action_type"`
	Order      int            `json:"order"`
	Status     ActionStatus   `json:"status"`
	Result     map[string]any `json:"result,omitempty"`
	Error      *string        `json:"error,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// ExecutionResult is what Execute returns to its caller.
//
// Success reflects only configuration and recording failures. Per-action
// failures live in ActionsLog and never flip Success to false.
type ExecutionResult struct {
	AutomationID string           `json:"automation_id"`
	ExecutionID  string           `json:"execution_id,omitempty"`
	Success      bool             `json:"success"`
	ActionsLog   []ActionLogEntry `json:"actions_executed"`
	Error        string           `json:"error,omitempty"`
	Duration     time.Duration    `json:"duration"`
}

// ScheduledAction is a deferred action persisted for later execution.
type ScheduledAction struct {
	ID             string               `json:"id"`
	AutomationID   string               `json:"automation_id"`
	ExecutionID    string               `json:"execution_id"`
	Action         Action               `json:"action"`
	TriggerPayload map[string]any       `json:"trigger_payload,omitempty"`
	ExecuteAt      time.Time            `json:"execute_at"`
	Status         ScheduledActionState `json:"status"`
	Result         map[string]any       `json:"result,omitempty"`
	Error          *string              `json:"error,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
	CompletedAt    *time.Time           `json:"completed_at,omitempty"`
}

// TriggerType is a named category of CRM event that can fire a rule.
type TriggerType string

const (
	TriggerContactCreated      TriggerType = "contact-created"
	TriggerTripQuoteRequested  TriggerType = "trip-quote-requested"
	TriggerPaymentOverdue      TriggerType = "payment-overdue"
	TriggerTripCompleted       TriggerType = "trip-completed"
	TriggerNoActivity          TriggerType = "no-activity-30-days"
	TriggerSeasonalOpportunity TriggerType = "seasonal-opportunity"
	TriggerBirthday            TriggerType = "birthday"
	TriggerCustom              TriggerType = "custom"
)

// AllTriggerTypes returns every valid trigger type.
func AllTriggerTypes() []TriggerType {
	return []TriggerType{
		TriggerContactCreated,
		TriggerTripQuoteRequested,
		TriggerPaymentOverdue,
		TriggerTripCompleted,
		TriggerNoActivity,
		TriggerSeasonalOpportunity,
		TriggerBirthday,
		TriggerCustom,
	}
}

// ActionType identifies the side-effect logic for one action.
type ActionType string

const (
	ActionSendMessage         ActionType = "send-message"
	ActionCreateTask          ActionType = "create-task"
	ActionAddTag              ActionType = "add-tag"
	ActionUpdateStatus        ActionType = "update-status"
	ActionAssignAgent         ActionType = "assign-agent"
	ActionGenerateQuote       ActionType = "generate-quote"
	ActionScheduleCall        ActionType = "schedule-call"
	ActionSendExternalMessage ActionType = "send-external-message"
)

// AllActionTypes returns every valid action type.
func AllActionTypes() []ActionType {
	return []ActionType{
		ActionSendMessage,
		ActionCreateTask,
		ActionAddTag,
		ActionUpdateStatus,
		ActionAssignAgent,
		ActionGenerateQuote,
		ActionScheduleCall,
		ActionSendExternalMessage,
	}
}

// ExecutionStatus represents the terminal state of an execution record.
type ExecutionStatus string

const (
	StatusRunning   ExecutionStatus = "running"
	StatusCompleted ExecutionStatus = "completed"
	StatusFailed    ExecutionStatus = "failed"
)

// ActionStatus represents the outcome of a single action attempt.
type ActionStatus string

const (
	ActionStatusCompleted ActionStatus = "completed"
	ActionStatusFailed    ActionStatus = "failed"
)

// ScheduledActionState represents the lifecycle of a deferred action.
type ScheduledActionState string

const (
	ScheduledPending   ScheduledActionState = "pending"
	ScheduledRunning   ScheduledActionState = "running"
	ScheduledCompleted ScheduledActionState = "completed"
	ScheduledFailed    ScheduledActionState = "failed"
)

// DeepCopy creates a complete independent copy of the Automation.
// All map and slice fields are cloned so modifications to the copy
// do not affect the original. This is essential for cache isolation.
func (a *Automation) DeepCopy() *Automation {
	if a == nil {
		return nil
	}

	cpy := *a // Shallow copy of value fields

	cpy.Description = cloneStringPtr(a.Description)
	cpy.CreatedBy = cloneStringPtr(a.CreatedBy)
	cpy.TriggerConditions = deepCopyMap(a.TriggerConditions)

	if a.Actions != nil {
		cpy.Actions = make([]Action, len(a.Actions))
		for i, action := range a.Actions {
			cpy.Actions[i] = action
			if action.Parameters != nil {
				cpy.Actions[i].Parameters = deepCopyMap(action.Parameters)
			}
		}
	}

	return &cpy
}

// deepCopyMap creates a deep copy of a map[string]any.
// Nested maps and slices are recursively copied.
func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cpy := make(map[string]any, len(m))
	for k, v := range m {
		cpy[k] = deepCopyValue(v)
	}
	return cpy
}

// deepCopyValue recursively copies a value, handling nested maps and slices.
func deepCopyValue(v any) any {
	if v == nil {
		return nil
	}
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		cpy := make([]any, len(val))
		for i, elem := range val {
			cpy[i] = deepCopyValue(elem)
		}
		return cpy
	default:
		return v // Primitives are immutable
	}
}

// cloneStringPtr creates an independent copy of a *string.
func cloneStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
