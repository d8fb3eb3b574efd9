package automation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Validation constants.
const (
	maxNameLength     = 100
	maxDescriptionLen = 500
	maxActions        = 50
	maxParameterKeys  = 20
	maxDelayMinutes   = 43200 // 30 days
)

// Pre-computed validation sets for O(1) enum lookups.
var (
	validTriggerTypes map[TriggerType]struct{}
	validActionTypes  map[ActionType]struct{}
)

func init() {
	validTriggerTypes = make(map[TriggerType]struct{}, len(AllTriggerTypes()))
	for _, t := range AllTriggerTypes() {
		validTriggerTypes[t] = struct{}{}
	}
	validActionTypes = make(map[ActionType]struct{}, len(AllActionTypes()))
	for _, t := range AllActionTypes() {
		validActionTypes[t] = struct{}{}
	}
}

// ValidateAutomation performs comprehensive validation on an automation.
// Returns an error describing the first validation failure found.
func ValidateAutomation(a *Automation) error {
	if a == nil {
		return ErrInvalid
	}

	if err := ValidateName(a.Name); err != nil {
		return err
	}

	if a.Description != nil && len(*a.Description) > maxDescriptionLen {
		return fmt.Errorf("%w: description exceeds %d characters", ErrInvalid, maxDescriptionLen)
	}

	if _, ok := validTriggerTypes[a.TriggerType]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTriggerType, a.TriggerType)
	}

	if len(a.Actions) == 0 {
		return ErrNoActions
	}
	if len(a.Actions) > maxActions {
		return fmt.Errorf("%w: exceeds maximum of %d actions", ErrInvalidAction, maxActions)
	}

	seen := make(map[int]struct{}, len(a.Actions))
	for i, action := range a.Actions {
		if err := ValidateAction(action); err != nil {
			return fmt.Errorf("action[%d]: %w", i, err)
		}
		if _, dup := seen[action.Order]; dup {
			return fmt.Errorf("%w: duplicate order %d", ErrInvalidAction, action.Order)
		}
		seen[action.Order] = struct{}{}
	}

	return nil
}

// ValidateName checks if an automation name is valid.
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidName)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	return nil
}

// ValidateAction checks if a single action definition is valid.
func ValidateAction(action Action) error {
	if _, ok := validActionTypes[action.ActionType]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownActionType, action.ActionType)
	}
	if action.Order <= 0 {
		return fmt.Errorf("%w: order must be positive", ErrInvalidAction)
	}
	if action.DelayMinutes < 0 || action.DelayMinutes > maxDelayMinutes {
		return fmt.Errorf("%w: delay_minutes must be 0-%d", ErrInvalidAction, maxDelayMinutes)
	}
	if len(action.Parameters) > maxParameterKeys {
		return fmt.Errorf("%w: parameters exceeds %d keys", ErrInvalidAction, maxParameterKeys)
	}
	return nil
}

// SortActions orders an automation's actions by ascending Order in place.
// Dispatch relies on this ordering.
func SortActions(actions []Action) {
	sort.Slice(actions, func(i, j int) bool {
		return actions[i].Order < actions[j].Order
	})
}

// GenerateID creates a new UUID for an automation, execution, or scheduled action.
func GenerateID() string {
	return uuid.New().String()
}
