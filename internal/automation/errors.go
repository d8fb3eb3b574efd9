package automation

import "errors"

// Domain errors for the automation package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, automation.ErrNotFound) {
//	    // handle not found case
//	}
var (
	// ErrNotFound is returned when an automation ID does not exist.
	ErrNotFound = errors.New("automation: not found")

	// ErrExists is returned when creating an automation with an ID that already exists.
	ErrExists = errors.New("automation: already exists")

	// ErrInactive is returned when attempting to execute a deactivated automation.
	ErrInactive = errors.New("automation: inactive")

	// ErrInvalid is returned when automation validation fails.
	ErrInvalid = errors.New("automation: invalid")

	// ErrInvalidAction is returned when an action definition is invalid.
	ErrInvalidAction = errors.New("automation: invalid action")

	// ErrInvalidName is returned when an automation name is empty or too long.
	ErrInvalidName = errors.New("automation: invalid name")

	// ErrNoActions is returned when an automation has no actions defined.
	ErrNoActions = errors.New("automation: no actions")

	// ErrUnknownTriggerType is returned for trigger types outside the enumeration.
	ErrUnknownTriggerType = errors.New("automation: unknown trigger type")

	// ErrUnknownActionType is returned for action types outside the enumeration.
	ErrUnknownActionType = errors.New("automation: unknown action type")

	// ErrExecutionNotFound is returned when an execution ID does not exist.
	ErrExecutionNotFound = errors.New("automation: execution not found")

	// ErrScheduledActionNotFound is returned when a scheduled action ID does not exist.
	ErrScheduledActionNotFound = errors.New("automation: scheduled action not found")

	// ErrMissingContactRef is returned when an action requires a contact
	// identifier that the trigger payload does not carry.
	ErrMissingContactRef = errors.New("automation: missing required contact reference")

	// ErrMissingParameter is returned when an action parameter required by
	// its action type is absent or of the wrong shape.
	ErrMissingParameter = errors.New("automation: missing required parameter")
)
