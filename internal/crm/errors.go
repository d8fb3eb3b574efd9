package crm

import "errors"

// Domain errors for the crm package, checked with errors.Is().
var (
	// ErrContactNotFound is returned when a contact ID does not exist.
	ErrContactNotFound = errors.New("crm: contact not found")

	// ErrContactExists is returned when creating a contact with an ID that already exists.
	ErrContactExists = errors.New("crm: contact already exists")

	// ErrTaskNotFound is returned when a task ID does not exist.
	ErrTaskNotFound = errors.New("crm: task not found")

	// ErrQuoteNotFound is returned when a quote ID does not exist.
	ErrQuoteNotFound = errors.New("crm: quote not found")

	// ErrInvalidStatus is returned for statuses outside the pipeline enumeration.
	ErrInvalidStatus = errors.New("crm: invalid contact status")
)
