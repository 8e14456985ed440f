package protocol

import "fmt"

// ValidationError rejects malformed input to a public operation before any
// state is mutated.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// InvalidTransitionError reports an illegal simulation state transition,
// e.g. enabling auto-tick while the simulation is stopped.
type InvalidTransitionError struct {
	Op     string
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid operation %s: %s", e.Op, e.Reason)
}

// NotFoundError reports an unknown worker, event, or message id. Operations
// that remove by id treat not-found as success and never return this.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// ConcurrencyError reports that a second Advance was attempted while one is
// already in flight. The caller must retry later.
type ConcurrencyError struct {
	Op string
}

func (e *ConcurrencyError) Error() string {
	return fmt.Sprintf("%s already in progress", e.Op)
}

// CollaboratorError wraps a failure from an external collaborator
// (generation or messaging). It is caught at the point of use and treated
// as "nothing sent this step".
type CollaboratorError struct {
	Collaborator string
	Err          error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("collaborator %s: %v", e.Collaborator, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }
