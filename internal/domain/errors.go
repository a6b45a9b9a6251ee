package domain

import "fmt"

// Error kinds are split at the collaborator boundary so callers can pick
// differentiated recovery: an expired token, a missing row, a violated
// uniqueness constraint and an unreachable backend are different failures.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrValidation indicates a client-side validation failure (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrUnauthorized indicates invalid credentials or token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrForbidden indicates the user lacks permission for the operation.
type ErrForbidden struct {
	Action string
}

func (e *ErrForbidden) Error() string {
	return fmt.Sprintf("forbidden: %s", e.Action)
}

// ErrConflict indicates a resource already exists.
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	return e.Message
}

// ErrConstraintViolation indicates the backend rejected a write for
// violating a schema constraint.
type ErrConstraintViolation struct {
	Table  string
	Detail string
}

func (e *ErrConstraintViolation) Error() string {
	return fmt.Sprintf("constraint violation on %s: %s", e.Table, e.Detail)
}

// ErrUnavailable indicates the backend could not be reached or answered
// with a server error.
type ErrUnavailable struct {
	Service string
	Err     error
}

func (e *ErrUnavailable) Error() string {
	return fmt.Sprintf("backend unavailable [%s]: %v", e.Service, e.Err)
}

func (e *ErrUnavailable) Unwrap() error {
	return e.Err
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrIntegrity indicates persisted data violating invariants the backend
// schema is supposed to enforce (month out of range, unknown obligation
// type). Such rows are rejected, never silently ignored.
type ErrIntegrity struct {
	Table  string
	Detail string
}

func (e *ErrIntegrity) Error() string {
	return fmt.Sprintf("data integrity violation in %s: %s", e.Table, e.Detail)
}
