// Package apperrors defines the error taxonomy shared by the payment and
// deployment pipeline. Handlers map these onto HTTP status codes; internal
// callers branch with errors.As / errors.Is.
package apperrors

import (
	"fmt"
	"strings"
)

// ValidationError reports every missing or invalid field at once so the
// caller sees the complete list in a single round trip.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: missing or invalid fields: %s", strings.Join(e.Fields, ", "))
}

func NewValidation(fields ...string) *ValidationError {
	return &ValidationError{Fields: fields}
}

// AuthenticationError covers bad webhook signatures and on-chain events
// that have no matching active payment intent.
type AuthenticationError struct {
	Reason string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}

func NewAuthentication(reason string) *AuthenticationError {
	return &AuthenticationError{Reason: reason}
}

// ConflictError means a conditional write affected zero rows: another
// writer already applied the change. It is benign and is normally
// swallowed at the service layer, never surfaced to external callers.
type ConflictError struct {
	Op string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict: %s already applied by another writer", e.Op)
}

func NewConflict(op string) *ConflictError {
	return &ConflictError{Op: op}
}

// ExternalServiceError wraps chain RPC and payment provider failures.
// It propagates to the caller for visibility but is never auto-retried.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

func NewExternal(service string, err error) *ExternalServiceError {
	return &ExternalServiceError{Service: service, Err: err}
}

// NotFoundError identifies an unknown collection or payment.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func NewNotFound(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}
