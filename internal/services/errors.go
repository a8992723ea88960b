package services

import (
	"errors"
	"fmt"
)

var (
	// ErrShipmentNotFound mirrors the repository condition for handler mapping.
	ErrShipmentNotFound = errors.New("breakdown: shipment not found")
	// ErrLineNotFound indicates the referenced charge line is not part of the breakdown.
	ErrLineNotFound = errors.New("breakdown: charge line not found")
)

// ValidationError rejects a manual edit before any state mutation. The
// breakdown is untouched and the edit can be re-prompted.
type ValidationError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s %s", e.Field, e.Reason)
}

// IsValidationError reports whether err is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// PersistenceError signals that a user-visible edit could not be saved. The
// in-memory breakdown has been rolled back to LastKnownGood and the affected
// line should be reopened for editing.
type PersistenceError struct {
	LineID        string
	LastKnownGood []ChargeLine
	Err           error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	if e.LineID != "" {
		return fmt.Sprintf("persistence: line %s: %v", e.LineID, e.Err)
	}
	return fmt.Sprintf("persistence: %v", e.Err)
}

// Unwrap exposes the underlying persistence failure.
func (e *PersistenceError) Unwrap() error { return e.Err }
