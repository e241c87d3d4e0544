package paysim

import "fmt"

// ValidationError reports a malformed field on an incoming transfer
// request. Validation failures are rejected before the pipeline runs and
// are never cached.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error for a field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// Non-business error codes surfaced in FAILED response bodies.
const (
	ErrCodeValidation = "VALIDATION_ERROR"
	ErrCodeInternal   = "INTERNAL_ERROR"
)

// NewInternalOutcome builds the generic FAILED outcome used when an
// unexpected fault is recovered at the pipeline boundary. It is never
// cached, so a client retry re-attempts processing.
func NewInternalOutcome(clientTransferID string) Outcome {
	return Outcome{
		Status:           StatusFailed,
		ReasonCode:       ErrCodeInternal,
		ClientTransferID: clientTransferID,
		Message:          "Internal server error",
	}
}
