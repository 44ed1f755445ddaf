package booking

import "fmt"

// maxReasonLength bounds the free-text audit reason on change intents.
const maxReasonLength = 250

// ValidationError reports malformed input to an intent. The caller can
// recover by correcting the input; it is never retried automatically.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// InvalidTransitionError reports an intent that is not legal in the
// booking's current status.
type InvalidTransitionError struct {
	Intent string
	Status Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s booking with status %s", e.Intent, e.Status)
}

func validateReason(reason string) error {
	if len(reason) > maxReasonLength {
		return &ValidationError{
			Field:  "reason",
			Reason: fmt.Sprintf("must be at most %d characters, got %d", maxReasonLength, len(reason)),
		}
	}
	return nil
}
