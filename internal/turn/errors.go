// internal/turn/errors.go
package turn

import "fmt"

type Reason string

const (
	ReasonContextUnavailable Reason = "context_unavailable"
	ReasonPersistUserTurn    Reason = "persist_user_turn"
	ReasonCompletionFailed   Reason = "completion_failed"
	ReasonDeliveryFailed     Reason = "delivery_failed"
)

const storageFailureMessage = "Sorry, I couldn't save your message right now. Please try again in a moment."

// Failure is the terminal error of a turn.
type Failure struct {
	Reason Reason
	Err    error
}

func (f *Failure) Error() string {
	if f == nil {
		return ""
	}
	return fmt.Sprintf("turn: %s: %v", f.Reason, f.Err)
}

func (f *Failure) Unwrap() error {
	if f == nil {
		return nil
	}
	return f.Err
}

// UserMessage is the single message shown in place of the reply. Only
// completion API errors are shown verbatim; storage details stay internal.
func (f *Failure) UserMessage() string {
	if f.Reason == ReasonCompletionFailed {
		return "Error from completion API: " + f.Err.Error()
	}
	return storageFailureMessage
}
