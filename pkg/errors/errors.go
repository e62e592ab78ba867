package errors

import (
	"fmt"
	"strings"
)

// UserError is a single field-level error returned by a Shopify mutation.
type UserError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

// UserErrors is returned when a Shopify mutation rejects its input.
// It is a value, not a transport failure: callers decide whether the
// rejected step was load-bearing (draft/company create) or cosmetic
// (location rename, role assignment).
type UserErrors struct {
	Operation string
	Errors    []UserError
}

func (e *UserErrors) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, ue := range e.Errors {
		msgs[i] = ue.Message
	}
	return fmt.Sprintf("%s userErrors: %s", e.Operation, strings.Join(msgs, "; "))
}

// Contains reports whether any user error message contains the given
// substring (case-insensitive). Used to detect "already associated"
// races that are resolved by re-query rather than treated as failures.
func (e *UserErrors) Contains(substr string) bool {
	needle := strings.ToLower(substr)
	for _, ue := range e.Errors {
		if strings.Contains(strings.ToLower(ue.Message), needle) {
			return true
		}
	}
	return false
}

// ErrNotFound is returned when a resource is not found
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrSkipRecord aborts processing of the current source record only;
// the run continues with the next record.
type ErrSkipRecord struct {
	RecordID string
	PONumber string
	Reason   string
}

func (e *ErrSkipRecord) Error() string {
	return fmt.Sprintf("skip record %s (PO %s): %s", e.RecordID, e.PONumber, e.Reason)
}
