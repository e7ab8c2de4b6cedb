package reconcile

import "fmt"

// ReconciliationError reports a store failure that rolled back a whole batch.
// Stage names the entity pass that was running.
type ReconciliationError struct {
	UserID string
	Stage  string
	Err    error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("reconcile %s for user %q: %v", e.Stage, e.UserID, e.Err)
}

func (e *ReconciliationError) Unwrap() error {
	return e.Err
}
