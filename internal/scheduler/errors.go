package scheduler

import (
	"fmt"

	"github.com/almonzer-fadl/teramotors/internal/model"
	"github.com/almonzer-fadl/teramotors/internal/schedule"
)

// ValidationError reports a malformed booking request or a reference to
// an entity that does not exist. Never retried automatically.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ConflictError is the expected outcome when the requested interval is
// already taken at commit time. Callers re-query slots and retry.
type ConflictError struct {
	MechanicID string
	Interval   schedule.Interval
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("mechanic %s already booked during %s", e.MechanicID, e.Interval)
}

// InvalidTransitionError reports a lifecycle transition not permitted
// from the appointment's current status.
type InvalidTransitionError struct {
	From model.Status
	To   model.Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition appointment from %s to %s", e.From, e.To)
}

// NotFoundError reports a missing record.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}
