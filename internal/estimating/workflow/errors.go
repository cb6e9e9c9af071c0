package workflow

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrIllegalTransition indicates the (from, to) pair is absent from the edge table.
	ErrIllegalTransition = errors.New("workflow: illegal transition")
	// ErrUnauthorized indicates the actor's role lacks the edge's permission.
	ErrUnauthorized = errors.New("workflow: unauthorized")
	// ErrNotFound indicates the target entity does not exist.
	ErrNotFound = errors.New("workflow: entity not found")
	// ErrStaleRevision indicates the status write lost a concurrent update race.
	ErrStaleRevision = errors.New("workflow: stale revision")
)

// ValidationError aggregates every failing named check so the caller can fix
// everything in one round trip.
type ValidationError struct {
	Failures []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("workflow: validation failed: %s", strings.Join(e.Failures, "; "))
}
