// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reconcile

import (
	"errors"
	"fmt"
)

var (
	// ErrAborted is returned when a source rejects the credentials. The
	// checkpoint is flushed with the failing job still pending.
	ErrAborted = errors.New("reconciliation aborted")

	// ErrPlanMismatch is returned when an unfinished checkpoint was written
	// for a different roster or source set. Reset it or run fresh.
	ErrPlanMismatch = errors.New("checkpoint belongs to a different plan")
)

// PersistenceError reports a failed checkpoint, report, or summary write.
// It ends the run because further progress could not be made durable.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persisting %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsPersistence reports whether err is or wraps a *PersistenceError.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
