package ops

import (
	"context"
	"database/sql"

	"github.com/porystore/porystore/internal/db"
)

// DeleteInput contains parameters for the Delete operation.
type DeleteInput struct {
	ID     string
	Viewer Viewer

	// Immediate skips the grace period: the purge check runs with zero
	// delay. The creature still passes through the pending state.
	Immediate bool
}

// DeleteOutput contains the result of the Delete operation.
type DeleteOutput struct {
	ID      string `json:"id"`
	Pending bool   `json:"pending"`
}

// Delete soft-deletes a creature: the pending flag is set synchronously and
// the purge check is scheduled before returning, so the caller is
// acknowledged long before the grace period elapses. Only the owner may
// delete. State machine: Active -> Pending -> (grace elapses, still
// pending) Purged, with Pending -> Active via Undelete.
func Delete(ctx context.Context, database *sql.DB, sched *Scheduler, input DeleteInput) (*DeleteOutput, error) {
	c, err := verifyCreatureOwner(ctx, database, input.ID, input.Viewer, false)
	if err != nil {
		return nil, err
	}

	if err := db.SetPendingDeletion(ctx, database, c.ID, true); err != nil {
		return nil, err
	}
	sched.metrics.SoftDeletes.Inc()

	sched.Schedule(c.ID, input.Immediate)

	return &DeleteOutput{ID: c.ID, Pending: true}, nil
}

// UndeleteInput contains parameters for the Undelete operation.
type UndeleteInput struct {
	ID     string
	Viewer Viewer
}

// UndeleteOutput contains the result of the Undelete operation.
type UndeleteOutput struct {
	ID      string `json:"id"`
	Pending bool   `json:"pending"`
}

// Undelete clears the pending-deletion flag. Safe at any point before the
// scheduled purge fires: the purge check re-reads the flag, so whichever of
// the two writes lands last decides the creature's fate. After the purge has
// fired the creature no longer exists and this returns NotFound.
func Undelete(ctx context.Context, database *sql.DB, sched *Scheduler, input UndeleteInput) (*UndeleteOutput, error) {
	c, err := verifyCreatureOwner(ctx, database, input.ID, input.Viewer, true)
	if err != nil {
		return nil, err
	}

	if err := db.SetPendingDeletion(ctx, database, c.ID, false); err != nil {
		return nil, err
	}
	sched.metrics.Undeletes.Inc()

	return &UndeleteOutput{ID: c.ID, Pending: false}, nil
}
