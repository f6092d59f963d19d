// Package ops implements the service operations over the persistence layer:
// upload, lookup, listing, download, moves, notes, and the soft-delete
// lifecycle with its grace-period scheduler.
package ops

import (
	"context"
	"crypto/rand"
	"database/sql"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/porystore/porystore/internal/creature"
	"github.com/porystore/porystore/internal/db"
	"github.com/porystore/porystore/internal/errors"
)

// Viewer identifies the requesting user. The zero value is an anonymous
// request, which classifies as an "other" viewer for every creature.
type Viewer struct {
	Name  string
	Admin bool
}

// Anonymous is the viewer for unauthenticated requests.
var Anonymous = Viewer{}

// relationship classifies the viewer against a creature owner.
func (v Viewer) relationship(owner string) creature.Relationship {
	return creature.Classify(owner, v.Name, v.Admin)
}

// generateULID creates a new ULID for creatures, notes, and boxes.
func generateULID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// verifyCreatureOwner fetches a creature and checks that the viewer owns it.
// allowPending lets the undelete path reach a creature inside its grace
// period. A creature owned by someone else yields Forbidden, never NotFound,
// so ownership failures are distinguishable from absence.
func verifyCreatureOwner(ctx context.Context, database *sql.DB, id string, viewer Viewer, allowPending bool) (*creature.Creature, error) {
	if viewer.Name == "" {
		return nil, errors.NewUnauthorized("authentication required")
	}
	c, err := db.GetCreature(ctx, database, id, allowPending)
	if err != nil {
		return nil, err
	}
	if c.Owner != viewer.Name {
		return nil, errors.NewForbidden()
	}
	return c, nil
}

// verifyBoxOwner fetches a box and checks that the viewer owns it.
func verifyBoxOwner(ctx context.Context, database *sql.DB, id string, viewer Viewer) (*creature.Box, error) {
	b, err := db.GetBox(ctx, database, id)
	if err != nil {
		return nil, err
	}
	if b.Owner != viewer.Name {
		return nil, errors.NewForbidden()
	}
	return b, nil
}
