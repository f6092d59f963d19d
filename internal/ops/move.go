package ops

import (
	"context"
	"database/sql"

	"github.com/porystore/porystore/internal/creature"
	"github.com/porystore/porystore/internal/db"
	"github.com/porystore/porystore/internal/errors"
)

// MoveInput contains parameters for the Move operation.
type MoveInput struct {
	ID     string
	BoxID  string
	Viewer Viewer
}

// MoveOutput contains the result of the Move operation.
type MoveOutput struct {
	ID    string `json:"id"`
	BoxID string `json:"box"`
}

// Move relocates a creature to another box. The viewer must own both the
// creature and the destination box.
func Move(ctx context.Context, database *sql.DB, input MoveInput) (*MoveOutput, error) {
	if input.ID == "" || input.BoxID == "" {
		return nil, errors.NewInvalidRequest("id and box are required")
	}

	c, err := verifyCreatureOwner(ctx, database, input.ID, input.Viewer, false)
	if err != nil {
		return nil, err
	}
	box, err := verifyBoxOwner(ctx, database, input.BoxID, input.Viewer)
	if err != nil {
		return nil, err
	}
	if c.Owner != box.Owner {
		return nil, errors.NewForbidden()
	}

	if err := db.UpdateBox(ctx, database, c.ID, box.ID); err != nil {
		return nil, err
	}

	return &MoveOutput{ID: c.ID, BoxID: box.ID}, nil
}

// EditInput contains parameters for the Edit operation. Visibility is the
// only owner-editable creature field; the canonical payload, raw bytes, and
// fingerprint are immutable after creation.
type EditInput struct {
	ID         string
	Visibility string
	Viewer     Viewer
}

// EditOutput contains the result of the Edit operation.
type EditOutput struct {
	ID         string `json:"id"`
	Visibility string `json:"visibility"`
}

// Edit changes a creature's visibility tier.
func Edit(ctx context.Context, database *sql.DB, input EditInput) (*EditOutput, error) {
	if input.ID == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}

	c, err := verifyCreatureOwner(ctx, database, input.ID, input.Viewer, false)
	if err != nil {
		return nil, err
	}

	vis := creature.Visibility(input.Visibility)
	if !creature.ValidVisibility(vis) {
		return nil, errors.NewInvalidRequest("visibility must be one of: public, unlisted, private")
	}

	if err := db.UpdateVisibility(ctx, database, c.ID, vis); err != nil {
		return nil, err
	}

	return &EditOutput{ID: c.ID, Visibility: string(vis)}, nil
}
