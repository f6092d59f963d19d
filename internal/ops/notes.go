package ops

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/porystore/porystore/internal/creature"
	"github.com/porystore/porystore/internal/db"
	"github.com/porystore/porystore/internal/errors"
)

// AddNoteInput contains parameters for the AddNote operation.
type AddNoteInput struct {
	CreatureID string
	Text       string

	// Visibility is optional; the owner's default note preference applies
	// when empty. Notes support public/private only.
	Visibility string

	Viewer Viewer
}

// AddNoteOutput contains the result of the AddNote operation.
type AddNoteOutput struct {
	Note *creature.NoteView `json:"note"`
}

// AddNote attaches a note to a creature the viewer owns.
func AddNote(ctx context.Context, database *sql.DB, input AddNoteInput) (*AddNoteOutput, error) {
	if strings.TrimSpace(input.Text) == "" {
		return nil, errors.NewInvalidRequest("text is required")
	}

	c, err := verifyCreatureOwner(ctx, database, input.CreatureID, input.Viewer, false)
	if err != nil {
		return nil, err
	}

	vis, err := resolveNoteVisibility(ctx, database, input.Viewer.Name, input.Visibility)
	if err != nil {
		return nil, err
	}

	id, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	now := time.Now().Unix()

	n := &creature.Note{
		ID:         id,
		CreatureID: c.ID,
		Text:       input.Text,
		Visibility: vis,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := db.InsertNote(ctx, database, n); err != nil {
		return nil, err
	}

	return &AddNoteOutput{Note: noteView(n)}, nil
}

// EditNoteInput contains parameters for the EditNote operation. Nil fields
// are left unchanged.
type EditNoteInput struct {
	CreatureID string
	NoteID     string
	Text       *string
	Visibility *string
	Viewer     Viewer
}

// EditNoteOutput contains the result of the EditNote operation.
type EditNoteOutput struct {
	Note *creature.NoteView `json:"note"`
}

// EditNote updates a note's text and/or visibility. Owner only.
func EditNote(ctx context.Context, database *sql.DB, input EditNoteInput) (*EditNoteOutput, error) {
	if input.CreatureID == "" || input.NoteID == "" {
		return nil, errors.NewInvalidRequest("id and noteId are required")
	}

	c, err := verifyCreatureOwner(ctx, database, input.CreatureID, input.Viewer, false)
	if err != nil {
		return nil, err
	}

	n, err := db.GetNote(ctx, database, c.ID, input.NoteID)
	if err != nil {
		return nil, err
	}

	if input.Text != nil {
		if strings.TrimSpace(*input.Text) == "" {
			return nil, errors.NewInvalidRequest("text must not be empty")
		}
		n.Text = *input.Text
	}
	if input.Visibility != nil {
		vis := creature.Visibility(*input.Visibility)
		if !creature.ValidNoteVisibility(vis) {
			return nil, errors.NewInvalidRequest("note visibility must be public or private")
		}
		n.Visibility = vis
	}

	if err := db.UpdateNote(ctx, database, n); err != nil {
		return nil, err
	}

	return &EditNoteOutput{Note: noteView(n)}, nil
}

// DeleteNoteInput contains parameters for the DeleteNote operation.
type DeleteNoteInput struct {
	CreatureID string
	NoteID     string
	Viewer     Viewer
}

// DeleteNoteOutput contains the result of the DeleteNote operation.
type DeleteNoteOutput struct {
	Deleted bool   `json:"deleted"`
	ID      string `json:"id"`
}

// DeleteNote removes a note. Unlike editing, deletion is also open to
// admins.
func DeleteNote(ctx context.Context, database *sql.DB, input DeleteNoteInput) (*DeleteNoteOutput, error) {
	if input.CreatureID == "" || input.NoteID == "" {
		return nil, errors.NewInvalidRequest("id and noteId are required")
	}

	c, err := db.GetCreature(ctx, database, input.CreatureID, false)
	if err != nil {
		return nil, err
	}
	if c.Owner != input.Viewer.Name && !input.Viewer.Admin {
		return nil, errors.NewForbidden()
	}

	if err := db.DeleteNote(ctx, database, c.ID, input.NoteID); err != nil {
		return nil, err
	}

	return &DeleteNoteOutput{Deleted: true, ID: input.NoteID}, nil
}

// resolveNoteVisibility validates an explicit note visibility or falls back
// to the user's default note preference.
func resolveNoteVisibility(ctx context.Context, database *sql.DB, username, requested string) (creature.Visibility, error) {
	if requested != "" {
		vis := creature.Visibility(requested)
		if !creature.ValidNoteVisibility(vis) {
			return "", errors.NewInvalidRequest("note visibility must be public or private")
		}
		return vis, nil
	}

	user, err := db.GetUser(ctx, database, username)
	if err != nil {
		return "", err
	}
	if creature.ValidNoteVisibility(user.DefaultNoteVisibility) {
		return user.DefaultNoteVisibility, nil
	}
	return creature.VisibilityPrivate, nil
}

func noteView(n *creature.Note) *creature.NoteView {
	return &creature.NoteView{
		ID:         n.ID,
		Text:       n.Text,
		Visibility: n.Visibility,
		CreatedAt:  n.CreatedAt,
		UpdatedAt:  n.UpdatedAt,
	}
}
