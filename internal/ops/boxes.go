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

// CreateBoxInput contains parameters for the CreateBox operation.
type CreateBoxInput struct {
	Name   string
	Viewer Viewer
}

// CreateBoxOutput contains the result of the CreateBox operation.
type CreateBoxOutput struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CreateBox creates a named box for the viewer.
func CreateBox(ctx context.Context, database *sql.DB, input CreateBoxInput) (*CreateBoxOutput, error) {
	if input.Viewer.Name == "" {
		return nil, errors.NewUnauthorized("authentication required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, errors.NewInvalidRequest("name is required")
	}

	id, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	box := &creature.Box{
		ID:        id,
		Owner:     input.Viewer.Name,
		Name:      input.Name,
		CreatedAt: time.Now().Unix(),
	}
	if err := db.InsertBox(ctx, database, box); err != nil {
		return nil, err
	}

	return &CreateBoxOutput{ID: box.ID, Name: box.Name}, nil
}

// MyBoxesInput contains parameters for the MyBoxes operation.
type MyBoxesInput struct {
	Viewer Viewer
}

// BoxSummary describes one box and its occupancy.
type BoxSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Creatures int    `json:"creatures"`
}

// MyBoxesOutput contains the result of the MyBoxes operation.
type MyBoxesOutput struct {
	Boxes []BoxSummary `json:"boxes"`
}

// MyBoxes lists the viewer's boxes with the count of non-pending creatures
// in each.
func MyBoxes(ctx context.Context, database *sql.DB, input MyBoxesInput) (*MyBoxesOutput, error) {
	if input.Viewer.Name == "" {
		return nil, errors.NewUnauthorized("authentication required")
	}

	boxes, err := db.ListBoxesByOwner(ctx, database, input.Viewer.Name)
	if err != nil {
		return nil, err
	}

	out := &MyBoxesOutput{Boxes: make([]BoxSummary, 0, len(boxes))}
	for _, b := range boxes {
		contents, err := db.ListByBox(ctx, database, b.ID)
		if err != nil {
			return nil, err
		}
		out.Boxes = append(out.Boxes, BoxSummary{ID: b.ID, Name: b.Name, Creatures: len(contents)})
	}
	return out, nil
}

// PendingInput contains parameters for the Pending operation.
type PendingInput struct {
	Viewer Viewer
}

// PendingEntry describes one creature awaiting purge.
type PendingEntry struct {
	ID           string `json:"id"`
	Owner        string `json:"owner"`
	PendingSince int64  `json:"pendingSince,omitempty"`
}

// PendingOutput contains the result of the Pending operation.
type PendingOutput struct {
	Pending []PendingEntry `json:"pending"`
}

// Pending lists every creature currently pending deletion. Admin only: this
// is the operator view that makes a purge failure (a creature pending far
// past its grace period) visible instead of silently inconsistent.
func Pending(ctx context.Context, database *sql.DB, input PendingInput) (*PendingOutput, error) {
	if input.Viewer.Name == "" {
		return nil, errors.NewUnauthorized("authentication required")
	}
	if !input.Viewer.Admin {
		return nil, errors.NewForbidden()
	}

	list, err := db.ListPendingSince(ctx, database, 0)
	if err != nil {
		return nil, err
	}

	out := &PendingOutput{Pending: make([]PendingEntry, 0, len(list))}
	for _, c := range list {
		out.Pending = append(out.Pending, PendingEntry{ID: c.ID, Owner: c.Owner, PendingSince: c.PendingSince})
	}
	return out, nil
}
