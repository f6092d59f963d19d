package ops

import (
	"context"
	"database/sql"

	"github.com/porystore/porystore/internal/creature"
	"github.com/porystore/porystore/internal/db"
	"github.com/porystore/porystore/internal/errors"
)

// FetchInput contains parameters for the Fetch operation.
type FetchInput struct {
	ID     string
	Viewer Viewer
}

// FetchOutput contains the result of the Fetch operation.
type FetchOutput struct {
	View *creature.View `json:"creature"`
}

// Fetch retrieves one creature, annotates its uniqueness, and projects it
// for the viewer. Creatures pending deletion are invisible here; reaching an
// unlisted creature requires knowing its ID, which is this operation's only
// guard for that tier.
func Fetch(ctx context.Context, database *sql.DB, input FetchInput) (*FetchOutput, error) {
	c, err := db.GetCreature(ctx, database, input.ID, false)
	if err != nil {
		return nil, err
	}

	notes, err := db.ListNotes(ctx, database, c.ID)
	if err != nil {
		return nil, err
	}

	view, err := creature.Project(c, notes, input.Viewer.relationship(c.Owner))
	if err != nil {
		return nil, err
	}

	unique, err := IsUnique(ctx, database, c)
	if err != nil {
		return nil, err
	}
	view.IsUnique = &unique

	return &FetchOutput{View: view}, nil
}

// MineInput contains parameters for the Mine operation.
type MineInput struct {
	Viewer Viewer
}

// MineOutput contains the result of the Mine operation.
type MineOutput struct {
	Creatures []*creature.View `json:"creatures"`
}

// Mine lists the viewer's own creatures (excluding any pending deletion),
// each annotated with its current uniqueness.
func Mine(ctx context.Context, database *sql.DB, input MineInput) (*MineOutput, error) {
	if input.Viewer.Name == "" {
		return nil, errors.NewUnauthorized("authentication required")
	}

	list, err := db.ListByOwner(ctx, database, input.Viewer.Name)
	if err != nil {
		return nil, err
	}

	views := make([]*creature.View, 0, len(list))
	for _, c := range list {
		notes, err := db.ListNotes(ctx, database, c.ID)
		if err != nil {
			return nil, err
		}
		view, err := creature.Project(c, notes, creature.RelOwner)
		if err != nil {
			return nil, err
		}
		unique, err := IsUnique(ctx, database, c)
		if err != nil {
			return nil, err
		}
		view.IsUnique = &unique
		views = append(views, view)
	}

	return &MineOutput{Creatures: views}, nil
}
