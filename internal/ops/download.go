package ops

import (
	"context"
	"database/sql"

	"github.com/porystore/porystore/internal/creature"
	"github.com/porystore/porystore/internal/db"
	"github.com/porystore/porystore/internal/errors"
	"github.com/porystore/porystore/internal/metrics"
)

// DownloadInput contains parameters for the Download operation.
type DownloadInput struct {
	ID     string
	Viewer Viewer
}

// DownloadOutput contains the raw save bytes for re-download.
type DownloadOutput struct {
	ID       string
	Filename string
	Raw      []byte
}

// Download returns the original undecoded save bytes. Non-public creatures
// are only downloadable by their owner or an admin. The download counter is
// bumped exactly once per non-owner download of a public creature; owner
// and admin reads never count.
func Download(ctx context.Context, database *sql.DB, m *metrics.Metrics, input DownloadInput) (*DownloadOutput, error) {
	c, err := db.GetCreature(ctx, database, input.ID, false)
	if err != nil {
		return nil, err
	}

	rel := input.Viewer.relationship(c.Owner)
	if c.Visibility != creature.VisibilityPublic && rel == creature.RelOther {
		return nil, errors.NewForbidden()
	}

	if rel == creature.RelOther && c.Visibility == creature.VisibilityPublic {
		if err := db.IncrementDownloadCount(ctx, database, c.ID); err != nil {
			return nil, err
		}
	}
	m.Downloads.Inc()

	return &DownloadOutput{
		ID:       c.ID,
		Filename: c.ID + ".sav",
		Raw:      c.Raw,
	}, nil
}
