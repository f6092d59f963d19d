package ops

import (
	"context"
	"database/sql"

	"github.com/porystore/porystore/internal/creature"
	"github.com/porystore/porystore/internal/db"
)

// IsUnique reports whether no other non-pending creature anywhere in the
// store shares this creature's fingerprint. It is a derived, read-time
// property and is never persisted: another user's upload or deletion can
// change the answer between reads, so callers recompute it on every read or
// listing. The queried creature itself is evaluable even while pending
// deletion; if every sharing copy except this one is pending, it is unique.
//
// The count reads a point-in-time snapshot; a concurrent upload committing
// just after the query may not be reflected. That eventual consistency is
// acceptable here.
func IsUnique(ctx context.Context, database *sql.DB, c *creature.Creature) (bool, error) {
	others, err := db.CountFingerprintOthers(ctx, database, c.Fingerprint, c.ID)
	if err != nil {
		return false, err
	}
	return others == 0, nil
}
