package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/porystore/porystore/internal/creature"
	"github.com/porystore/porystore/internal/errors"
)

// ErrUniqueConstraint is returned when an insert violates a UNIQUE constraint.
var ErrUniqueConstraint = &errors.Error{
	Code:    "UNIQUE_CONSTRAINT",
	Status:  409,
	Message: "unique constraint violation",
}

const creatureColumns = `id, owner, box_id, payload_json, raw_payload, fingerprint,
	visibility, pending_deletion, pending_since, download_count, created_at, updated_at`

// InsertCreature stores a new creature.
func InsertCreature(ctx context.Context, db *sql.DB, c *creature.Creature) error {
	payloadJSON, err := json.Marshal(c.Payload)
	if err != nil {
		return errors.NewInternal(err)
	}

	query := `
		INSERT INTO creatures (
			id, owner, box_id, payload_json, raw_payload, fingerprint,
			visibility, pending_deletion, download_count, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, 0, 0, ?, ?)
	`

	_, err = db.ExecContext(ctx, query,
		c.ID, c.Owner, c.BoxID, string(payloadJSON), c.Raw, c.Fingerprint,
		string(c.Visibility), c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewInternal(err)
	}

	return nil
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	// SQLite returns "UNIQUE constraint failed: ..." for unique violations
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// GetCreature retrieves a creature by ID.
// If includePending is false, creatures pending deletion are excluded; the
// undelete path passes true so an owner can still reach a pending creature.
func GetCreature(ctx context.Context, db *sql.DB, id string, includePending bool) (*creature.Creature, error) {
	query := `SELECT ` + creatureColumns + ` FROM creatures WHERE id = ?`
	if !includePending {
		query += " AND pending_deletion = 0"
	}

	row := db.QueryRowContext(ctx, query, id)
	c, err := scanCreature(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return c, nil
}

// ListByOwner returns the owner's creatures, excluding those pending deletion.
func ListByOwner(ctx context.Context, db *sql.DB, owner string) ([]*creature.Creature, error) {
	query := `SELECT ` + creatureColumns + `
		FROM creatures WHERE owner = ? AND pending_deletion = 0
		ORDER BY created_at DESC`
	return queryCreatures(ctx, db, query, owner)
}

// ListByBox returns the non-pending creatures in a box.
func ListByBox(ctx context.Context, db *sql.DB, boxID string) ([]*creature.Creature, error) {
	query := `SELECT ` + creatureColumns + `
		FROM creatures WHERE box_id = ? AND pending_deletion = 0
		ORDER BY created_at DESC`
	return queryCreatures(ctx, db, query, boxID)
}

// CountFingerprintOthers counts non-pending creatures sharing a fingerprint,
// across all owners, excluding the creature itself. A creature is unique iff
// this count is zero. Recomputed on every read; the count can change between
// reads as other users upload or delete copies.
func CountFingerprintOthers(ctx context.Context, db *sql.DB, fingerprint, excludeID string) (int, error) {
	query := `
		SELECT COUNT(*) FROM creatures
		WHERE fingerprint = ? AND id != ? AND pending_deletion = 0
	`
	var count int
	if err := db.QueryRowContext(ctx, query, fingerprint, excludeID).Scan(&count); err != nil {
		return 0, errors.NewInternal(err)
	}
	return count, nil
}

// SetPendingDeletion toggles the pending-deletion flag. The single-column
// UPDATE is atomic with respect to concurrent readers; no other field is
// touched.
func SetPendingDeletion(ctx context.Context, db *sql.DB, id string, pending bool) error {
	var query string
	var args []any
	if pending {
		query = `UPDATE creatures SET pending_deletion = 1, pending_since = ? WHERE id = ? AND pending_deletion = 0`
		args = []any{time.Now().Unix(), id}
	} else {
		query = `UPDATE creatures SET pending_deletion = 0, pending_since = NULL WHERE id = ?`
		args = []any{id}
	}

	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.NewInternal(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 && pending {
		return errors.NewNotFound(id)
	}
	return nil
}

// PurgeIfPending permanently destroys a creature iff it is still pending
// deletion. The conditional DELETE re-reads the flag and destroys the row in
// one atomic statement, so a racing undelete can never lose: whichever write
// lands last decides. Notes cascade via foreign key. Returns whether a row
// was purged; an already-gone or undeleted creature is a no-op.
func PurgeIfPending(ctx context.Context, db *sql.DB, id string) (bool, error) {
	result, err := db.ExecContext(ctx,
		`DELETE FROM creatures WHERE id = ? AND pending_deletion = 1`, id)
	if err != nil {
		return false, errors.NewInternal(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return rowsAffected > 0, nil
}

// IncrementDownloadCount bumps the download counter in a single atomic
// update at the persistence boundary; no in-process counter state exists.
func IncrementDownloadCount(ctx context.Context, db *sql.DB, id string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE creatures SET download_count = download_count + 1 WHERE id = ?`, id)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// UpdateVisibility changes a creature's visibility tier.
func UpdateVisibility(ctx context.Context, db *sql.DB, id string, vis creature.Visibility) error {
	return updateCreatureField(ctx, db,
		`UPDATE creatures SET visibility = ?, updated_at = ? WHERE id = ? AND pending_deletion = 0`,
		string(vis), time.Now().Unix(), id)
}

// UpdateBox moves a creature to another box.
func UpdateBox(ctx context.Context, db *sql.DB, id, boxID string) error {
	return updateCreatureField(ctx, db,
		`UPDATE creatures SET box_id = ?, updated_at = ? WHERE id = ? AND pending_deletion = 0`,
		boxID, time.Now().Unix(), id)
}

func updateCreatureField(ctx context.Context, db *sql.DB, query string, args ...any) error {
	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.NewInternal(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound("creature")
	}
	return nil
}

// ListPendingSince returns creatures that have been pending deletion since
// before the cutoff. Used by the reconciliation sweep and the admin listing;
// a creature stuck here past its grace period indicates a failed purge.
// A zero cutoff returns every pending creature.
func ListPendingSince(ctx context.Context, db *sql.DB, cutoff int64) ([]*creature.Creature, error) {
	query := `SELECT ` + creatureColumns + `
		FROM creatures WHERE pending_deletion = 1`
	args := []any{}
	if cutoff > 0 {
		query += ` AND pending_since <= ?`
		args = append(args, cutoff)
	}
	query += ` ORDER BY pending_since ASC`
	return queryCreatures(ctx, db, query, args...)
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanCreature scans a single row into a Creature struct.
func scanCreature(row rowScanner) (*creature.Creature, error) {
	var (
		c            creature.Creature
		payloadJSON  string
		visibility   string
		pending      int
		pendingSince sql.NullInt64
	)

	err := row.Scan(
		&c.ID, &c.Owner, &c.BoxID, &payloadJSON, &c.Raw, &c.Fingerprint,
		&visibility, &pending, &pendingSince, &c.DownloadCount, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Visibility = creature.Visibility(visibility)
	c.PendingDeletion = pending != 0
	if pendingSince.Valid {
		c.PendingSince = pendingSince.Int64
	}

	var p creature.Payload
	if err := json.Unmarshal([]byte(payloadJSON), &p); err != nil {
		return nil, err
	}
	c.Payload = &p

	return &c, nil
}

func queryCreatures(ctx context.Context, db *sql.DB, query string, args ...any) ([]*creature.Creature, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	result := make([]*creature.Creature, 0)
	for rows.Next() {
		c, err := scanCreature(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return result, nil
}
