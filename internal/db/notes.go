package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/porystore/porystore/internal/creature"
	"github.com/porystore/porystore/internal/errors"
)

// InsertNote stores a new note on a creature.
func InsertNote(ctx context.Context, db *sql.DB, n *creature.Note) error {
	query := `
		INSERT INTO notes (id, creature_id, note_text, visibility, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, query,
		n.ID, n.CreatureID, n.Text, string(n.Visibility), n.CreatedAt, n.UpdatedAt)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetNote retrieves a note scoped to its parent creature. The creature ID is
// part of the lookup so a note ID cannot be combined with someone else's
// creature.
func GetNote(ctx context.Context, db *sql.DB, creatureID, noteID string) (*creature.Note, error) {
	query := `
		SELECT id, creature_id, note_text, visibility, created_at, updated_at
		FROM notes WHERE id = ? AND creature_id = ?
	`
	var (
		n          creature.Note
		visibility string
	)
	err := db.QueryRowContext(ctx, query, noteID, creatureID).Scan(
		&n.ID, &n.CreatureID, &n.Text, &visibility, &n.CreatedAt, &n.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(noteID)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	n.Visibility = creature.Visibility(visibility)
	return &n, nil
}

// ListNotes returns a creature's notes in creation order.
func ListNotes(ctx context.Context, db *sql.DB, creatureID string) ([]*creature.Note, error) {
	query := `
		SELECT id, creature_id, note_text, visibility, created_at, updated_at
		FROM notes WHERE creature_id = ?
		ORDER BY created_at ASC, id ASC
	`
	rows, err := db.QueryContext(ctx, query, creatureID)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	result := make([]*creature.Note, 0)
	for rows.Next() {
		var (
			n          creature.Note
			visibility string
		)
		if err := rows.Scan(&n.ID, &n.CreatureID, &n.Text, &visibility, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, errors.NewInternal(err)
		}
		n.Visibility = creature.Visibility(visibility)
		result = append(result, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return result, nil
}

// UpdateNote changes a note's text and/or visibility.
func UpdateNote(ctx context.Context, db *sql.DB, n *creature.Note) error {
	now := time.Now().Unix()
	query := `
		UPDATE notes SET note_text = ?, visibility = ?, updated_at = ?
		WHERE id = ? AND creature_id = ?
	`
	result, err := db.ExecContext(ctx, query,
		n.Text, string(n.Visibility), now, n.ID, n.CreatureID)
	if err != nil {
		return errors.NewInternal(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound(n.ID)
	}
	n.UpdatedAt = now
	return nil
}

// DeleteNote removes a note.
func DeleteNote(ctx context.Context, db *sql.DB, creatureID, noteID string) error {
	result, err := db.ExecContext(ctx,
		`DELETE FROM notes WHERE id = ? AND creature_id = ?`, noteID, creatureID)
	if err != nil {
		return errors.NewInternal(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound(noteID)
	}
	return nil
}

// CountNotes returns the number of notes on a creature. Used by tests to
// verify the purge cascade.
func CountNotes(ctx context.Context, db *sql.DB, creatureID string) (int, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notes WHERE creature_id = ?`, creatureID).Scan(&count)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return count, nil
}
