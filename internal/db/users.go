package db

import (
	"context"
	"database/sql"

	"github.com/porystore/porystore/internal/creature"
	"github.com/porystore/porystore/internal/errors"
)

// InsertUser creates a user record. Names are unique.
func InsertUser(ctx context.Context, db *sql.DB, u *creature.User) error {
	query := `
		INSERT INTO users (name, password_hash, is_admin, default_visibility, default_note_visibility, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, query,
		u.Name, u.PasswordHash, boolToInt(u.Admin),
		string(u.DefaultVisibility), string(u.DefaultNoteVisibility), u.CreatedAt)
	if err != nil {
		if isUniqueConstraintError(err) {
			return errors.NewConflict("user already exists: " + u.Name)
		}
		return errors.NewInternal(err)
	}
	return nil
}

// GetUser retrieves a user by name.
func GetUser(ctx context.Context, db *sql.DB, name string) (*creature.User, error) {
	query := `
		SELECT name, password_hash, is_admin, default_visibility, default_note_visibility, created_at
		FROM users WHERE name = ?
	`
	var (
		u             creature.User
		isAdmin       int
		defaultVis    string
		defaultNoteVi string
	)
	err := db.QueryRowContext(ctx, query, name).Scan(
		&u.Name, &u.PasswordHash, &isAdmin, &defaultVis, &defaultNoteVi, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(name)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	u.Admin = isAdmin != 0
	u.DefaultVisibility = creature.Visibility(defaultVis)
	u.DefaultNoteVisibility = creature.Visibility(defaultNoteVi)
	return &u, nil
}

// InsertBox creates a box for a user.
func InsertBox(ctx context.Context, db *sql.DB, b *creature.Box) error {
	query := `INSERT INTO boxes (id, owner, name, created_at) VALUES (?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, query, b.ID, b.Owner, b.Name, b.CreatedAt)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewInternal(err)
	}
	return nil
}

// GetBox retrieves a box by ID.
func GetBox(ctx context.Context, db *sql.DB, id string) (*creature.Box, error) {
	query := `SELECT id, owner, name, created_at FROM boxes WHERE id = ?`
	var b creature.Box
	err := db.QueryRowContext(ctx, query, id).Scan(&b.ID, &b.Owner, &b.Name, &b.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return &b, nil
}

// ListBoxesByOwner returns a user's boxes, oldest first.
func ListBoxesByOwner(ctx context.Context, db *sql.DB, owner string) ([]*creature.Box, error) {
	query := `SELECT id, owner, name, created_at FROM boxes WHERE owner = ? ORDER BY created_at ASC`
	rows, err := db.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	result := make([]*creature.Box, 0)
	for rows.Next() {
		var b creature.Box
		if err := rows.Scan(&b.ID, &b.Owner, &b.Name, &b.CreatedAt); err != nil {
			return nil, errors.NewInternal(err)
		}
		result = append(result, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return result, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
