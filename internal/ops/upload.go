package ops

import (
	"context"
	"database/sql"
	"time"

	"github.com/porystore/porystore/internal/config"
	"github.com/porystore/porystore/internal/creature"
	"github.com/porystore/porystore/internal/db"
	"github.com/porystore/porystore/internal/errors"
	"github.com/porystore/porystore/internal/metrics"
)

// UploadInput contains parameters for the Upload operation.
type UploadInput struct {
	Viewer Viewer

	// Raw is the uploaded save file.
	Raw []byte

	// Visibility is optional; the user's default preference applies when
	// empty.
	Visibility string

	// BoxID is optional; a fresh "Untitled Box" is created when empty.
	BoxID string
}

// UploadOutput contains the result of the Upload operation.
type UploadOutput struct {
	ID          string         `json:"id"`
	BoxID       string         `json:"box"`
	Fingerprint string         `json:"fingerprint"`
	IsUnique    bool           `json:"isUnique"`
	View        *creature.View `json:"creature"`
}

// Upload decodes a save file, fingerprints its canonical payload, and stores
// the creature. The fingerprint is computed exactly once, synchronously at
// creation, and never changes afterwards.
func Upload(ctx context.Context, database *sql.DB, cfg *config.Config, dec creature.Decoder, m *metrics.Metrics, input UploadInput) (*UploadOutput, error) {
	if input.Viewer.Name == "" {
		return nil, errors.NewUnauthorized("authentication required")
	}
	if len(input.Raw) == 0 {
		return nil, errors.NewInvalidRequest("no file uploaded")
	}
	if len(input.Raw) > cfg.MaxUploadBytes {
		return nil, errors.NewPayloadTooLarge(cfg.MaxUploadBytes, len(input.Raw))
	}

	visibility, err := resolveVisibility(ctx, database, cfg, input.Viewer.Name, input.Visibility)
	if err != nil {
		return nil, err
	}

	payload, err := dec.Decode(input.Raw)
	if err != nil {
		return nil, err
	}

	box, err := resolveUploadBox(ctx, database, input.Viewer, input.BoxID)
	if err != nil {
		return nil, err
	}

	fingerprint, err := creature.Fingerprint(payload)
	if err != nil {
		return nil, err
	}

	id, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	now := time.Now().Unix()

	c := &creature.Creature{
		ID:          id,
		Owner:       input.Viewer.Name,
		BoxID:       box.ID,
		Payload:     payload,
		Raw:         input.Raw,
		Fingerprint: fingerprint,
		Visibility:  visibility,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := db.InsertCreature(ctx, database, c); err != nil {
		return nil, err
	}
	m.Uploads.Inc()

	unique, err := IsUnique(ctx, database, c)
	if err != nil {
		return nil, err
	}

	view, err := creature.Project(c, nil, creature.RelOwner)
	if err != nil {
		return nil, err
	}
	view.IsUnique = &unique

	return &UploadOutput{
		ID:          c.ID,
		BoxID:       box.ID,
		Fingerprint: fingerprint,
		IsUnique:    unique,
		View:        view,
	}, nil
}

// resolveVisibility validates an explicit visibility or falls back to the
// user's default preference, then the service default.
func resolveVisibility(ctx context.Context, database *sql.DB, cfg *config.Config, username, requested string) (creature.Visibility, error) {
	if requested != "" {
		vis := creature.Visibility(requested)
		if !creature.ValidVisibility(vis) {
			return "", errors.NewInvalidRequest("visibility must be one of: public, unlisted, private")
		}
		return vis, nil
	}

	user, err := db.GetUser(ctx, database, username)
	if err != nil {
		return "", err
	}
	if creature.ValidVisibility(user.DefaultVisibility) {
		return user.DefaultVisibility, nil
	}
	return creature.Visibility(cfg.DefaultVisibility), nil
}

// resolveUploadBox verifies the target box's ownership, or creates an
// untitled box when none was given.
func resolveUploadBox(ctx context.Context, database *sql.DB, viewer Viewer, boxID string) (*creature.Box, error) {
	if boxID != "" {
		box, err := db.GetBox(ctx, database, boxID)
		if err != nil {
			return nil, err
		}
		if box.Owner != viewer.Name {
			return nil, errors.NewForbidden()
		}
		return box, nil
	}

	id, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	now := time.Now()
	box := &creature.Box{
		ID:        id,
		Owner:     viewer.Name,
		Name:      "Untitled Box " + now.UTC().Format("2006-01-02 15:04:05"),
		CreatedAt: now.Unix(),
	}
	if err := db.InsertBox(ctx, database, box); err != nil {
		return nil, err
	}
	return box, nil
}
