package db

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/porystore/porystore/internal/creature"
	"github.com/porystore/porystore/internal/errors"
)

func testCreature(owner, boxID, id, fingerprint string) *creature.Creature {
	now := time.Now().Unix()
	return &creature.Creature{
		ID:          id,
		Owner:       owner,
		BoxID:       boxID,
		Payload:     &creature.Payload{Species: 25, Level: 42},
		Raw:         []byte(`{"species":25,"level":42}`),
		Fingerprint: fingerprint,
		Visibility:  creature.VisibilityPublic,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func mustInsert(t *testing.T, database *sql.DB, c *creature.Creature) {
	t.Helper()
	if err := InsertCreature(context.Background(), database, c); err != nil {
		t.Fatalf("InsertCreature failed: %v", err)
	}
}

func TestInsertAndGetCreature(t *testing.T) {
	database := testDB(t)
	box := seedOwner(t, database, "ash")
	ctx := context.Background()

	mustInsert(t, database, testCreature("ash", box.ID, "c1", "fp1"))

	got, err := GetCreature(ctx, database, "c1", false)
	if err != nil {
		t.Fatalf("GetCreature failed: %v", err)
	}
	if got.Owner != "ash" || got.Fingerprint != "fp1" {
		t.Errorf("got %+v", got)
	}
	if got.Payload == nil || got.Payload.Species != 25 {
		t.Errorf("payload not round-tripped: %+v", got.Payload)
	}
	if string(got.Raw) != `{"species":25,"level":42}` {
		t.Errorf("raw payload not round-tripped: %q", got.Raw)
	}
	if got.PendingDeletion {
		t.Error("new creature should not be pending deletion")
	}
}

func TestInsertDuplicateID(t *testing.T) {
	database := testDB(t)
	box := seedOwner(t, database, "ash")

	mustInsert(t, database, testCreature("ash", box.ID, "c1", "fp1"))
	err := InsertCreature(context.Background(), database, testCreature("ash", box.ID, "c1", "fp1"))
	if err != ErrUniqueConstraint {
		t.Errorf("expected ErrUniqueConstraint, got %v", err)
	}
}

func TestPendingDeletionVisibility(t *testing.T) {
	database := testDB(t)
	box := seedOwner(t, database, "ash")
	ctx := context.Background()

	mustInsert(t, database, testCreature("ash", box.ID, "c1", "fp1"))

	if err := SetPendingDeletion(ctx, database, "c1", true); err != nil {
		t.Fatalf("SetPendingDeletion failed: %v", err)
	}

	// Ordinary reads must not see a pending creature.
	if _, err := GetCreature(ctx, database, "c1", false); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected NotFound for pending creature, got %v", err)
	}

	// The undelete path still reaches it.
	got, err := GetCreature(ctx, database, "c1", true)
	if err != nil {
		t.Fatalf("GetCreature(includePending) failed: %v", err)
	}
	if !got.PendingDeletion {
		t.Error("PendingDeletion = false, want true")
	}

	// Listing excludes it too.
	list, err := ListByOwner(ctx, database, "ash")
	if err != nil {
		t.Fatalf("ListByOwner failed: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("ListByOwner returned %d pending creatures, want 0", len(list))
	}

	// Clearing the flag restores visibility.
	if err := SetPendingDeletion(ctx, database, "c1", false); err != nil {
		t.Fatalf("SetPendingDeletion(false) failed: %v", err)
	}
	if _, err := GetCreature(ctx, database, "c1", false); err != nil {
		t.Errorf("creature should be visible again after undelete: %v", err)
	}
}

func TestSetPendingDeletionMissingCreature(t *testing.T) {
	database := testDB(t)
	if err := SetPendingDeletion(context.Background(), database, "nope", true); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestCountFingerprintOthers(t *testing.T) {
	database := testDB(t)
	boxAsh := seedOwner(t, database, "ash")
	boxGary := seedOwner(t, database, "gary")
	ctx := context.Background()

	mustInsert(t, database, testCreature("ash", boxAsh.ID, "c1", "shared"))

	count, err := CountFingerprintOthers(ctx, database, "shared", "c1")
	if err != nil {
		t.Fatalf("CountFingerprintOthers failed: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0 (sole holder)", count)
	}

	// A copy owned by another user makes it non-unique.
	mustInsert(t, database, testCreature("gary", boxGary.ID, "c2", "shared"))
	count, err = CountFingerprintOthers(ctx, database, "shared", "c1")
	if err != nil {
		t.Fatalf("CountFingerprintOthers failed: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}

	// A pending-deletion copy is excluded from the count.
	if err := SetPendingDeletion(ctx, database, "c2", true); err != nil {
		t.Fatalf("SetPendingDeletion failed: %v", err)
	}
	count, err = CountFingerprintOthers(ctx, database, "shared", "c1")
	if err != nil {
		t.Fatalf("CountFingerprintOthers failed: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0 after copy soft-deleted", count)
	}
}

func TestPurgeIfPending(t *testing.T) {
	database := testDB(t)
	box := seedOwner(t, database, "ash")
	ctx := context.Background()

	mustInsert(t, database, testCreature("ash", box.ID, "c1", "fp1"))

	// Not pending: purge is a no-op.
	purged, err := PurgeIfPending(ctx, database, "c1")
	if err != nil {
		t.Fatalf("PurgeIfPending failed: %v", err)
	}
	if purged {
		t.Error("purged an active creature")
	}

	// Pending: purge destroys the row and cascades to notes.
	if err := SetPendingDeletion(ctx, database, "c1", true); err != nil {
		t.Fatalf("SetPendingDeletion failed: %v", err)
	}
	note := &creature.Note{
		ID: "n1", CreatureID: "c1", Text: "gone soon",
		Visibility: creature.VisibilityPublic,
		CreatedAt:  time.Now().Unix(), UpdatedAt: time.Now().Unix(),
	}
	if err := InsertNote(ctx, database, note); err != nil {
		t.Fatalf("InsertNote failed: %v", err)
	}

	purged, err = PurgeIfPending(ctx, database, "c1")
	if err != nil {
		t.Fatalf("PurgeIfPending failed: %v", err)
	}
	if !purged {
		t.Error("pending creature was not purged")
	}

	if _, err := GetCreature(ctx, database, "c1", true); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("creature still present after purge: %v", err)
	}
	noteCount, err := CountNotes(ctx, database, "c1")
	if err != nil {
		t.Fatalf("CountNotes failed: %v", err)
	}
	if noteCount != 0 {
		t.Errorf("notes not cascaded on purge: %d remain", noteCount)
	}

	// Missing creature: no-op, no error.
	purged, err = PurgeIfPending(ctx, database, "c1")
	if err != nil || purged {
		t.Errorf("re-purge should be a silent no-op, got purged=%v err=%v", purged, err)
	}
}

func TestIncrementDownloadCount(t *testing.T) {
	database := testDB(t)
	box := seedOwner(t, database, "ash")
	ctx := context.Background()

	mustInsert(t, database, testCreature("ash", box.ID, "c1", "fp1"))

	for i := 0; i < 3; i++ {
		if err := IncrementDownloadCount(ctx, database, "c1"); err != nil {
			t.Fatalf("IncrementDownloadCount failed: %v", err)
		}
	}

	got, err := GetCreature(ctx, database, "c1", false)
	if err != nil {
		t.Fatalf("GetCreature failed: %v", err)
	}
	if got.DownloadCount != 3 {
		t.Errorf("DownloadCount = %d, want 3", got.DownloadCount)
	}
}

func TestUpdateVisibilityAndBox(t *testing.T) {
	database := testDB(t)
	box := seedOwner(t, database, "ash")
	ctx := context.Background()

	mustInsert(t, database, testCreature("ash", box.ID, "c1", "fp1"))

	other := &creature.Box{ID: "box2", Owner: "ash", Name: "Second", CreatedAt: time.Now().Unix()}
	if err := InsertBox(ctx, database, other); err != nil {
		t.Fatalf("InsertBox failed: %v", err)
	}

	if err := UpdateVisibility(ctx, database, "c1", creature.VisibilityUnlisted); err != nil {
		t.Fatalf("UpdateVisibility failed: %v", err)
	}
	if err := UpdateBox(ctx, database, "c1", "box2"); err != nil {
		t.Fatalf("UpdateBox failed: %v", err)
	}

	got, err := GetCreature(ctx, database, "c1", false)
	if err != nil {
		t.Fatalf("GetCreature failed: %v", err)
	}
	if got.Visibility != creature.VisibilityUnlisted || got.BoxID != "box2" {
		t.Errorf("got visibility=%s box=%s", got.Visibility, got.BoxID)
	}
}

func TestListPendingSince(t *testing.T) {
	database := testDB(t)
	box := seedOwner(t, database, "ash")
	ctx := context.Background()

	mustInsert(t, database, testCreature("ash", box.ID, "c1", "fp1"))
	mustInsert(t, database, testCreature("ash", box.ID, "c2", "fp2"))

	if err := SetPendingDeletion(ctx, database, "c1", true); err != nil {
		t.Fatalf("SetPendingDeletion failed: %v", err)
	}

	pending, err := ListPendingSince(ctx, database, 0)
	if err != nil {
		t.Fatalf("ListPendingSince failed: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "c1" {
		t.Errorf("pending = %+v, want [c1]", pending)
	}

	// A cutoff in the past excludes the freshly flagged creature.
	old, err := ListPendingSince(ctx, database, time.Now().Unix()-3600)
	if err != nil {
		t.Fatalf("ListPendingSince failed: %v", err)
	}
	if len(old) != 0 {
		t.Errorf("stale pending = %d, want 0", len(old))
	}
}

func TestNoteQueries(t *testing.T) {
	database := testDB(t)
	box := seedOwner(t, database, "ash")
	ctx := context.Background()
	now := time.Now().Unix()

	mustInsert(t, database, testCreature("ash", box.ID, "c1", "fp1"))

	n := &creature.Note{
		ID: "n1", CreatureID: "c1", Text: "first",
		Visibility: creature.VisibilityPublic, CreatedAt: now, UpdatedAt: now,
	}
	if err := InsertNote(ctx, database, n); err != nil {
		t.Fatalf("InsertNote failed: %v", err)
	}

	got, err := GetNote(ctx, database, "c1", "n1")
	if err != nil {
		t.Fatalf("GetNote failed: %v", err)
	}
	if got.Text != "first" {
		t.Errorf("Text = %q", got.Text)
	}

	// Note lookup is scoped to the parent creature.
	if _, err := GetNote(ctx, database, "other-creature", "n1"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("cross-creature note lookup should be NotFound, got %v", err)
	}

	got.Text = "edited"
	got.Visibility = creature.VisibilityPrivate
	if err := UpdateNote(ctx, database, got); err != nil {
		t.Fatalf("UpdateNote failed: %v", err)
	}

	notes, err := ListNotes(ctx, database, "c1")
	if err != nil {
		t.Fatalf("ListNotes failed: %v", err)
	}
	if len(notes) != 1 || notes[0].Text != "edited" || notes[0].Visibility != creature.VisibilityPrivate {
		t.Errorf("notes = %+v", notes[0])
	}

	if err := DeleteNote(ctx, database, "c1", "n1"); err != nil {
		t.Fatalf("DeleteNote failed: %v", err)
	}
	if err := DeleteNote(ctx, database, "c1", "n1"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("double delete should be NotFound, got %v", err)
	}
}

func TestUserAndBoxQueries(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()
	now := time.Now().Unix()

	u := &creature.User{
		Name: "misty", PasswordHash: "hash", Admin: true,
		DefaultVisibility:     creature.VisibilityUnlisted,
		DefaultNoteVisibility: creature.VisibilityPublic,
		CreatedAt:             now,
	}
	if err := InsertUser(ctx, database, u); err != nil {
		t.Fatalf("InsertUser failed: %v", err)
	}
	if err := InsertUser(ctx, database, u); !errors.Is(err, errors.ErrConflict) {
		t.Errorf("duplicate user should be Conflict, got %v", err)
	}

	got, err := GetUser(ctx, database, "misty")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if !got.Admin || got.DefaultVisibility != creature.VisibilityUnlisted {
		t.Errorf("got %+v", got)
	}

	for _, name := range []string{"Water Types", "Favorites"} {
		b := &creature.Box{ID: "box-" + name, Owner: "misty", Name: name, CreatedAt: now}
		if err := InsertBox(ctx, database, b); err != nil {
			t.Fatalf("InsertBox failed: %v", err)
		}
	}
	boxes, err := ListBoxesByOwner(ctx, database, "misty")
	if err != nil {
		t.Fatalf("ListBoxesByOwner failed: %v", err)
	}
	if len(boxes) != 2 {
		t.Errorf("boxes = %d, want 2", len(boxes))
	}
}
