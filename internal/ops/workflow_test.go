package ops

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/porystore/porystore/internal/creature"
	"github.com/porystore/porystore/internal/db"
	"github.com/porystore/porystore/internal/errors"
)

// TestFullWorkflow exercises the complete creature lifecycle:
// upload → fetch → duplicate upload → note → publish → download →
// delete → undelete → delete → purge → fetch (not found)
func TestFullWorkflow(t *testing.T) {
	env := newTestEnv(t, 30*time.Millisecond)
	ctx := context.Background()

	ash := seedUser(t, env, "ash", false)
	misty := seedUser(t, env, "misty", false)

	// 1. Upload
	up := mustUpload(t, env, ash, samplePayload(), "private")
	require.NotEmpty(t, up.ID)
	require.True(t, up.IsUnique)

	// 2. Fetch as owner
	fetched, err := Fetch(ctx, env.db, FetchInput{ID: up.ID, Viewer: ash})
	require.NoError(t, err)
	require.Equal(t, up.ID, fetched.View.ID)
	require.NotNil(t, fetched.View.Payload.SecretID)

	// 3. The same creature arrives from another user
	dup := mustUpload(t, env, misty, samplePayload(), "private")
	require.False(t, dup.IsUnique)
	require.Equal(t, up.Fingerprint, dup.Fingerprint)

	// 4. Attach a note
	note, err := AddNote(ctx, env.db, AddNoteInput{
		CreatureID: up.ID,
		Text:       "traded from Kalos",
		Visibility: "public",
		Viewer:     ash,
	})
	require.NoError(t, err)
	require.NotEmpty(t, note.Note.ID)

	// 5. Publish and let another user download it
	_, err = Edit(ctx, env.db, EditInput{ID: up.ID, Visibility: "public", Viewer: ash})
	require.NoError(t, err)

	dl, err := Download(ctx, env.db, env.m, DownloadInput{ID: up.ID, Viewer: misty})
	require.NoError(t, err)
	require.Equal(t, rawSave(t, samplePayload()), dl.Raw)

	fetched, err = Fetch(ctx, env.db, FetchInput{ID: up.ID, Viewer: misty})
	require.NoError(t, err)
	require.Equal(t, 1, fetched.View.DownloadCount)
	require.Nil(t, fetched.View.Payload.SecretID)
	require.Len(t, fetched.View.Notes, 1)

	// 6. Soft delete, then change of heart
	_, err = Delete(ctx, env.db, env.sched, DeleteInput{ID: up.ID, Viewer: ash})
	require.NoError(t, err)

	_, err = Fetch(ctx, env.db, FetchInput{ID: up.ID, Viewer: ash})
	require.True(t, errors.Is(err, errors.ErrNotFound))

	_, err = Undelete(ctx, env.db, env.sched, UndeleteInput{ID: up.ID, Viewer: ash})
	require.NoError(t, err)

	// The abandoned timer fires as a no-op.
	env.sched.Wait()

	fetched, err = Fetch(ctx, env.db, FetchInput{ID: up.ID, Viewer: ash})
	require.NoError(t, err)
	require.Equal(t, up.ID, fetched.View.ID)

	// 7. Delete for good
	_, err = Delete(ctx, env.db, env.sched, DeleteInput{ID: up.ID, Viewer: ash})
	require.NoError(t, err)
	env.sched.Wait()

	_, err = db.GetCreature(ctx, env.db, up.ID, true)
	require.True(t, errors.Is(err, errors.ErrNotFound))

	// Notes went with it.
	count, err := db.CountNotes(ctx, env.db, up.ID)
	require.NoError(t, err)
	require.Zero(t, count)

	// 8. The surviving copy is unique again
	fetched, err = Fetch(ctx, env.db, FetchInput{ID: dup.ID, Viewer: misty})
	require.NoError(t, err)
	require.NotNil(t, fetched.View.IsUnique)
	require.True(t, *fetched.View.IsUnique)

	// 9. Misty's copy keeps her own box, not Ash's
	box, err := db.GetBox(ctx, env.db, fetched.View.BoxID)
	require.NoError(t, err)
	require.Equal(t, "misty", box.Owner)
	require.Equal(t, creature.VisibilityPrivate, fetched.View.Visibility)
}
