// Package creature defines the domain model for stored game-save creatures:
// the canonical payload and its decode boundary, the fingerprint used for
// cross-owner duplicate detection, and the visibility projection applied to
// non-owner viewers.
package creature

// Visibility controls non-owner read access to a creature.
type Visibility string

const (
	VisibilityPublic   Visibility = "public"
	VisibilityUnlisted Visibility = "unlisted"
	VisibilityPrivate  Visibility = "private"
)

// ValidVisibility reports whether v is a recognized creature visibility.
func ValidVisibility(v Visibility) bool {
	switch v {
	case VisibilityPublic, VisibilityUnlisted, VisibilityPrivate:
		return true
	}
	return false
}

// ValidNoteVisibility reports whether v is a recognized note visibility.
// Notes only support the public/private subset.
func ValidNoteVisibility(v Visibility) bool {
	return v == VisibilityPublic || v == VisibilityPrivate
}

// Creature is a stored game-save entity.
type Creature struct {
	// ID is a ULID that uniquely identifies this creature. Immutable.
	ID string

	// Owner is the name of the owning user. Immutable.
	Owner string

	// BoxID is the container holding the creature. Mutable via move.
	BoxID string

	// Payload is the decoded, owner-independent game data.
	Payload *Payload

	// Raw is the original undecoded save bytes, retained for re-download.
	Raw []byte

	// Fingerprint is derived from Payload once at creation. Immutable.
	Fingerprint string

	// Visibility is one of public/unlisted/private. Mutable by the owner.
	Visibility Visibility

	// PendingDeletion marks a creature inside the deletion grace period.
	// Pending creatures are hidden from ordinary reads but remain fetchable
	// by their owner through the undelete path until purged.
	PendingDeletion bool

	// PendingSince is the Unix timestamp of the soft delete, zero when not
	// pending.
	PendingSince int64

	// DownloadCount increases only on non-owner downloads of a public
	// creature.
	DownloadCount int

	// CreatedAt and UpdatedAt are Unix timestamps.
	CreatedAt int64
	UpdatedAt int64
}

// Note is an annotation attached to a creature, visibility-scoped
// independently of its parent.
type Note struct {
	ID         string
	CreatureID string
	Text       string
	Visibility Visibility
	CreatedAt  int64
	UpdatedAt  int64
}

// Box is a named container of creatures belonging to one user.
type Box struct {
	ID        string
	Owner     string
	Name      string
	CreatedAt int64
}

// User is an account record. Preferences supply defaults when an upload or
// note omits a visibility.
type User struct {
	Name                  string
	PasswordHash          string
	Admin                 bool
	DefaultVisibility     Visibility
	DefaultNoteVisibility Visibility
	CreatedAt             int64
}
