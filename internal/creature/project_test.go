package creature

import (
	"testing"

	"github.com/porystore/porystore/internal/errors"
)

func testCreature(vis Visibility) *Creature {
	p := basePayload
	return &Creature{
		ID:         "01TEST",
		Owner:      "ash",
		BoxID:      "box1",
		Payload:    &p,
		Visibility: vis,
	}
}

func testNotes() []*Note {
	return []*Note{
		{ID: "n1", CreatureID: "01TEST", Text: "caught at the power plant", Visibility: VisibilityPublic},
		{ID: "n2", CreatureID: "01TEST", Text: "secret training notes", Visibility: VisibilityPrivate},
	}
}

func TestClassify(t *testing.T) {
	if Classify("ash", "ash", false) != RelOwner {
		t.Error("owner not classified as owner")
	}
	if Classify("ash", "ash", true) != RelOwner {
		t.Error("owner with admin flag should still be owner")
	}
	if Classify("ash", "oak", true) != RelAdmin {
		t.Error("admin not classified as admin")
	}
	if Classify("ash", "misty", false) != RelOther {
		t.Error("non-owner not classified as other")
	}
	if Classify("ash", "", false) != RelOther {
		t.Error("anonymous viewer not classified as other")
	}
}

func TestProjectPrivateForbiddenForOther(t *testing.T) {
	c := testCreature(VisibilityPrivate)
	if _, err := Project(c, nil, RelOther); !errors.Is(err, errors.ErrForbidden) {
		t.Errorf("expected Forbidden, got %v", err)
	}
}

func TestProjectPrivateFullForOwnerAndAdmin(t *testing.T) {
	c := testCreature(VisibilityPrivate)
	for _, rel := range []Relationship{RelOwner, RelAdmin} {
		v, err := Project(c, testNotes(), rel)
		if err != nil {
			t.Fatalf("Project failed: %v", err)
		}
		if v.Payload.SecretID == nil || *v.Payload.SecretID != 54321 {
			t.Error("full view should include the secret ID")
		}
		if v.Payload.PID == nil {
			t.Error("full view should include the PID")
		}
		if len(v.Notes) != 2 {
			t.Errorf("full view notes = %d, want 2", len(v.Notes))
		}
	}
}

func TestProjectPublicHidesPrivateSubFieldsForOther(t *testing.T) {
	c := testCreature(VisibilityPublic)
	v, err := Project(c, testNotes(), RelOther)
	if err != nil {
		t.Fatalf("Project failed: %v", err)
	}
	if v.Payload.Species != 25 || v.Payload.TrainerName != "Red" {
		t.Error("entity fields should remain visible to other viewers")
	}
	if v.Payload.SecretID != nil {
		t.Error("secret ID leaked to other viewer")
	}
	if v.Payload.PID != nil {
		t.Error("PID leaked to other viewer")
	}
	if len(v.Notes) != 1 || v.Notes[0].ID != "n1" {
		t.Errorf("private note leaked: %+v", v.Notes)
	}
}

func TestProjectUnlistedSameAsPublicForOther(t *testing.T) {
	c := testCreature(VisibilityUnlisted)
	v, err := Project(c, testNotes(), RelOther)
	if err != nil {
		t.Fatalf("Project failed: %v", err)
	}
	if v.Payload.Species != 25 {
		t.Error("entity fields should be visible on an unlisted creature")
	}
	if len(v.Notes) != 1 {
		t.Errorf("private note leaked on unlisted creature: %+v", v.Notes)
	}
}

func TestProjectDoesNotMutate(t *testing.T) {
	c := testCreature(VisibilityPublic)
	secretID, pid := c.Payload.SecretID, c.Payload.PID
	if _, err := Project(c, testNotes(), RelOther); err != nil {
		t.Fatalf("Project failed: %v", err)
	}
	if c.Payload.SecretID != secretID || c.Payload.PID != pid {
		t.Error("Project mutated the creature payload")
	}
}

func TestValidVisibility(t *testing.T) {
	for _, v := range []Visibility{VisibilityPublic, VisibilityUnlisted, VisibilityPrivate} {
		if !ValidVisibility(v) {
			t.Errorf("ValidVisibility(%s) = false", v)
		}
	}
	if ValidVisibility("friends-only") {
		t.Error("ValidVisibility accepted an unknown tier")
	}
	if ValidNoteVisibility(VisibilityUnlisted) {
		t.Error("notes must not accept the unlisted tier")
	}
}
