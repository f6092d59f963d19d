package creature

import (
	"github.com/porystore/porystore/internal/errors"
)

// Relationship classifies a viewer's standing toward a creature's owner.
// Exactly one of the three applies to any request.
type Relationship int

const (
	RelOther Relationship = iota
	RelOwner
	RelAdmin
)

// Classify determines the relationship between a creature owner and a
// viewer. An empty viewer name is an anonymous request and classifies as
// other. Admin wins only when the viewer is not the owner, so owner
// downloads by an admin of their own creatures stay owner reads.
func Classify(owner, viewer string, admin bool) Relationship {
	if viewer != "" && viewer == owner {
		return RelOwner
	}
	if admin {
		return RelAdmin
	}
	return RelOther
}

// View is the projection of a creature exposed to a viewer.
type View struct {
	ID            string      `json:"id"`
	Owner         string      `json:"owner"`
	BoxID         string      `json:"box"`
	Visibility    Visibility  `json:"visibility"`
	DownloadCount int         `json:"downloadCount"`
	IsUnique      *bool       `json:"isUnique,omitempty"`
	Payload       PayloadView `json:"payload"`
	Notes         []NoteView  `json:"notes"`
	CreatedAt     int64       `json:"createdAt"`
	UpdatedAt     int64       `json:"updatedAt"`
}

// PayloadView mirrors Payload with the privacy-sensitive trainer fields
// optional so they can be dropped for non-owner viewers.
type PayloadView struct {
	Species     int      `json:"species"`
	Form        int      `json:"form,omitempty"`
	Nickname    string   `json:"nickname,omitempty"`
	Level       int      `json:"level"`
	Nature      string   `json:"nature,omitempty"`
	Ability     string   `json:"ability,omitempty"`
	HeldItem    string   `json:"heldItem,omitempty"`
	Gender      string   `json:"gender,omitempty"`
	Shiny       bool     `json:"shiny,omitempty"`
	Moves       []string `json:"moves,omitempty"`
	IVs         []int    `json:"ivs,omitempty"`
	EVs         []int    `json:"evs,omitempty"`
	OriginGame  string   `json:"originGame,omitempty"`
	Ball        string   `json:"ball,omitempty"`
	MetLocation string   `json:"metLocation,omitempty"`
	MetLevel    int      `json:"metLevel,omitempty"`
	TrainerName string   `json:"trainerName,omitempty"`
	TrainerID   int      `json:"trainerId,omitempty"`
	SecretID    *int     `json:"secretId,omitempty"`
	PID         *uint32  `json:"pid,omitempty"`
}

// NoteView is the projection of a note. TextHTML is filled by the transport
// layer when rendering markdown; the projector leaves it empty.
type NoteView struct {
	ID         string     `json:"id"`
	Text       string     `json:"text"`
	TextHTML   string     `json:"textHtml,omitempty"`
	Visibility Visibility `json:"visibility"`
	CreatedAt  int64      `json:"createdAt"`
	UpdatedAt  int64      `json:"updatedAt"`
}

// Project decides which fields of a creature a viewer may see.
//
//	visibility  owner/admin  other
//	public      full         full entity, private sub-fields hidden
//	unlisted    full         same as public (caller guards reachability)
//	private     full         Forbidden
//
// Notes are filtered independently: an other viewer never sees a private
// note regardless of the creature's own visibility. Project is pure and
// never mutates the creature.
func Project(c *Creature, notes []*Note, rel Relationship) (*View, error) {
	full := rel == RelOwner || rel == RelAdmin

	if !full && c.Visibility == VisibilityPrivate {
		return nil, errors.NewForbidden()
	}

	v := &View{
		ID:            c.ID,
		Owner:         c.Owner,
		BoxID:         c.BoxID,
		Visibility:    c.Visibility,
		DownloadCount: c.DownloadCount,
		Payload:       projectPayload(c.Payload, full),
		Notes:         projectNotes(notes, full),
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
	return v, nil
}

func projectPayload(p *Payload, full bool) PayloadView {
	if p == nil {
		return PayloadView{}
	}
	v := PayloadView{
		Species:     p.Species,
		Form:        p.Form,
		Nickname:    p.Nickname,
		Level:       p.Level,
		Nature:      p.Nature,
		Ability:     p.Ability,
		HeldItem:    p.HeldItem,
		Gender:      p.Gender,
		Shiny:       p.Shiny,
		Moves:       p.Moves,
		IVs:         p.IVs,
		EVs:         p.EVs,
		OriginGame:  p.OriginGame,
		Ball:        p.Ball,
		MetLocation: p.MetLocation,
		MetLevel:    p.MetLevel,
		TrainerName: p.TrainerName,
		TrainerID:   p.TrainerID,
	}
	if full {
		secretID := p.SecretID
		pid := p.PID
		v.SecretID = &secretID
		v.PID = &pid
	}
	return v
}

func projectNotes(notes []*Note, full bool) []NoteView {
	views := make([]NoteView, 0, len(notes))
	for _, n := range notes {
		if !full && n.Visibility == VisibilityPrivate {
			continue
		}
		views = append(views, NoteView{
			ID:         n.ID,
			Text:       n.Text,
			Visibility: n.Visibility,
			CreatedAt:  n.CreatedAt,
			UpdatedAt:  n.UpdatedAt,
		})
	}
	return views
}
