package creature

import (
	"encoding/json"

	"github.com/porystore/porystore/internal/errors"
)

// Payload is the canonical, owner-independent game data of a creature. It
// carries no owner, box, or upload metadata: two saves of the same creature
// uploaded by different users decode to identical payloads.
type Payload struct {
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

	// Trainer fields identify who originally caught the creature. They are
	// part of the canonical data (a traded copy is still the same creature)
	// but the secret ID and PID are hidden from non-owner projections.
	TrainerName string `json:"trainerName,omitempty"`
	TrainerID   int    `json:"trainerId,omitempty"`
	SecretID    int    `json:"secretId,omitempty"`
	PID         uint32 `json:"pid,omitempty"`
}

// Validate checks structural constraints on a decoded payload.
func (p *Payload) Validate() error {
	if p.Species <= 0 {
		return errors.NewInvalidPayload("species must be a positive dex number")
	}
	if p.Level < 1 || p.Level > 100 {
		return errors.NewInvalidPayload("level must be between 1 and 100")
	}
	if len(p.Moves) > 4 {
		return errors.NewInvalidPayload("a creature cannot know more than 4 moves")
	}
	if len(p.IVs) != 0 && len(p.IVs) != 6 {
		return errors.NewInvalidPayload("ivs must list all 6 stats")
	}
	if len(p.EVs) != 0 && len(p.EVs) != 6 {
		return errors.NewInvalidPayload("evs must list all 6 stats")
	}
	return nil
}

// Decoder converts raw uploaded save bytes into a canonical payload. Binary
// save-file parsing lives behind this boundary; the service itself never
// inspects raw bytes.
type Decoder interface {
	Decode(raw []byte) (*Payload, error)
}

// JSONDecoder decodes the canonical JSON export format produced by external
// save-file tooling. It is the default decoder wired into the service.
type JSONDecoder struct{}

// Decode parses and validates a canonical JSON payload. Malformed input
// yields an INVALID_PAYLOAD error and the upload is rejected.
func (JSONDecoder) Decode(raw []byte) (*Payload, error) {
	if len(raw) == 0 {
		return nil, errors.NewInvalidPayload("empty save data")
	}
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, errors.NewInvalidPayload("failed to parse the provided file")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}
