package creature

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/porystore/porystore/internal/errors"
)

// Fingerprint derives a stable identifier from the canonical fields of a
// payload. It is a pure function of the payload: owner, box, id, and upload
// time never flow into it, so identical creatures uploaded by different
// users fingerprint identically.
//
// The payload is re-serialized through a map before hashing, which sorts
// object keys and normalizes field order regardless of how the input was
// originally serialized.
func Fingerprint(p *Payload) (string, error) {
	if p == nil {
		return "", errors.NewInvalidPayload("missing payload")
	}

	structured, err := json.Marshal(p)
	if err != nil {
		return "", errors.NewInvalidPayload("payload is not serializable")
	}

	// encoding/json emits map keys in sorted order.
	var normalized map[string]any
	if err := json.Unmarshal(structured, &normalized); err != nil {
		return "", errors.NewInvalidPayload("payload is not serializable")
	}
	canonical, err := json.Marshal(normalized)
	if err != nil {
		return "", errors.NewInvalidPayload("payload is not serializable")
	}

	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
