package registration

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// edgeIDLength is the length of the canonical 8-4-4-4-12 form.
const edgeIDLength = 36

// EdgeID identifies an edge driver running on a hub. It is always stored
// in lower-case canonical form.
type EdgeID string

// ParseEdgeID validates a hub-assigned identifier and returns its lower-case form.
//
// Only the hyphenated 8-4-4-4-12 hexadecimal layout is accepted; the braced,
// URN and unhyphenated spellings that uuid.Parse also understands are rejected.
// Version and variant bits are not checked.
func ParseEdgeID(s string) (EdgeID, error) {
	if len(s) != edgeIDLength {
		return "", fmt.Errorf("%w: %q", ErrInvalidEdgeID, s)
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidEdgeID, s)
	}
	return EdgeID(id.String()), nil
}

// String returns the canonical identifier.
func (id EdgeID) String() string {
	return string(id)
}

// UnmarshalJSON decodes and validates an identifier.
func (id *EdgeID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEdgeID, err)
	}
	parsed, err := ParseEdgeID(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
