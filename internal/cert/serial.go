package cert

import (
	"strings"

	"github.com/google/uuid"
)

// Serial display length. 12 hex chars of a random 128-bit value keeps the
// serial short enough to read aloud while pushing the birthday-collision
// horizon past ~16M certificates; the certificates table still carries a
// UNIQUE constraint as the hard stop.
const serialLen = 12

// NewSerial returns a human-displayable certificate serial such as
// "3F2A9C1B7D40".
func NewSerial() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:serialLen])
}
