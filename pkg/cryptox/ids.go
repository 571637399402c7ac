package cryptox

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a random UUID string, used for user and application ids
// and generated passwords.
func NewID() string {
	return uuid.NewString()
}

// NewCompactID is a random UUID without dashes, used for token ids and
// secrets, key ids and authorization codes.
func NewCompactID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
