// Package ids generates identifiers used across the service.
package ids

import (
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// NewUUIDv7 generates a time-ordered UUID v7.
func NewUUIDv7() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// NewULID generates a lexicographically sortable ULID string.
// Submission IDs use ULIDs so pending entries sort by submit time.
func NewULID() string {
	return ulid.Make().String()
}
