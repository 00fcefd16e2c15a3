package store

import (
	"fmt"

	"github.com/google/uuid"
)

// newID generates a time-ordered UUIDv7 so items sort by creation even when
// timestamps collide.
func newID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuidv7: %w", err)
	}

	return id.String(), nil
}

// ValidID reports whether s is a UUIDv7 as produced by Save.
func ValidID(s string) bool {
	id, err := uuid.Parse(s)

	return err == nil && id.Version() == 7
}
