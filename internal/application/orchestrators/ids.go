package orchestrators

import (
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// generateID calls gen when set and falls back to a random UUID.
func generateID(gen func() string) string {
	if gen != nil {
		return gen()
	}
	return uuid.NewString()
}

// generateRowID calls gen when set and falls back to a ULID so rows sort by creation time.
func generateRowID(gen func() string) string {
	if gen != nil {
		return gen()
	}
	return ulid.Make().String()
}
