package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrActorMissing indicates a mutating request without actor identity.
	ErrActorMissing = errors.New("actor identity missing")
)

// UserSafeMessage returns a message suitable for API consumers. Persistence
// errors are collapsed to a generic message; domain errors pass through.
func UserSafeMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrNotFound) {
		return "The requested record was not found"
	}
	if errors.Is(err, ErrActorMissing) {
		return "Missing actor identity"
	}
	return "The operation could not be completed"
}
