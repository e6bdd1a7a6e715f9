package session

import "context"

// Store provides session persistence: the Session Recorder's sole owner
// of each session's on-disk record.
type Store interface {
	// Save persists a session, overwriting any prior record with the
	// same ID. Implementations must write atomically.
	Save(ctx context.Context, sess *Session) error

	// Get retrieves a session by ID. Returns ErrSessionNotFound if no
	// such session has been saved.
	Get(ctx context.Context, id string) (*Session, error)

	// List returns the IDs of all stored sessions.
	List(ctx context.Context) ([]string, error)
}
