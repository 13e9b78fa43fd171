// Package credstore persists opaque credential blobs under composite string
// keys. The blobs' contents belong to the auth layer; this package only
// moves bytes in and out of a backend.
package credstore

import (
	"errors"
	"fmt"
)

// Store is the capability set shared by every credential backend.
type Store interface {
	// Get returns the blob stored under key, or ErrNotFound.
	Get(key string) ([]byte, error)

	// Set stores blob under key, overwriting any previous value.
	Set(key string, blob []byte) error

	// Delete removes the blob under key. Deleting a missing key succeeds;
	// logout relies on this to stay repeatable.
	Delete(key string) error
}

var (
	// ErrNotFound reports a missing key.
	ErrNotFound = errors.New("credential not found")

	// ErrUnavailable reports an inaccessible backend (for example a
	// platform without a secret service).
	ErrUnavailable = errors.New("credential store unavailable")
)

// BackendError wraps an opaque backend failure with enough context to tell
// the user which store and operation misbehaved.
type BackendError struct {
	Backend string
	Op      string
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s store: %s failed: %v", e.Backend, e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// SessionKey is the composite key for a persisted session credential.
func SessionKey(did, sessionID string) string {
	return did + "_" + sessionID
}

// AuthRequestKey is the key for an in-flight delegated-authorization
// attempt, addressed by its state token.
func AuthRequestKey(state string) string {
	return "authreq_" + state
}
