package session

import (
	"errors"
	"fmt"
)

// ErrNotLoggedIn means there is no local session pointer.
var ErrNotLoggedIn = errors.New("not logged in")

// RestoreError means a session pointer exists but its credential could not
// be loaded from the store the pointer names.
type RestoreError struct {
	Pointer *Pointer
	Err     error
}

func (e *RestoreError) Error() string {
	return fmt.Sprintf("failed to restore session for %s: %v", e.Pointer.DID, e.Err)
}

func (e *RestoreError) Unwrap() error { return e.Err }

// RefreshError means the session's tokens could not be renewed and the user
// has to log in again.
type RefreshError struct {
	Err error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("failed to refresh session: %v", e.Err)
}

func (e *RefreshError) Unwrap() error { return e.Err }
