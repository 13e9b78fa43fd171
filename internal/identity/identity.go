package identity

import (
	"fmt"
	"strings"
)

// Identity is a resolved account: the stable canonical identifier, the
// human-friendly alias it was resolved from (when known), and the base URL
// of the record service hosting the account's data.
type Identity struct {
	DID     string `json:"did"`
	Handle  string `json:"handle,omitempty"`
	Service string `json:"service"`
}

// IsDID reports whether the identifier is already in canonical form.
func IsDID(identifier string) bool {
	return strings.HasPrefix(identifier, "did:")
}

// ValidateIdentifier rejects inputs that are neither a DID nor a plausible
// handle. Handles are dotted names, like a hostname.
func ValidateIdentifier(identifier string) error {
	if identifier == "" {
		return fmt.Errorf("identifier is empty")
	}
	if IsDID(identifier) {
		if len(strings.SplitN(identifier, ":", 3)) < 3 {
			return fmt.Errorf("malformed DID %q", identifier)
		}
		return nil
	}
	if strings.ContainsAny(identifier, " \t") || !strings.Contains(identifier, ".") {
		return fmt.Errorf("invalid handle %q: expected a dotted handle like user.cadence.fm", identifier)
	}
	return nil
}
