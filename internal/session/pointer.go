package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cadence-fm/cli/internal/authflow"
)

// Method is how a session was established.
type Method string

const (
	MethodOAuth    Method = authflow.MethodOAuth
	MethodPassword Method = authflow.MethodPassword
)

// ParseMethod validates an auth method name.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case MethodOAuth, MethodPassword:
		return Method(s), nil
	}
	return "", fmt.Errorf("unknown auth method %q (expected oauth or password)", s)
}

// Store is where a session's credential blob lives.
type Store string

const (
	StoreKeyring Store = "keyring"
	StoreFile    Store = "file"
)

// ParseStore validates a credential store name.
func ParseStore(s string) (Store, error) {
	switch Store(s) {
	case StoreKeyring, StoreFile:
		return Store(s), nil
	}
	return "", fmt.Errorf("unknown credential store %q (expected keyring or file)", s)
}

// Pointer is the single local record of who is logged in and where the
// session's credential lives. Its presence is the logged-in state.
type Pointer struct {
	DID       string `json:"did"`
	SessionID string `json:"session_id"`
	Store     Store  `json:"store_method"`
	Method    Method `json:"auth_method"`
}

// LoadPointer reads the session pointer. A missing file means nobody is
// logged in.
func LoadPointer(path string) (*Pointer, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ErrNotLoggedIn
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var ptr Pointer
	if err := json.Unmarshal(data, &ptr); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}
	return &ptr, nil
}

// Save writes the pointer, replacing any previous session.
func (p *Pointer) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session file: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// DeletePointer removes the session pointer. A missing file is not an error.
func DeletePointer(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}
