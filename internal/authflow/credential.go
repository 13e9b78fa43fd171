// Package authflow performs the two login exchanges (delegated browser
// authorization and direct app-password exchange) and owns the credential
// blob format persisted in the credential stores.
package authflow

import (
	"encoding/json"
	"fmt"
	"time"
)

// Auth method names recorded in credentials and the session pointer.
const (
	MethodOAuth    = "oauth"
	MethodPassword = "password"
)

// Credential is the secret material for one session. It is serialized as an
// opaque blob; only this package reads or writes its contents.
type Credential struct {
	DID          string    `json:"did"`
	SessionID    string    `json:"session_id"`
	Method       string    `json:"auth_method"`
	Service      string    `json:"service"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	Expiry       time.Time `json:"expiry"`
}

// EncodeCredential serializes a credential for storage.
func EncodeCredential(cred *Credential) ([]byte, error) {
	blob, err := json.Marshal(cred)
	if err != nil {
		return nil, fmt.Errorf("failed to encode credential: %w", err)
	}
	return blob, nil
}

// DecodeCredential parses a stored credential blob.
func DecodeCredential(blob []byte) (*Credential, error) {
	var cred Credential
	if err := json.Unmarshal(blob, &cred); err != nil {
		return nil, fmt.Errorf("failed to decode credential: %w", err)
	}
	if cred.DID == "" || cred.AccessToken == "" {
		return nil, fmt.Errorf("credential is missing required fields")
	}
	return &cred, nil
}
