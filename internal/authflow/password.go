package authflow

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/cadence-fm/cli/internal/identity"
	"github.com/cadence-fm/cli/internal/transport"
)

// PasswordLogin exchanges an identifier and app password for a credential
// against the identity's own service.
func PasswordLogin(ctx context.Context, client *transport.Client, ident *identity.Identity, password string) (*Credential, error) {
	target := ident.Handle
	if target == "" {
		target = ident.DID
	}

	session, err := client.CreateSession(ctx, target, password)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	did := session.DID
	if did == "" {
		did = ident.DID
	}
	sessionID := session.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	return &Credential{
		DID:          did,
		SessionID:    sessionID,
		Method:       MethodPassword,
		Service:      ident.Service,
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		TokenType:    "Bearer",
	}, nil
}
