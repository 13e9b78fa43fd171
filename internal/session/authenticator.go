// Package session owns the credential session lifecycle: the local session
// pointer, the authenticator state machine around it, and the four live
// session handle variants restored from it.
package session

import (
	"context"
	"fmt"

	"github.com/cadence-fm/cli/internal/authflow"
	"github.com/cadence-fm/cli/internal/config"
	"github.com/cadence-fm/cli/internal/credstore"
	"github.com/cadence-fm/cli/internal/identity"
	"github.com/cadence-fm/cli/internal/transport"
)

// keyringService is the OS secret-store service name all keyring entries
// live under.
const keyringService = "cadence"

// Authenticator drives login, restore, logout and whoami. It keeps no state
// of its own between invocations: the logged-in state is entirely the
// presence and content of the session pointer under the config root.
type Authenticator struct {
	Config   *config.Config
	Resolver identity.Resolver

	// Notify receives the authorize URL during a delegated login.
	Notify func(authorizeURL string)

	// The two login exchanges, swappable in tests.
	oauthLogin    func(ctx context.Context, store credstore.Store, ident *identity.Identity) (*authflow.Credential, error)
	passwordLogin func(ctx context.Context, ident *identity.Identity, password string) (*authflow.Credential, error)
}

// NewAuthenticator creates an authenticator rooted at cfg.Root.
func NewAuthenticator(cfg *config.Config) *Authenticator {
	a := &Authenticator{
		Config:   cfg,
		Resolver: identity.NewHTTPResolver(cfg.ResolverURL, cfg.ServiceURL),
	}

	a.oauthLogin = func(ctx context.Context, store credstore.Store, ident *identity.Identity) (*authflow.Credential, error) {
		flow := &authflow.OAuthFlow{
			Auth:   cfg.Auth,
			Store:  store,
			Notify: a.Notify,
		}
		return flow.Login(ctx, ident)
	}
	a.passwordLogin = func(ctx context.Context, ident *identity.Identity, password string) (*authflow.Credential, error) {
		return authflow.PasswordLogin(ctx, a.serviceClient(ident.Service), ident, password)
	}
	return a
}

// Login establishes a new session for identifier and makes it the current
// one. An empty password selects the delegated browser flow; a non-empty
// one is exchanged directly for a session. The previous session's pointer
// is always replaced, and its now unreachable credential blob is deleted
// best-effort.
func (a *Authenticator) Login(ctx context.Context, identifier string, store Store, password string) (*Pointer, error) {
	ident, err := a.Resolver.Resolve(ctx, identifier)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %q: %w", identifier, err)
	}

	backing := a.storeFor(store)

	var cred *authflow.Credential
	var method Method
	if password != "" {
		method = MethodPassword
		cred, err = a.passwordLogin(ctx, ident, password)
	} else {
		method = MethodOAuth
		cred, err = a.oauthLogin(ctx, backing, ident)
	}
	if err != nil {
		return nil, err
	}

	blob, err := authflow.EncodeCredential(cred)
	if err != nil {
		return nil, err
	}
	key := credstore.SessionKey(cred.DID, cred.SessionID)
	if err := backing.Set(key, blob); err != nil {
		return nil, fmt.Errorf("failed to store credential: %w", err)
	}

	prev, _ := LoadPointer(a.Config.SessionFile())

	ptr := &Pointer{
		DID:       cred.DID,
		SessionID: cred.SessionID,
		Store:     store,
		Method:    method,
	}
	if err := ptr.Save(a.Config.SessionFile()); err != nil {
		return nil, err
	}

	// The old blob is unreachable once the pointer moves; collect it so
	// abandoned sessions do not pile up in the store.
	if prev != nil {
		if prevKey := credstore.SessionKey(prev.DID, prev.SessionID); prevKey != key {
			_ = a.storeFor(prev.Store).Delete(prevKey)
		}
	}

	return ptr, nil
}

// Restore rehydrates a live session from the pointer and the credential
// store it names. A missing pointer is ErrNotLoggedIn; a pointer whose
// credential cannot be loaded or decoded is a *RestoreError.
func (a *Authenticator) Restore(ctx context.Context) (Handle, error) {
	ptr, err := LoadPointer(a.Config.SessionFile())
	if err != nil {
		return nil, err
	}

	blob, err := a.storeFor(ptr.Store).Get(credstore.SessionKey(ptr.DID, ptr.SessionID))
	if err != nil {
		return nil, &RestoreError{Pointer: ptr, Err: err}
	}
	cred, err := authflow.DecodeCredential(blob)
	if err != nil {
		return nil, &RestoreError{Pointer: ptr, Err: err}
	}

	client := a.serviceClient(cred.Service)
	api := apiSession{cred: cred, client: client}

	// One constructor per (method, store) pair. Every pair is spelled out
	// so a new method or store fails loudly here instead of picking up a
	// fallback that cannot refresh itself.
	switch {
	case ptr.Method == MethodOAuth && ptr.Store == StoreKeyring:
		return &oauthKeyringSession{apiSession: api, store: a.keyringStore(), flow: a.oauthFlow()}, nil
	case ptr.Method == MethodOAuth && ptr.Store == StoreFile:
		return &oauthFileSession{apiSession: api, store: a.fileStore(), flow: a.oauthFlow()}, nil
	case ptr.Method == MethodPassword && ptr.Store == StoreKeyring:
		return &passwordKeyringSession{apiSession: api, store: a.keyringStore()}, nil
	case ptr.Method == MethodPassword && ptr.Store == StoreFile:
		return &passwordFileSession{apiSession: api, store: a.fileStore()}, nil
	default:
		return nil, fmt.Errorf("unsupported session kind %s/%s", ptr.Method, ptr.Store)
	}
}

// Logout deletes the current session's credential and then the pointer. A
// blob already gone from the store is fine; any other store failure leaves
// the pointer in place so logout can be retried.
func (a *Authenticator) Logout(ctx context.Context) (*Pointer, error) {
	ptr, err := LoadPointer(a.Config.SessionFile())
	if err != nil {
		return nil, err
	}

	if err := a.storeFor(ptr.Store).Delete(credstore.SessionKey(ptr.DID, ptr.SessionID)); err != nil {
		return nil, fmt.Errorf("failed to delete credential: %w", err)
	}
	if err := DeletePointer(a.Config.SessionFile()); err != nil {
		return nil, err
	}
	return ptr, nil
}

// WhoAmI reports the current pointer without touching the credential store
// or the network. It says who is logged in locally, not whether the
// session is still honored remotely; that takes a Restore.
func (a *Authenticator) WhoAmI() (*Pointer, error) {
	return LoadPointer(a.Config.SessionFile())
}

func (a *Authenticator) storeFor(store Store) credstore.Store {
	if store == StoreFile {
		return a.fileStore()
	}
	return a.keyringStore()
}

func (a *Authenticator) keyringStore() *credstore.Keyring {
	return credstore.NewKeyring(keyringService)
}

func (a *Authenticator) fileStore() *credstore.File {
	return credstore.NewFile(a.Config.CredentialsFile())
}

func (a *Authenticator) oauthFlow() *authflow.OAuthFlow {
	return &authflow.OAuthFlow{Auth: a.Config.Auth, Notify: a.Notify}
}

func (a *Authenticator) serviceClient(service string) *transport.Client {
	if service == "" {
		service = a.Config.ServiceURL
	}
	return transport.NewClient(service)
}
