package session

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/cadence-fm/cli/internal/authflow"
	"github.com/cadence-fm/cli/internal/config"
	"github.com/cadence-fm/cli/internal/credstore"
	"github.com/cadence-fm/cli/internal/identity"
)

type stubResolver struct{}

func (stubResolver) Resolve(ctx context.Context, identifier string) (*identity.Identity, error) {
	if identity.IsDID(identifier) {
		return &identity.Identity{DID: identifier, Service: "https://pds.example.com"}, nil
	}
	return &identity.Identity{
		DID:     "did:cdn:" + identifier,
		Handle:  identifier,
		Service: "https://pds.example.com",
	}, nil
}

// newTestAuthenticator wires an authenticator to an isolated config root
// and stubs both exchanges so no network is involved.
func newTestAuthenticator(t *testing.T) *Authenticator {
	t.Helper()
	keyring.MockInit()

	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	a := NewAuthenticator(cfg)
	a.Resolver = stubResolver{}
	a.passwordLogin = func(ctx context.Context, ident *identity.Identity, password string) (*authflow.Credential, error) {
		return &authflow.Credential{
			DID:          ident.DID,
			SessionID:    "sess-" + password,
			Method:       authflow.MethodPassword,
			Service:      ident.Service,
			AccessToken:  "at-" + password,
			RefreshToken: "rt-" + password,
		}, nil
	}
	a.oauthLogin = func(ctx context.Context, store credstore.Store, ident *identity.Identity) (*authflow.Credential, error) {
		return &authflow.Credential{
			DID:          ident.DID,
			SessionID:    "oauth-sess",
			Method:       authflow.MethodOAuth,
			Service:      ident.Service,
			AccessToken:  "at-oauth",
			RefreshToken: "rt-oauth",
		}, nil
	}
	return a
}

func TestLoginPasswordFile(t *testing.T) {
	a := newTestAuthenticator(t)

	ptr, err := a.Login(context.Background(), "alice.example.com", StoreFile, "hunter2")
	require.NoError(t, err)

	assert.Equal(t, "did:cdn:alice.example.com", ptr.DID)
	assert.Equal(t, "sess-hunter2", ptr.SessionID)
	assert.Equal(t, StoreFile, ptr.Store)
	assert.Equal(t, MethodPassword, ptr.Method)

	// The credential blob landed in the file store under the composite key.
	blob, err := credstore.NewFile(a.Config.CredentialsFile()).Get(credstore.SessionKey(ptr.DID, ptr.SessionID))
	require.NoError(t, err)
	cred, err := authflow.DecodeCredential(blob)
	require.NoError(t, err)
	assert.Equal(t, "at-hunter2", cred.AccessToken)
}

func TestLoginOAuthSelectedWhenPasswordEmpty(t *testing.T) {
	a := newTestAuthenticator(t)

	ptr, err := a.Login(context.Background(), "alice.example.com", StoreFile, "")
	require.NoError(t, err)
	assert.Equal(t, MethodOAuth, ptr.Method)
	assert.Equal(t, "oauth-sess", ptr.SessionID)
}

func TestLoginReplacesPointer(t *testing.T) {
	a := newTestAuthenticator(t)
	ctx := context.Background()

	_, err := a.Login(ctx, "alice.example.com", StoreFile, "pw-a")
	require.NoError(t, err)
	_, err = a.Login(ctx, "bob.example.com", StoreFile, "pw-b")
	require.NoError(t, err)

	ptr, err := a.WhoAmI()
	require.NoError(t, err)
	assert.Equal(t, "did:cdn:bob.example.com", ptr.DID)

	// Alice's abandoned blob was collected, Bob's is live.
	store := credstore.NewFile(a.Config.CredentialsFile())
	_, err = store.Get(credstore.SessionKey("did:cdn:alice.example.com", "sess-pw-a"))
	assert.ErrorIs(t, err, credstore.ErrNotFound)
	_, err = store.Get(credstore.SessionKey("did:cdn:bob.example.com", "sess-pw-b"))
	assert.NoError(t, err)
}

func TestRestoreWithoutLogin(t *testing.T) {
	a := newTestAuthenticator(t)

	_, err := a.Restore(context.Background())
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestRestoreRoundTrip(t *testing.T) {
	a := newTestAuthenticator(t)
	ctx := context.Background()

	ptr, err := a.Login(ctx, "alice.example.com", StoreFile, "hunter2")
	require.NoError(t, err)

	handle, err := a.Restore(ctx)
	require.NoError(t, err)

	info := handle.Info()
	assert.Equal(t, ptr.DID, info.DID)
	assert.Equal(t, ptr.SessionID, info.SessionID)
	assert.Equal(t, "https://pds.example.com", handle.Endpoint())
	assert.IsType(t, &passwordFileSession{}, handle)
}

func TestRestoreVariantSelection(t *testing.T) {
	tests := []struct {
		name   string
		method Method
		store  Store
		want   Handle
	}{
		{"oauth keyring", MethodOAuth, StoreKeyring, &oauthKeyringSession{}},
		{"oauth file", MethodOAuth, StoreFile, &oauthFileSession{}},
		{"password keyring", MethodPassword, StoreKeyring, &passwordKeyringSession{}},
		{"password file", MethodPassword, StoreFile, &passwordFileSession{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAuthenticator(t)

			cred := &authflow.Credential{
				DID:         "did:cdn:alice1",
				SessionID:   "sess-1",
				Method:      string(tt.method),
				Service:     "https://pds.example.com",
				AccessToken: "at-1",
			}
			blob, err := authflow.EncodeCredential(cred)
			require.NoError(t, err)
			require.NoError(t, a.storeFor(tt.store).Set(credstore.SessionKey(cred.DID, cred.SessionID), blob))

			ptr := &Pointer{DID: cred.DID, SessionID: cred.SessionID, Store: tt.store, Method: tt.method}
			require.NoError(t, ptr.Save(a.Config.SessionFile()))

			handle, err := a.Restore(context.Background())
			require.NoError(t, err)
			assert.IsType(t, tt.want, handle)
			assert.Equal(t, "did:cdn:alice1", handle.Info().DID)
		})
	}
}

func TestRestoreMissingBlobIsRestoreError(t *testing.T) {
	a := newTestAuthenticator(t)

	// Pointer present, but nothing in the store it names.
	ptr := &Pointer{DID: "did:cdn:alice1", SessionID: "sess-1", Store: StoreFile, Method: MethodPassword}
	require.NoError(t, ptr.Save(a.Config.SessionFile()))

	_, err := a.Restore(context.Background())

	var restoreErr *RestoreError
	require.ErrorAs(t, err, &restoreErr)
	assert.NotErrorIs(t, err, ErrNotLoggedIn)
	assert.Equal(t, "did:cdn:alice1", restoreErr.Pointer.DID)
}

func TestRestoreMalformedBlobIsRestoreError(t *testing.T) {
	a := newTestAuthenticator(t)

	require.NoError(t, a.storeFor(StoreFile).Set(credstore.SessionKey("did:cdn:alice1", "sess-1"), []byte("not json")))
	ptr := &Pointer{DID: "did:cdn:alice1", SessionID: "sess-1", Store: StoreFile, Method: MethodPassword}
	require.NoError(t, ptr.Save(a.Config.SessionFile()))

	_, err := a.Restore(context.Background())

	var restoreErr *RestoreError
	assert.ErrorAs(t, err, &restoreErr)
}

func TestLogoutIsIdempotent(t *testing.T) {
	a := newTestAuthenticator(t)
	ctx := context.Background()

	_, err := a.Login(ctx, "alice.example.com", StoreFile, "hunter2")
	require.NoError(t, err)

	ptr, err := a.Logout(ctx)
	require.NoError(t, err)
	assert.Equal(t, "did:cdn:alice.example.com", ptr.DID)

	// Pointer and blob are both gone.
	_, err = a.WhoAmI()
	assert.ErrorIs(t, err, ErrNotLoggedIn)
	_, err = credstore.NewFile(a.Config.CredentialsFile()).Get(credstore.SessionKey(ptr.DID, ptr.SessionID))
	assert.ErrorIs(t, err, credstore.ErrNotFound)

	_, err = a.Logout(ctx)
	assert.ErrorIs(t, err, ErrNotLoggedIn, "second logout reports not logged in, not a store error")
}

func TestLogoutToleratesMissingBlob(t *testing.T) {
	a := newTestAuthenticator(t)
	ctx := context.Background()

	ptr, err := a.Login(ctx, "alice.example.com", StoreFile, "hunter2")
	require.NoError(t, err)

	// Someone removed the blob behind our back; logout still succeeds.
	require.NoError(t, credstore.NewFile(a.Config.CredentialsFile()).Delete(credstore.SessionKey(ptr.DID, ptr.SessionID)))

	_, err = a.Logout(ctx)
	assert.NoError(t, err)
}

func TestWhoAmIIsPureRead(t *testing.T) {
	a := newTestAuthenticator(t)
	ctx := context.Background()

	ptr, err := a.Login(ctx, "alice.example.com", StoreFile, "hunter2")
	require.NoError(t, err)

	// Corrupt the credential store entirely; whoami must not notice.
	require.NoError(t, os.WriteFile(a.Config.CredentialsFile(), []byte("garbage"), 0600))

	got, err := a.WhoAmI()
	require.NoError(t, err)
	assert.Equal(t, ptr.DID, got.DID)
	assert.Equal(t, ptr.Method, got.Method)
}
