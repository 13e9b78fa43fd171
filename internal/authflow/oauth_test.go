package authflow

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cadence-fm/cli/internal/config"
	"github.com/cadence-fm/cli/internal/credstore"
	"github.com/cadence-fm/cli/internal/identity"
)

func testIdentity() *identity.Identity {
	return &identity.Identity{
		DID:     "did:cdn:alice1",
		Handle:  "alice.example.com",
		Service: "https://pds.example.com",
	}
}

func TestOAuthLogin(t *testing.T) {
	var tokenForm url.Values
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		tokenForm = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"at-1","token_type":"Bearer","refresh_token":"rt-1","expires_in":3600}`)
	}))
	defer tokenServer.Close()

	store := credstore.NewFile(filepath.Join(t.TempDir(), "credentials.json"))
	flow := &OAuthFlow{
		Auth: config.AuthConfig{
			ClientID:     "cadence-cli",
			AuthorizeURL: "https://auth.example.com/oauth/authorize",
			TokenURL:     tokenServer.URL + "/oauth/token",
			Scopes:       []string{"feed.write", "actor.status"},
		},
		Store: store,
	}

	var gotState string
	flow.Notify = func(authorizeURL string) {
		u, err := url.Parse(authorizeURL)
		require.NoError(t, err)
		q := u.Query()

		assert.Equal(t, "cadence-cli", q.Get("client_id"))
		assert.Equal(t, "S256", q.Get("code_challenge_method"))
		assert.NotEmpty(t, q.Get("code_challenge"))
		assert.Equal(t, "alice.example.com", q.Get("login_hint"))
		gotState = q.Get("state")
		require.NotEmpty(t, gotState)

		_, err = store.Get(credstore.AuthRequestKey(gotState))
		assert.NoError(t, err, "in-flight authorization request should be persisted")

		resp, err := http.Get(q.Get("redirect_uri") + "?state=" + url.QueryEscape(gotState) + "&code=grant-code")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}

	cred, err := flow.Login(context.Background(), testIdentity())
	require.NoError(t, err)

	assert.Equal(t, "did:cdn:alice1", cred.DID)
	assert.Equal(t, MethodOAuth, cred.Method)
	assert.NotEmpty(t, cred.SessionID)
	assert.Equal(t, "https://pds.example.com", cred.Service)
	assert.Equal(t, "at-1", cred.AccessToken)
	assert.Equal(t, "rt-1", cred.RefreshToken)
	assert.True(t, cred.Expiry.After(time.Now()))

	assert.Equal(t, "authorization_code", tokenForm.Get("grant_type"))
	assert.Equal(t, "grant-code", tokenForm.Get("code"))
	assert.Equal(t, "cadence-cli", tokenForm.Get("client_id"))
	assert.NotEmpty(t, tokenForm.Get("code_verifier"))

	_, err = store.Get(credstore.AuthRequestKey(gotState))
	assert.ErrorIs(t, err, credstore.ErrNotFound, "in-flight authorization request should be cleaned up")
}

func TestOAuthLoginDenied(t *testing.T) {
	store := credstore.NewFile(filepath.Join(t.TempDir(), "credentials.json"))
	flow := &OAuthFlow{
		Auth: config.AuthConfig{
			ClientID:     "cadence-cli",
			AuthorizeURL: "https://auth.example.com/oauth/authorize",
			TokenURL:     "https://auth.example.com/oauth/token",
		},
		Store: store,
	}

	var gotState string
	flow.Notify = func(authorizeURL string) {
		u, err := url.Parse(authorizeURL)
		require.NoError(t, err)
		q := u.Query()
		gotState = q.Get("state")

		resp, err := http.Get(q.Get("redirect_uri") + "?state=" + url.QueryEscape(gotState) + "&error=access_denied")
		require.NoError(t, err)
		resp.Body.Close()
	}

	_, err := flow.Login(context.Background(), testIdentity())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "authorization denied")

	_, err = store.Get(credstore.AuthRequestKey(gotState))
	assert.ErrorIs(t, err, credstore.ErrNotFound)
}

func TestOAuthLoginCanceled(t *testing.T) {
	store := credstore.NewFile(filepath.Join(t.TempDir(), "credentials.json"))
	flow := &OAuthFlow{
		Auth: config.AuthConfig{
			ClientID:     "cadence-cli",
			AuthorizeURL: "https://auth.example.com/oauth/authorize",
			TokenURL:     "https://auth.example.com/oauth/token",
		},
		Store: store,
	}

	ctx, cancel := context.WithCancel(context.Background())
	flow.Notify = func(string) { cancel() }

	_, err := flow.Login(ctx, testIdentity())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOAuthRefresh(t *testing.T) {
	var tokenForm url.Values
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		tokenForm = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"at-2","token_type":"Bearer","expires_in":3600}`)
	}))
	defer tokenServer.Close()

	flow := &OAuthFlow{
		Auth: config.AuthConfig{
			ClientID: "cadence-cli",
			TokenURL: tokenServer.URL + "/oauth/token",
		},
	}

	cred := &Credential{
		DID:          "did:cdn:alice1",
		SessionID:    "sess-1",
		Method:       MethodOAuth,
		Service:      "https://pds.example.com",
		AccessToken:  "at-1",
		RefreshToken: "rt-0",
	}

	next, err := flow.Refresh(context.Background(), cred)
	require.NoError(t, err)

	assert.Equal(t, "refresh_token", tokenForm.Get("grant_type"))
	assert.Equal(t, "rt-0", tokenForm.Get("refresh_token"))
	assert.Equal(t, "at-2", next.AccessToken)
	assert.Equal(t, "rt-0", next.RefreshToken, "refresh token kept when the server does not rotate it")
	assert.Equal(t, "sess-1", next.SessionID)
	assert.Equal(t, "at-1", cred.AccessToken, "input credential is not mutated")
}

func TestOAuthRefreshWithoutRefreshToken(t *testing.T) {
	flow := &OAuthFlow{}
	_, err := flow.Refresh(context.Background(), &Credential{AccessToken: "at"})
	assert.Error(t, err)
}
