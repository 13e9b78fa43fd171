package authflow

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/cadence-fm/cli/internal/config"
	"github.com/cadence-fm/cli/internal/credstore"
	"github.com/cadence-fm/cli/internal/identity"
)

// OAuthFlow performs the delegated browser authorization. It hands the user
// a PKCE authorize URL, waits for the grant on a loopback listener, then
// exchanges the code for tokens.
type OAuthFlow struct {
	Auth  config.AuthConfig
	Store credstore.Store
	// Notify receives the authorize URL the user must open.
	Notify func(authorizeURL string)
}

// authRequest is the in-flight authorization state persisted under
// "authreq_<state>" for the lifetime of the browser round trip.
type authRequest struct {
	State       string    `json:"state"`
	Verifier    string    `json:"verifier"`
	RedirectURI string    `json:"redirect_uri"`
	CreatedAt   time.Time `json:"created_at"`
}

type callbackResult struct {
	code string
	err  error
}

const callbackPage = `<!DOCTYPE html>
<html>
  <head><title>cadence</title></head>
  <body>
    <p>Authorization complete. You can close this tab and return to the terminal.</p>
  </body>
</html>
`

// Login runs the delegated flow for the resolved identity and returns a
// fresh credential carrying a new session id.
func (f *OAuthFlow) Login(ctx context.Context, ident *identity.Identity) (*Credential, error) {
	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", f.Auth.CallbackPort))
	if err != nil {
		return nil, fmt.Errorf("failed to start callback listener: %w", err)
	}
	defer listener.Close()

	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()
	redirectURI := fmt.Sprintf("http://%s/callback", listener.Addr().String())
	conf := f.oauthConfig(redirectURI)

	reqBlob, err := json.Marshal(authRequest{
		State:       state,
		Verifier:    verifier,
		RedirectURI: redirectURI,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode authorization request: %w", err)
	}
	reqKey := credstore.AuthRequestKey(state)
	if err := f.Store.Set(reqKey, reqBlob); err != nil {
		return nil, fmt.Errorf("failed to persist authorization request: %w", err)
	}
	defer f.Store.Delete(reqKey)

	results := make(chan callbackResult, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		res := callbackResult{code: r.URL.Query().Get("code")}
		switch {
		case r.URL.Query().Get("error") != "":
			res.err = fmt.Errorf("authorization denied: %s", r.URL.Query().Get("error"))
		case r.URL.Query().Get("state") != state:
			res.err = fmt.Errorf("authorization response state mismatch")
		case res.code == "":
			res.err = fmt.Errorf("authorization response missing code")
		}

		if res.err != nil {
			http.Error(w, res.err.Error(), http.StatusBadRequest)
		} else {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, callbackPage)
		}

		select {
		case results <- res:
		default:
		}
	})

	server := &http.Server{Handler: mux}
	go server.Serve(listener)
	defer server.Close()

	authorizeURL := conf.AuthCodeURL(state,
		oauth2.S256ChallengeOption(verifier),
		oauth2.SetAuthURLParam("login_hint", loginHint(ident)),
	)
	if f.Notify != nil {
		f.Notify(authorizeURL)
	}

	var res callbackResult
	select {
	case res = <-results:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.err != nil {
		return nil, res.err
	}

	token, err := conf.Exchange(ctx, res.code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	return &Credential{
		DID:          ident.DID,
		SessionID:    uuid.NewString(),
		Method:       MethodOAuth,
		Service:      ident.Service,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		Expiry:       token.Expiry,
	}, nil
}

// Refresh exchanges the credential's refresh token for a new token pair.
// The returned credential keeps the old refresh token if the server does
// not rotate it.
func (f *OAuthFlow) Refresh(ctx context.Context, cred *Credential) (*Credential, error) {
	if cred.RefreshToken == "" {
		return nil, fmt.Errorf("credential has no refresh token")
	}

	conf := f.oauthConfig("")
	stale := &oauth2.Token{RefreshToken: cred.RefreshToken}
	fresh, err := conf.TokenSource(ctx, stale).Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh access token: %w", err)
	}

	next := *cred
	next.AccessToken = fresh.AccessToken
	next.TokenType = fresh.TokenType
	next.Expiry = fresh.Expiry
	if fresh.RefreshToken != "" {
		next.RefreshToken = fresh.RefreshToken
	}
	return &next, nil
}

func (f *OAuthFlow) oauthConfig(redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:    f.Auth.ClientID,
		RedirectURL: redirectURI,
		Scopes:      f.Auth.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   f.Auth.AuthorizeURL,
			TokenURL:  f.Auth.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

func loginHint(ident *identity.Identity) string {
	if ident.Handle != "" {
		return ident.Handle
	}
	return ident.DID
}
