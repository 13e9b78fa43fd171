package session

import (
	"context"
	"fmt"

	"github.com/cadence-fm/cli/internal/authflow"
	"github.com/cadence-fm/cli/internal/credstore"
	"github.com/cadence-fm/cli/internal/transport"
)

// Info identifies a live session.
type Info struct {
	DID       string
	SessionID string
}

// Handle is the capability set every restored session provides, regardless
// of how it was established or where its credential lives. Exactly four
// concrete types implement it, one per (auth method, store) pair; Restore
// picks the variant from the persisted pointer.
type Handle interface {
	// Info reports the session's identity and session id.
	Info() Info

	// Endpoint reports the record service base URL the session talks to.
	Endpoint() string

	// CreateRecord writes a new record into the session repository's
	// collection. An expired access token is refreshed and retried once.
	CreateRecord(ctx context.Context, collection string, record interface{}) (*transport.RecordRef, error)

	// PutRecord creates or replaces the record at (collection, rkey).
	PutRecord(ctx context.Context, collection, rkey string, record interface{}) error

	// Refresh forces a token refresh and persists the renewed credential.
	// Failure is a *RefreshError: the session is dead and the user has to
	// log in again, so callers must not treat it as a transient fault.
	Refresh(ctx context.Context) error
}

// apiSession is the request machinery shared by the four handle variants.
// What each variant adds on top is its own Refresh: which exchange renews
// the tokens and which concrete store the renewed credential is written
// back through.
type apiSession struct {
	cred   *authflow.Credential
	client *transport.Client
}

func (s *apiSession) Info() Info {
	return Info{DID: s.cred.DID, SessionID: s.cred.SessionID}
}

func (s *apiSession) Endpoint() string {
	return s.client.BaseURL
}

func (s *apiSession) createRecord(ctx context.Context, refresh func(context.Context) error, collection string, record interface{}) (*transport.RecordRef, error) {
	ref, err := s.client.CreateRecord(ctx, s.cred.AccessToken, s.cred.DID, collection, record)
	if transport.IsExpiredToken(err) {
		if rerr := refresh(ctx); rerr != nil {
			return nil, rerr
		}
		return s.client.CreateRecord(ctx, s.cred.AccessToken, s.cred.DID, collection, record)
	}
	return ref, err
}

func (s *apiSession) putRecord(ctx context.Context, refresh func(context.Context) error, collection, rkey string, record interface{}) error {
	_, err := s.client.PutRecord(ctx, s.cred.AccessToken, s.cred.DID, collection, rkey, record)
	if transport.IsExpiredToken(err) {
		if rerr := refresh(ctx); rerr != nil {
			return rerr
		}
		_, err = s.client.PutRecord(ctx, s.cred.AccessToken, s.cred.DID, collection, rkey, record)
	}
	return err
}

// persist writes a renewed credential back to the store the session was
// restored from, under the same composite key.
func (s *apiSession) persist(store credstore.Store, cred *authflow.Credential) error {
	blob, err := authflow.EncodeCredential(cred)
	if err != nil {
		return err
	}
	if err := store.Set(credstore.SessionKey(cred.DID, cred.SessionID), blob); err != nil {
		return fmt.Errorf("failed to persist refreshed credential: %w", err)
	}
	s.cred = cred
	return nil
}

// oauthKeyringSession is a delegated-authorization session whose credential
// lives in the system keyring.
type oauthKeyringSession struct {
	apiSession
	store *credstore.Keyring
	flow  *authflow.OAuthFlow
}

func (s *oauthKeyringSession) CreateRecord(ctx context.Context, collection string, record interface{}) (*transport.RecordRef, error) {
	return s.createRecord(ctx, s.Refresh, collection, record)
}

func (s *oauthKeyringSession) PutRecord(ctx context.Context, collection, rkey string, record interface{}) error {
	return s.putRecord(ctx, s.Refresh, collection, rkey, record)
}

func (s *oauthKeyringSession) Refresh(ctx context.Context) error {
	next, err := s.flow.Refresh(ctx, s.cred)
	if err != nil {
		return &RefreshError{Err: err}
	}
	return s.persist(s.store, next)
}

// oauthFileSession is a delegated-authorization session whose credential
// lives in the file-backed store.
type oauthFileSession struct {
	apiSession
	store *credstore.File
	flow  *authflow.OAuthFlow
}

func (s *oauthFileSession) CreateRecord(ctx context.Context, collection string, record interface{}) (*transport.RecordRef, error) {
	return s.createRecord(ctx, s.Refresh, collection, record)
}

func (s *oauthFileSession) PutRecord(ctx context.Context, collection, rkey string, record interface{}) error {
	return s.putRecord(ctx, s.Refresh, collection, rkey, record)
}

func (s *oauthFileSession) Refresh(ctx context.Context) error {
	next, err := s.flow.Refresh(ctx, s.cred)
	if err != nil {
		return &RefreshError{Err: err}
	}
	return s.persist(s.store, next)
}

// passwordKeyringSession is an app-password session whose credential lives
// in the system keyring.
type passwordKeyringSession struct {
	apiSession
	store *credstore.Keyring
}

func (s *passwordKeyringSession) CreateRecord(ctx context.Context, collection string, record interface{}) (*transport.RecordRef, error) {
	return s.createRecord(ctx, s.Refresh, collection, record)
}

func (s *passwordKeyringSession) PutRecord(ctx context.Context, collection, rkey string, record interface{}) error {
	return s.putRecord(ctx, s.Refresh, collection, rkey, record)
}

func (s *passwordKeyringSession) Refresh(ctx context.Context) error {
	next, err := refreshPasswordSession(ctx, s.client, s.cred)
	if err != nil {
		return err
	}
	return s.persist(s.store, next)
}

// passwordFileSession is an app-password session whose credential lives in
// the file-backed store.
type passwordFileSession struct {
	apiSession
	store *credstore.File
}

func (s *passwordFileSession) CreateRecord(ctx context.Context, collection string, record interface{}) (*transport.RecordRef, error) {
	return s.createRecord(ctx, s.Refresh, collection, record)
}

func (s *passwordFileSession) PutRecord(ctx context.Context, collection, rkey string, record interface{}) error {
	return s.putRecord(ctx, s.Refresh, collection, rkey, record)
}

func (s *passwordFileSession) Refresh(ctx context.Context) error {
	next, err := refreshPasswordSession(ctx, s.client, s.cred)
	if err != nil {
		return err
	}
	return s.persist(s.store, next)
}

// refreshPasswordSession exchanges the refresh token for a new token pair
// against the record service itself.
func refreshPasswordSession(ctx context.Context, client *transport.Client, cred *authflow.Credential) (*authflow.Credential, error) {
	if cred.RefreshToken == "" {
		return nil, &RefreshError{Err: fmt.Errorf("credential has no refresh token")}
	}

	fresh, err := client.RefreshSession(ctx, cred.RefreshToken)
	if err != nil {
		return nil, &RefreshError{Err: err}
	}

	next := *cred
	next.AccessToken = fresh.AccessToken
	if fresh.RefreshToken != "" {
		next.RefreshToken = fresh.RefreshToken
	}
	return &next, nil
}
