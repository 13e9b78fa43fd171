// Package transport implements the wire-level client for the Cadence XRPC
// API: session creation and refresh, record CRUD, and typed API errors.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	createSessionPath  = "/xrpc/server.createSession"
	refreshSessionPath = "/xrpc/server.refreshSession"
	createRecordPath   = "/xrpc/repo.createRecord"
	putRecordPath      = "/xrpc/repo.putRecord"
	getRecordPath      = "/xrpc/repo.getRecord"
)

// Error codes the client gives special treatment.
const (
	CodeExpiredToken   = "ExpiredToken"
	CodeRecordNotFound = "RecordNotFound"
)

// APIError is a non-2xx response decoded from the service's error body.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"error"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	switch {
	case e.Code != "" && e.Message != "":
		return fmt.Sprintf("API error (HTTP %d): %s: %s", e.StatusCode, e.Code, e.Message)
	case e.Code != "":
		return fmt.Sprintf("API error (HTTP %d): %s", e.StatusCode, e.Code)
	case e.Message != "":
		return fmt.Sprintf("API error (HTTP %d): %s", e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("API error (HTTP %d)", e.StatusCode)
	}
}

// IsExpiredToken reports whether err is the service telling us the access
// token has expired and a refresh should be attempted.
func IsExpiredToken(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == CodeExpiredToken || apiErr.StatusCode == http.StatusUnauthorized
}

// IsRecordNotFound reports whether err means the requested record does not
// exist in the repository.
func IsRecordNotFound(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == CodeRecordNotFound || apiErr.StatusCode == http.StatusNotFound
}

// Client talks to a Cadence record service.
type Client struct {
	BaseURL    string
	UserAgent  string
	HTTPClient *http.Client
}

// NewClient creates a client for the given service base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		UserAgent: "cadence-cli",
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Session is the server's view of an authenticated session.
type Session struct {
	DID          string `json:"did"`
	Handle       string `json:"handle"`
	SessionID    string `json:"sessionId"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// CreateSession exchanges an identifier and app password for a session.
func (c *Client) CreateSession(ctx context.Context, identifier, password string) (*Session, error) {
	body := map[string]string{
		"identifier": identifier,
		"password":   password,
	}

	respBody, err := c.doRequest(ctx, http.MethodPost, createSessionPath, "", body)
	if err != nil {
		return nil, err
	}

	var session Session
	if err := json.Unmarshal(respBody, &session); err != nil {
		return nil, fmt.Errorf("failed to parse create session response: %w", err)
	}

	return &session, nil
}

// RefreshSession exchanges a refresh token for a new token pair. The refresh
// token is presented as the bearer credential.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	respBody, err := c.doRequest(ctx, http.MethodPost, refreshSessionPath, refreshToken, nil)
	if err != nil {
		return nil, err
	}

	var session Session
	if err := json.Unmarshal(respBody, &session); err != nil {
		return nil, fmt.Errorf("failed to parse refresh session response: %w", err)
	}

	return &session, nil
}

// RecordRef locates a stored record.
type RecordRef struct {
	URI string `json:"uri"`
	CID string `json:"cid"`
}

// CreateRecord writes a new record into the given repository collection and
// returns its reference.
func (c *Client) CreateRecord(ctx context.Context, accessToken, repo, collection string, record interface{}) (*RecordRef, error) {
	body := map[string]interface{}{
		"repo":       repo,
		"collection": collection,
		"record":     record,
	}

	respBody, err := c.doRequest(ctx, http.MethodPost, createRecordPath, accessToken, body)
	if err != nil {
		return nil, err
	}

	var ref RecordRef
	if err := json.Unmarshal(respBody, &ref); err != nil {
		return nil, fmt.Errorf("failed to parse create record response: %w", err)
	}

	return &ref, nil
}

// PutRecord writes a record at a fixed record key, creating or replacing it.
func (c *Client) PutRecord(ctx context.Context, accessToken, repo, collection, rkey string, record interface{}) (*RecordRef, error) {
	body := map[string]interface{}{
		"repo":       repo,
		"collection": collection,
		"rkey":       rkey,
		"record":     record,
	}

	respBody, err := c.doRequest(ctx, http.MethodPost, putRecordPath, accessToken, body)
	if err != nil {
		return nil, err
	}

	var ref RecordRef
	if err := json.Unmarshal(respBody, &ref); err != nil {
		return nil, fmt.Errorf("failed to parse put record response: %w", err)
	}

	return &ref, nil
}

// RecordEnvelope is a record fetched from a repository, value left raw for
// the caller to decode.
type RecordEnvelope struct {
	URI   string          `json:"uri"`
	CID   string          `json:"cid"`
	Value json.RawMessage `json:"value"`
}

// GetRecord fetches a single record. No authentication is required.
func (c *Client) GetRecord(ctx context.Context, repo, collection, rkey string) (*RecordEnvelope, error) {
	params := url.Values{}
	params.Set("repo", repo)
	params.Set("collection", collection)
	params.Set("rkey", rkey)

	respBody, err := c.doRequest(ctx, http.MethodGet, getRecordPath+"?"+params.Encode(), "", nil)
	if err != nil {
		return nil, err
	}

	var envelope RecordEnvelope
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse get record response: %w", err)
	}

	return &envelope, nil
}

func (c *Client) doRequest(ctx context.Context, method, path, token string, body interface{}) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if jsonErr := json.Unmarshal(respBody, apiErr); jsonErr != nil {
			apiErr.Message = strings.TrimSpace(string(respBody))
		}
		return nil, apiErr
	}

	return respBody, nil
}
