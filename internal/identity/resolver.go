package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Resolver turns a handle or DID into a full Identity. Resolution happens
// once per command; the result is never mutated afterwards.
type Resolver interface {
	Resolve(ctx context.Context, identifier string) (*Identity, error)
}

// HTTPResolver resolves identities against a public resolver endpoint.
type HTTPResolver struct {
	// BaseURL is the resolver service base URL.
	BaseURL string

	// FallbackService is used when the resolver does not report a record
	// service for the identity.
	FallbackService string

	HTTPClient *http.Client
}

// NewHTTPResolver creates a resolver for the given endpoint.
func NewHTTPResolver(baseURL, fallbackService string) *HTTPResolver {
	return &HTTPResolver{
		BaseURL:         baseURL,
		FallbackService: fallbackService,
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Resolve asks the resolver for the canonical identity behind identifier.
// Both handles and DIDs go through the resolver: even a canonical DID still
// needs its record service discovered.
func (r *HTTPResolver) Resolve(ctx context.Context, identifier string) (*Identity, error) {
	if err := ValidateIdentifier(identifier); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/xrpc/identity.resolve?identifier=%s", r.BaseURL, url.QueryEscape(identifier))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := r.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity resolution failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read resolver response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to resolve %q (HTTP %d): %s", identifier, resp.StatusCode, string(body))
	}

	var ident Identity
	if err := json.Unmarshal(body, &ident); err != nil {
		return nil, fmt.Errorf("failed to parse resolver response: %w", err)
	}
	if ident.DID == "" {
		return nil, fmt.Errorf("resolver returned no DID for %q", identifier)
	}
	if ident.Service == "" {
		ident.Service = r.FallbackService
	}
	return &ident, nil
}
