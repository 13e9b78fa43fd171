// Package status reads and writes the single "now playing" record each
// listener keeps at a well-known address in their repository.
package status

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cadence-fm/cli/internal/identity"
	"github.com/cadence-fm/cli/internal/scrobble"
	"github.com/cadence-fm/cli/internal/session"
	"github.com/cadence-fm/cli/internal/transport"
)

// The fixed per-identity address of the status record.
const (
	Collection = "fm.cadence.actor.status"
	RecordKey  = "self"
)

// Status is what an identity is playing right now. The record is mutable:
// set overwrites it in place, and clear rewrites it with an empty item and
// an expiry in the past instead of deleting it.
type Status struct {
	Time   time.Time     `json:"time"`
	Expiry *time.Time    `json:"expiry,omitempty"`
	Item   scrobble.Play `json:"item"`
}

// Get fetches the status record for identifier. No authentication is
// involved; anyone can read a status. A missing record surfaces as a
// RecordNotFound API error, which display layers treat as nothing playing.
func Get(ctx context.Context, resolver identity.Resolver, identifier string) (*Status, error) {
	ident, err := resolver.Resolve(ctx, identifier)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %q: %w", identifier, err)
	}

	client := transport.NewClient(ident.Service)
	envelope, err := client.GetRecord(ctx, ident.DID, Collection, RecordKey)
	if err != nil {
		return nil, err
	}

	var st Status
	if err := json.Unmarshal(envelope.Value, &st); err != nil {
		return nil, fmt.Errorf("failed to parse status record: %w", err)
	}
	return &st, nil
}

// Set upserts the caller's status record.
func Set(ctx context.Context, handle session.Handle, st *Status) error {
	if err := handle.PutRecord(ctx, Collection, RecordKey, st); err != nil {
		return fmt.Errorf("failed to set status: %w", err)
	}
	return nil
}

// Clear soft-clears the status: an empty item with an expiry one minute in
// the past. Readers racing the clear still find a well-formed record, they
// just see it as expired.
func Clear(ctx context.Context, handle session.Handle) error {
	now := time.Now()
	expiry := now.Add(-time.Minute)

	return Set(ctx, handle, &Status{
		Time:   now,
		Expiry: &expiry,
		Item:   scrobble.Play{},
	})
}

// Nothing reports whether st should be displayed as "nothing playing":
// either the item is blank or the record has expired.
func Nothing(st *Status) bool {
	if st.Item.TrackName == "" && len(st.Item.Artists) == 0 {
		return true
	}
	return st.Expiry != nil && st.Expiry.Before(time.Now())
}
