// Package scrobble holds the play record model and the batch submission
// pipeline that pushes plays into the listener's feed.
package scrobble

import "time"

// PlayCollection is the feed collection play records are created in.
const PlayCollection = "fm.cadence.feed.play"

// Artist credits one performer on a play.
type Artist struct {
	Name     string `json:"artistName"`
	ArtistID string `json:"artistId,omitempty"`
}

// Play is one normalized listen. Everything but the track name is optional;
// the parser and the CLI fill in what they know. A play is immutable once
// handed to the pipeline, except for the client-agent stamp applied right
// before submission.
type Play struct {
	TrackName      string     `json:"trackName"`
	TrackID        string     `json:"trackId,omitempty"`
	RecordingID    string     `json:"recordingId,omitempty"`
	Duration       *int64     `json:"duration,omitempty"`
	ArtistNames    []string   `json:"artistNames,omitempty"`
	ArtistIDs      []string   `json:"artistIds,omitempty"`
	Artists        []Artist   `json:"artists,omitempty"`
	ReleaseName    string     `json:"releaseName,omitempty"`
	ReleaseID      string     `json:"releaseId,omitempty"`
	ISRC           string     `json:"isrc,omitempty"`
	OriginURL      string     `json:"originUrl,omitempty"`
	MusicService   string     `json:"musicServiceBaseDomain,omitempty"`
	ClientAgent    string     `json:"submissionClientAgent,omitempty"`
	PlayedTime     *time.Time `json:"playedTime,omitempty"`
	TrackVariant   string     `json:"trackDiscriminant,omitempty"`
	ReleaseVariant string     `json:"releaseDiscriminant,omitempty"`

	// SourceClientID names the client that produced the play, for example
	// a scrobble log's #CLIENT header. It only feeds the client-agent
	// stamp and is never submitted on its own.
	SourceClientID string `json:"-"`
}

// DisplayName is the human-readable name used in per-item reporting.
func (p *Play) DisplayName() string {
	if p.TrackName == "" {
		return "(untitled)"
	}
	return p.TrackName
}
