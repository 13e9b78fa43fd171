// Package playlog parses offline scrobble log files into play records.
//
// The only format so far is the AudioScrobbler portable-player log: a few
// "#NAME/value" header lines followed by one tab-separated entry per
// listen. Version 1.1 of the format appends a MusicBrainz track id column.
package playlog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cadence-fm/cli/internal/scrobble"
)

// Format names a supported log file format.
type Format string

const FormatAudioScrobbler Format = "audioscrobbler"

// ParseFormat validates a log format name.
func ParseFormat(s string) (Format, error) {
	if Format(strings.ToLower(s)) == FormatAudioScrobbler {
		return FormatAudioScrobbler, nil
	}
	return "", fmt.Errorf("unknown log format %q (expected audioscrobbler)", s)
}

// SyntaxError is a malformed line in an otherwise readable log file.
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error on line %d: %s", e.Line, e.Msg)
}

// ParseFile reads the log file at path in the given format.
func ParseFile(path string, format Format) ([]scrobble.Play, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	switch format {
	case FormatAudioScrobbler:
		return ParseAudioScrobbler(f)
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

// Entry ratings: L for listened, S for skipped. Skipped entries are
// dropped, not submitted.
const (
	ratingListened = "L"
	ratingSkipped  = "S"
)

// ParseAudioScrobbler parses an AudioScrobbler log into plays. The version
// header is required because it decides the column count; a timezone
// header of "UTC" makes timestamps UTC, anything else (including the
// "UNKNOWN" marker) reads them as local time.
func ParseAudioScrobbler(r io.Reader) ([]scrobble.Play, error) {
	var (
		version  string
		utc      bool
		clientID string
		plays    []scrobble.Play
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	inHeader := true
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}

		if inHeader && strings.HasPrefix(line, "#") {
			switch {
			case strings.HasPrefix(line, "#AUDIOSCROBBLER/"):
				version = strings.TrimPrefix(line, "#AUDIOSCROBBLER/")
			case strings.HasPrefix(line, "#TZ/"):
				tz := strings.TrimPrefix(line, "#TZ/")
				utc = tz == "UTC"
			case strings.HasPrefix(line, "#CLIENT/"):
				clientID = strings.TrimPrefix(line, "#CLIENT/")
			}
			continue
		}

		if inHeader {
			inHeader = false
			if version == "" {
				return nil, &SyntaxError{Line: lineNo, Msg: "log version not specified"}
			}
		}

		play, skipped, err := parseEntry(line, lineNo, version, utc, clientID)
		if err != nil {
			return nil, err
		}
		if !skipped {
			plays = append(plays, *play)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read log file: %w", err)
	}

	if version == "" {
		return nil, &SyntaxError{Line: lineNo, Msg: "log version not specified"}
	}
	return plays, nil
}

// parseEntry decodes one tab-separated listen:
// artist, album, track, tracknum, duration, rating, unixtime[, trackid].
func parseEntry(line string, lineNo int, version string, utc bool, clientID string) (*scrobble.Play, bool, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 7 {
		return nil, false, &SyntaxError{Line: lineNo, Msg: fmt.Sprintf("expected at least 7 fields, got %d", len(fields))}
	}

	rating := fields[5]
	if rating != ratingListened && rating != ratingSkipped {
		return nil, false, &SyntaxError{Line: lineNo, Msg: "entry rating must be 'L' or 'S'"}
	}
	if rating == ratingSkipped {
		return nil, true, nil
	}

	duration, err := strconv.ParseInt(fields[4], 10, 64)
	if err != nil {
		return nil, false, &SyntaxError{Line: lineNo, Msg: fmt.Sprintf("bad duration %q", fields[4])}
	}
	timestamp, err := strconv.ParseInt(fields[6], 10, 64)
	if err != nil {
		return nil, false, &SyntaxError{Line: lineNo, Msg: fmt.Sprintf("bad timestamp %q", fields[6])}
	}

	played := time.Unix(timestamp, 0)
	if utc {
		played = played.UTC()
	}

	play := &scrobble.Play{
		TrackName:      fields[2],
		ReleaseName:    fields[1],
		Duration:       &duration,
		PlayedTime:     &played,
		Artists:        []scrobble.Artist{{Name: fields[0]}},
		SourceClientID: clientID,
	}
	if version == "1.1" && len(fields) > 7 {
		play.TrackID = fields[7]
	}
	return play, false, nil
}
