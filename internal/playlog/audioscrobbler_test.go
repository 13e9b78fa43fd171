package playlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleLog = "#AUDIOSCROBBLER/1.1\n" +
	"#TZ/UTC\n" +
	"#CLIENT/Rockbox sansaclipplus $Revision$\n" +
	"Artist A\tAlbum A\tTrack One\t3\t210\tL\t1724932800\tmbid-1\n" +
	"Artist B\t\tTrack Two\t7\t95\tS\t1724933100\t\n" +
	"Artist C\tAlbum C\tTrack Three\t1\t180\tL\t1724933400\t\n"

func TestParseAudioScrobbler(t *testing.T) {
	plays, err := ParseAudioScrobbler(strings.NewReader(sampleLog))
	require.NoError(t, err)

	// The skipped entry is dropped.
	require.Len(t, plays, 2)

	first := plays[0]
	assert.Equal(t, "Track One", first.TrackName)
	assert.Equal(t, "Album A", first.ReleaseName)
	require.Len(t, first.Artists, 1)
	assert.Equal(t, "Artist A", first.Artists[0].Name)
	require.NotNil(t, first.Duration)
	assert.Equal(t, int64(210), *first.Duration)
	assert.Equal(t, "mbid-1", first.TrackID)
	assert.Equal(t, "Rockbox sansaclipplus $Revision$", first.SourceClientID)
	require.NotNil(t, first.PlayedTime)
	assert.Equal(t, time.Unix(1724932800, 0).UTC(), *first.PlayedTime)

	second := plays[1]
	assert.Equal(t, "Track Three", second.TrackName)
	assert.Empty(t, second.TrackID, "blank trailing track id stays empty")
}

func TestParseVersion10HasNoTrackID(t *testing.T) {
	log := "#AUDIOSCROBBLER/1.0\n" +
		"Artist\tAlbum\tTrack\t1\t100\tL\t1724932800\n"

	plays, err := ParseAudioScrobbler(strings.NewReader(log))
	require.NoError(t, err)
	require.Len(t, plays, 1)
	assert.Empty(t, plays[0].TrackID)
}

func TestParseLocalTimestampsWhenTimezoneUnknown(t *testing.T) {
	log := "#AUDIOSCROBBLER/1.0\n" +
		"#TZ/UNKNOWN\n" +
		"Artist\t\tTrack\t1\t100\tL\t1724932800\n"

	plays, err := ParseAudioScrobbler(strings.NewReader(log))
	require.NoError(t, err)
	require.Len(t, plays, 1)

	// Same instant either way; only the presentation zone differs.
	assert.Equal(t, int64(1724932800), plays[0].PlayedTime.Unix())
}

func TestParseMissingVersion(t *testing.T) {
	log := "#TZ/UTC\n" +
		"Artist\t\tTrack\t1\t100\tL\t1724932800\n"

	_, err := ParseAudioScrobbler(strings.NewReader(log))

	var syntaxErr *SyntaxError
	require.ErrorAs(t, err, &syntaxErr)
	assert.Contains(t, syntaxErr.Msg, "version")
}

func TestParseEntryErrors(t *testing.T) {
	tests := []struct {
		name  string
		entry string
	}{
		{"too few fields", "Artist\tTrack\tL"},
		{"bad rating", "Artist\t\tTrack\t1\t100\tX\t1724932800"},
		{"bad duration", "Artist\t\tTrack\t1\tlong\tL\t1724932800"},
		{"bad timestamp", "Artist\t\tTrack\t1\t100\tL\tyesterday"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := "#AUDIOSCROBBLER/1.0\n" + tt.entry + "\n"
			_, err := ParseAudioScrobbler(strings.NewReader(log))

			var syntaxErr *SyntaxError
			require.ErrorAs(t, err, &syntaxErr)
			assert.Equal(t, 2, syntaxErr.Line)
		})
	}
}

func TestParseSkipsBlankLines(t *testing.T) {
	log := "#AUDIOSCROBBLER/1.0\n\n" +
		"Artist\t\tTrack\t1\t100\tL\t1724932800\n\n"

	plays, err := ParseAudioScrobbler(strings.NewReader(log))
	require.NoError(t, err)
	assert.Len(t, plays, 1)
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scrobbler.log")
	require.NoError(t, os.WriteFile(path, []byte(sampleLog), 0644))

	plays, err := ParseFile(path, FormatAudioScrobbler)
	require.NoError(t, err)
	assert.Len(t, plays, 2)
}

func TestParseFileMissing(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "absent.log"), FormatAudioScrobbler)
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	format, err := ParseFormat("AudioScrobbler")
	require.NoError(t, err)
	assert.Equal(t, FormatAudioScrobbler, format)

	_, err = ParseFormat("winamp")
	assert.Error(t, err)
}
