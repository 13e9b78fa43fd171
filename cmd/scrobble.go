package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cadence-fm/cli/internal/display"
	"github.com/cadence-fm/cli/internal/lexicon"
	"github.com/cadence-fm/cli/internal/playlog"
	"github.com/cadence-fm/cli/internal/scrobble"
	"github.com/cadence-fm/cli/internal/session"
)

var (
	trackArtists     []string
	trackRelease     string
	trackDuration    int64
	trackPlayedAt    string
	trackISRC        string
	trackOriginURL   string
	trackService     string
	trackTrackID     string
	trackReleaseID   string
	trackRecordingID string

	logfileDelete bool
)

// scrobbleCmd represents the scrobble command
var scrobbleCmd = &cobra.Command{
	Use:   "scrobble",
	Short: "Submit listens to your play feed",
	Long: `Submit listens to your Cadence play feed.

Examples:
  # Scrobble a single track
  cadence scrobble track "Siberian Khatru" --artist "Yes" --release "Close to the Edge" --duration 543

  # Upload a portable player's scrobbler log
  cadence scrobble logfile .scrobbler.log audioscrobbler

  # Upload and remove the log once everything went through
  cadence scrobble logfile .scrobbler.log audioscrobbler --delete`,
}

var scrobbleTrackCmd = &cobra.Command{
	Use:   "track <name>",
	Short: "Scrobble a single track",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		play, err := buildPlay(args[0])
		if err != nil {
			return err
		}

		handle, err := requireSession(cmd)
		if err != nil {
			return err
		}

		result := newPipeline(handle).Submit(cmd.Context(), []scrobble.Play{*play})
		return report(result)
	},
}

var scrobbleLogfileCmd = &cobra.Command{
	Use:   "logfile <path> <format>",
	Short: "Scrobble every listen in a log file",
	Long: `Parse a scrobble log and submit each listen.

Supported formats: audioscrobbler (the Rockbox/portable-player .scrobbler.log
format).

Each listen is submitted on its own: one rejected entry does not stop the
rest of the file, and the summary lists exactly which entries failed. With
--delete the file is removed only after a fully successful run, so a partial
failure keeps it around for a retry.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		format, err := playlog.ParseFormat(args[1])
		if err != nil {
			return err
		}

		plays, err := playlog.ParseFile(path, format)
		if err != nil {
			return err
		}
		if len(plays) == 0 {
			fmt.Println("log file has no listens to submit")
			return nil
		}

		handle, err := requireSession(cmd)
		if err != nil {
			return err
		}

		fmt.Println(display.Dim("scrobbling log: " + path))
		result := newPipeline(handle).Submit(cmd.Context(), plays)
		if err := report(result); err != nil {
			return err
		}

		if logfileDelete {
			if err := os.Remove(path); err != nil {
				return fmt.Errorf("failed to delete log file: %w", err)
			}
			fmt.Println(display.Dim("deleted " + path))
		}
		return nil
	},
}

// newPipeline builds the submission pipeline used by both scrobble
// commands, with per-item progress printed as it happens.
func newPipeline(handle session.Handle) *scrobble.Pipeline {
	pipeline := &scrobble.Pipeline{
		Service: serviceName,
		Version: version,
		Handle:  handle,
		Progress: func(track string, err error) {
			if err != nil {
				fmt.Printf("%s %s\n", display.Cross(), track)
			} else {
				fmt.Printf("%s %s\n", display.Check(), track)
			}
		},
	}

	// Validation is best-effort: without the validator plays still go out
	// and the service has the final say.
	if validator, err := lexicon.New(); err == nil {
		pipeline.Validator = validator
	}
	return pipeline
}

// report prints the batch outcome: every failure, then the summary line.
func report(result *scrobble.Result) error {
	if len(result.Failures) > 0 {
		fmt.Printf("\n%s:\n", display.Failure("errors"))
		for _, failure := range result.Failures {
			fmt.Printf("  - %s\n", failure.Error())
		}
		fmt.Printf("\n%s: %d tracks submitted, %d failed\n",
			display.Summary("summary"), result.Submitted, len(result.Failures))
		return result.Err()
	}

	fmt.Printf("\n%s: %d tracks submitted\n", display.Success("success"), result.Submitted)
	return nil
}

// buildPlay assembles a single ad hoc play from the track flags.
func buildPlay(name string) (*scrobble.Play, error) {
	play := &scrobble.Play{
		TrackName:    name,
		ReleaseName:  trackRelease,
		ISRC:         trackISRC,
		OriginURL:    trackOriginURL,
		MusicService: trackService,
		TrackID:      trackTrackID,
		ReleaseID:    trackReleaseID,
		RecordingID:  trackRecordingID,
	}

	for _, artist := range trackArtists {
		play.Artists = append(play.Artists, scrobble.Artist{Name: artist})
	}

	if trackDuration < 0 {
		return nil, fmt.Errorf("--duration must be a non-negative number of seconds")
	}
	if trackDuration > 0 {
		duration := trackDuration
		play.Duration = &duration
	}

	played := time.Now()
	if trackPlayedAt != "" {
		parsed, err := time.Parse(time.RFC3339, trackPlayedAt)
		if err != nil {
			return nil, fmt.Errorf("--played-at must be an RFC 3339 timestamp: %w", err)
		}
		played = parsed
	}
	play.PlayedTime = &played

	return play, nil
}

func init() {
	scrobbleTrackCmd.Flags().StringArrayVar(&trackArtists, "artist", nil, "Artist name (repeatable)")
	scrobbleTrackCmd.Flags().StringVar(&trackRelease, "release", "", "Release (album) name")
	scrobbleTrackCmd.Flags().Int64Var(&trackDuration, "duration", 0, "Track length in seconds")
	scrobbleTrackCmd.Flags().StringVar(&trackPlayedAt, "played-at", "", "When the listen happened (RFC 3339, default now)")
	scrobbleTrackCmd.Flags().StringVar(&trackISRC, "isrc", "", "ISRC code")
	scrobbleTrackCmd.Flags().StringVar(&trackOriginURL, "origin-url", "", "URL the listen originated from")
	scrobbleTrackCmd.Flags().StringVar(&trackService, "service-domain", "", "Music service base domain (default local)")
	scrobbleTrackCmd.Flags().StringVar(&trackTrackID, "track-id", "", "MusicBrainz track id")
	scrobbleTrackCmd.Flags().StringVar(&trackReleaseID, "release-id", "", "MusicBrainz release id")
	scrobbleTrackCmd.Flags().StringVar(&trackRecordingID, "recording-id", "", "MusicBrainz recording id")

	scrobbleLogfileCmd.Flags().BoolVar(&logfileDelete, "delete", false, "Delete the log file after a fully successful run")

	scrobbleCmd.AddCommand(scrobbleTrackCmd, scrobbleLogfileCmd)
	rootCmd.AddCommand(scrobbleCmd)
}
