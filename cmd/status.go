package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cadence-fm/cli/internal/display"
	"github.com/cadence-fm/cli/internal/identity"
	"github.com/cadence-fm/cli/internal/lexicon"
	"github.com/cadence-fm/cli/internal/scrobble"
	"github.com/cadence-fm/cli/internal/session"
	"github.com/cadence-fm/cli/internal/status"
	"github.com/cadence-fm/cli/internal/transport"
)

var (
	statusRaw  bool
	statusFull bool
	statusJSON bool

	setArtists   []string
	setRelease   string
	setDuration  int64
	setService   string
	setExpiresIn time.Duration
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Read and update now-playing status",
	Long: `Read and update the "now playing" status record.

Examples:
  # What is the logged-in account playing?
  cadence status show

  # What is someone else playing?
  cadence status show bob.cadence.fm

  # Announce a track
  cadence status set "Roundabout" --artist "Yes" --duration 505

  # Stop announcing anything
  cadence status clear`,
}

var statusShowCmd = &cobra.Command{
	Use:   "show [handle-or-did]",
	Short: "Show what an account is playing",
	Long: `Show an account's now-playing status. Reading a status needs no
authentication; without an argument the logged-in identity is shown.

An expired or empty status reads as "nothing playing"; --raw shows the
stored record anyway, and --full adds external identifiers.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		var target string
		if len(args) > 0 {
			target = args[0]
		} else {
			ptr, err := session.NewAuthenticator(cfg).WhoAmI()
			if err != nil {
				return loginHint(err)
			}
			target = ptr.DID
		}

		resolver := identity.NewHTTPResolver(cfg.ResolverURL, cfg.ServiceURL)
		st, err := status.Get(cmd.Context(), resolver, target)
		if err != nil {
			if transport.IsRecordNotFound(err) {
				fmt.Println("nothing playing right now")
				return nil
			}
			return err
		}

		if statusJSON {
			return display.JSON(os.Stdout, st)
		}
		printStatus(st, statusRaw, statusFull)
		return nil
	},
}

var statusSetCmd = &cobra.Command{
	Use:   "set <track>",
	Short: "Set your now-playing status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		handle, err := requireSession(cmd)
		if err != nil {
			return err
		}

		item := scrobble.Play{
			TrackName:    args[0],
			ReleaseName:  setRelease,
			MusicService: setService,
		}
		for _, artist := range setArtists {
			item.Artists = append(item.Artists, scrobble.Artist{Name: artist})
		}
		if setDuration < 0 {
			return fmt.Errorf("--duration must be a non-negative number of seconds")
		}
		if setDuration > 0 {
			duration := setDuration
			item.Duration = &duration
		}

		now := time.Now()
		expiry := now.Add(setExpiresIn)
		st := &status.Status{Time: now, Expiry: &expiry, Item: item}

		if validator, err := lexicon.New(); err == nil {
			if err := validator.ValidateStatus(st); err != nil {
				return err
			}
		}

		if err := status.Set(cmd.Context(), handle, st); err != nil {
			return loginHint(err)
		}
		fmt.Printf("%s now playing: %s\n", display.Check(), args[0])
		return nil
	},
}

var statusClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear your now-playing status",
	Long: `Clear your now-playing status.

The record is overwritten with an empty item that expired a minute ago
rather than deleted, so readers mid-fetch still get a well-formed record.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		handle, err := requireSession(cmd)
		if err != nil {
			return err
		}

		if err := status.Clear(cmd.Context(), handle); err != nil {
			return loginHint(err)
		}
		fmt.Printf("%s status cleared\n", display.Check())
		return nil
	},
}

// printStatus renders a status record for humans. raw shows expired or
// empty records verbatim; full adds external identifiers.
func printStatus(st *status.Status, raw, full bool) {
	if status.Nothing(st) && !raw {
		fmt.Println("nothing playing right now")
		return
	}

	item := &st.Item
	fmt.Printf("track: %s\n", item.TrackName)
	if full && item.TrackID != "" {
		fmt.Printf("track id: %s\n", item.TrackID)
	}
	if full && item.RecordingID != "" {
		fmt.Printf("recording id: %s\n", item.RecordingID)
	}

	if len(item.Artists) > 0 || raw {
		names := make([]string, len(item.Artists))
		for i, artist := range item.Artists {
			names[i] = artist.Name
			if full && artist.ArtistID != "" {
				names[i] = fmt.Sprintf("%s [%s]", artist.Name, artist.ArtistID)
			}
		}
		fmt.Printf("artists: %s\n", strings.Join(names, ", "))
	}

	if item.ReleaseName != "" {
		fmt.Printf("release: %s\n", item.ReleaseName)
	}
	if full && item.ReleaseID != "" {
		fmt.Printf("release id: %s\n", item.ReleaseID)
	}
	if full && item.ISRC != "" {
		fmt.Printf("isrc: %s\n", item.ISRC)
	}

	if item.PlayedTime != nil {
		if raw {
			fmt.Printf("played: %s\n", item.PlayedTime.Format("2006-01-02 15:04:05 -07:00"))
		} else {
			fmt.Printf("played: %s\n", item.PlayedTime.Local().Format("2006-01-02 15:04:05"))
		}
	}

	if item.Duration != nil {
		if raw {
			fmt.Printf("duration: %d\n", *item.Duration)
		} else {
			fmt.Printf("duration: %s\n", display.Duration(*item.Duration))
		}
	}

	if full && item.MusicService != "" {
		fmt.Printf("service: %s\n", item.MusicService)
	}
	if full && item.ClientAgent != "" {
		fmt.Printf("client: %s\n", item.ClientAgent)
	}
}

func init() {
	statusShowCmd.Flags().BoolVar(&statusRaw, "raw", false, "Show the stored record even when expired or empty")
	statusShowCmd.Flags().BoolVar(&statusFull, "full", false, "Include external identifiers")
	statusShowCmd.Flags().BoolVar(&statusJSON, "json", false, "Print the status record as JSON")

	statusSetCmd.Flags().StringArrayVar(&setArtists, "artist", nil, "Artist name (repeatable)")
	statusSetCmd.Flags().StringVar(&setRelease, "release", "", "Release (album) name")
	statusSetCmd.Flags().Int64Var(&setDuration, "duration", 0, "Track length in seconds")
	statusSetCmd.Flags().StringVar(&setService, "service-domain", "", "Music service base domain")
	statusSetCmd.Flags().DurationVar(&setExpiresIn, "expires-in", 10*time.Minute, "How long the status stays fresh")

	statusCmd.AddCommand(statusShowCmd, statusSetCmd, statusClearCmd)
	rootCmd.AddCommand(statusCmd)
}
