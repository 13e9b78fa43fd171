// Package cmd wires the cadence command tree.
package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cadence-fm/cli/internal/config"
	"github.com/cadence-fm/cli/internal/credstore"
	"github.com/cadence-fm/cli/internal/session"
)

// serviceName is the client-agent service name stamped into submissions.
const serviceName = "cadence"

var (
	// version is set during build
	version = "0.1.0"

	configDir string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cadence",
	Short: "Cadence CLI - Scrobble your listens to an identity-addressed play feed",
	Long: `Cadence CLI submits your listening history to the Cadence play-feed service.

Log in once with your handle, then scrobble individual tracks, upload whole
scrobbler log files, and keep your now-playing status up to date.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of Cadence CLI",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("cadence %s\n", version)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "",
		fmt.Sprintf("Configuration directory (defaults to the platform config dir, or $%s)", config.EnvConfigDir))

	rootCmd.AddCommand(versionCmd)
}

// loadConfig resolves the configuration root and reads config.yaml under it.
func loadConfig() (*config.Config, error) {
	root := configDir
	if root == "" {
		var err error
		root, err = config.DefaultRoot()
		if err != nil {
			return nil, err
		}
	}
	return config.Load(root)
}

// requireSession restores the current session for a command that needs an
// authenticated handle.
func requireSession(cmd *cobra.Command) (session.Handle, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	handle, err := session.NewAuthenticator(cfg).Restore(cmd.Context())
	if err != nil {
		return nil, loginHint(err)
	}
	return handle, nil
}

// loginHint appends the login instruction to failures the user can only
// fix by authenticating again.
func loginHint(err error) error {
	var restoreErr *session.RestoreError
	var refreshErr *session.RefreshError
	switch {
	case errors.Is(err, session.ErrNotLoggedIn),
		errors.Is(err, credstore.ErrUnavailable),
		errors.As(err, &restoreErr),
		errors.As(err, &refreshErr):
		return fmt.Errorf("%w\nRun 'cadence auth login' to authenticate", err)
	}
	return err
}
