package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/cadence-fm/cli/internal/display"
	"github.com/cadence-fm/cli/internal/session"
)

var (
	authStore    string
	authPassword string
	whoamiJSON   bool
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Cadence authentication",
	Long: `Manage the local Cadence session.

Examples:
  # Interactive login (browser authorization or app password)
  cadence auth login alice.cadence.fm

  # Non-interactive login with an app password, credentials kept in a file
  cadence auth login alice.cadence.fm --store file --password app-pass-1234

  # Read the app password from the terminal without echo
  cadence auth login alice.cadence.fm --password -

  # Check who is logged in
  cadence auth whoami

  # Remove the stored session
  cadence auth logout`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login <handle-or-did>",
	Short: "Log in with a handle or DID",
	Long: `Log in to the Cadence service and persist the session locally.

Without --password the delegated browser authorization flow runs: cadence
prints an authorize URL, you approve it in the browser, and no password
ever touches this machine. With --password the identifier and app password
are exchanged directly for a session.

Credentials go to the system keyring by default; --store file keeps them
in a file under the config directory instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAuthLogin(cmd, args[0])
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out and remove the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ptr, err := session.NewAuthenticator(cfg).Logout(cmd.Context())
		if err != nil {
			return loginHint(err)
		}
		fmt.Printf("Logged out %s\n", ptr.DID)
		return nil
	},
}

var authWhoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current local session",
	Long: `Show who is logged in according to the local session pointer.

This is a purely local read: it does not verify the session is still
honored by the service.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ptr, err := session.NewAuthenticator(cfg).WhoAmI()
		if err != nil {
			return loginHint(err)
		}

		if whoamiJSON {
			return display.JSON(os.Stdout, ptr)
		}
		fmt.Printf("Identity: %s\n", ptr.DID)
		fmt.Printf("  Method:  %s\n", ptr.Method)
		fmt.Printf("  Store:   %s\n", ptr.Store)
		fmt.Printf("  Session: %s\n", ptr.SessionID)
		return nil
	},
}

func runAuthLogin(cmd *cobra.Command, identifier string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	storeName := authStore
	password := authPassword

	// With a terminal and no flags, ask instead of defaulting.
	if isInteractive() && !cmd.Flags().Changed("store") && !cmd.Flags().Changed("password") {
		choice, err := promptLogin(identifier, cfg.DefaultStore)
		if err != nil {
			return err
		}
		storeName = choice.store
		password = choice.password
	}

	if storeName == "" {
		storeName = cfg.DefaultStore
	}
	store, err := session.ParseStore(storeName)
	if err != nil {
		return err
	}

	if password == "-" {
		password, err = readPassword("App password: ")
		if err != nil {
			return err
		}
	}

	auth := session.NewAuthenticator(cfg)
	auth.Notify = func(authorizeURL string) {
		fmt.Printf("Open this URL in your browser to authorize cadence:\n\n  %s\n\nWaiting for authorization...\n", authorizeURL)
	}

	ptr, err := auth.Login(cmd.Context(), identifier, store, password)
	if err != nil {
		return loginHint(err)
	}

	fmt.Printf("%s Logged in as %s (%s, credentials in %s store)\n", display.Check(), ptr.DID, ptr.Method, ptr.Store)
	return nil
}

// readPassword reads a secret from the terminal without echoing it.
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	password := strings.TrimSpace(string(raw))
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	return password, nil
}

func isInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

func init() {
	authLoginCmd.Flags().StringVar(&authStore, "store", "", "Credential storage: keyring, file")
	authLoginCmd.Flags().StringVar(&authPassword, "password", "", "App password ('-' to prompt); omit to use browser authorization")
	authWhoamiCmd.Flags().BoolVar(&whoamiJSON, "json", false, "Print the session pointer as JSON")

	authCmd.AddCommand(authLoginCmd, authLogoutCmd, authWhoamiCmd)
	rootCmd.AddCommand(authCmd)
}
