package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// EnvConfigDir overrides the configuration root when set. Useful for
// scripting and for keeping test state away from the real config dir.
const EnvConfigDir = "CADENCE_CONFIG_DIR"

// configFile is the YAML file name inside the configuration root.
const configFile = "config.yaml"

// Config holds everything a command needs to reach the Cadence service.
// Root is the single configuration directory; all local state (the config
// file, the session pointer, file-backed credentials) lives under it, and
// callers pass it explicitly rather than resolving platform directories at
// call sites.
type Config struct {
	Root string `yaml:"-"`

	// ResolverURL is the identity resolver endpoint used to turn handles
	// and DIDs into canonical identities.
	ResolverURL string `yaml:"resolver_url"`

	// ServiceURL is the fallback record service used when identity
	// resolution does not report one.
	ServiceURL string `yaml:"service_url"`

	// DefaultStore names the credential store used when --store is not
	// given: "keyring" or "file".
	DefaultStore string `yaml:"default_store"`

	Auth AuthConfig `yaml:"auth"`
}

// AuthConfig describes the delegated-authorization endpoints.
type AuthConfig struct {
	ClientID     string   `yaml:"client_id"`
	AuthorizeURL string   `yaml:"authorize_url"`
	TokenURL     string   `yaml:"token_url"`
	Scopes       []string `yaml:"scopes"`

	// CallbackPort is the loopback listener port for the authorization
	// callback. 0 picks an ephemeral port.
	CallbackPort int `yaml:"callback_port"`
}

// DefaultRoot returns the configuration root: $CADENCE_CONFIG_DIR if set,
// otherwise <user config dir>/cadence.
func DefaultRoot() (string, error) {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine config directory: %w", err)
	}
	return filepath.Join(base, "cadence"), nil
}

// Load reads <root>/config.yaml over the built-in defaults. A missing file
// is not an error; a malformed one is.
func Load(root string) (*Config, error) {
	cfg := defaults(root)

	data, err := os.ReadFile(filepath.Join(root, configFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Join(root, configFile), err)
	}
	return cfg, nil
}

func defaults(root string) *Config {
	return &Config{
		Root:         root,
		ResolverURL:  "https://id.cadence.fm",
		ServiceURL:   "https://api.cadence.fm",
		DefaultStore: "keyring",
		Auth: AuthConfig{
			ClientID:     "cadence-cli",
			AuthorizeURL: "https://auth.cadence.fm/oauth/authorize",
			TokenURL:     "https://auth.cadence.fm/oauth/token",
			Scopes:       []string{"feed.write", "actor.status"},
		},
	}
}

// SessionFile is the path of the local session pointer.
func (c *Config) SessionFile() string {
	return filepath.Join(c.Root, "session.json")
}

// CredentialsFile is the path of the file-backed credential store.
func (c *Config) CredentialsFile() string {
	return filepath.Join(c.Root, "credentials.json")
}
