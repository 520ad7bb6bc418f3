// Package config provides TOML configuration file loading for the xlg host
// and its control surfaces, plus the KEY=VALUE credential file.
// The configuration file lives at ~/.config/xlg/config.toml by default, but can be
// overridden with the --config flag. CLI flags always take precedence over file values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	apperrors "github.com/xlg/player/internal/errors"
)

// Config represents the configuration file structure.
// Field names use Go camelCase internally but map to snake_case in TOML files
// via struct tags.
type Config struct {
	// SocketPath is the command socket the host listens on.
	// Default: /tmp/xlg-player.sock
	SocketPath string `toml:"socket_path"`

	// MPDNetwork is "tcp" or "unix".
	// Default: tcp
	MPDNetwork string `toml:"mpd_network"`

	// MPDAddr is the MPD host:port, or socket path when MPDNetwork is "unix".
	// Default: localhost:6600
	MPDAddr string `toml:"mpd_addr"`

	// MPDPassword authorizes the primary backend. Empty means no password.
	MPDPassword string `toml:"mpd_password"`

	// CredentialsFile is the KEY=VALUE file holding the library-write token.
	// Default: ~/.config/xlg/config
	CredentialsFile string `toml:"credentials_file"`

	// LibraryBaseURL is the base of the library API used by favorite.
	// Default: https://api.music.apple.com
	LibraryBaseURL string `toml:"library_base_url"`

	// LibraryDeveloperToken is sent as a bearer token when set.
	LibraryDeveloperToken string `toml:"library_developer_token"`

	// LibraryRatePerMinute bounds favorite submissions.
	// Default: 30
	LibraryRatePerMinute int `toml:"library_rate_per_minute"`

	// FavoritesDB is the SQLite ledger of favorite submissions.
	// Default: ~/.config/xlg/favorites.db
	FavoritesDB string `toml:"favorites_db"`

	// LogLevel controls logging verbosity: debug, info, warn, error.
	// Default: info
	LogLevel string `toml:"log_level"`

	// ScriptCommand is the scripting host used by the legacy backend.
	// Default: osascript
	ScriptCommand string `toml:"script_command"`

	// Deck holds the control-surface plugin timings.
	Deck DeckConfig `toml:"deck"`
}

// DeckConfig configures the Stream Deck plugin session.
type DeckConfig struct {
	// PollIntervalMs is the status poll period. Default: 2000
	PollIntervalMs int `toml:"poll_interval_ms"`

	// RequestTimeoutMs bounds one command round trip. It must stay below
	// the poll interval. Default: 1000
	RequestTimeoutMs int `toml:"request_timeout_ms"`

	// ReconnectDelayMs is the fixed delay before redialing the UI host.
	// Default: 1000
	ReconnectDelayMs int `toml:"reconnect_delay_ms"`
}

// DefaultConfigPath returns the default config file location: ~/.config/xlg/config.toml.
// Returns an error only if the user's home directory cannot be determined.
func DefaultConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// DefaultFavoritesDBPath returns ~/.config/xlg/favorites.db.
func DefaultFavoritesDBPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "favorites.db"), nil
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "xlg"), nil
}

// WriteDefault creates a config file with commented defaults at the given path.
//
// Behavior:
//   - If the file already exists, returns without error (does not overwrite).
//   - Creates the parent directory if it doesn't exist.
//   - Returns an error if the file cannot be written.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	content := fmt.Sprintf(`# xlg player configuration

# Command socket (any local process of this user can drive playback)
socket_path = %q

# Primary backend
mpd_network = %q
mpd_addr = %q

# Library writes for "favorite"
library_rate_per_minute = %d

log_level = %q

[deck]
poll_interval_ms = %d
request_timeout_ms = %d
reconnect_delay_ms = %d
`, DefaultSocketPath, DefaultMPDNetwork, DefaultMPDAddr, DefaultLibraryRatePerMinute, DefaultLogLevel,
		DefaultPollInterval.Milliseconds(), DefaultRequestTimeout.Milliseconds(), DefaultReconnectDelay.Milliseconds())

	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Load reads a TOML config file from the given path and returns a Config.
//
// Behavior:
//   - If path is empty, attempts to load from the default location.
//     Returns an empty Config without error if the default file doesn't exist.
//   - If path is specified, returns an error if the file doesn't exist.
//   - Returns an error if the file exists but cannot be parsed or validated.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return cfg, nil
		}
		if _, err := os.Stat(defaultPath); os.IsNotExist(err) {
			return cfg, nil
		}
		path = defaultPath
	} else {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, apperrors.ConfigNotFound(path)
		}
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, apperrors.ConfigInvalid(path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, apperrors.ConfigInvalid(path, err)
	}

	return cfg, nil
}

// Validate checks field ranges. Zero values mean "use default" and are valid.
func (c *Config) Validate() error {
	switch c.MPDNetwork {
	case "", "tcp", "unix":
	default:
		return fmt.Errorf("mpd_network must be tcp or unix, got %q", c.MPDNetwork)
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn or error, got %q", c.LogLevel)
	}
	if c.LibraryRatePerMinute < 0 {
		return fmt.Errorf("library_rate_per_minute must be >= 0, got %d", c.LibraryRatePerMinute)
	}
	if c.Deck.PollIntervalMs < 0 {
		return fmt.Errorf("deck.poll_interval_ms must be >= 0, got %d", c.Deck.PollIntervalMs)
	}
	if c.Deck.RequestTimeoutMs < 0 {
		return fmt.Errorf("deck.request_timeout_ms must be >= 0, got %d", c.Deck.RequestTimeoutMs)
	}
	if c.Deck.ReconnectDelayMs < 0 {
		return fmt.Errorf("deck.reconnect_delay_ms must be >= 0, got %d", c.Deck.ReconnectDelayMs)
	}
	if c.Deck.EffectiveRequestTimeout() >= c.Deck.EffectivePollInterval() {
		return fmt.Errorf("deck.request_timeout_ms (%d) must be shorter than deck.poll_interval_ms (%d)",
			c.Deck.EffectiveRequestTimeout().Milliseconds(), c.Deck.EffectivePollInterval().Milliseconds())
	}
	return nil
}

// EffectivePollInterval returns the poll period, applying the default.
func (d DeckConfig) EffectivePollInterval() time.Duration {
	return msOrDefault(d.PollIntervalMs, DefaultPollInterval)
}

// EffectiveRequestTimeout returns the request timeout, applying the default.
func (d DeckConfig) EffectiveRequestTimeout() time.Duration {
	return msOrDefault(d.RequestTimeoutMs, DefaultRequestTimeout)
}

// EffectiveReconnectDelay returns the reconnect delay, applying the default.
func (d DeckConfig) EffectiveReconnectDelay() time.Duration {
	return msOrDefault(d.ReconnectDelayMs, DefaultReconnectDelay)
}

func msOrDefault(ms int, def time.Duration) time.Duration {
	if ms <= 0 {
		return def
	}
	return time.Duration(ms) * time.Millisecond
}
