package config

import "time"

// DefaultSocketPath is the well-known command socket.
const DefaultSocketPath = "/tmp/xlg-player.sock"

// DefaultMPDNetwork and DefaultMPDAddr locate the primary backend.
const (
	DefaultMPDNetwork = "tcp"
	DefaultMPDAddr    = "localhost:6600"
)

// DefaultLibraryBaseURL is the library API root used by favorite.
const DefaultLibraryBaseURL = "https://api.music.apple.com"

// DefaultLibraryRatePerMinute bounds favorite submissions.
const DefaultLibraryRatePerMinute = 30

// DefaultLogLevel is used when log_level is unset.
const DefaultLogLevel = "info"

// DefaultScriptCommand runs legacy backend scripts.
const DefaultScriptCommand = "osascript"

// Control-surface timings. The request timeout must stay below the poll period.
const (
	DefaultPollInterval   = 2 * time.Second
	DefaultRequestTimeout = 1 * time.Second
	DefaultReconnectDelay = 1 * time.Second
)
