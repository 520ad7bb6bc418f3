// Package backend defines the playback capabilities the host drives and the
// probe that selects between them.
//
// The primary backend is an authorization-gated session API. The legacy
// backend scripts an existing desktop player and is used whenever the
// primary reports no active session. System volume is always read and set
// through the legacy layer.
package backend

import (
	"context"

	"github.com/xlg/player/internal/protocol"
)

// Track is the metadata of the current queue entry.
type Track struct {
	// ID identifies the track to the library service. It may be empty for
	// tracks that are not in the catalog.
	ID     string
	Title  string
	Artist string
}

// State is a backend's playback state.
type State int

const (
	StateStopped State = iota
	StatePlaying
	StatePaused
)

func (s State) String() string {
	switch s {
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "stopped"
	}
}

// Active reports whether the state counts as a live session.
func (s State) Active() bool {
	return s == StatePlaying || s == StatePaused
}

// Primary is the session-based playback backend.
type Primary interface {
	// Authorize completes the authorization step. The host refuses to
	// start when it fails.
	Authorize(ctx context.Context) error

	// State returns the session's playback state.
	State(ctx context.Context) (State, error)

	// NowPlaying returns the current queue entry. ok is false when the
	// queue has no current entry.
	NowPlaying(ctx context.Context) (track Track, ok bool, err error)

	Pause(ctx context.Context) error
	Play(ctx context.Context) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error

	// Load replaces the queue with req and starts playback.
	Load(ctx context.Context, req protocol.PlayRequest) error
}

// Legacy is the scripting-driven player plus the system volume.
type Legacy interface {
	Pause(ctx context.Context) error
	Play(ctx context.Context) error
	PlayPause(ctx context.Context) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error

	// ToggleFavorite flips the in-app favorite flag of the current track.
	ToggleFavorite(ctx context.Context) error

	// PlayerState returns the application's state word ("playing",
	// "paused", "stopped").
	PlayerState(ctx context.Context) (string, error)

	CurrentTrack(ctx context.Context) (Track, error)

	Volume(ctx context.Context) (int, error)
	SetVolume(ctx context.Context, level int) error
}
