// Package script drives the desktop music application and the system
// volume through the platform scripting host (osascript by default).
package script

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/xlg/player/internal/backend"
	apperrors "github.com/xlg/player/internal/errors"
	"github.com/xlg/player/internal/protocol"
)

// DefaultCommand is the scripting host binary.
const DefaultCommand = "osascript"

// Scripts sent to the scripting host.
const (
	scriptPause          = `tell application "Music" to pause`
	scriptPlay           = `tell application "Music" to play`
	scriptPlayPause      = `tell application "Music" to playpause`
	scriptNext           = `tell application "Music" to next track`
	scriptPrevious       = `tell application "Music" to previous track`
	scriptPlayerState    = `tell application "Music" to return player state as string`
	scriptCurrentTrack   = `tell application "Music" to return (name of current track) & linefeed & (artist of current track)`
	scriptGetVolume      = `output volume of (get volume settings)`
	scriptSetVolumeFmt   = `set volume output volume %d`
	scriptToggleFavorite = "tell application \"Music\"\nset f to favorited of current track\nset favorited of current track to not f\nend tell"
)

// Backend implements backend.Legacy by running scripts.
type Backend struct {
	// command is the scripting host binary.
	command string

	// execCommand creates exec.Cmd instances.
	// This allows tests to inject mock command execution.
	// In production, this is exec.CommandContext.
	execCommand func(ctx context.Context, name string, arg ...string) *exec.Cmd
}

var _ backend.Legacy = (*Backend)(nil)

// New creates a scripting backend. An empty command uses DefaultCommand.
func New(command string) *Backend {
	if command == "" {
		command = DefaultCommand
	}
	return &Backend{
		command:     command,
		execCommand: exec.CommandContext,
	}
}

// run executes one script and returns its trimmed stdout.
func (b *Backend) run(ctx context.Context, script string) (string, error) {
	cmd := b.execCommand(ctx, b.command, "-e", script)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if isCommandNotFound(err) {
			return "", apperrors.BackendUnavailable(b.command, err)
		}
		return "", apperrors.ScriptFailed(strings.TrimSpace(stderr.String()), err)
	}
	return strings.TrimSpace(stdout.String()), nil
}

func (b *Backend) do(ctx context.Context, script string) error {
	_, err := b.run(ctx, script)
	return err
}

func (b *Backend) Pause(ctx context.Context) error { return b.do(ctx, scriptPause) }
func (b *Backend) Play(ctx context.Context) error { return b.do(ctx, scriptPlay) }
func (b *Backend) PlayPause(ctx context.Context) error { return b.do(ctx, scriptPlayPause) }
func (b *Backend) Next(ctx context.Context) error { return b.do(ctx, scriptNext) }
func (b *Backend) Previous(ctx context.Context) error { return b.do(ctx, scriptPrevious) }

// ToggleFavorite flips the favorited flag of the current track.
func (b *Backend) ToggleFavorite(ctx context.Context) error {
	return b.do(ctx, scriptToggleFavorite)
}

// PlayerState returns "playing", "paused" or "stopped".
func (b *Backend) PlayerState(ctx context.Context) (string, error) {
	return b.run(ctx, scriptPlayerState)
}

// CurrentTrack returns the name and artist of the current track. The
// application has no catalog id, so Track.ID is empty.
func (b *Backend) CurrentTrack(ctx context.Context) (backend.Track, error) {
	out, err := b.run(ctx, scriptCurrentTrack)
	if err != nil {
		return backend.Track{}, err
	}
	title, artist, _ := strings.Cut(out, "\n")
	return backend.Track{
		Title:  strings.TrimSpace(title),
		Artist: strings.TrimSpace(artist),
	}, nil
}

// Volume returns the system output volume.
func (b *Backend) Volume(ctx context.Context) (int, error) {
	out, err := b.run(ctx, scriptGetVolume)
	if err != nil {
		return 0, err
	}
	level, err := strconv.Atoi(out)
	if err != nil {
		// "missing value" when no output device reports a level.
		return 0, apperrors.ScriptFailed(out, fmt.Errorf("parse volume: %w", err))
	}
	return level, nil
}

// SetVolume sets the system output volume, clamped to 0..100.
func (b *Backend) SetVolume(ctx context.Context, level int) error {
	return b.do(ctx, fmt.Sprintf(scriptSetVolumeFmt, protocol.ClampVolume(level)))
}

// isCommandNotFound checks if the error indicates the scripting host is
// not installed (any platform other than macOS).
func isCommandNotFound(err error) bool {
	if err == nil {
		return false
	}
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		return true
	}
	return errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist)
}
