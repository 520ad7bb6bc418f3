// Package backendtest provides in-memory backends for tests.
package backendtest

import (
	"context"
	"errors"
	"sync"

	"github.com/xlg/player/internal/backend"
	"github.com/xlg/player/internal/protocol"
)

// ErrFake is returned by fakes configured to fail.
var ErrFake = errors.New("fake backend failure")

// Primary is a scriptable backend.Primary that records calls.
type Primary struct {
	mu sync.Mutex

	AuthErr  error
	StateVal backend.State
	StateErr error
	Track    backend.Track
	HasTrack bool
	OpErr    error

	calls []string
	loads []protocol.PlayRequest
}

func (p *Primary) record(call string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call)
	return p.OpErr
}

// Calls returns the recorded operation names, in order.
func (p *Primary) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

// Loads returns the recorded load requests.
func (p *Primary) Loads() []protocol.PlayRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]protocol.PlayRequest(nil), p.loads...)
}

func (p *Primary) Authorize(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, "authorize")
	return p.AuthErr
}

func (p *Primary) State(ctx context.Context) (backend.State, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.StateVal, p.StateErr
}

func (p *Primary) NowPlaying(ctx context.Context) (backend.Track, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Track, p.HasTrack, p.StateErr
}

func (p *Primary) Pause(ctx context.Context) error { return p.record("pause") }
func (p *Primary) Play(ctx context.Context) error { return p.record("play") }
func (p *Primary) Next(ctx context.Context) error { return p.record("next") }
func (p *Primary) Previous(ctx context.Context) error { return p.record("previous") }

func (p *Primary) Load(ctx context.Context, req protocol.PlayRequest) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, "load")
	p.loads = append(p.loads, req)
	return p.OpErr
}

// Legacy is a scriptable backend.Legacy that records calls and keeps a
// volume level.
type Legacy struct {
	mu sync.Mutex

	State     string
	StateErr  error
	Track     backend.Track
	TrackErr  error
	Level     int
	VolumeErr error
	OpErr     error

	calls []string
}

func (l *Legacy) record(call string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
	return l.OpErr
}

// Calls returns the recorded operation names, in order.
func (l *Legacy) Calls() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

// CurrentLevel returns the stored volume.
func (l *Legacy) CurrentLevel() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.Level
}

func (l *Legacy) Pause(ctx context.Context) error { return l.record("pause") }
func (l *Legacy) Play(ctx context.Context) error { return l.record("play") }
func (l *Legacy) PlayPause(ctx context.Context) error { return l.record("playpause") }
func (l *Legacy) Next(ctx context.Context) error { return l.record("next") }
func (l *Legacy) Previous(ctx context.Context) error { return l.record("previous") }
func (l *Legacy) ToggleFavorite(ctx context.Context) error { return l.record("favorite") }

func (l *Legacy) PlayerState(ctx context.Context) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.State, l.StateErr
}

func (l *Legacy) CurrentTrack(ctx context.Context) (backend.Track, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.Track, l.TrackErr
}

func (l *Legacy) Volume(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.Level, l.VolumeErr
}

func (l *Legacy) SetVolume(ctx context.Context, level int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, "setvolume")
	if l.OpErr != nil {
		return l.OpErr
	}
	l.Level = level
	return nil
}
