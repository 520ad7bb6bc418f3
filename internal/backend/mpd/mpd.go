// Package mpd drives the primary playback session through an MPD server.
//
// Every operation dials a short-lived client, applies the password, runs,
// and closes. Authorization is a successful authenticated dial plus ping.
package mpd

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"strconv"
	"time"

	gompd "github.com/fhs/gompd/v2/mpd"

	"github.com/xlg/player/internal/backend"
	apperrors "github.com/xlg/player/internal/errors"
	"github.com/xlg/player/internal/protocol"
)

const backendName = "mpd"

// DefaultDialTimeout bounds the reachability check before each operation.
const DefaultDialTimeout = 3 * time.Second

// client is the subset of *gompd.Client the backend uses.
type client interface {
	Status() (gompd.Attrs, error)
	CurrentSong() (gompd.Attrs, error)
	Pause(pause bool) error
	Play(pos int) error
	Next() error
	Previous() error
	Delete(start, end int) error
	Add(uri string) error
	PlaylistLoad(name string, start, end int) error
	Ping() error
	Close() error
}

// Config locates the MPD server.
type Config struct {
	// Network is "tcp" or "unix".
	Network string
	// Addr is host:port or a socket path.
	Addr     string
	Password string
	// DialTimeout bounds connection setup. Zero uses DefaultDialTimeout.
	DialTimeout time.Duration
}

// Backend implements backend.Primary on MPD.
type Backend struct {
	cfg    Config
	dial   func(ctx context.Context, cfg Config) (client, error)
	logger *log.Logger
}

var _ backend.Primary = (*Backend)(nil)

// New creates an MPD backend. If logger is nil, logs are discarded.
func New(cfg Config, logger *log.Logger) *Backend {
	if cfg.Network == "" {
		cfg.Network = "tcp"
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Backend{cfg: cfg, dial: dialServer, logger: logger}
}

// dialServer checks reachability within the timeout, since gompd has no
// dial deadline of its own, then opens an (authenticated) client.
func dialServer(ctx context.Context, cfg Config) (client, error) {
	d := net.Dialer{Timeout: cfg.DialTimeout}
	conn, err := d.DialContext(ctx, cfg.Network, cfg.Addr)
	if err != nil {
		return nil, err
	}
	conn.Close()

	if cfg.Password != "" {
		return gompd.DialAuthenticated(cfg.Network, cfg.Addr, cfg.Password)
	}
	return gompd.Dial(cfg.Network, cfg.Addr)
}

// do runs fn with a short-lived client.
func (b *Backend) do(ctx context.Context, op string, fn func(client) error) error {
	if err := ctx.Err(); err != nil {
		return apperrors.BackendCommand(backendName, op, err)
	}

	c, err := b.dial(ctx, b.cfg)
	if err != nil {
		return apperrors.BackendUnavailable(backendName, err)
	}
	defer c.Close()

	if err := fn(c); err != nil {
		return apperrors.BackendCommand(backendName, op, err)
	}
	return nil
}

// Authorize dials with the configured password and pings the server.
func (b *Backend) Authorize(ctx context.Context) error {
	c, err := b.dial(ctx, b.cfg)
	if err != nil {
		return apperrors.AuthorizationDenied(backendName, err)
	}
	defer c.Close()

	if err := c.Ping(); err != nil {
		return apperrors.AuthorizationDenied(backendName, err)
	}
	b.logger.Printf("authorized against %s %s", b.cfg.Network, b.cfg.Addr)
	return nil
}

// State maps MPD's "state" attribute.
func (b *Backend) State(ctx context.Context) (backend.State, error) {
	var state backend.State
	err := b.do(ctx, "status", func(c client) error {
		st, err := c.Status()
		if err != nil {
			return err
		}
		state = parseState(st["state"])
		return nil
	})
	return state, err
}

func parseState(s string) backend.State {
	switch s {
	case "play":
		return backend.StatePlaying
	case "pause":
		return backend.StatePaused
	default:
		return backend.StateStopped
	}
}

// NowPlaying returns the current song. Songs without a Title tag come back
// untitled so status can fall back to the legacy player's metadata.
func (b *Backend) NowPlaying(ctx context.Context) (backend.Track, bool, error) {
	var track backend.Track
	var ok bool
	err := b.do(ctx, "currentsong", func(c client) error {
		song, err := c.CurrentSong()
		if err != nil {
			return err
		}
		file := song["file"]
		if file == "" {
			return nil
		}
		ok = true
		track = backend.Track{
			ID:     file,
			Title:  song["Title"],
			Artist: song["Artist"],
		}
		return nil
	})
	return track, ok, err
}

func (b *Backend) Pause(ctx context.Context) error {
	return b.do(ctx, "pause", func(c client) error { return c.Pause(true) })
}

// Play resumes the current song, or starts the queue when stopped.
func (b *Backend) Play(ctx context.Context) error {
	return b.do(ctx, "play", func(c client) error {
		st, err := c.Status()
		if err != nil {
			return err
		}
		if st["state"] == "pause" {
			return c.Pause(false)
		}
		return c.Play(-1)
	})
}

func (b *Backend) Next(ctx context.Context) error {
	return b.do(ctx, "next", func(c client) error { return c.Next() })
}

func (b *Backend) Previous(ctx context.Context) error {
	return b.do(ctx, "previous", func(c client) error { return c.Previous() })
}

// Load replaces the queue. In collection mode only the first id is used, as
// a stored playlist name; otherwise every id is a song URI.
//
// New entries are appended behind the current queue first. The old entries
// are dropped only once something was queued, so ids that do not resolve
// leave the queue and playback untouched.
func (b *Backend) Load(ctx context.Context, req protocol.PlayRequest) error {
	if len(req.IDs) == 0 {
		return nil
	}
	return b.do(ctx, "load", func(c client) error {
		st, err := c.Status()
		if err != nil {
			return err
		}
		queued, _ := strconv.Atoi(st["playlistlength"])

		if req.Collection {
			if err := c.PlaylistLoad(req.IDs[0], -1, -1); err != nil {
				return fmt.Errorf("load playlist %s: %w", req.IDs[0], err)
			}
		} else {
			added := 0
			for _, id := range req.IDs {
				if err := c.Add(id); err != nil {
					b.logger.Printf("skipping %s: %v", id, err)
					continue
				}
				added++
			}
			if added == 0 {
				return fmt.Errorf("none of %d ids could be queued", len(req.IDs))
			}
		}

		if queued > 0 {
			if err := c.Delete(0, queued); err != nil {
				return fmt.Errorf("drop previous queue: %w", err)
			}
		}
		return c.Play(0)
	})
}
