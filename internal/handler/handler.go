// Package handler executes command-socket commands against the playback
// backends and builds status snapshots.
//
// Control commands go to the primary backend while it has a playing or
// paused session, and to the legacy backend otherwise. Backend failures are
// logged and swallowed: every command except status answers OK.
package handler

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/xlg/player/internal/backend"
	"github.com/xlg/player/internal/ipc"
	"github.com/xlg/player/internal/protocol"
	"github.com/xlg/player/internal/storage"
)

// FallbackVolume is reported when the system volume cannot be read.
const FallbackVolume = 50

// DefaultFavoriteTimeout bounds one detached library submission.
const DefaultFavoriteTimeout = 10 * time.Second

// LibraryWriter adds a catalog track to the user's library.
type LibraryWriter interface {
	AddSong(ctx context.Context, songID string) error
}

// FavoriteLedger records favorite outcomes.
type FavoriteLedger interface {
	SaveFavorite(entry *storage.FavoriteEntry) error
}

// Options configures a Handler.
type Options struct {
	Primary backend.Primary
	Legacy  backend.Legacy

	// Library handles favorite in primary mode. Nil logs and skips.
	Library LibraryWriter

	// Ledger, if set, records every favorite outcome.
	Ledger FavoriteLedger

	// Shutdown runs after quit has been acknowledged. It must not block
	// on the command socket shutting down.
	Shutdown func()

	// FavoriteTimeout bounds one library call. Zero uses
	// DefaultFavoriteTimeout.
	FavoriteTimeout time.Duration

	// Logger receives handler logs. Nil discards them.
	Logger *slog.Logger
}

// Handler is the command dispatcher. It implements ipc.Handler.
type Handler struct {
	selector        *backend.Selector
	library         LibraryWriter
	ledger          FavoriteLedger
	shutdown        func()
	favoriteTimeout time.Duration
	log             *slog.Logger

	// detached tracks in-flight favorite submissions.
	detached sync.WaitGroup
}

var _ ipc.Handler = (*Handler)(nil)

// New creates a Handler.
func New(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.FavoriteTimeout <= 0 {
		opts.FavoriteTimeout = DefaultFavoriteTimeout
	}
	return &Handler{
		selector:        backend.NewSelector(opts.Primary, opts.Legacy),
		library:         opts.Library,
		ledger:          opts.Ledger,
		shutdown:        opts.Shutdown,
		favoriteTimeout: opts.FavoriteTimeout,
		log:             logger,
	}
}

// Handle executes one command.
func (h *Handler) Handle(ctx context.Context, cmd protocol.Command) ipc.Reply {
	ok := ipc.Reply{Line: protocol.ResponseOK}

	switch cmd.Key() {
	case protocol.VerbPause:
		h.control(ctx, cmd, backend.Controller.Pause)
	case protocol.VerbResume, protocol.VerbPlay:
		h.control(ctx, cmd, backend.Controller.Resume)
	case protocol.VerbToggle:
		h.control(ctx, cmd, backend.Controller.Toggle)
	case protocol.VerbSkip, protocol.VerbNext:
		h.control(ctx, cmd, backend.Controller.Next)
	case protocol.VerbPrevious, protocol.VerbPrev:
		h.control(ctx, cmd, backend.Controller.Previous)
	case protocol.VerbFavorite, protocol.VerbLove:
		h.favorite(ctx)
	case protocol.VerbVolume:
		h.volume(ctx, cmd.Arg(0))
	case protocol.VerbStatus:
		return ipc.Reply{Line: strings.TrimSuffix(h.Status(ctx).Encode(), "\n")}
	case protocol.VerbQuit, protocol.VerbExit:
		h.log.Info("quit requested")
		ok.After = h.shutdown
	case protocol.FlagPlaylist:
		parts := cmd.Parts()
		parts[0] = protocol.FlagPlaylist
		h.Play(ctx, protocol.PlayRequestFromParts(parts))
	default:
		// No unknown-command error: every other message is a list of
		// content ids to play.
		h.Play(ctx, protocol.PlayRequestFromParts(cmd.Parts()))
	}

	return ok
}

// Wait blocks until detached favorite submissions finish or ctx is done.
func (h *Handler) Wait(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		h.detached.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

func (h *Handler) control(ctx context.Context, cmd protocol.Command, op func(backend.Controller, context.Context) error) {
	ctl := h.selector.Select(ctx)
	h.log.Debug("routed", "command", cmd.Key(), "mode", ctl.Mode())
	if err := op(ctl, ctx); err != nil {
		h.log.Warn("command failed", "command", cmd.Key(), "mode", ctl.Mode(), "err", err)
	}
}

// Play pauses the legacy application and loads req into the primary
// backend. An empty request is ignored.
func (h *Handler) Play(ctx context.Context, req protocol.PlayRequest) {
	if len(req.IDs) == 0 {
		h.log.Debug("play request with no ids ignored")
		return
	}
	h.log.Debug("loading", "ids", len(req.IDs), "collection", req.Collection)

	if err := h.selector.Legacy().Pause(ctx); err != nil {
		h.log.Debug("legacy pause before load failed", "err", err)
	}
	primary := h.selector.Primary()
	if primary == nil {
		h.log.Warn("no primary backend to load content")
		return
	}
	if err := primary.Load(ctx, req); err != nil {
		h.log.Warn("load failed", "ids", strings.Join(req.IDs, " "), "err", err)
	}
}

// volume applies a relative or absolute change to the system volume. An
// unparsable absolute argument is ignored. Relative changes start from
// FallbackVolume when the current level cannot be read.
func (h *Handler) volume(ctx context.Context, arg string) {
	change, ok := protocol.ParseVolumeArg(arg)
	if !ok {
		h.log.Debug("volume ignored", "arg", arg)
		return
	}

	current := 0
	if change.Relative {
		current = h.systemVolume(ctx)
	}

	level := change.Apply(current)
	h.log.Debug("volume", "arg", arg, "level", level)
	if err := h.selector.Legacy().SetVolume(ctx, level); err != nil {
		h.log.Warn("set volume failed", "level", level, "err", err)
	}
}
