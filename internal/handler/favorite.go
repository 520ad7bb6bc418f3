package handler

import (
	"context"

	"github.com/xlg/player/internal/backend"
	"github.com/xlg/player/internal/config"
	apperrors "github.com/xlg/player/internal/errors"
	"github.com/xlg/player/internal/storage"
)

func (h *Handler) favorite(ctx context.Context) {
	ctl := h.selector.Select(ctx)
	h.log.Debug("favorite", "mode", ctl.Mode())

	if ctl.Mode() == backend.ModeLegacy {
		h.toggleLegacyFavorite(ctx)
		return
	}

	track, ok, err := h.selector.Primary().NowPlaying(ctx)
	switch {
	case err != nil:
		h.log.Warn("favorite: read now playing", "err", err)
		return
	case !ok:
		h.log.Info("favorite: nothing playing")
		return
	}
	if h.library == nil {
		h.log.Warn("favorite: no library client configured")
		h.record(track, backend.ModePrimary, errNoLibrary)
		return
	}

	// The library call is slow and rate limited; run it off the
	// dispatcher so OK goes out immediately. track is a copy.
	h.detached.Add(1)
	go func() {
		defer h.detached.Done()
		h.submitFavorite(track)
	}()
}

var errNoLibrary = apperrors.LibraryTokenMissing(config.UserTokenKey)

func (h *Handler) submitFavorite(track backend.Track) {
	ctx, cancel := context.WithTimeout(context.Background(), h.favoriteTimeout)
	defer cancel()

	err := h.library.AddSong(ctx, track.ID)
	if err != nil {
		h.log.Warn("favorite failed", "track", track.ID, "title", track.Title, "err", err)
	} else {
		h.log.Info("favorited", "track", track.ID, "title", track.Title, "artist", track.Artist)
	}
	h.record(track, backend.ModePrimary, err)
}

func (h *Handler) toggleLegacyFavorite(ctx context.Context) {
	var track backend.Track
	if t, err := h.selector.Legacy().CurrentTrack(ctx); err == nil {
		track = t
	}

	err := h.selector.Legacy().ToggleFavorite(ctx)
	if err != nil {
		h.log.Warn("favorite failed", "mode", backend.ModeLegacy, "err", err)
	}
	h.record(track, backend.ModeLegacy, err)
}

func (h *Handler) record(track backend.Track, mode backend.Mode, err error) {
	if h.ledger == nil {
		return
	}

	entry := &storage.FavoriteEntry{
		TrackID: track.ID,
		Title:   track.Title,
		Artist:  track.Artist,
		Mode:    string(mode),
		Status:  favoriteStatus(mode, err),
	}
	if err != nil {
		entry.Error = err.Error()
	}
	if err := h.ledger.SaveFavorite(entry); err != nil {
		h.log.Warn("record favorite", "err", err)
	}
}

func favoriteStatus(mode backend.Mode, err error) string {
	switch {
	case apperrors.IsCode(err, apperrors.CodeLibraryRateLimited):
		return storage.FavoriteRateLimited
	case err != nil:
		return storage.FavoriteFailed
	case mode == backend.ModeLegacy:
		return storage.FavoriteToggled
	default:
		return storage.FavoriteAdded
	}
}
