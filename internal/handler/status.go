package handler

import (
	"context"

	"github.com/xlg/player/internal/backend"
	"github.com/xlg/player/internal/protocol"
)

// Status builds a fresh snapshot. Playback fields come from the primary
// session when it has a titled current entry, and from the legacy player
// otherwise. Volume is always the system volume.
func (h *Handler) Status(ctx context.Context) protocol.StatusSnapshot {
	var snap protocol.StatusSnapshot
	primary, legacy := h.selector.Primary(), h.selector.Legacy()

	if primary != nil {
		state, err := primary.State(ctx)
		if err == nil && state.Active() {
			track, ok, err := primary.NowPlaying(ctx)
			if err != nil {
				h.log.Debug("primary now playing", "err", err)
			} else if ok {
				snap.Playing = state == backend.StatePlaying
				snap.Title = track.Title
				snap.Artist = track.Artist
			}
		}
	}

	if snap.Title == "" {
		if state, err := legacy.PlayerState(ctx); err != nil {
			h.log.Debug("legacy player state", "err", err)
		} else if state == backend.StatePlaying.String() {
			snap.Playing = true
		}
		if track, err := legacy.CurrentTrack(ctx); err != nil {
			h.log.Debug("legacy current track", "err", err)
		} else {
			snap.Title = track.Title
			snap.Artist = track.Artist
		}
	}

	snap.Volume = h.systemVolume(ctx)
	return snap
}

func (h *Handler) systemVolume(ctx context.Context) int {
	v, err := h.selector.Legacy().Volume(ctx)
	if err != nil {
		h.log.Debug("read volume", "err", err)
		return FallbackVolume
	}
	return protocol.ClampVolume(v)
}
