package backend

import "context"

// Mode names the backend variant a command was routed to.
type Mode string

const (
	ModePrimary Mode = "primary"
	ModeLegacy  Mode = "legacy"
)

// Controller is the playback surface both variants offer.
type Controller interface {
	Mode() Mode
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Toggle(ctx context.Context) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
}

// Selector routes control commands to the primary backend while it has an
// active session, and to the legacy backend otherwise.
type Selector struct {
	primary Primary
	legacy  Legacy
}

// NewSelector creates a selector over the two variants.
func NewSelector(primary Primary, legacy Legacy) *Selector {
	return &Selector{primary: primary, legacy: legacy}
}

// Probe reports whether the primary backend has a playing or paused
// session. A failed state query counts as no session.
func (s *Selector) Probe(ctx context.Context) bool {
	if s.primary == nil {
		return false
	}
	state, err := s.primary.State(ctx)
	return err == nil && state.Active()
}

// Select returns the controller for the current probe result.
func (s *Selector) Select(ctx context.Context) Controller {
	if s.Probe(ctx) {
		return primaryController{s.primary}
	}
	return legacyController{s.legacy}
}

// Primary returns the primary backend.
func (s *Selector) Primary() Primary { return s.primary }

// Legacy returns the legacy backend.
func (s *Selector) Legacy() Legacy { return s.legacy }

type primaryController struct{ p Primary }

func (c primaryController) Mode() Mode { return ModePrimary }
func (c primaryController) Pause(ctx context.Context) error { return c.p.Pause(ctx) }
func (c primaryController) Resume(ctx context.Context) error { return c.p.Play(ctx) }
func (c primaryController) Next(ctx context.Context) error { return c.p.Next(ctx) }
func (c primaryController) Previous(ctx context.Context) error { return c.p.Previous(ctx) }

func (c primaryController) Toggle(ctx context.Context) error {
	state, err := c.p.State(ctx)
	if err != nil {
		return err
	}
	if state == StatePlaying {
		return c.p.Pause(ctx)
	}
	return c.p.Play(ctx)
}

type legacyController struct{ l Legacy }

func (c legacyController) Mode() Mode { return ModeLegacy }
func (c legacyController) Pause(ctx context.Context) error { return c.l.Pause(ctx) }
func (c legacyController) Resume(ctx context.Context) error { return c.l.Play(ctx) }
func (c legacyController) Toggle(ctx context.Context) error { return c.l.PlayPause(ctx) }
func (c legacyController) Next(ctx context.Context) error { return c.l.Next(ctx) }
func (c legacyController) Previous(ctx context.Context) error { return c.l.Previous(ctx) }
