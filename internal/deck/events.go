package deck

import (
	"encoding/json"
	"fmt"

	apperrors "github.com/xlg/player/internal/errors"
)

// Inbound event names.
const (
	EventWillAppear    = "willAppear"
	EventWillDisappear = "willDisappear"
	EventKeyDown       = "keyDown"
)

// Outbound event names.
const (
	EventSetState = "setState"
	EventSetTitle = "setTitle"
)

// Key states pushed to the toggle action.
const (
	StatePaused  = 0
	StatePlaying = 1
)

// Event is one message from the UI host.
type Event struct {
	Event   string          `json:"event"`
	Action  string          `json:"action,omitempty"`
	Context string          `json:"context,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ParseEvent decodes an inbound message.
func ParseEvent(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, apperrors.DeckInvalidEvent(err)
	}
	if ev.Event == "" {
		return Event{}, apperrors.DeckInvalidEvent(fmt.Errorf("missing event name"))
	}
	return ev, nil
}

// registration is sent once when a connection opens.
type registration struct {
	Event string `json:"event"`
	UUID  string `json:"uuid"`
}

// update is an outbound message addressed to one key context.
type update struct {
	Event   string      `json:"event"`
	Context string      `json:"context"`
	Payload interface{} `json:"payload"`
}

type statePayload struct {
	State int `json:"state"`
}

type titlePayload struct {
	Title string `json:"title"`
}

func setState(context string, playing bool) update {
	state := StatePaused
	if playing {
		state = StatePlaying
	}
	return update{Event: EventSetState, Context: context, Payload: statePayload{State: state}}
}

func setTitle(context, title string) update {
	return update{Event: EventSetTitle, Context: context, Payload: titlePayload{Title: title}}
}
