// Package protocol defines the text command language spoken over the xlg
// command socket and the status snapshot the host returns for "status".
//
// A message is a single line of space-separated words. The first word is the
// verb (case-insensitive), the rest are arguments. There is no length prefix
// and no request terminator: one read on the server side is one message.
// Every response is one line terminated by "\n".
package protocol

import (
	"strings"
)

// Verbs understood by the host. Any other verb is treated as a list of
// content identifiers to play.
const (
	VerbPause    = "pause"
	VerbResume   = "resume"
	VerbPlay     = "play"
	VerbToggle   = "toggle"
	VerbSkip     = "skip"
	VerbNext     = "next"
	VerbPrevious = "previous"
	VerbPrev     = "prev"
	VerbFavorite = "favorite"
	VerbLove     = "love"
	VerbVolume   = "volume"
	VerbStatus   = "status"
	VerbQuit     = "quit"
	VerbExit     = "exit"

	// FlagPlaylist switches play-by-identifier into collection mode.
	FlagPlaylist = "--playlist"
)

// ResponseOK is the acknowledgement sent for every non-status command.
const ResponseOK = "OK"

// DefaultVolumeDelta is applied when a relative volume argument has no
// usable numeric suffix ("+", "-", "+abc").
const DefaultVolumeDelta = 10

// Command is one parsed message.
type Command struct {
	// Verb is the first word exactly as sent.
	Verb string

	// Args are the remaining words, in order.
	Args []string
}

// ParseCommand parses one raw message. Surrounding whitespace is trimmed and
// the rest is split on single spaces, so repeated spaces yield empty
// arguments. ok is false for an empty message, which callers drop without
// responding.
func ParseCommand(message string) (cmd Command, ok bool) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Command{}, false
	}
	parts := strings.Split(message, " ")
	return Command{Verb: parts[0], Args: parts[1:]}, true
}

// Key returns the lower-cased verb used for dispatch.
func (c Command) Key() string {
	return strings.ToLower(c.Verb)
}

// Parts returns the verb followed by the arguments.
func (c Command) Parts() []string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Verb)
	return append(parts, c.Args...)
}

// String renders the command back into wire form.
func (c Command) String() string {
	return strings.Join(c.Parts(), " ")
}

// Arg returns the i-th argument or "" when absent.
func (c Command) Arg(i int) string {
	if i < 0 || i >= len(c.Args) {
		return ""
	}
	return c.Args[i]
}

// PlayRequest is the content-loading form of a command: either a list of
// individual items or a single collection.
type PlayRequest struct {
	IDs        []string
	Collection bool
}

// PlayRequestFromParts interprets a raw part list as a play request. A
// leading FlagPlaylist selects collection mode and is not itself an id.
func PlayRequestFromParts(parts []string) PlayRequest {
	if len(parts) > 0 && parts[0] == FlagPlaylist {
		return PlayRequest{IDs: nonEmpty(parts[1:]), Collection: true}
	}
	return PlayRequest{IDs: nonEmpty(parts)}
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
