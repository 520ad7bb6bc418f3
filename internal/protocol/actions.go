package protocol

import "strings"

// ActionPrefix namespaces control-surface action identifiers
// (<vendor>.<product>.<verb>).
const ActionPrefix = "com.xlg.player."

// Control-surface action verbs.
const (
	ActionToggle     = "toggle"
	ActionSkip       = "skip"
	ActionPrevious   = "previous"
	ActionVolumeUp   = "volume-up"
	ActionVolumeDown = "volume-down"
	ActionFavorite   = "favorite"
)

// actionCommands is the fixed, exhaustive action table.
var actionCommands = map[string]string{
	ActionToggle:     VerbToggle,
	ActionSkip:       VerbSkip,
	ActionPrevious:   VerbPrevious,
	ActionVolumeUp:   VerbVolume + " +10",
	ActionVolumeDown: VerbVolume + " -10",
	ActionFavorite:   VerbFavorite,
}

// ActionID returns the fully-qualified identifier for an action verb.
func ActionID(verb string) string {
	return ActionPrefix + verb
}

// CommandForAction translates a fully-qualified action identifier into the
// command text to send. ok is false for unmapped actions, which are dropped.
func CommandForAction(actionID string) (string, bool) {
	if !strings.HasPrefix(actionID, ActionPrefix) {
		return "", false
	}
	cmd, ok := actionCommands[strings.TrimPrefix(actionID, ActionPrefix)]
	return cmd, ok
}

// Title display limits for control-surface keys.
const (
	titleMaxRunes  = 12
	titleKeepRunes = 11
	titleEllipsis  = "..."
)

// TruncateTitle shortens a title for a key face: titles longer than 12
// characters become their first 11 characters followed by "...".
func TruncateTitle(title string) string {
	r := []rune(title)
	if len(r) <= titleMaxRunes {
		return title
	}
	return string(r[:titleKeepRunes]) + titleEllipsis
}
