package protocol

import (
	"strconv"
	"strings"
)

// VolumeChange is a parsed "volume" argument.
type VolumeChange struct {
	// Relative is true for "+N" and "-N" forms.
	Relative bool

	// Value is the signed delta for relative changes, or the requested
	// level for absolute ones (not yet clamped).
	Value int
}

// ParseVolumeArg parses the argument of a volume command.
//
//	"+N" / "-N"  relative, delta defaults to DefaultVolumeDelta when N is
//	             missing or not a number
//	"N"          absolute
//
// ok is false for an empty or non-numeric absolute argument.
func ParseVolumeArg(arg string) (VolumeChange, bool) {
	switch {
	case strings.HasPrefix(arg, "+"):
		return VolumeChange{Relative: true, Value: relativeDelta(arg[1:])}, true
	case strings.HasPrefix(arg, "-"):
		return VolumeChange{Relative: true, Value: -relativeDelta(arg[1:])}, true
	}
	n, err := strconv.Atoi(arg)
	if err != nil {
		return VolumeChange{}, false
	}
	return VolumeChange{Value: n}, true
}

func relativeDelta(suffix string) int {
	n, err := strconv.Atoi(suffix)
	if err != nil {
		return DefaultVolumeDelta
	}
	return n
}

// Apply returns the resulting level given the current one, clamped to 0..100.
func (v VolumeChange) Apply(current int) int {
	if v.Relative {
		return ClampVolume(current + v.Value)
	}
	return ClampVolume(v.Value)
}
