package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// StatusSnapshot is the reply to "status". It is built fresh for every
// request and never cached.
type StatusSnapshot struct {
	Playing bool   `json:"playing"`
	Title   string `json:"title"`
	Artist  string `json:"artist"`
	Volume  int    `json:"volume"`
}

// Encode renders the snapshot as a single JSON line terminated by "\n".
// HTML characters are left unescaped so titles round-trip verbatim.
func (s StatusSnapshot) Encode() string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		// Only strings, a bool and an int: encoding cannot fail.
		return fmt.Sprintf("{\"playing\":%t,\"title\":\"\",\"artist\":\"\",\"volume\":%d}\n", s.Playing, s.Volume)
	}
	return buf.String()
}

// ParseStatus decodes a status response. A missing volume decodes as zero; a
// non-numeric volume, or any other malformed input, is an error and the
// caller keeps its previous state.
func ParseStatus(response string) (StatusSnapshot, error) {
	var s StatusSnapshot
	response = strings.TrimSpace(response)
	if response == "" {
		return s, fmt.Errorf("empty status response")
	}
	if err := json.Unmarshal([]byte(response), &s); err != nil {
		return StatusSnapshot{}, fmt.Errorf("decode status: %w", err)
	}
	return s, nil
}

// ClampVolume bounds v to the 0..100 range.
func ClampVolume(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
