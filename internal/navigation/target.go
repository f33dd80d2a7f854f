package navigation

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ErlanBelekov/sultan-shell/internal/domain"
)

// ParseTarget validates a navigation target received over the wire. Only
// a JSON string naming a known view is accepted; objects, numbers and
// null (a renderer passing its click event, say) are rejected.
func ParseTarget(raw json.RawMessage) (domain.ViewID, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '"' {
		return "", fmt.Errorf("%w: target is not a string", domain.ErrInvalidView)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidView, err)
	}
	view, ok := domain.ParseView(s)
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidView, s)
	}
	return view, nil
}
