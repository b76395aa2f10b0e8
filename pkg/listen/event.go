package listen

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Event is one metadata-available announcement. Producers publish either the
// JSON form or a bare identifier.
type Event struct {
	PaperID string `json:"paper_id"`
}

// ParseEvent decodes an announcement body. Bodies that are not JSON are
// treated as bare paper identifiers.
func ParseEvent(body []byte) (Event, error) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return Event{}, fmt.Errorf("listen: empty announcement body")
	}

	if strings.HasPrefix(trimmed, "{") {
		var evt Event
		if err := json.Unmarshal(body, &evt); err != nil {
			return Event{}, fmt.Errorf("listen: malformed announcement: %w", err)
		}
		if evt.PaperID == "" {
			return Event{}, fmt.Errorf("listen: announcement without paper_id")
		}
		return evt, nil
	}

	return Event{PaperID: trimmed}, nil
}
