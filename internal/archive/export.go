package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/alfredjeanlab/drivehub/internal/presence"
)

// FormatVersion is written into every snapshot header.
const FormatVersion = "1"

// header is the first JSONL record of a snapshot.
type header struct {
	Version   string    `json:"version"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	UserCount int       `json:"user_count"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ExportJSONL writes a header line followed by one "presence" line per
// entry, in the order given.
func ExportJSONL(w io.Writer, entries []presence.Entry, at time.Time) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:   FormatVersion,
		Type:      "header",
		Timestamp: at.UTC(),
		UserCount: len(entries),
	}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, e := range entries {
		if err := enc.Encode(record{Type: "presence", Data: e}); err != nil {
			return fmt.Errorf("write presence for user %d: %w", e.UserID, err)
		}
	}
	return nil
}
