package record

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/roach88/seedsindex/internal/topic"
)

// wire is the decoded payload. Categories are kept as strings so that a
// label this build does not know about does not reject the whole record.
type wire struct {
	Location   string   `json:"location"`
	Categories []string `json:"categories"`
}

// Encode renders the wire form of r. The identifier is not included.
func Encode(r Record) (string, error) {
	labels := make([]string, len(r.Topics))
	for i, t := range r.Topics {
		if !t.Valid() {
			return "", fmt.Errorf("encode record: categories[%d]: invalid tag %s", i, t)
		}
		labels[i] = t.Label()
	}

	data, err := marshalCanonical(map[string]any{
		"location":   r.Location,
		"categories": labels,
	})
	if err != nil {
		return "", fmt.Errorf("encode record: %w", err)
	}
	return string(data), nil
}

// Decode parses a wire payload. The returned record has an empty ID.
//
// Labels are matched case-insensitively. Labels outside the catalog are
// dropped so that a newer catalog on another node cannot make this node
// lose the whole entry.
func Decode(payload string) (Record, error) {
	if payload == "" {
		return Record{}, ErrEmptyPayload
	}

	var w *wire
	if err := json.Unmarshal([]byte(payload), &w); err != nil {
		return Record{}, fmt.Errorf("decode record: %w", err)
	}
	if w == nil {
		return Record{}, fmt.Errorf("decode record: payload is null")
	}
	if err := validateLocation(w.Location); err != nil {
		return Record{}, fmt.Errorf("decode record: %w", err)
	}

	r := Record{
		Location: w.Location,
		Topics:   make([]topic.Tag, 0, len(w.Categories)),
	}
	for _, label := range w.Categories {
		t, ok := topic.ByLabel(label)
		if !ok {
			slog.Debug("dropping unknown category", "label", label)
			continue
		}
		r.Topics = append(r.Topics, t)
	}
	return r, nil
}
