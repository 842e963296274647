package record

import (
	"errors"
	"fmt"
	"net/url"
	"slices"

	"github.com/roach88/seedsindex/internal/topic"
)

// ErrEmptyPayload is returned by Decode for an empty value. Callers treat
// empty values as deletions, so seeing this error usually means the caller
// skipped that check.
var ErrEmptyPayload = errors.New("record: empty payload")

// Record is one participant's advertisement.
type Record struct {
	// ID is the hex-rendered ledger key ("0x" + 64 lowercase hex digits).
	// Never serialized on the wire.
	ID       string      `json:"id"`
	Location string      `json:"location"`
	Topics   []topic.Tag `json:"categories"`
}

// New builds a record for publishing. The location must be a parseable,
// non-empty URI and every topic must be a catalog entry.
func New(location string, topics ...topic.Tag) (Record, error) {
	if location == "" {
		return Record{}, fmt.Errorf("record: location is required")
	}
	if err := validateLocation(location); err != nil {
		return Record{}, err
	}
	for i, t := range topics {
		if !t.Valid() {
			return Record{}, fmt.Errorf("record: topics[%d]: invalid tag %s", i, t)
		}
	}
	return Record{Location: location, Topics: slices.Clone(topics)}, nil
}

// HasTopic reports whether any of the record's topics equals t.
func (r Record) HasTopic(t topic.Tag) bool {
	return slices.Contains(r.Topics, t)
}

// Clone returns a copy that shares no memory with r.
func (r Record) Clone() Record {
	r.Topics = slices.Clone(r.Topics)
	return r
}

// Equal compares location and topics. The identifier is ignored because it
// is not part of the advertised content.
func (r Record) Equal(o Record) bool {
	return r.Location == o.Location && slices.Equal(r.Topics, o.Topics)
}

func (r Record) String() string {
	return fmt.Sprintf("Record{%s, %s, %v}", r.ID, r.Location, r.Topics)
}

func validateLocation(location string) error {
	if _, err := url.Parse(location); err != nil {
		return fmt.Errorf("record: invalid location: %w", err)
	}
	return nil
}
