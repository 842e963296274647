package topic

import (
	"encoding/json"
	"fmt"

	"golang.org/x/text/cases"
)

// Tag identifies one data category.
//
// The zero value is Any. It is not a catalog entry; query filters use it to
// mean "every record that has at least one topic".
type Tag uint8

const (
	Any Tag = iota
	Agriculture
	Automotive
	Culture
	Economy
	Education
	Energy
	Environment
	Government
	Health
	International
	Justice
	Manufacturing
	Regions
	Science
	Transport
	Wellbeing
	Society
)

// Entry is a catalog row.
type Entry struct {
	Tag         Tag    `json:"-"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// catalog is indexed by Tag. Row 0 (Any) is intentionally empty.
var catalog = [...]Entry{
	Any:           {},
	Agriculture:   {Agriculture, "Agriculture", "Agriculture, fisheries, forestry and food"},
	Automotive:    {Automotive, "Automotive", "Automotive"},
	Culture:       {Culture, "Culture", "Culture and sport"},
	Economy:       {Economy, "Economy", "Economy and finance"},
	Education:     {Education, "Education", "Education"},
	Energy:        {Energy, "Energy", "Energy"},
	Environment:   {Environment, "Environment", "Environment"},
	Government:    {Government, "Government", "Government and public sector"},
	Health:        {Health, "Health", "Health"},
	International: {International, "International", "International issues"},
	Justice:       {Justice, "Justice", "Justice, legal system and public safety"},
	Manufacturing: {Manufacturing, "Manufacturing", "Manufacturing"},
	Regions:       {Regions, "Regions", "Regions and cities"},
	Science:       {Science, "Science", "Science and technology"},
	Transport:     {Transport, "Transport", "Transport"},
	Wellbeing:     {Wellbeing, "Wellbeing", "Wellbeing"},
	Society:       {Society, "society", "Population and society"},
}

var fold = cases.Fold()

// byFoldedLabel is built once from catalog.
var byFoldedLabel = func() map[string]Tag {
	m := make(map[string]Tag, len(catalog)-1)
	for _, e := range catalog[1:] {
		m[fold.String(e.Label)] = e.Tag
	}
	return m
}()

// All returns every catalog entry in declaration order.
func All() []Entry {
	out := make([]Entry, len(catalog)-1)
	copy(out, catalog[1:])
	return out
}

// ByLabel looks a tag up by its label, ignoring case.
// Unknown labels report false.
func ByLabel(label string) (Tag, bool) {
	t, ok := byFoldedLabel[fold.String(label)]
	return t, ok
}

// Valid reports whether t is a catalog entry. Any is not.
func (t Tag) Valid() bool {
	return t > Any && int(t) < len(catalog)
}

// Label returns the canonical wire label, or "" for Any and unknown values.
func (t Tag) Label() string {
	if !t.Valid() {
		return ""
	}
	return catalog[t].Label
}

// Description returns the human-readable description.
func (t Tag) Description() string {
	if !t.Valid() {
		return ""
	}
	return catalog[t].Description
}

func (t Tag) String() string {
	if t == Any {
		return "Any"
	}
	if !t.Valid() {
		return fmt.Sprintf("Tag(%d)", uint8(t))
	}
	return catalog[t].Label
}

// MarshalJSON encodes the tag as its label.
func (t Tag) MarshalJSON() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("topic: cannot encode %s", t)
	}
	return json.Marshal(catalog[t].Label)
}

// UnmarshalJSON decodes a label, case-insensitively.
func (t *Tag) UnmarshalJSON(data []byte) error {
	var label string
	if err := json.Unmarshal(data, &label); err != nil {
		return fmt.Errorf("topic: %w", err)
	}
	tag, ok := ByLabel(label)
	if !ok {
		return fmt.Errorf("topic: unknown label %q", label)
	}
	*t = tag
	return nil
}
