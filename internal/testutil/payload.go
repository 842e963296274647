package testutil

import (
	"fmt"

	"github.com/roach88/seedsindex/internal/record"
	"github.com/roach88/seedsindex/internal/topic"
)

// Payload encodes a record for location and topics, panicking on invalid
// input. Use it to seed ledgers in tests.
func Payload(location string, topics ...topic.Tag) string {
	r, err := record.New(location, topics...)
	if err != nil {
		panic(fmt.Sprintf("testutil.Payload: %v", err))
	}
	s, err := record.Encode(r)
	if err != nil {
		panic(fmt.Sprintf("testutil.Payload: %v", err))
	}
	return s
}
