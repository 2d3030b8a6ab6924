package model

import "time"

// RawMessage is a single SMS record as supplied by a message source.
// It is an immutable value; the extraction pipeline never modifies it.
type RawMessage struct {
	Timestamp time.Time
	Sender    string
	Body      string
}
