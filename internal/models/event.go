package models

import "encoding/json"

// NormalizedEvent is the canonical view of one inbound delivery, produced by
// the normalizer and treated as immutable for the rest of the pipeline run.
type NormalizedEvent struct {
	Text        string
	AuthorID    string
	ChannelID   string
	EventID     string
	EventType   string
	ThreadID    string
	Timestamp   string // platform timestamp, e.g. "1758369600.000100"
	Links       []string
	Attachments []json.RawMessage
	Bot         bool
}
