package service

import "intake-service/internal/models"

// DefaultConfidenceThreshold is the minimum confidence an accepted
// classification must carry.
const DefaultConfidenceThreshold = 0.6

// Gate drops low-confidence classifications and everything classified as
// IGNORE before they reach the queue.
type Gate struct {
	threshold float64
}

// NewGate creates a confidence gate. A negative threshold falls back to the
// default; zero is a valid setting that accepts every non-IGNORE record.
func NewGate(threshold float64) *Gate {
	if threshold < 0 {
		threshold = DefaultConfidenceThreshold
	}
	return &Gate{threshold: threshold}
}

// Threshold returns the configured cutoff.
func (g *Gate) Threshold() float64 { return g.threshold }

// Accept reports whether the record should be enqueued.
func (g *Gate) Accept(rec *models.Classification) bool {
	if rec.MessageType == models.MessageTypeIgnore {
		return false
	}
	return rec.Confidence >= g.threshold
}
