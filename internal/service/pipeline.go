package service

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"intake-service/internal/batch"
	"intake-service/internal/classifier"
	"intake-service/internal/dedup"
	"intake-service/internal/models"
	"intake-service/internal/prefilter"
	"intake-service/internal/prompt"
	"intake-service/internal/validate"
)

// Outcome is the terminal disposition of one delivery.
type Outcome string

const (
	OutcomeEnqueued  Outcome = "enqueued"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeFiltered  Outcome = "filtered"
	OutcomeDropped   Outcome = "dropped"
	OutcomeFailed    Outcome = "failed"
)

// Classifier produces raw model output for a prompt.
type Classifier interface {
	Classify(ctx context.Context, p prompt.Prompt) (string, error)
}

// Publisher pushes an accepted record downstream and returns the queue
// message ID.
type Publisher interface {
	Publish(ctx context.Context, rec *models.Classification, ev *models.NormalizedEvent) (string, error)
}

// Acknowledger posts a confirmation back to the source channel. May be nil.
type Acknowledger interface {
	Acknowledge(ctx context.Context, rec *models.Classification, channel, threadTS string) error
}

// Stats are the pipeline's running counters.
type Stats struct {
	Received   uint64 `json:"received"`
	Duplicates uint64 `json:"duplicates"`
	Filtered   uint64 `json:"filtered"`
	Dropped    uint64 `json:"dropped"`
	Enqueued   uint64 `json:"enqueued"`
	Failed     uint64 `json:"failed"`
}

// Pipeline runs a normalized event through dedup, prefilter, prompt
// building, classification, validation, the confidence gate, and the queue
// publisher.
type Pipeline struct {
	deduper    *dedup.Deduper
	filter     *prefilter.Filter
	builder    *prompt.Builder
	classifier Classifier
	gate       *Gate
	publisher  Publisher
	ack        Acknowledger
	logger     *zap.Logger

	received   atomic.Uint64
	duplicates atomic.Uint64
	filtered   atomic.Uint64
	dropped    atomic.Uint64
	enqueued   atomic.Uint64
	failed     atomic.Uint64
}

// NewPipeline wires the stages together. ack may be nil to disable
// acknowledgments.
func NewPipeline(
	deduper *dedup.Deduper,
	filter *prefilter.Filter,
	builder *prompt.Builder,
	cl Classifier,
	gate *Gate,
	publisher Publisher,
	ack Acknowledger,
	logger *zap.Logger,
) *Pipeline {
	return &Pipeline{
		deduper:    deduper,
		filter:     filter,
		builder:    builder,
		classifier: cl,
		gate:       gate,
		publisher:  publisher,
		ack:        ack,
		logger:     logger,
	}
}

// Admit runs the cheap synchronous stages: dedup then prefilter. It returns
// the outcome if the event is finished here, or empty to continue into
// Dispatch.
func (p *Pipeline) Admit(ev *models.NormalizedEvent) Outcome {
	p.received.Add(1)

	if p.deduper.IsDuplicate(ev) {
		p.duplicates.Add(1)
		p.logger.Debug("duplicate delivery skipped",
			zap.String("event_id", ev.EventID),
			zap.String("channel", ev.ChannelID))
		return OutcomeDuplicate
	}

	if p.filter.ShouldSkip(ev.Text) {
		p.filtered.Add(1)
		p.logger.Debug("message filtered before classification",
			zap.String("channel", ev.ChannelID),
			zap.Int("text_len", len(ev.Text)))
		return OutcomeFiltered
	}

	return ""
}

// Dispatch classifies a batch of admitted events as one unit and routes the
// result. Errors are returned only when a redelivery could succeed: retry
// exhaustion on a transient provider failure, or a failed enqueue of an
// accepted record. Everything else is a logged terminal drop.
func (p *Pipeline) Dispatch(ctx context.Context, events []*models.NormalizedEvent) (Outcome, error) {
	if len(events) == 0 {
		return OutcomeDropped, nil
	}
	ev := batch.Combine(events)

	pr := p.builder.Build(ev)
	raw, err := p.classifier.Classify(ctx, pr)
	if err != nil {
		if classifier.KindOf(err).Retryable() {
			p.failed.Add(1)
			return OutcomeFailed, fmt.Errorf("classification failed after retries: %w", err)
		}
		p.dropped.Add(1)
		p.logger.Error("classification failed permanently, dropping",
			zap.String("kind", classifier.KindOf(err).String()),
			zap.String("channel", ev.ChannelID),
			zap.Error(err))
		return OutcomeDropped, nil
	}

	rec, err := validate.Parse(raw)
	if err != nil {
		p.dropped.Add(1)
		p.logger.Error("model output rejected, dropping",
			zap.String("channel", ev.ChannelID),
			zap.String("snippet", validate.Truncate(raw)),
			zap.Error(err))
		return OutcomeDropped, nil
	}

	if !p.gate.Accept(rec) {
		p.dropped.Add(1)
		p.logger.Info("classification below gate, dropping",
			zap.String("message_type", string(rec.MessageType)),
			zap.Float64("confidence", rec.Confidence),
			zap.Float64("threshold", p.gate.Threshold()),
			zap.String("channel", ev.ChannelID))
		return OutcomeDropped, nil
	}

	messageID, err := p.publisher.Publish(ctx, rec, ev)
	if err != nil {
		p.failed.Add(1)
		return OutcomeFailed, fmt.Errorf("enqueue failed: %w", err)
	}
	p.enqueued.Add(1)

	p.logger.Info("classification enqueued",
		zap.String("message_id", messageID),
		zap.String("message_type", string(rec.MessageType)),
		zap.Float64("confidence", rec.Confidence),
		zap.String("channel", ev.ChannelID))

	if p.ack != nil {
		if err := p.ack.Acknowledge(ctx, rec, ev.ChannelID, ev.Timestamp); err != nil {
			// The record is already safe in the queue.
			p.logger.Warn("acknowledgment failed",
				zap.String("channel", ev.ChannelID),
				zap.Error(err))
		}
	}

	return OutcomeEnqueued, nil
}

// Process is Admit followed by Dispatch for a single event.
func (p *Pipeline) Process(ctx context.Context, ev *models.NormalizedEvent) (Outcome, error) {
	if out := p.Admit(ev); out != "" {
		return out, nil
	}
	return p.Dispatch(ctx, []*models.NormalizedEvent{ev})
}

// Snapshot returns the current counters.
func (p *Pipeline) Snapshot() Stats {
	return Stats{
		Received:   p.received.Load(),
		Duplicates: p.duplicates.Load(),
		Filtered:   p.filtered.Load(),
		Dropped:    p.dropped.Load(),
		Enqueued:   p.enqueued.Load(),
		Failed:     p.failed.Load(),
	}
}
