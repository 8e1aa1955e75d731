package batch

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"intake-service/internal/models"
)

const (
	DefaultWindow  = 2 * time.Second
	DefaultMaxSize = 10
)

// FlushFunc receives a completed batch. It runs on its own goroutine so a
// slow downstream never blocks intake.
type FlushFunc func(events []*models.NormalizedEvent)

// Batcher accumulates rapid consecutive messages from the same author in the
// same channel so that a thought split across several quick sends reaches
// the classifier as one unit. A batch flushes when its window expires since
// the last append, or immediately when it reaches the size cap.
type Batcher struct {
	window  time.Duration
	maxSize int
	flush   FlushFunc
	logger  *zap.Logger

	mu      sync.Mutex
	pending map[string]*bucket
	closed  bool
}

type bucket struct {
	events []*models.NormalizedEvent
	timer  *time.Timer
}

// New creates a batcher. window <= 0 or maxSize <= 0 fall back to defaults.
func New(window time.Duration, maxSize int, flush FlushFunc, logger *zap.Logger) *Batcher {
	if window <= 0 {
		window = DefaultWindow
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Batcher{
		window:  window,
		maxSize: maxSize,
		flush:   flush,
		logger:  logger,
		pending: make(map[string]*bucket),
	}
}

// Add appends an event to its author/channel bucket. Each append resets the
// bucket's window, so a steady stream keeps accumulating until the size cap.
func (b *Batcher) Add(ev *models.NormalizedEvent) {
	key := bucketKey(ev)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		go b.flush([]*models.NormalizedEvent{ev})
		return
	}

	bk, ok := b.pending[key]
	if !ok {
		bk = &bucket{}
		b.pending[key] = bk
	}
	bk.events = append(bk.events, ev)

	if len(bk.events) >= b.maxSize {
		events := bk.events
		if bk.timer != nil {
			bk.timer.Stop()
		}
		delete(b.pending, key)
		b.mu.Unlock()

		b.logger.Debug("batch flushed at size cap",
			zap.String("bucket", key),
			zap.Int("size", len(events)))
		go b.flush(events)
		return
	}

	if bk.timer == nil {
		bk.timer = time.AfterFunc(b.window, func() { b.expire(key) })
	} else {
		bk.timer.Reset(b.window)
	}
	b.mu.Unlock()
}

func (b *Batcher) expire(key string) {
	b.mu.Lock()
	bk, ok := b.pending[key]
	if !ok {
		b.mu.Unlock()
		return
	}
	events := bk.events
	delete(b.pending, key)
	b.mu.Unlock()

	b.logger.Debug("batch flushed on window expiry",
		zap.String("bucket", key),
		zap.Int("size", len(events)))
	b.flush(events)
}

// Close flushes every pending bucket synchronously and marks the batcher
// closed; later Adds bypass batching and flush single-event batches.
func (b *Batcher) Close() {
	b.mu.Lock()
	b.closed = true
	pending := b.pending
	b.pending = make(map[string]*bucket)
	b.mu.Unlock()

	for _, bk := range pending {
		if bk.timer != nil {
			bk.timer.Stop()
		}
		b.flush(bk.events)
	}
}

func bucketKey(ev *models.NormalizedEvent) string {
	return ev.AuthorID + ":" + ev.ChannelID
}

// timestampLabel renders a platform timestamp ("1758369600.000100") as an
// ISO instant. Raw epoch digit runs read as phone numbers to the PII
// redaction applied to the combined text later.
func timestampLabel(ts string) string {
	secStr := ts
	if i := strings.IndexByte(ts, '.'); i >= 0 {
		secStr = ts[:i]
	}
	if sec, err := strconv.ParseInt(secStr, 10, 64); err == nil && sec > 0 {
		return time.Unix(sec, 0).UTC().Format(time.RFC3339)
	}
	return ts
}

// Combine merges a batch into a single event carrying the first event's
// identity. Single-event batches pass through untouched.
func Combine(events []*models.NormalizedEvent) *models.NormalizedEvent {
	if len(events) == 1 {
		return events[0]
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("The following %d messages were sent in quick succession:\n", len(events)))
	for i, ev := range events {
		sb.WriteString(fmt.Sprintf("Message %d [%s]: %s\n", i+1, timestampLabel(ev.Timestamp), ev.Text))
	}

	merged := *events[0]
	merged.Text = strings.TrimRight(sb.String(), "\n")
	merged.Links = nil
	merged.Attachments = nil
	for _, ev := range events {
		merged.Links = append(merged.Links, ev.Links...)
		merged.Attachments = append(merged.Attachments, ev.Attachments...)
	}
	return &merged
}
