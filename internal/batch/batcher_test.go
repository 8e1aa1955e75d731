package batch

import (
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"intake-service/internal/models"
)

type collector struct {
	mu      sync.Mutex
	batches [][]*models.NormalizedEvent
	signal  chan struct{}
}

func newCollector() *collector {
	return &collector{signal: make(chan struct{}, 16)}
}

func (c *collector) flush(events []*models.NormalizedEvent) {
	c.mu.Lock()
	c.batches = append(c.batches, events)
	c.mu.Unlock()
	c.signal <- struct{}{}
}

func (c *collector) wait(t *testing.T) []*models.NormalizedEvent {
	t.Helper()
	select {
	case <-c.signal:
	case <-time.After(2 * time.Second):
		t.Fatal("no batch flushed")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.batches[len(c.batches)-1]
}

func ev(author, channel, text string) *models.NormalizedEvent {
	return &models.NormalizedEvent{AuthorID: author, ChannelID: channel, Text: text, Timestamp: "1758369600.000100"}
}

func TestFlushOnWindowExpiry(t *testing.T) {
	c := newCollector()
	b := New(30*time.Millisecond, 10, c.flush, zap.NewNop())
	defer b.Close()

	b.Add(ev("U1", "C1", "first"))
	b.Add(ev("U1", "C1", "second"))

	got := c.wait(t)
	if len(got) != 2 {
		t.Fatalf("batch size = %d, want 2", len(got))
	}
	if got[0].Text != "first" || got[1].Text != "second" {
		t.Fatal("batch order lost")
	}
}

func TestFlushAtSizeCap(t *testing.T) {
	c := newCollector()
	b := New(time.Hour, 3, c.flush, zap.NewNop())
	defer b.Close()

	b.Add(ev("U1", "C1", "a"))
	b.Add(ev("U1", "C1", "b"))
	b.Add(ev("U1", "C1", "c"))

	got := c.wait(t)
	if len(got) != 3 {
		t.Fatalf("batch size = %d, want 3", len(got))
	}
}

func TestSeparateBucketsPerAuthorChannel(t *testing.T) {
	c := newCollector()
	b := New(30*time.Millisecond, 10, c.flush, zap.NewNop())
	defer b.Close()

	b.Add(ev("U1", "C1", "from u1"))
	b.Add(ev("U2", "C1", "from u2"))

	first := c.wait(t)
	second := c.wait(t)
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("bucket sizes = %d, %d; authors must not share a batch", len(first), len(second))
	}
}

func TestAppendResetsWindow(t *testing.T) {
	c := newCollector()
	b := New(60*time.Millisecond, 10, c.flush, zap.NewNop())
	defer b.Close()

	b.Add(ev("U1", "C1", "a"))
	time.Sleep(35 * time.Millisecond)
	b.Add(ev("U1", "C1", "b"))
	time.Sleep(35 * time.Millisecond)

	c.mu.Lock()
	n := len(c.batches)
	c.mu.Unlock()
	if n != 0 {
		t.Fatal("window expired despite being reset by the second append")
	}

	got := c.wait(t)
	if len(got) != 2 {
		t.Fatalf("batch size = %d, want 2", len(got))
	}
}

func TestCloseFlushesPending(t *testing.T) {
	c := newCollector()
	b := New(time.Hour, 10, c.flush, zap.NewNop())

	b.Add(ev("U1", "C1", "pending"))
	b.Close()

	got := c.wait(t)
	if len(got) != 1 || got[0].Text != "pending" {
		t.Fatal("pending bucket not flushed on close")
	}
}

func TestCombineSingleEventPassesThrough(t *testing.T) {
	e := ev("U1", "C1", "only one")
	if got := Combine([]*models.NormalizedEvent{e}); got != e {
		t.Fatal("single-event batch should pass through untouched")
	}
}

func TestCombineMergesTextAndLinks(t *testing.T) {
	a := ev("U1", "C1", "need the lockbox code")
	a.EventID = "Ev1"
	a.Links = []string{"https://example.com/a"}
	b := ev("U1", "C1", "for 18 Oak Ave showing tomorrow")
	b.Links = []string{"https://example.com/b"}

	merged := Combine([]*models.NormalizedEvent{a, b})
	if merged.EventID != "Ev1" || merged.AuthorID != "U1" {
		t.Fatal("merged event must carry the first event's identity")
	}
	if !strings.Contains(merged.Text, "Message 1") || !strings.Contains(merged.Text, "Message 2") {
		t.Fatalf("merged text missing numbered lines: %q", merged.Text)
	}
	if !strings.Contains(merged.Text, "[2025-09-20T12:00:00Z]") {
		t.Fatalf("per-message timestamp not rendered as ISO: %q", merged.Text)
	}
	if strings.Contains(merged.Text, "1758369600") {
		t.Fatalf("raw epoch leaked into merged text: %q", merged.Text)
	}
	if !strings.Contains(merged.Text, "need the lockbox code") || !strings.Contains(merged.Text, "18 Oak Ave") {
		t.Fatalf("merged text lost content: %q", merged.Text)
	}
	if len(merged.Links) != 2 {
		t.Fatalf("links = %v", merged.Links)
	}
	if a.Text == merged.Text {
		t.Fatal("combine must not mutate the source events")
	}
}
