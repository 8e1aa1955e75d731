package dedup

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"intake-service/internal/models"
)

func msgEvent(id string) *models.NormalizedEvent {
	return &models.NormalizedEvent{
		EventID:   id,
		AuthorID:  "U100",
		ChannelID: "C200",
		EventType: "message",
		Timestamp: "1758369600.000100",
	}
}

func newTestDeduper(ttl time.Duration, cap int, clock *fakeClock) *Deduper {
	d := New(ttl, cap)
	d.now = clock.Now
	return d
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestFirstSightingIsNotDuplicate(t *testing.T) {
	d := New(time.Minute, 10)
	if d.IsDuplicate(msgEvent("Ev1")) {
		t.Fatal("first delivery reported as duplicate")
	}
	if !d.IsDuplicate(msgEvent("Ev1")) {
		t.Fatal("second delivery within TTL not reported as duplicate")
	}
}

func TestTTLExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 9, 20, 12, 0, 0, 0, time.UTC)}
	d := newTestDeduper(time.Minute, 10, clock)

	if d.IsDuplicate(msgEvent("Ev1")) {
		t.Fatal("first delivery reported as duplicate")
	}
	clock.Advance(30 * time.Second)
	if !d.IsDuplicate(msgEvent("Ev1")) {
		t.Fatal("redelivery inside TTL not detected")
	}
	clock.Advance(31 * time.Second)
	if d.IsDuplicate(msgEvent("Ev1")) {
		t.Fatal("redelivery after TTL elapsed treated as duplicate")
	}
}

func TestHitDoesNotExtendTTL(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 9, 20, 12, 0, 0, 0, time.UTC)}
	d := newTestDeduper(time.Minute, 10, clock)

	d.IsDuplicate(msgEvent("Ev1"))
	clock.Advance(45 * time.Second)
	// A hit must not refresh expires_at.
	if !d.IsDuplicate(msgEvent("Ev1")) {
		t.Fatal("expected duplicate inside TTL")
	}
	clock.Advance(16 * time.Second)
	if d.IsDuplicate(msgEvent("Ev1")) {
		t.Fatal("hit extended the TTL window")
	}
}

func TestFIFOEviction(t *testing.T) {
	d := New(time.Hour, 3)

	for i := 0; i < 3; i++ {
		d.IsDuplicate(msgEvent(fmt.Sprintf("Ev%d", i)))
	}

	// Re-check the first-inserted key; FIFO ignores access recency, so this
	// must not protect Ev0 from eviction.
	if !d.IsDuplicate(msgEvent("Ev0")) {
		t.Fatal("Ev0 should still be cached")
	}

	// Overflow evicts exactly the first-inserted entry.
	d.IsDuplicate(msgEvent("Ev3"))

	if d.IsDuplicate(msgEvent("Ev0")) {
		t.Fatal("Ev0 should have been evicted (FIFO)")
	}
	for i := 1; i <= 3; i++ {
		key := fmt.Sprintf("Ev%d", i)
		// Ev0's re-insert above evicted Ev1; everything after stays.
		if i == 1 {
			continue
		}
		if !d.IsDuplicate(msgEvent(key)) {
			t.Fatalf("%s should still be cached", key)
		}
	}
}

func TestEvictionOrderIgnoresChecks(t *testing.T) {
	d := New(time.Hour, 3)
	d.IsDuplicate(msgEvent("EvA"))
	d.IsDuplicate(msgEvent("EvB"))
	d.IsDuplicate(msgEvent("EvC"))

	// Touch EvA repeatedly; under LRU that would save it.
	for i := 0; i < 5; i++ {
		d.IsDuplicate(msgEvent("EvA"))
	}

	d.IsDuplicate(msgEvent("EvD"))

	if d.IsDuplicate(msgEvent("EvA")) {
		t.Fatal("EvA survived eviction despite being first inserted")
	}
	if !d.IsDuplicate(msgEvent("EvB")) {
		t.Fatal("EvB evicted out of order")
	}
}

func TestCompositeKeyFallback(t *testing.T) {
	a := &models.NormalizedEvent{AuthorID: "U1", ChannelID: "C1", Timestamp: "1.000", EventType: "message"}
	b := &models.NormalizedEvent{AuthorID: "U1", ChannelID: "C1", Timestamp: "1.000", EventType: "message"}
	c := &models.NormalizedEvent{AuthorID: "U1", ChannelID: "C1", Timestamp: "2.000", EventType: "message"}

	if Key(a) == "" {
		t.Fatal("composite key should be derivable")
	}
	if Key(a) != Key(b) {
		t.Fatal("same logical event produced different keys")
	}
	if Key(a) == Key(c) {
		t.Fatal("distinct events produced the same key")
	}
}

func TestNoIdentityNeverDuplicate(t *testing.T) {
	d := New(time.Minute, 10)
	ev := &models.NormalizedEvent{Text: "ping"}
	for i := 0; i < 3; i++ {
		if d.IsDuplicate(ev) {
			t.Fatal("identity-less event reported as duplicate")
		}
	}
}

func TestConcurrentDuplicateDeliveries(t *testing.T) {
	d := New(time.Minute, 100)

	const callers = 32
	var wg sync.WaitGroup
	passed := make(chan struct{}, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !d.IsDuplicate(msgEvent("EvRace")) {
				passed <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(passed)

	var n int
	for range passed {
		n++
	}
	if n != 1 {
		t.Fatalf("expected exactly one caller to pass the deduper, got %d", n)
	}
}
