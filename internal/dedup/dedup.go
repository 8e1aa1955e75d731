package dedup

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"intake-service/internal/models"
)

const (
	// DefaultTTL is the window during which a redelivered event is a duplicate.
	DefaultTTL = 15 * time.Minute
	// DefaultMaxEntries bounds the cache size.
	DefaultMaxEntries = 5000
)

type entry struct {
	key       string
	expiresAt time.Time
}

// Deduper answers "have I seen this delivery before?" within a TTL window.
//
// Entries are kept in insertion order and evicted FIFO on capacity pressure:
// a cache hit never refreshes the TTL or touches the entry, so the oldest
// inserted entry is always at the front of the list. Because every entry
// carries the same TTL, insertion order and expiry order coincide, which
// keeps lazy pruning O(expired).
type Deduper struct {
	mu      sync.Mutex
	ttl     time.Duration
	cap     int
	order   *list.List
	entries map[string]*list.Element
	now     func() time.Time
}

// New creates a Deduper. Non-positive arguments fall back to the defaults.
func New(ttl time.Duration, maxEntries int) *Deduper {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Deduper{
		ttl:     ttl,
		cap:     maxEntries,
		order:   list.New(),
		entries: make(map[string]*list.Element, maxEntries),
		now:     time.Now,
	}
}

// IsDuplicate reports whether the event's dedup key has been seen within the
// TTL window, recording the key on first sighting. Events with no derivable
// identity are never duplicates.
func (d *Deduper) IsDuplicate(ev *models.NormalizedEvent) bool {
	key := Key(ev)
	if key == "" {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	d.prune(now)

	if _, ok := d.entries[key]; ok {
		return true
	}

	el := d.order.PushBack(entry{key: key, expiresAt: now.Add(d.ttl)})
	d.entries[key] = el
	if d.order.Len() > d.cap {
		d.evictOldest()
	}
	return false
}

// Len returns the number of live entries.
func (d *Deduper) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.prune(d.now())
	return d.order.Len()
}

// prune removes every entry whose TTL has elapsed. Caller holds the lock.
func (d *Deduper) prune(now time.Time) {
	for {
		front := d.order.Front()
		if front == nil {
			return
		}
		en := front.Value.(entry)
		if now.Before(en.expiresAt) {
			return
		}
		d.order.Remove(front)
		delete(d.entries, en.key)
	}
}

// evictOldest drops the earliest-inserted entry. Caller holds the lock.
func (d *Deduper) evictOldest() {
	front := d.order.Front()
	if front == nil {
		return
	}
	en := front.Value.(entry)
	d.order.Remove(front)
	delete(d.entries, en.key)
}

// Key derives the idempotency identifier for an event. The platform event ID
// is preferred; without one, a SHA-256 of channel, author, timestamp and
// event type guarantees the same logical event yields the same key. Events
// lacking any identity yield "".
func Key(ev *models.NormalizedEvent) string {
	if ev == nil {
		return ""
	}
	if ev.EventID != "" {
		return ev.EventID
	}
	if ev.ChannelID == "" || ev.AuthorID == "" || ev.Timestamp == "" {
		return ""
	}
	composite := fmt.Sprintf("%s|%s|%s|%s", ev.ChannelID, ev.AuthorID, ev.Timestamp, ev.EventType)
	sum := sha256.Sum256([]byte(composite))
	return hex.EncodeToString(sum[:])
}
