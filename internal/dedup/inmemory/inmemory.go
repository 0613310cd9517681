package inmemory

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	id   string
	seen time.Time
}

// Cache is a capacity-bounded, insertion-ordered set of recently seen message
// identifiers. Entries older than the expiry window are evicted lazily from
// the front of the buffer on every lookup; when the buffer is full, inserting
// a new identifier evicts the oldest regardless of age.
type Cache struct {
	mu       sync.Mutex
	entries  []entry
	capacity int
	expiry   time.Duration
	now      func() time.Time
}

func NewCache(capacity int, expiry time.Duration) *Cache {
	if capacity <= 0 {
		capacity = 1000
	}
	return &Cache{
		entries:  make([]entry, 0, capacity),
		capacity: capacity,
		expiry:   expiry,
		now:      time.Now,
	}
}

// IsDuplicate reports whether messageID was seen within the expiry window.
// A new identifier is recorded with the current time before returning false.
func (c *Cache) IsDuplicate(_ context.Context, messageID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()

	// Expired entries sit at the front: insertion order is chronological.
	cutoff := now.Add(-c.expiry)
	idx := 0
	for idx < len(c.entries) && c.entries[idx].seen.Before(cutoff) {
		idx++
	}
	if idx > 0 {
		c.entries = append(c.entries[:0], c.entries[idx:]...)
	}

	for _, e := range c.entries {
		if e.id == messageID {
			return true, nil
		}
	}

	if len(c.entries) >= c.capacity {
		c.entries = append(c.entries[:0], c.entries[1:]...)
	}
	c.entries = append(c.entries, entry{id: messageID, seen: now})
	return false, nil
}

// Len reports the number of retained entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
