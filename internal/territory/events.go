package territory

import (
	"sync"
	"time"
)

const defaultChronicleSize = 1000

// Event categories.
const (
	CategorySubdivision   = "subdivision"
	CategoryEstablishment = "establishment"
	CategoryIntegration   = "integration"
	CategoryAnnexation    = "annexation"
)

// Event is a notable change to the political map.
type Event struct {
	Seq         uint64         `json:"seq"`
	At          time.Time      `json:"at"`
	Description string         `json:"description"`
	Category    string         `json:"category"`
	Meta        map[string]any `json:"meta,omitempty"`
}

// Chronicle keeps the most recent events in memory.
type Chronicle struct {
	mu      sync.Mutex
	events  []Event
	limit   int
	lastSeq uint64
}

// NewChronicle creates a chronicle holding at most limit events.
func NewChronicle(limit int) *Chronicle {
	if limit <= 0 {
		limit = defaultChronicleSize
	}
	return &Chronicle{limit: limit}
}

// Record appends an event, stamping its sequence number and time.
func (c *Chronicle) Record(e Event) Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastSeq++
	e.Seq = c.lastSeq
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	c.events = append(c.events, e)
	if len(c.events) > c.limit {
		c.events = c.events[len(c.events)-c.limit:]
	}
	return e
}

// Recent returns up to n of the newest events, oldest first.
func (c *Chronicle) Recent(n int) []Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := 0
	if n >= 0 && len(c.events) > n {
		start = len(c.events) - n
	}
	out := make([]Event, len(c.events)-start)
	copy(out, c.events[start:])
	return out
}

// Since returns the retained events with a sequence number above seq.
func (c *Chronicle) Since(seq uint64) []Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []Event
	for _, e := range c.events {
		if e.Seq > seq {
			out = append(out, e)
		}
	}
	return out
}

// LastSeq returns the sequence number of the newest event.
func (c *Chronicle) LastSeq() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSeq
}

// Resume continues numbering after seq, used when events were restored
// from storage.
func (c *Chronicle) Resume(seq uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seq > c.lastSeq {
		c.lastSeq = seq
	}
}

// Restore replaces the retained events with previously recorded ones,
// oldest first, and continues numbering after the newest.
func (c *Chronicle) Restore(events []Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(events) > c.limit {
		events = events[len(events)-c.limit:]
	}
	c.events = append(c.events[:0:0], events...)
	for _, e := range events {
		if e.Seq > c.lastSeq {
			c.lastSeq = e.Seq
		}
	}
}
