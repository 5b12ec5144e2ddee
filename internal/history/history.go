package history

import (
	"sync"
	"time"
)

const DefaultCapacity = 10

type Entry struct {
	Query     string        `json:"query"`
	Index     string        `json:"index"`
	Time      time.Duration `json:"time"`
	Results   int64         `json:"results"`
	Timestamp time.Time     `json:"timestamp"`
}

// History is a bounded log of past searches held by a client. When full,
// adding an entry evicts the oldest one.
type History struct {
	mu       sync.Mutex
	capacity int
	entries  []Entry
}

func New(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &History{capacity: capacity, entries: make([]Entry, 0, capacity)}
}

func (h *History) Add(e Entry) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) == h.capacity {
		copy(h.entries, h.entries[1:])
		h.entries = h.entries[:len(h.entries)-1]
	}
	h.entries = append(h.entries, e)
}

// Entries returns a copy, oldest first.
func (h *History) Entries() []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Entry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Recent returns a copy, newest first.
func (h *History) Recent() []Entry {
	out := h.Entries()
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
