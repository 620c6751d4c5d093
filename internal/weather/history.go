package weather

import (
	"sync"
	"time"

	"weather-monitor/internal/models"
)

// Memento is an opaque snapshot of a Record
type Memento struct {
	reading    models.Reading
	condition  models.Condition
	hasReading bool
}

// Reading returns the captured reading
func (m Memento) Reading() models.Reading { return m.reading }

// Condition returns the captured condition
func (m Memento) Condition() models.Condition { return m.condition }

// Empty reports whether the snapshot was taken before any reading was set
func (m Memento) Empty() bool { return !m.hasReading }

// DataSourceChange is the record state captured just before a collection
// from Source replaced it.
type DataSourceChange struct {
	Source  models.Source
	Memento Memento
	At      time.Time
}

// History is a bounded stack of DataSourceChange entries
type History struct {
	mu       sync.Mutex
	changes  []DataSourceChange
	capacity int
}

// NewHistory creates a history keeping at most capacity entries
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = 10
	}
	return &History{capacity: capacity}
}

// Push records a change, evicting the oldest entry when full
func (h *History) Push(change DataSourceChange) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.changes = append(h.changes, change)
	if over := len(h.changes) - h.capacity; over > 0 {
		h.changes = append(h.changes[:0:0], h.changes[over:]...)
	}
}

// Pop removes and returns the newest change
func (h *History) Pop() (DataSourceChange, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.changes) == 0 {
		return DataSourceChange{}, false
	}
	last := h.changes[len(h.changes)-1]
	h.changes = h.changes[:len(h.changes)-1]
	return last, true
}

// Len returns the number of stored changes
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.changes)
}
