package logger

import (
	"sync"
	"time"
)

// Event is one operational event visible to API consumers: replay lifecycle,
// anomaly hits, attribution outcomes, error-level logs.
type Event struct {
	Time    time.Time `json:"time"`
	Type    string    `json:"type"`
	Message string    `json:"message"`
}

// EventLog is a bounded in-memory ring of recent events. Appends past the
// capacity evict the oldest entry. Safe for concurrent use.
type EventLog struct {
	mu   sync.RWMutex
	buf  []Event
	head int
	size int
}

const defaultEventCap = 500

func NewEventLog(capacity int) *EventLog {
	if capacity <= 0 {
		capacity = defaultEventCap
	}
	return &EventLog{buf: make([]Event, capacity)}
}

func (e *EventLog) Append(eventType, message string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.buf[e.head] = Event{Time: time.Now(), Type: eventType, Message: message}
	e.head = (e.head + 1) % len(e.buf)
	if e.size < len(e.buf) {
		e.size++
	}
}

// Recent returns up to limit events, newest first. limit <= 0 returns all.
func (e *EventLog) Recent(limit int) []Event {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if limit <= 0 || limit > e.size {
		limit = e.size
	}
	out := make([]Event, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (e.head - i + len(e.buf)) % len(e.buf)
		out = append(out, e.buf[idx])
	}
	return out
}

// Len reports the number of retained events.
func (e *EventLog) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.size
}
