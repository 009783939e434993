// Package activity keeps the operator-facing activity log: short,
// timestamped lines shown in the console and streamed to clients. It is
// in-memory only.
package activity

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

const (
	DefaultCapacity    = 200
	DefaultEventBuffer = 64
)

// Level of an entry.
type Level string

const (
	Info   Level = "info"
	Action Level = "action"
	Warn   Level = "warn"
)

// Entry is one line of the activity log.
type Entry struct {
	Time    time.Time `json:"time"`
	Level   Level     `json:"level"`
	Message string    `json:"message"`
}

// String renders "[15:04:05] message".
func (e Entry) String() string {
	return "[" + e.Time.Format("15:04:05") + "] " + e.Message
}

// Log is a bounded ring of entries with a non-blocking event feed.
type Log struct {
	mu      sync.RWMutex
	entries []Entry
	max     int
	events  chan Entry
	now     func() time.Time
}

// New creates a log holding up to capacity entries.
func New(capacity, eventBuffer int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if eventBuffer < 0 {
		eventBuffer = DefaultEventBuffer
	}
	return &Log{
		entries: make([]Entry, 0, capacity),
		max:     capacity,
		events:  make(chan Entry, eventBuffer),
		now:     time.Now,
	}
}

// Add appends an entry, mirrors it to slog and offers it on Events.
func (l *Log) Add(level Level, msg string) Entry {
	e := Entry{Time: l.now(), Level: level, Message: msg}

	l.mu.Lock()
	l.entries = append(l.entries, e)
	if len(l.entries) > l.max {
		l.entries = l.entries[len(l.entries)-l.max:]
	}
	l.mu.Unlock()

	if level == Warn {
		slog.Warn(msg, "source", "activity")
	} else {
		slog.Info(msg, "source", "activity", "level", string(level))
	}

	select {
	case l.events <- e:
	default:
	}
	return e
}

// Infof logs an informational line.
func (l *Log) Infof(format string, args ...any) Entry {
	return l.Add(Info, fmt.Sprintf(format, args...))
}

// Actionf logs an action the app performed (click, scroll, move).
func (l *Log) Actionf(format string, args ...any) Entry {
	return l.Add(Action, fmt.Sprintf(format, args...))
}

// Warnf logs a blocked action or a failure.
func (l *Log) Warnf(format string, args ...any) Entry {
	return l.Add(Warn, fmt.Sprintf(format, args...))
}

// Recent returns up to n of the newest entries, oldest first. n <= 0 returns all.
func (l *Log) Recent(n int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if n <= 0 || n > len(l.entries) {
		n = len(l.entries)
	}
	out := make([]Entry, n)
	copy(out, l.entries[len(l.entries)-n:])
	return out
}

// Since returns the entries newer than d.
func (l *Log) Since(d time.Duration) []Entry {
	cutoff := l.now().Add(-d)
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Entry
	for _, e := range l.entries {
		if e.Time.After(cutoff) {
			out = append(out, e)
		}
	}
	return out
}

// Text renders the newest n entries, one per line.
func (l *Log) Text(n int) string {
	entries := l.Recent(n)
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.String()
	}
	return strings.Join(lines, "\n")
}

// Events delivers new entries. Entries are dropped when nobody reads.
func (l *Log) Events() <-chan Entry { return l.events }
