package stability

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Config holds tracker thresholds.
type Config struct {
	RequiredFrames    int     `mapstructure:"required_frames"`
	PositionTolerance float64 `mapstructure:"position_tolerance"`
	SizeTolerance     float64 `mapstructure:"size_tolerance"`
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		RequiredFrames:    DefaultRequiredFrames,
		PositionTolerance: DefaultPositionTolerance,
		SizeTolerance:     DefaultSizeTolerance,
	}
}

func (c Config) withDefaults() Config {
	if c.RequiredFrames <= 0 {
		c.RequiredFrames = DefaultRequiredFrames
	}
	if c.PositionTolerance <= 0 {
		c.PositionTolerance = DefaultPositionTolerance
	}
	if c.SizeTolerance <= 0 {
		c.SizeTolerance = DefaultSizeTolerance
	}
	return c
}

// Entry is the running state for one normalized key.
type Entry struct {
	Key        string    `json:"key"`
	Text       string    `json:"text"`
	Box        Box       `json:"box"`
	Confidence float64   `json:"confidence"`
	Frames     int       `json:"frames"`
	LastSeen   time.Time `json:"last_seen"`
}

// StableEvent is emitted once when an entry first reaches the required frame count.
type StableEvent struct {
	Key        string    `json:"key"`
	Text       string    `json:"text"`
	Box        Box       `json:"box"`
	Confidence float64   `json:"confidence"`
	Frames     int       `json:"frames"`
	At         time.Time `json:"at"`
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock overrides the time source used for observations without a timestamp.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithHandler registers a callback invoked for every stable event, outside the lock.
func WithHandler(fn func(StableEvent)) Option {
	return func(t *Tracker) { t.onStable = fn }
}

// Tracker correlates detections across frames by key.
// Ingest must be called serially in capture order.
type Tracker struct {
	mu       sync.Mutex
	cfg      Config
	entries  map[string]*Entry
	now      func() time.Time
	onStable func(StableEvent)
}

// New creates a tracker.
func New(cfg Config, opts ...Option) *Tracker {
	t := &Tracker{
		cfg:     cfg.withDefaults(),
		entries: make(map[string]*Entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Ingest consumes the complete observation set for one frame and returns the
// events for keys that became stable on this frame.
func (t *Tracker) Ingest(obs []Observation) []StableEvent {
	t.mu.Lock()
	events := t.ingestLocked(obs)
	handler := t.onStable
	t.mu.Unlock()

	if handler != nil {
		for _, ev := range events {
			handler(ev)
		}
	}
	return events
}

func (t *Tracker) ingestLocked(obs []Observation) []StableEvent {
	frameTime := t.now()
	seen := dedupe(obs)
	var events []StableEvent

	for _, key := range sortedKeys(seen) {
		o := seen[key]
		at := o.ObservedAt
		if at.IsZero() {
			at = frameTime
		}

		e, ok := t.entries[key]
		if !ok {
			t.entries[key] = &Entry{
				Key:        key,
				Text:       o.Text,
				Box:        o.Box,
				Confidence: o.Confidence,
				Frames:     1,
				LastSeen:   at,
			}
			continue
		}

		if !Similar(e.Box, o.Box, t.cfg) {
			e.Frames = 1
			e.Text, e.Box, e.Confidence, e.LastSeen = o.Text, o.Box, o.Confidence, at
			continue
		}

		e.Frames++
		e.Text, e.Box, e.Confidence, e.LastSeen = o.Text, o.Box, o.Confidence, at

		// Exact equality: fires on the rising edge only.
		if e.Frames == t.cfg.RequiredFrames {
			slog.Debug("stable detection", "text", e.Text, "box", e.Box.String(), "confidence", e.Confidence)
			events = append(events, StableEvent{
				Key:        e.Key,
				Text:       e.Text,
				Box:        e.Box,
				Confidence: e.Confidence,
				Frames:     e.Frames,
				At:         at,
			})
		}
	}

	for key := range t.entries {
		if _, ok := seen[key]; !ok {
			delete(t.entries, key)
		}
	}
	return events
}

// dedupe keeps the highest-confidence observation per key; first wins on ties.
func dedupe(obs []Observation) map[string]Observation {
	seen := make(map[string]Observation, len(obs))
	for _, o := range obs {
		key := Key(o.Text)
		if key == "" {
			continue
		}
		if prev, ok := seen[key]; ok && prev.Confidence >= o.Confidence {
			continue
		}
		seen[key] = o
	}
	return seen
}

func sortedKeys(m map[string]Observation) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Stable returns the entry for text if it has been seen for at least the
// required number of consecutive frames.
func (t *Tracker) Stable(text string) (Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[Key(text)]
	if !ok || e.Frames < t.cfg.RequiredFrames {
		return Entry{}, false
	}
	return *e, true
}

// Clear discards all entries.
func (t *Tracker) Clear() {
	t.mu.Lock()
	t.entries = make(map[string]*Entry)
	t.mu.Unlock()
}

// Snapshot returns a copy of all entries ordered by key.
func (t *Tracker) Snapshot() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Entry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Config returns the active thresholds.
func (t *Tracker) Config() Config {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cfg
}

// Reconfigure swaps thresholds; existing counters are kept.
func (t *Tracker) Reconfigure(cfg Config) {
	cfg = cfg.withDefaults()
	t.mu.Lock()
	t.cfg = cfg
	t.mu.Unlock()
	slog.Info("tracker reconfigured",
		"required_frames", cfg.RequiredFrames,
		"position_tolerance", cfg.PositionTolerance,
		"size_tolerance", cfg.SizeTolerance)
}
