package screen

import (
	"log/slog"
	"sync"

	"github.com/corona10/goimagehash"
)

// ChangeDetector compares successive frames by perceptual hash.
type ChangeDetector struct {
	maxDistance int

	mu   sync.Mutex
	last *goimagehash.ImageHash
}

// NewChangeDetector treats frames within maxDistance bits as unchanged.
// Negative values disable detection so every frame counts as changed.
func NewChangeDetector(maxDistance int) *ChangeDetector {
	return &ChangeDetector{maxDistance: maxDistance}
}

// Changed reports whether f differs from the previous frame. Hash failures
// count as a change.
func (d *ChangeDetector) Changed(f Frame) bool {
	if d.maxDistance < 0 || f.Image == nil {
		return true
	}
	hash, err := goimagehash.PerceptionHash(f.Image)
	if err != nil {
		slog.Debug("phash failed", "seq", f.Seq, "error", err)
		d.Reset()
		return true
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	prev := d.last
	d.last = hash
	if prev == nil {
		return true
	}
	dist, err := prev.Distance(hash)
	if err != nil {
		return true
	}
	return dist > d.maxDistance
}

// Reset forgets the previous frame.
func (d *ChangeDetector) Reset() {
	d.mu.Lock()
	d.last = nil
	d.mu.Unlock()
}
