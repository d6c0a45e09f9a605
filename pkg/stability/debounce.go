package stability

import "time"

// Debounce suppresses re-announcing the same label within a cooldown.
// Not safe for concurrent use.
type Debounce struct {
	cooldown  time.Duration
	lastLabel string
	lastAt    time.Time
}

// NewDebounce creates a debounce with the given cooldown.
func NewDebounce(cooldown time.Duration) *Debounce {
	return &Debounce{cooldown: cooldown}
}

// ShouldAnnounce reports whether ev may be forwarded, and records it if so.
// A different label always passes; the same label passes once more than the
// cooldown has elapsed since it was last let through.
func (d *Debounce) ShouldAnnounce(ev ReadyEvent) bool {
	if ev.Label == d.lastLabel && !d.lastAt.IsZero() && ev.Timestamp.Sub(d.lastAt) <= d.cooldown {
		return false
	}
	d.lastLabel = ev.Label
	d.lastAt = ev.Timestamp
	return true
}

// Last returns the most recently announced label and when.
func (d *Debounce) Last() (string, time.Time) {
	return d.lastLabel, d.lastAt
}

// Reset forgets the last announcement.
func (d *Debounce) Reset() {
	d.lastLabel = ""
	d.lastAt = time.Time{}
}
