package loop

import (
	"context"
	"fmt"
	"slices"
	"time"
)

// Reason names why sampling is suspended.
type Reason string

const (
	// ReasonNarration covers audio playback.
	ReasonNarration Reason = "narration"
	// ReasonPrompt covers an open confirmation prompt.
	ReasonPrompt Reason = "prompt"
	// ReasonDetail covers an open detail view.
	ReasonDetail Reason = "detail"
	// ReasonPresentation is held while a presenter handles an event.
	ReasonPresentation Reason = "presentation"
)

// Reasons lists every suspension reason.
var Reasons = []Reason{ReasonNarration, ReasonPrompt, ReasonDetail, ReasonPresentation}

// ParseReason validates a reason name.
func ParseReason(s string) (Reason, error) {
	r := Reason(s)
	if !slices.Contains(Reasons, r) {
		return "", fmt.Errorf("unknown suspension reason %q", s)
	}
	return r, nil
}

type suspension struct {
	gen   uint64
	since time.Time
	timer *time.Timer
}

// Suspend stops sampling for reason and cancels any outstanding request.
// Suspending an already-suspended reason replaces its hold and restarts the
// guard. The returned release ends only this hold: once another Suspend or
// Resume for the same reason has happened, or the guard fired, it is a
// no-op.
func (c *Controller) Suspend(reason Reason) (release func()) {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	if old, ok := c.suspensions[reason]; ok && old.timer != nil {
		old.timer.Stop()
	}
	s := &suspension{gen: gen, since: c.now()}
	if guard := c.config.SuspensionGuard; guard > 0 {
		s.timer = time.AfterFunc(guard, func() { c.end(reason, gen, "guard") })
	}
	c.suspensions[reason] = s
	c.mu.Unlock()

	c.dispatcher.Cancel()
	c.metrics.RecordSuspension(context.Background(), string(reason), "suspend")
	c.logger.Debug("sampling suspended", "reason", reason)

	return func() { c.end(reason, gen, "release") }
}

// Resume ends the suspension for reason regardless of who holds it.
func (c *Controller) Resume(reason Reason) {
	c.end(reason, 0, "resume")
}

// Suspended reports whether any suspension is active.
func (c *Controller) Suspended() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.suspensions) > 0
}

// SuspendedFor returns the active reasons, sorted.
func (c *Controller) SuspendedFor() []Reason {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeReasonsLocked()
}

func (c *Controller) activeReasonsLocked() []Reason {
	out := make([]Reason, 0, len(c.suspensions))
	for r := range c.suspensions {
		out = append(out, r)
	}
	slices.Sort(out)
	return out
}

// end removes the suspension for reason. gen 0 matches any hold.
func (c *Controller) end(reason Reason, gen uint64, cause string) {
	c.mu.Lock()
	s, ok := c.suspensions[reason]
	if !ok || (gen != 0 && s.gen != gen) {
		c.mu.Unlock()
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	delete(c.suspensions, reason)
	if c.config.ResetOnResume {
		c.resetPending = true
	}
	held := c.now().Sub(s.since)
	c.mu.Unlock()

	c.metrics.RecordSuspension(context.Background(), string(reason), cause)
	if cause == "guard" {
		c.logger.Warn("suspension guard fired, resuming sampling", "reason", reason, "held", held)
		return
	}
	c.logger.Debug("sampling resumed", "reason", reason, "cause", cause, "held", held)
}
