package loop

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/teslashibe/go-pointdex/internal/observe"
	"github.com/teslashibe/go-pointdex/pkg/labels"
	"github.com/teslashibe/go-pointdex/pkg/stability"
)

// Config holds the loop tunables.
type Config struct {
	Stability stability.Config

	// ImageQuality is the JPEG quality on a 0-1 scale.
	ImageQuality float64

	// TickInterval is the sampling cadence, roughly one display refresh.
	TickInterval time.Duration

	// SuspensionGuard force-resumes a suspension nobody released.
	// Zero disables the guard.
	SuspensionGuard time.Duration

	// SupersedeAfter lets a tick replace a request that has been
	// outstanding this long. Zero waits for every request to resolve.
	SupersedeAfter time.Duration

	// ResetOnResume clears the gate counters whenever a suspension ends.
	// The gate goes back to {-1, 0}: ConsecutiveCount drops to 0 even
	// though a label was seen before the suspension, and the next result
	// starts a new run at 1. Off by default, which keeps the count.
	ResetOnResume bool
}

// DefaultConfig returns the recommended loop configuration.
func DefaultConfig() Config {
	return Config{
		Stability:       stability.DefaultConfig(),
		ImageQuality:    0.85,
		TickInterval:    33 * time.Millisecond,
		SuspensionGuard: 6 * time.Second,
	}
}

// Validate checks that the tunables are usable.
func (c Config) Validate() error {
	errs := []error{c.Stability.Validate()}
	if c.ImageQuality <= 0 || c.ImageQuality > 1 {
		errs = append(errs, fmt.Errorf("image quality %v outside (0,1]", c.ImageQuality))
	}
	if c.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("tick interval must be positive, got %s", c.TickInterval))
	}
	if c.SuspensionGuard < 0 {
		errs = append(errs, fmt.Errorf("suspension guard must not be negative, got %s", c.SuspensionGuard))
	}
	if c.SupersedeAfter < 0 {
		errs = append(errs, fmt.Errorf("supersede-after must not be negative, got %s", c.SupersedeAfter))
	}
	return errors.Join(errs...)
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Controller) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithLabels sets the label table used to resolve label indices.
func WithLabels(t *labels.Table) Option {
	return func(c *Controller) {
		c.labels = t
	}
}

// WithPresenter sets who receives announced events.
func WithPresenter(p Presenter) Option {
	return func(c *Controller) {
		c.presenter = p
	}
}

// WithObserver adds a receiver for every completed prediction.
func WithObserver(o Observer) Option {
	return func(c *Controller) {
		if o != nil {
			c.observers = append(c.observers, o)
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}
