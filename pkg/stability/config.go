package stability

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the gating and debounce tunables.
type Config struct {
	// Gate
	ConfidenceThreshold float64 // Minimum confidence for the repeat branch (0-1)
	StableN             int     // Consecutive identical label indices required

	// Debounce
	ReannounceCooldown time.Duration // Same label is not re-announced within this window
}

// DefaultConfig returns the recommended gating configuration.
func DefaultConfig() Config {
	return Config{
		ConfidenceThreshold: 0.20,                   // 20%
		StableN:             3,                      // three frames in a row
		ReannounceCooldown:  2000 * time.Millisecond,
	}
}

// StrictConfig returns a configuration that waits longer for a steadier signal.
func StrictConfig() Config {
	cfg := DefaultConfig()
	cfg.ConfidenceThreshold = 0.50
	cfg.StableN = 5
	return cfg
}

// Validate checks that the tunables are usable.
func (c Config) Validate() error {
	var errs []error
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		errs = append(errs, fmt.Errorf("confidence threshold %v outside [0,1]", c.ConfidenceThreshold))
	}
	if c.StableN < 1 {
		errs = append(errs, fmt.Errorf("stable frames must be >= 1, got %d", c.StableN))
	}
	if c.ReannounceCooldown < 0 {
		errs = append(errs, fmt.Errorf("reannounce cooldown must not be negative, got %s", c.ReannounceCooldown))
	}
	return errors.Join(errs...)
}
