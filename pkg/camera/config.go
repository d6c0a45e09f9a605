// Package camera provides the live frame source and its runtime-tunable
// capture settings.
package camera

import "strconv"

// Config holds capture parameters. They can be changed at runtime through
// the Manager.
type Config struct {
	// Device is a capture index ("0") or a stream URL / file path.
	Device string `json:"device" yaml:"device"`

	// === Resolution ===
	Width     int `json:"width" yaml:"width"`         // Requested frame width in pixels
	Height    int `json:"height" yaml:"height"`       // Requested frame height in pixels
	Framerate int `json:"framerate" yaml:"framerate"` // Requested FPS

	// === Digital Zoom ===
	// ZoomLevel is a centered digital zoom factor (1.0 to 4.0) applied
	// before frames reach the normalizer.
	ZoomLevel float64 `json:"zoom_level" yaml:"zoom_level"`

	// Mirror flips frames horizontally (front-facing cameras).
	Mirror bool `json:"mirror" yaml:"mirror"`
}

// Capture limits.
const (
	MaxWidth     = 4096
	MaxHeight    = 4096
	MaxFramerate = 120
	MaxZoom      = 4.0
)

// DefaultConfig returns 1280x720 at 30 FPS, the resolution the classifier
// web client asks browsers for.
func DefaultConfig() Config {
	return Config{
		Device:    "0",
		Width:     1280,
		Height:    720,
		Framerate: 30,
		ZoomLevel: 1.0,
	}
}

// LegacyConfig returns 640x480 for older webcams.
func LegacyConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 640
	cfg.Height = 480
	return cfg
}

// DeviceIndex returns the numeric capture index, if Device is one.
func (c *Config) DeviceIndex() (int, bool) {
	i, err := strconv.Atoi(c.Device)
	return i, err == nil && i >= 0
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.Device == "" {
		errors = append(errors, "device is required")
	}
	if c.Width < 160 || c.Width > MaxWidth {
		errors = append(errors, "width must be between 160 and 4096")
	}
	if c.Height < 120 || c.Height > MaxHeight {
		errors = append(errors, "height must be between 120 and 4096")
	}
	if c.Framerate < 1 || c.Framerate > MaxFramerate {
		errors = append(errors, "framerate must be between 1 and 120")
	}
	if c.ZoomLevel < 1.0 || c.ZoomLevel > MaxZoom {
		errors = append(errors, "zoom_level must be between 1.0 and 4.0")
	}

	return errors
}

// Capabilities describes what the capture layer accepts.
func Capabilities() map[string]interface{} {
	return map[string]interface{}{
		"max_width":     MaxWidth,
		"max_height":    MaxHeight,
		"max_framerate": MaxFramerate,
		"max_zoom":      MaxZoom,
		"presets":       PresetNames(),
	}
}
