// Package frame turns camera snapshots into the square JPEG the classifier
// expects.
package frame

import (
	"errors"
	"image"
	"time"
)

// ErrSourceNotReady is returned while the source has no usable dimensions
// yet (camera still warming up). Callers retry on the next tick.
var ErrSourceNotReady = errors.New("frame: source not ready")

// Orientation of a frame as delivered by the sensor.
type Orientation int

const (
	Landscape Orientation = iota
	Portrait
)

// String returns the orientation name.
func (o Orientation) String() string {
	if o == Portrait {
		return "portrait"
	}
	return "landscape"
}

// OrientationOf reports Portrait when height exceeds width.
func OrientationOf(width, height int) Orientation {
	if height > width {
		return Portrait
	}
	return Landscape
}

// RawFrame is one sampled image. It lives for a single cycle.
type RawFrame struct {
	Image       image.Image
	Width       int
	Height      int
	Orientation Orientation
	CapturedAt  time.Time
}

// NewRawFrame wraps img, filling dimensions and orientation from its bounds.
func NewRawFrame(img image.Image) *RawFrame {
	if img == nil {
		return &RawFrame{CapturedAt: time.Now()}
	}
	b := img.Bounds()
	return &RawFrame{
		Image:       img,
		Width:       b.Dx(),
		Height:      b.Dy(),
		Orientation: OrientationOf(b.Dx(), b.Dy()),
		CapturedAt:  time.Now(),
	}
}

// Ready reports whether the frame has usable dimensions.
func (f *RawFrame) Ready() bool {
	return f != nil && f.Image != nil && f.Width > 0 && f.Height > 0
}

// NormalizedImage is the encoded square handed once to the classifier.
type NormalizedImage struct {
	Data    []byte
	Format  string  // MIME type, e.g. "image/jpeg"
	Quality float64 // 0-1
	Size    int     // edge length in pixels
}

// Source is the camera collaborator. Dimensions return 0 until the device
// delivers its first frame.
type Source interface {
	Dimensions() (width, height int)
	Snapshot() (*RawFrame, error)
}

// StillSource serves the same image on every snapshot.
type StillSource struct {
	img image.Image
}

// NewStillSource returns a Source backed by img.
func NewStillSource(img image.Image) *StillSource {
	return &StillSource{img: img}
}

// Dimensions implements Source.
func (s *StillSource) Dimensions() (int, int) {
	if s.img == nil {
		return 0, 0
	}
	b := s.img.Bounds()
	return b.Dx(), b.Dy()
}

// Snapshot implements Source.
func (s *StillSource) Snapshot() (*RawFrame, error) {
	if s.img == nil {
		return nil, ErrSourceNotReady
	}
	return NewRawFrame(s.img), nil
}
