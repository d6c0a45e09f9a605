package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-pointdex/pkg/frame"
)

// Grabber reads frames from a device.
type Grabber interface {
	// Grab blocks for the next frame.
	Grab() (image.Image, error)
	// Configure applies resolution and framerate.
	Configure(cfg Config) error
	Close() error
}

// ErrClosed is returned by a Grabber after Close.
var ErrClosed = errors.New("camera: closed")

// Capture keeps the latest frame from a Grabber. It implements
// frame.Source: Dimensions stay 0 until the first frame arrives.
type Capture struct {
	grabber Grabber
	logger  *slog.Logger

	cfgMu sync.RWMutex
	cfg   Config

	// Latest processed frame
	frameMu    sync.RWMutex
	latest     image.Image
	capturedAt time.Time
	frameReady chan struct{}
	readyOnce  sync.Once
}

// NewCapture wraps grabber. Call Run to start pulling frames.
func NewCapture(grabber Grabber, cfg Config, logger *slog.Logger) *Capture {
	if logger == nil {
		logger = slog.Default()
	}
	return &Capture{
		grabber:    grabber,
		cfg:        cfg,
		logger:     logger.With("component", "camera"),
		frameReady: make(chan struct{}),
	}
}

// Run grabs frames until ctx is done or the grabber closes.
func (c *Capture) Run(ctx context.Context) error {
	var failures int
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		img, err := c.grabber.Grab()
		if errors.Is(err, ErrClosed) {
			return nil
		}
		if err != nil {
			failures++
			if failures == 1 || failures%100 == 0 {
				c.logger.Warn("frame grab failed", "error", err, "failures", failures)
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(50 * time.Millisecond):
			}
			continue
		}
		failures = 0
		c.store(img)
	}
}

func (c *Capture) store(img image.Image) {
	cfg := c.Config()
	img = zoom(img, cfg.ZoomLevel)
	if cfg.Mirror {
		img = mirror(img)
	}

	c.frameMu.Lock()
	c.latest = img
	c.capturedAt = time.Now()
	c.frameMu.Unlock()

	c.readyOnce.Do(func() {
		b := img.Bounds()
		c.logger.Info("camera ready", "width", b.Dx(), "height", b.Dy())
		close(c.frameReady)
	})
}

// Ready is closed once the first frame has arrived.
func (c *Capture) Ready() <-chan struct{} {
	return c.frameReady
}

// Dimensions implements frame.Source.
func (c *Capture) Dimensions() (int, int) {
	c.frameMu.RLock()
	defer c.frameMu.RUnlock()
	if c.latest == nil {
		return 0, 0
	}
	b := c.latest.Bounds()
	return b.Dx(), b.Dy()
}

// Snapshot implements frame.Source.
func (c *Capture) Snapshot() (*frame.RawFrame, error) {
	c.frameMu.RLock()
	img, at := c.latest, c.capturedAt
	c.frameMu.RUnlock()

	if img == nil {
		return nil, frame.ErrSourceNotReady
	}
	raw := frame.NewRawFrame(img)
	raw.CapturedAt = at
	return raw, nil
}

// Config returns the active configuration.
func (c *Capture) Config() Config {
	c.cfgMu.RLock()
	defer c.cfgMu.RUnlock()
	return c.cfg
}

// Apply reconfigures the device. It is suitable as Manager.OnConfigChange.
func (c *Capture) Apply(cfg Config) error {
	if errs := cfg.Validate(); len(errs) > 0 {
		return fmt.Errorf("invalid camera config: %v", errs)
	}
	if err := c.grabber.Configure(cfg); err != nil {
		return err
	}
	c.cfgMu.Lock()
	c.cfg = cfg
	c.cfgMu.Unlock()
	c.logger.Info("camera reconfigured", "width", cfg.Width, "height", cfg.Height, "zoom", cfg.ZoomLevel)
	return nil
}

// Close releases the device.
func (c *Capture) Close() error {
	return c.grabber.Close()
}

// zoom crops the centered 1/level region.
func zoom(img image.Image, level float64) image.Image {
	if level <= 1 {
		return img
	}
	b := img.Bounds()
	w := int(float64(b.Dx()) / level)
	h := int(float64(b.Dy()) / level)
	if w < 1 || h < 1 {
		return img
	}
	r := image.Rect(0, 0, w, h).Add(b.Min).Add(image.Pt((b.Dx()-w)/2, (b.Dy()-h)/2))

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), img, r.Min, draw.Src)
	return dst
}

// mirror flips img horizontally.
func mirror(img image.Image) image.Image {
	b := img.Bounds()
	src := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(src, src.Bounds(), img, b.Min, draw.Src)

	dst := image.NewRGBA(src.Bounds())
	w := b.Dx()
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < w; x++ {
			si := src.PixOffset(x, y)
			di := dst.PixOffset(w-1-x, y)
			copy(dst.Pix[di:di+4], src.Pix[si:si+4])
		}
	}
	return dst
}

var _ frame.Source = (*Capture)(nil)
