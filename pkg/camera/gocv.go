package camera

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// DeviceGrabber reads frames from an OpenCV video capture: a webcam index,
// a stream URL or a video file.
type DeviceGrabber struct {
	mu     sync.Mutex
	vc     *gocv.VideoCapture
	mat    gocv.Mat
	closed bool
}

// OpenDevice opens the device named in cfg and applies its settings.
func OpenDevice(cfg Config) (*DeviceGrabber, error) {
	var device interface{} = cfg.Device
	if idx, ok := cfg.DeviceIndex(); ok {
		device = idx
	}

	vc, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("open camera %q: %w", cfg.Device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("open camera %q: device not available", cfg.Device)
	}

	g := &DeviceGrabber{vc: vc, mat: gocv.NewMat()}
	if err := g.Configure(cfg); err != nil {
		g.Close()
		return nil, err
	}
	return g, nil
}

// Grab implements Grabber.
func (g *DeviceGrabber) Grab() (image.Image, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return nil, ErrClosed
	}
	if ok := g.vc.Read(&g.mat); !ok {
		return nil, errors.New("camera: read failed")
	}
	if g.mat.Empty() {
		return nil, errors.New("camera: empty frame")
	}
	return g.mat.ToImage()
}

// Configure implements Grabber.
func (g *DeviceGrabber) Configure(cfg Config) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return ErrClosed
	}
	g.vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	g.vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	g.vc.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))
	return nil
}

// Close implements Grabber.
func (g *DeviceGrabber) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return nil
	}
	g.closed = true
	g.mat.Close()
	return g.vc.Close()
}

var _ Grabber = (*DeviceGrabber)(nil)
