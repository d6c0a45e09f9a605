package frame

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
)

var (
	red   = color.RGBA{R: 255, A: 255}
	green = color.RGBA{G: 255, A: 255}
	blue  = color.RGBA{B: 255, A: 255}
	black = color.RGBA{A: 255}
)

func newCanvas(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	return img
}

func TestSquareLandscape(t *testing.T) {
	src := newCanvas(1280, 720)
	// Crop spans x in [280, 1000).
	src.SetRGBA(279, 0, blue) // just outside
	src.SetRGBA(280, 0, red)  // crop top-left
	src.SetRGBA(999, 719, green)
	src.SetRGBA(1000, 719, blue) // just outside

	n := NewNormalizer(DefaultQuality)
	sq, err := n.Square(NewRawFrame(src))
	if err != nil {
		t.Fatalf("Square failed: %v", err)
	}

	if got := sq.Bounds(); got.Dx() != 720 || got.Dy() != 720 {
		t.Fatalf("Expected 720x720, got %v", got)
	}
	if got := sq.RGBAAt(0, 0); got != red {
		t.Errorf("Expected red at (0,0), got %v", got)
	}
	if got := sq.RGBAAt(719, 719); got != green {
		t.Errorf("Expected green at (719,719), got %v", got)
	}
	for y := 0; y < 720; y++ {
		for _, x := range []int{0, 719} {
			if sq.RGBAAt(x, y) == blue {
				t.Fatalf("pixel outside the symmetric crop leaked into (%d,%d)", x, y)
			}
		}
	}
}

func TestSquarePortraitRotates(t *testing.T) {
	src := newCanvas(720, 1280)
	// Crop spans y in [280, 1000); after rotation source (x, y) -> (y-280, 719-x).
	src.SetRGBA(0, 280, red)     // crop top-left  -> bottom-left
	src.SetRGBA(719, 280, green) // crop top-right -> top-left
	src.SetRGBA(0, 999, blue)    // crop bottom-left -> bottom-right

	raw := NewRawFrame(src)
	if raw.Orientation != Portrait {
		t.Fatalf("Expected portrait orientation, got %v", raw.Orientation)
	}

	sq, err := NewNormalizer(DefaultQuality).Square(raw)
	if err != nil {
		t.Fatalf("Square failed: %v", err)
	}

	if got := sq.Bounds(); got.Dx() != 720 || got.Dy() != 720 {
		t.Fatalf("Expected 720x720, got %v", got)
	}
	checks := []struct {
		x, y int
		want color.RGBA
	}{
		{0, 719, red},
		{0, 0, green},
		{719, 719, blue},
		{719, 0, black},
	}
	for _, c := range checks {
		if got := sq.RGBAAt(c.x, c.y); got != c.want {
			t.Errorf("(%d,%d) = %v, want %v", c.x, c.y, got, c.want)
		}
	}
}

func TestSquareHonoursBoundsOrigin(t *testing.T) {
	// Sub-images keep their parent's coordinates.
	parent := newCanvas(400, 200)
	parent.SetRGBA(150, 50, red)
	sub := parent.SubImage(image.Rect(100, 50, 300, 150))

	sq, err := NewNormalizer(DefaultQuality).Square(NewRawFrame(sub))
	if err != nil {
		t.Fatalf("Square failed: %v", err)
	}
	// sub is 200x100, crop x offset 50 -> parent x 150.
	if got := sq.RGBAAt(0, 0); got != red {
		t.Errorf("Expected red at (0,0), got %v", got)
	}
}

func TestNormalizeNotReady(t *testing.T) {
	n := NewNormalizer(DefaultQuality)

	cases := map[string]*RawFrame{
		"nil frame":  nil,
		"no image":   {Width: 640, Height: 480},
		"zero width": {Image: newCanvas(1, 1), Width: 0, Height: 480},
	}
	for name, raw := range cases {
		if _, err := n.Normalize(raw); !errors.Is(err, ErrSourceNotReady) {
			t.Errorf("%s: expected ErrSourceNotReady, got %v", name, err)
		}
	}
}

func TestNormalizeEncodesJPEG(t *testing.T) {
	n := NewNormalizer(0.85)
	img, err := n.Normalize(NewRawFrame(newCanvas(640, 480)))
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if img.Format != "image/jpeg" {
		t.Errorf("Expected image/jpeg, got %s", img.Format)
	}
	if img.Size != 480 || img.Quality != 0.85 {
		t.Errorf("Unexpected metadata: size=%d quality=%v", img.Size, img.Quality)
	}

	decoded, err := jpeg.Decode(bytes.NewReader(img.Data))
	if err != nil {
		t.Fatalf("output is not a JPEG: %v", err)
	}
	if b := decoded.Bounds(); b.Dx() != 480 || b.Dy() != 480 {
		t.Errorf("Expected 480x480 JPEG, got %v", b)
	}
}

func TestNewNormalizerClampsQuality(t *testing.T) {
	for _, q := range []float64{0, -1, 1.5} {
		if got := NewNormalizer(q).Quality; got != DefaultQuality {
			t.Errorf("NewNormalizer(%v).Quality = %v, want default", q, got)
		}
	}
	if got := jpegQuality(0.85); got != 85 {
		t.Errorf("jpegQuality(0.85) = %d, want 85", got)
	}
	if got := jpegQuality(0.001); got != 1 {
		t.Errorf("jpegQuality(0.001) = %d, want 1", got)
	}
}

func TestStillSource(t *testing.T) {
	empty := NewStillSource(nil)
	if w, h := empty.Dimensions(); w != 0 || h != 0 {
		t.Errorf("Expected 0x0 for empty source, got %dx%d", w, h)
	}
	if _, err := empty.Snapshot(); !errors.Is(err, ErrSourceNotReady) {
		t.Errorf("Expected ErrSourceNotReady, got %v", err)
	}

	s := NewStillSource(newCanvas(720, 1280))
	if w, h := s.Dimensions(); w != 720 || h != 1280 {
		t.Errorf("Expected 720x1280, got %dx%d", w, h)
	}
	raw, err := s.Snapshot()
	if err != nil || raw.Orientation != Portrait {
		t.Errorf("Expected portrait snapshot, got %+v, %v", raw, err)
	}
}
