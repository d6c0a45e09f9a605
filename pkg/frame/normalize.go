package frame

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"math"
)

// DefaultQuality balances payload size against classifier input fidelity.
const DefaultQuality = 0.85

// Normalizer crops a frame to a centered square, rotates portrait frames
// into landscape orientation and encodes the result as JPEG.
type Normalizer struct {
	// Quality is the JPEG quality on a 0-1 scale.
	Quality float64
}

// NewNormalizer returns a normalizer encoding at quality (0-1).
// Out-of-range values fall back to DefaultQuality.
func NewNormalizer(quality float64) *Normalizer {
	if quality <= 0 || quality > 1 {
		quality = DefaultQuality
	}
	return &Normalizer{Quality: quality}
}

// Normalize produces the encoded square for raw.
func (n *Normalizer) Normalize(raw *RawFrame) (*NormalizedImage, error) {
	sq, err := n.Square(raw)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, sq, &jpeg.Options{Quality: jpegQuality(n.Quality)}); err != nil {
		return nil, fmt.Errorf("frame: encode jpeg: %w", err)
	}

	return &NormalizedImage{
		Data:    buf.Bytes(),
		Format:  "image/jpeg",
		Quality: n.Quality,
		Size:    sq.Bounds().Dx(),
	}, nil
}

// Square crops the centered short-edge square out of raw. Offsets are taken
// on the sensor's native axes, so a portrait frame loses rows top and bottom;
// the portrait square is then turned 90° counter-clockwise so the original
// top row becomes the left column.
func (n *Normalizer) Square(raw *RawFrame) (*image.RGBA, error) {
	if !raw.Ready() {
		return nil, ErrSourceNotReady
	}

	w, h := raw.Width, raw.Height
	short := min(w, h)
	offX := (w - short) / 2
	offY := (h - short) / 2

	origin := raw.Image.Bounds().Min
	crop := image.NewRGBA(image.Rect(0, 0, short, short))
	draw.Draw(crop, crop.Bounds(), raw.Image, origin.Add(image.Pt(offX, offY)), draw.Src)

	if raw.Orientation != Portrait {
		return crop, nil
	}
	return rotateCCW(crop), nil
}

// rotateCCW turns a square image 90° counter-clockwise:
// source (x, y) lands on (y, size-1-x).
func rotateCCW(src *image.RGBA) *image.RGBA {
	size := src.Bounds().Dx()
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			si := src.PixOffset(x, y)
			di := dst.PixOffset(y, size-1-x)
			copy(dst.Pix[di:di+4], src.Pix[si:si+4])
		}
	}
	return dst
}

// jpegQuality maps a 0-1 quality onto libjpeg's 1-100 scale.
func jpegQuality(q float64) int {
	v := int(math.Round(q * 100))
	return max(1, min(100, v))
}
