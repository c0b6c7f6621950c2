package imagecodec

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"
)

const (
	DefaultMaxDimension = 480
	DefaultQuality      = 40
)

var ErrEmptyFrame = errors.New("frame has no pixels")

// Encoder scales frames so the longer edge equals MaxDimension and encodes
// them as base64 JPEG.
type Encoder struct {
	MaxDimension int
	Quality      int
}

func NewEncoder(maxDimension int, quality int) *Encoder {
	if maxDimension <= 0 {
		maxDimension = DefaultMaxDimension
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	return &Encoder{MaxDimension: maxDimension, Quality: quality}
}

// Encode returns the base64 text of the scaled JPEG.
func (e *Encoder) Encode(frame image.Image) (string, error) {
	if frame == nil {
		return "", ErrEmptyFrame
	}
	bounds := frame.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return "", ErrEmptyFrame
	}

	width, height := ScaledSize(bounds.Dx(), bounds.Dy(), e.MaxDimension)
	scaled := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), frame, bounds, draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: e.Quality}); err != nil {
		return "", fmt.Errorf("encode jpeg: %w", err)
	}
	if buf.Len() == 0 {
		return "", errors.New("encode jpeg: empty buffer")
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// ScaledSize proportionally resizes width x height so the longer edge is maxDimension.
func ScaledSize(width int, height int, maxDimension int) (int, int) {
	if maxDimension <= 0 {
		maxDimension = DefaultMaxDimension
	}
	if width > height {
		h := int(float64(height) * float64(maxDimension) / float64(width))
		return maxDimension, max(h, 1)
	}
	w := int(float64(width) * float64(maxDimension) / float64(height))
	return max(w, 1), maxDimension
}
