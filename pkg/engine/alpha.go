package engine

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// HasAlpha reports whether img contains at least one non-opaque pixel.
func HasAlpha(img image.Image) bool {
	if opaquer, ok := img.(interface{ Opaque() bool }); ok {
		return !opaquer.Opaque()
	}
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0xffff {
				return true
			}
		}
	}
	return false
}

// Resolve applies the transparency policy to a resized variant buffer.
// Preserve passes the buffer through unchanged; an opaque buffer under
// Preserve is a no-op by construction. Flatten composites every pixel over
// the background color with standard alpha-over blending and yields an
// opaque buffer. Resolve runs after resizing and before encoding so that
// fractional alpha introduced at resampled edges is composited correctly.
func Resolve(buffer image.Image, policy TransparencyPolicy, background color.NRGBA) image.Image {
	if policy == Preserve {
		return buffer
	}
	bounds := buffer.Bounds()
	flat := imaging.New(bounds.Dx(), bounds.Dy(), background)
	return imaging.Overlay(flat, buffer, image.Pt(0, 0), 1.0)
}
