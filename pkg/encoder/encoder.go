// Package encoder wraps the WebP codecs available to the compression engine.
package encoder

import "image"

// Encoder produces a WebP byte stream from a decoded image. Implementations
// must be deterministic: the same buffer and quality always produce a byte
// stream of the same size.
type Encoder interface {
	// Backend returns the backend name (e.g. "libwebp", "cwebp").
	Backend() string

	// Encode converts the image to WebP bytes at the given quality.
	// Out-of-range qualities are clamped to [0, 100], not rejected.
	Encode(img image.Image, quality int) ([]byte, error)

	// Available reports whether the encoder is ready to use. External
	// encoders may need a binary fetched or installed first.
	Available() bool
}

// Clamp bounds a quality value to the valid 0-100 codec range.
func Clamp(quality int) int {
	if quality < 0 {
		return 0
	}
	if quality > 100 {
		return 100
	}
	return quality
}
