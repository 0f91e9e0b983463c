package encoder

import (
	"bytes"
	"fmt"
	"image"

	"github.com/chai2010/webp"
)

// LibWebPEncoder encodes in-process through the bundled libwebp bindings.
// It needs no external binary and is the default backend.
type LibWebPEncoder struct{}

func (e *LibWebPEncoder) Backend() string { return "libwebp" }

func (e *LibWebPEncoder) Available() bool { return true }

func (e *LibWebPEncoder) Encode(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	options := &webp.Options{
		Quality: float32(Clamp(quality)),
		// Keep RGB values of fully transparent pixels instead of letting the
		// codec rewrite them; flattened-then-preserved edges stay stable.
		Exact: true,
	}
	if err := webp.Encode(&buf, img, options); err != nil {
		return nil, fmt.Errorf("libwebp encode: %w", err)
	}
	return buf.Bytes(), nil
}
