package engine

import (
	"image"

	"github.com/disintegration/imaging"
)

// Generate derives one resized pixel buffer per variant spec. Each buffer is
// the largest size fitting the spec's bounding box that preserves the source
// aspect ratio. Sources already inside the box are passed through unscaled.
func Generate(src *SourceImage, specs []VariantSpec) (map[string]image.Image, error) {
	buffers := make(map[string]image.Image, len(specs))
	for _, spec := range specs {
		buffer, err := fitToBox(src, spec)
		if err != nil {
			return nil, err
		}
		buffers[spec.Name] = buffer
	}
	return buffers, nil
}

func fitToBox(src *SourceImage, spec VariantSpec) (image.Image, error) {
	if spec.MaxWidth <= 0 || spec.MaxHeight <= 0 {
		return nil, NewInvalidDimensions(spec.Name, spec.MaxWidth, spec.MaxHeight)
	}

	ratio := float64(spec.MaxWidth) / float64(src.Width)
	if heightRatio := float64(spec.MaxHeight) / float64(src.Height); heightRatio < ratio {
		ratio = heightRatio
	}

	// Never upscale.
	if ratio >= 1 {
		return src.Image, nil
	}

	width := max(int(float64(src.Width)*ratio), 1)
	height := max(int(float64(src.Height)*ratio), 1)

	return imaging.Resize(src.Image, width, height, imaging.Lanczos), nil
}
