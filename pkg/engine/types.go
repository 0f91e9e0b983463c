package engine

import (
	"fmt"
	"image"
	"image/color"
	"strings"
)

const (
	// MinTargetBytes is the smallest accepted byte budget (10 KB).
	MinTargetBytes = 10 << 10
	// MaxTargetBytes is the largest accepted byte budget (5 MB).
	MaxTargetBytes = 5 << 20

	// MinQuality and MaxQuality bound the quality search domain.
	MinQuality = 1
	MaxQuality = 100

	// DefaultQualityHint seeds the upper search bound when a spec carries none.
	DefaultQualityHint = 85

	// MinQualityHint is the lowest accepted per-variant quality hint.
	MinQualityHint = 10
)

// SourceImage is a decoded input image, borrowed by the engine for the
// duration of a single request.
type SourceImage struct {
	Image    image.Image
	Width    int
	Height   int
	HasAlpha bool
}

// NewSource wraps a decoded image, scanning it once for transparency.
func NewSource(img image.Image) *SourceImage {
	bounds := img.Bounds()
	return &SourceImage{
		Image:    img,
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		HasAlpha: HasAlpha(img),
	}
}

// SearchBounds narrows the quality domain for the size search.
// The zero value means the full [MinQuality, MaxQuality] domain.
type SearchBounds struct {
	Min int
	Max int
}

func (b SearchBounds) withDefaults() SearchBounds {
	if b.Min < MinQuality {
		b.Min = MinQuality
	}
	if b.Max <= 0 || b.Max > MaxQuality {
		b.Max = MaxQuality
	}
	if b.Min > b.Max {
		b.Min, b.Max = b.Max, b.Min
	}
	return b
}

// VariantSpec describes one named output to derive from the source image.
type VariantSpec struct {
	// Name identifies the variant (e.g. "desktop", "mobile").
	Name string
	// MaxWidth and MaxHeight bound the output dimensions. The source is
	// scaled to the largest size fitting the box, never upscaled.
	MaxWidth  int
	MaxHeight int
	// TargetBytes is the byte budget for the encoded output.
	TargetBytes int
	// QualityHint seeds the upper bound of the quality search (10-100).
	// Zero means DefaultQualityHint.
	QualityHint int
	// Bounds optionally narrows the quality search domain.
	Bounds SearchBounds
	// ShrinkToFit allows the engine to reduce dimensions further when no
	// quality in the search domain meets the byte budget.
	ShrinkToFit bool
}

// Validate rejects specs that can never produce a valid encode.
func (spec VariantSpec) Validate() error {
	if spec.MaxWidth <= 0 || spec.MaxHeight <= 0 {
		return NewInvalidDimensions(spec.Name, spec.MaxWidth, spec.MaxHeight)
	}
	if spec.TargetBytes < MinTargetBytes || spec.TargetBytes > MaxTargetBytes {
		return NewInvalidTarget(spec.Name, spec.TargetBytes)
	}
	return nil
}

// hint returns the effective quality hint, clamped into [MinQualityHint, MaxQuality].
func (spec VariantSpec) hint() int {
	hint := spec.QualityHint
	if hint == 0 {
		hint = DefaultQualityHint
	}
	if hint < MinQualityHint {
		hint = MinQualityHint
	}
	if hint > MaxQuality {
		hint = MaxQuality
	}
	return hint
}

// searchBounds returns the quality domain for this spec, with the hint
// seeding the upper bound.
func (spec VariantSpec) searchBounds() SearchBounds {
	bounds := spec.Bounds.withDefaults()
	if hint := spec.hint(); hint < bounds.Max {
		bounds.Max = hint
	}
	if bounds.Min > bounds.Max {
		bounds.Min = bounds.Max
	}
	return bounds
}

// EncodeResult is the outcome of one size-targeting pass.
type EncodeResult struct {
	// Name of the variant this result belongs to.
	Name string
	// Data is the encoded WebP byte stream.
	Data []byte
	// Size is the achieved byte size, always len(Data).
	Size int
	// Quality is the encoder quality that produced Data.
	Quality int
	// Iterations is the number of encodes performed by the search.
	Iterations int
	// TargetMet reports whether Size fits the requested byte budget.
	TargetMet bool
	// Width and Height are the dimensions of the encoded output.
	Width  int
	Height int
	// HasAlpha reports whether the output retains an alpha channel.
	HasAlpha bool
}

// Reduction returns the size reduction versus originalBytes as a percentage.
func (r *EncodeResult) Reduction(originalBytes int64) float64 {
	if originalBytes <= 0 {
		return 0
	}
	return (1 - float64(r.Size)/float64(originalBytes)) * 100
}

// ParseHexColor parses a "#RRGGBB" string into an opaque background color.
func ParseHexColor(s string) (color.NRGBA, error) {
	var r, g, b uint8
	n, err := fmt.Sscanf(strings.TrimPrefix(s, "#"), "%02x%02x%02x", &r, &g, &b)
	if err != nil || n != 3 {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q", s)
	}
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}
