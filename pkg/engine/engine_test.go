package engine

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "golang.org/x/image/webp"

	"github.com/webpress/webpress/pkg/encoder"
)

// translucentGradient builds an RGBA test image with a transparent band, the
// shape of input this engine exists for.
func translucentGradient(width, height int) *image.NRGBA {
	img := gradientImage(width, height)
	for y := 0; y < height/4; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{})
		}
	}
	return img
}

func TestCompressEndToEndPreserve(t *testing.T) {
	src := NewSource(translucentGradient(640, 400))
	require.True(t, src.HasAlpha)

	eng := New(&encoder.LibWebPEncoder{})
	specs := []VariantSpec{
		{Name: "desktop", MaxWidth: 400, MaxHeight: 400, TargetBytes: 200 << 10, QualityHint: 85},
		{Name: "mobile", MaxWidth: 200, MaxHeight: 2048, TargetBytes: 100 << 10, QualityHint: 85},
	}

	results, err := eng.Compress(context.Background(), src, specs, PreserveAlpha())
	require.NoError(t, err)
	require.Len(t, results, 2)

	desktop := results["desktop"]
	assert.True(t, desktop.TargetMet)
	assert.LessOrEqual(t, desktop.Size, 200<<10)
	assert.Equal(t, len(desktop.Data), desktop.Size)
	assert.Equal(t, 400, desktop.Width)
	assert.Equal(t, 250, desktop.Height)
	assert.True(t, desktop.HasAlpha)

	decoded, format, err := image.Decode(bytes.NewReader(desktop.Data))
	require.NoError(t, err)
	assert.Equal(t, "webp", format)
	assert.True(t, HasAlpha(decoded), "transparency must survive the encode")

	mobile := results["mobile"]
	assert.True(t, mobile.TargetMet)
	assert.Equal(t, 200, mobile.Width)
	assert.Equal(t, 125, mobile.Height)
}

func TestCompressFlattenRemovesAlpha(t *testing.T) {
	src := NewSource(translucentGradient(320, 200))

	eng := New(&encoder.LibWebPEncoder{})
	specs := []VariantSpec{
		{Name: "desktop", MaxWidth: 320, MaxHeight: 200, TargetBytes: 200 << 10},
	}

	results, err := eng.Compress(context.Background(), src, specs, FlattenTo(DefaultBackground))
	require.NoError(t, err)

	result := results["desktop"]
	assert.False(t, result.HasAlpha)

	decoded, _, err := image.Decode(bytes.NewReader(result.Data))
	require.NoError(t, err)
	assert.False(t, HasAlpha(decoded))
}

func TestCompressPartialSuccess(t *testing.T) {
	src := NewSource(gradientImage(600, 400))

	// Fails for the mobile buffer only, siblings must still succeed.
	enc := &stubEncoder{size: func(img image.Image, quality int) int {
		return quality * 100
	}}
	failing := &widthGatedEncoder{inner: enc, minWidth: 300}
	eng := New(failing)

	specs := []VariantSpec{
		{Name: "desktop", MaxWidth: 1000, MaxHeight: 1000, TargetBytes: MinTargetBytes},
		{Name: "mobile", MaxWidth: 200, MaxHeight: 2048, TargetBytes: MinTargetBytes},
	}

	results, err := eng.Compress(context.Background(), src, specs, PreserveAlpha())
	require.Error(t, err)

	var failure *EncodeFailureError
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, "mobile", failure.Variant)

	require.Contains(t, results, "desktop")
	assert.NotContains(t, results, "mobile")
}

// widthGatedEncoder rejects buffers narrower than minWidth.
type widthGatedEncoder struct {
	inner    encoder.Encoder
	minWidth int
}

func (w *widthGatedEncoder) Backend() string { return w.inner.Backend() }

func (w *widthGatedEncoder) Available() bool { return true }

func (w *widthGatedEncoder) Encode(img image.Image, quality int) ([]byte, error) {
	if img.Bounds().Dx() < w.minWidth {
		return nil, errors.New("unsupported buffer")
	}
	return w.inner.Encode(img, quality)
}

func TestCompressRejectsInvalidTargetBeforeEncoding(t *testing.T) {
	src := NewSource(gradientImage(100, 100))
	enc := &stubEncoder{size: linearSize}
	eng := New(enc)

	specs := []VariantSpec{
		{Name: "desktop", MaxWidth: 100, MaxHeight: 100, TargetBytes: 1 << 10},
	}

	_, err := eng.Compress(context.Background(), src, specs, PreserveAlpha())
	require.Error(t, err)

	var invalid *InvalidTargetError
	require.ErrorAs(t, err, &invalid)
	assert.Zero(t, enc.probeCount(), "no encode may happen for a rejected spec")
}

func TestCompressRejectsInvalidDimensions(t *testing.T) {
	src := NewSource(gradientImage(100, 100))
	eng := New(&stubEncoder{size: linearSize})

	specs := []VariantSpec{
		{Name: "bad", MaxWidth: -1, MaxHeight: 100, TargetBytes: MinTargetBytes},
	}

	_, err := eng.Compress(context.Background(), src, specs, PreserveAlpha())

	var invalid *InvalidDimensionsError
	require.ErrorAs(t, err, &invalid)
}

func TestCompressShrinkToFit(t *testing.T) {
	src := NewSource(gradientImage(400, 400))

	// Size depends on dimensions only, so no quality can meet the budget and
	// only dimension reduction can.
	enc := &stubEncoder{size: func(img image.Image, _ int) int {
		bounds := img.Bounds()
		return bounds.Dx() * bounds.Dy() / 10
	}}
	eng := New(enc)

	spec := VariantSpec{
		Name: "desktop", MaxWidth: 400, MaxHeight: 400,
		TargetBytes: MinTargetBytes, ShrinkToFit: true,
	}

	results, err := eng.Compress(context.Background(), src, []VariantSpec{spec}, PreserveAlpha())
	require.NoError(t, err)

	result := results["desktop"]
	assert.True(t, result.TargetMet)
	assert.Equal(t, 320, result.Width, "first shrink step (80%) already fits")
	assert.Equal(t, 320, result.Height)
	assert.LessOrEqual(t, result.Size, spec.TargetBytes)
}

func TestCompressShrinkToFitDisabledKeepsBestEffort(t *testing.T) {
	src := NewSource(gradientImage(400, 400))
	enc := &stubEncoder{size: func(img image.Image, _ int) int {
		bounds := img.Bounds()
		return bounds.Dx() * bounds.Dy() / 10
	}}
	eng := New(enc)

	spec := VariantSpec{
		Name: "desktop", MaxWidth: 400, MaxHeight: 400, TargetBytes: MinTargetBytes,
	}

	results, err := eng.Compress(context.Background(), src, []VariantSpec{spec}, PreserveAlpha())
	require.NoError(t, err)

	result := results["desktop"]
	assert.False(t, result.TargetMet)
	assert.Equal(t, 400, result.Width)
	assert.Equal(t, 16000, result.Size)
}
