package engine

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasAlpha(t *testing.T) {
	opaque := gradientImage(10, 10)
	assert.False(t, HasAlpha(opaque))

	transparent := gradientImage(10, 10)
	transparent.SetNRGBA(3, 3, color.NRGBA{R: 10, G: 20, B: 30, A: 128})
	assert.True(t, HasAlpha(transparent))
}

func TestResolveFlattenFullyTransparent(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	// zero value: every pixel fully transparent black

	flat := Resolve(img, Flatten, color.NRGBA{R: 255, G: 255, B: 255, A: 255})

	require.False(t, HasAlpha(flat))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			r, g, b, a := flat.At(x, y).RGBA()
			assert.Equal(t, uint32(0xffff), r)
			assert.Equal(t, uint32(0xffff), g)
			assert.Equal(t, uint32(0xffff), b)
			assert.Equal(t, uint32(0xffff), a)
		}
	}
}

func TestResolveFlattenSemiTransparent(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, G: 0, B: 0, A: 128})

	flat := Resolve(img, Flatten, color.NRGBA{R: 255, G: 255, B: 255, A: 255})

	r, g, b, a := flat.At(0, 0).RGBA()
	// out = src*alpha + bg*(1-alpha) per channel
	assert.InDelta(t, 255, r>>8, 1)
	assert.InDelta(t, 127, g>>8, 2)
	assert.InDelta(t, 127, b>>8, 2)
	assert.Equal(t, uint32(0xffff), a)
}

func TestResolvePreservePassesThrough(t *testing.T) {
	img := gradientImage(10, 10)
	img.SetNRGBA(0, 0, color.NRGBA{A: 0})

	resolved := Resolve(img, Preserve, DefaultBackground)
	assert.Same(t, img, resolved)
}

func TestResolvePreserveOpaqueIsNoOp(t *testing.T) {
	img := gradientImage(10, 10)

	resolved := Resolve(img, Preserve, DefaultBackground)
	assert.Same(t, img, resolved)
	assert.False(t, HasAlpha(resolved))
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		input    string
		expected color.NRGBA
		wantErr  bool
	}{
		{input: "#FFFFFF", expected: color.NRGBA{R: 255, G: 255, B: 255, A: 255}},
		{input: "000000", expected: color.NRGBA{R: 0, G: 0, B: 0, A: 255}},
		{input: "#1a2B3c", expected: color.NRGBA{R: 0x1a, G: 0x2b, B: 0x3c, A: 255}},
		{input: "#xyz", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			parsed, err := ParseHexColor(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, parsed)
		})
	}
}
