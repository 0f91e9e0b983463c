package engine

import (
	"image/color"

	"github.com/thediveo/enumflag/v2"
)

type TransparencyPolicy enumflag.Flag

const (
	// Preserve keeps the alpha channel in the encoded output.
	Preserve TransparencyPolicy = iota
	// Flatten composites transparent pixels over a solid background
	// and produces an opaque output.
	Flatten
)

var PolicyValue = map[TransparencyPolicy][]string{
	Preserve: {"preserve"},
	Flatten:  {"flatten"},
}

var PolicyHelp = enumflag.Help[TransparencyPolicy]{
	Preserve: "Keep transparent areas transparent in the WebP output",
	Flatten:  "Replace transparent areas with a solid background color",
}

var DefaultPolicy = Preserve

func (p TransparencyPolicy) String() string {
	return PolicyValue[p][0]
}

// DefaultBackground is the flatten color used when none is configured.
var DefaultBackground = color.NRGBA{R: 255, G: 255, B: 255, A: 255}

// Transparency bundles the policy with the flatten background color.
// The zero value preserves alpha.
type Transparency struct {
	Policy     TransparencyPolicy
	Background color.NRGBA
}

// PreserveAlpha returns a transparency setting that keeps the alpha channel.
func PreserveAlpha() Transparency {
	return Transparency{Policy: Preserve}
}

// FlattenTo returns a transparency setting that composites over the given color.
func FlattenTo(background color.NRGBA) Transparency {
	return Transparency{Policy: Flatten, Background: background}
}

func (t Transparency) background() color.NRGBA {
	if t.Background.A == 0 {
		return DefaultBackground
	}
	return t.Background
}
