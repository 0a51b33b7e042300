// Package palette builds a bounded display palette from sampled frame colors
// and resolves arbitrary colors to their nearest registered slot.
package palette

import (
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// RGB represents a 24-bit color
type RGB struct {
	R, G, B uint8
}

// Base vibrant colors in priority order. When slots are scarce the tail is dropped first.
var (
	Black     = RGB{0, 0, 0}
	White     = RGB{255, 255, 255}
	Red       = RGB{255, 0, 0}
	Green     = RGB{0, 255, 0}
	Blue      = RGB{0, 0, 255}
	Yellow    = RGB{255, 255, 0}
	Magenta   = RGB{255, 0, 255}
	Cyan      = RGB{0, 255, 255}
	Gray      = RGB{128, 128, 128}
	Maroon    = RGB{128, 0, 0}
	DarkGreen = RGB{0, 128, 0}
	Navy      = RGB{0, 0, 128}
)

// BaseColors returns a fresh copy of the base set in priority order
func BaseColors() []RGB {
	return []RGB{
		Black, White, Red, Green, Blue, Yellow,
		Magenta, Cyan, Gray, Maroon, DarkGreen, Navy,
	}
}

// key packs the color into a map key
func (c RGB) key() uint32 {
	return uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}

// Luma returns BT.601 brightness, matching common grayscale conversion
func (c RGB) Luma() uint8 {
	return uint8((299*uint32(c.R) + 587*uint32(c.G) + 114*uint32(c.B) + 500) / 1000)
}

// Colorful converts to a go-colorful color with channels in [0,1]
func (c RGB) Colorful() colorful.Color {
	return colorful.Color{
		R: float64(c.R) / 255.0,
		G: float64(c.G) / 255.0,
		B: float64(c.B) / 255.0,
	}
}

// Hex returns the #rrggbb form
func (c RGB) Hex() string {
	return c.Colorful().Hex()
}

// FromColorful rounds a go-colorful color to 8-bit channels
func FromColorful(c colorful.Color) RGB {
	r, g, b := c.Clamped().RGB255()
	return RGB{r, g, b}
}

// FromColor converts any image color. Fully transparent pixels map to black.
func FromColor(c color.Color) RGB {
	col, ok := colorful.MakeColor(c)
	if !ok {
		return Black
	}
	return FromColorful(col)
}

// fromUnit rounds [0,1] channel values to an RGB
func fromUnit(r, g, b float64) RGB {
	return RGB{unitToByte(r), unitToByte(g), unitToByte(b)}
}

func unitToByte(v float64) uint8 {
	return uint8(math.Round(max(0, min(1, v)) * 255))
}

// Dedup returns distinct colors in first-seen order
func Dedup(colors []RGB) []RGB {
	seen := make(map[uint32]struct{}, len(colors))
	out := make([]RGB, 0, len(colors))
	for _, c := range colors {
		k := c.key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, c)
	}
	return out
}
