package render

import (
	"fmt"

	"github.com/lixenwraith/asciiplay/glyph"
	"github.com/lixenwraith/asciiplay/palette"
)

// NoSlot marks a segment drawn with the display's default attribute
const NoSlot = -1

// DrawSegment is a horizontal run of glyphs on one row sharing a color slot
type DrawSegment struct {
	Row    int
	Col    int
	Slot   int // NoSlot for glyph-only and overlay cells
	Glyphs []rune
}

// Len returns the number of cells covered
func (s DrawSegment) Len() int {
	return len(s.Glyphs)
}

// HasSlot reports whether the segment carries a color
func (s DrawSegment) HasSlot() bool {
	return s.Slot != NoSlot
}

// Compositor converts brightness and color grids into draw segments.
// Segments returned by Compose share the compositor's buffers and are valid
// until the next Compose call. Not safe for concurrent use.
type Compositor struct {
	ramp  *glyph.Ramp
	index *palette.Index

	glyphs []rune
	slots  []int
	segs   []DrawSegment
}

// NewCompositor creates a compositor. A nil index renders glyph-only.
func NewCompositor(ramp *glyph.Ramp, index *palette.Index) *Compositor {
	return &Compositor{ramp: ramp, index: index}
}

// ColorEnabled reports whether color grids are quantized
func (c *Compositor) ColorEnabled() bool {
	return c.index != nil
}

// DisableColor releases the index and switches to glyph-only output
func (c *Compositor) DisableColor() {
	if c.index != nil {
		c.index.Release()
		c.index = nil
	}
}

// Compose produces the draw segments for one frame.
// In color mode each row is split wherever the resolved slot changes; the
// glyph of every cell is still derived from its own brightness. Without a
// color grid (or without an index) each row is a single slotless segment.
// The overlay is written last and splits any segment it lands in.
func (c *Compositor) Compose(bright BrightnessGrid, colors *ColorGrid, overlay *Overlay, width, height int) ([]DrawSegment, error) {
	if err := checkDims("brightness", bright.Width, bright.Height, len(bright.Pix), width, height); err != nil {
		return nil, err
	}
	if colors != nil {
		if err := checkDims("color", colors.Width, colors.Height, len(colors.Pix), width, height); err != nil {
			return nil, err
		}
	}

	c.segs = c.segs[:0]
	if width <= 0 || height <= 0 {
		return c.segs, nil
	}

	cells := width * height
	if cap(c.glyphs) < cells {
		c.glyphs = make([]rune, cells)
	}
	c.glyphs = c.glyphs[:cells]
	if cap(c.slots) < width {
		c.slots = make([]int, width)
	}
	slots := c.slots[:width]

	useColor := colors != nil && c.index != nil

	for y := 0; y < height; y++ {
		row := y * width
		glyphs := c.glyphs[row : row+width : row+width]

		for x := 0; x < width; x++ {
			glyphs[x] = c.ramp.Glyph(int(bright.Pix[row+x]))
			slots[x] = NoSlot
		}

		// Resolved per cell; only the index memo benefits from row locality
		if useColor {
			for x := 0; x < width; x++ {
				slot, err := c.index.Lookup(colors.Pix[row+x])
				if err != nil {
					return nil, fmt.Errorf("compose row %d: %w", y, err)
				}
				slots[x] = slot
			}
		}

		if !overlay.Empty() {
			overlay.apply(y, width, height, glyphs, slots)
		}

		c.emitRuns(y, glyphs, slots)
	}

	return c.segs, nil
}

// emitRuns appends one segment per maximal run of equal slots
func (c *Compositor) emitRuns(y int, glyphs []rune, slots []int) {
	start := 0
	for x := 1; x <= len(slots); x++ {
		if x < len(slots) && slots[x] == slots[start] {
			continue
		}
		c.segs = append(c.segs, DrawSegment{
			Row:    y,
			Col:    start,
			Slot:   slots[start],
			Glyphs: glyphs[start:x:x],
		})
		start = x
	}
}
