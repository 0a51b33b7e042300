package render

import "strings"

// Overlay is a block of text drawn right-aligned against the bottom edge of
// the output grid, on top of the frame. Characters landing outside the grid
// are skipped, so an overlay taller than the grid loses its top lines.
type Overlay struct {
	lines [][]rune
}

// NewOverlay splits text into lines. A single trailing newline does not add an empty line.
func NewOverlay(text string) *Overlay {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return &Overlay{}
	}

	parts := strings.Split(text, "\n")
	lines := make([][]rune, len(parts))
	for i, p := range parts {
		lines[i] = []rune(p)
	}
	return &Overlay{lines: lines}
}

// Height returns the number of lines
func (o *Overlay) Height() int {
	if o == nil {
		return 0
	}
	return len(o.lines)
}

// Empty reports whether the overlay draws nothing
func (o *Overlay) Empty() bool {
	return o.Height() == 0
}

// apply writes overlay glyphs for output row y into a row buffer.
// Overlaid cells lose their color slot.
func (o *Overlay) apply(y, width, height int, glyphs []rune, slots []int) {
	h := len(o.lines)
	i := y - (height - h)
	if i < 0 || i >= h {
		return
	}

	line := o.lines[i]
	for j, r := range line {
		x := width - len(line) + j
		if x < 0 || x >= width {
			continue
		}
		glyphs[x] = r
		slots[x] = NoSlot
	}
}
