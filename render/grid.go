package render

import (
	"fmt"

	"github.com/lixenwraith/asciiplay/palette"
)

// BrightnessGrid is a row-major luma grid, one byte per cell
type BrightnessGrid struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewBrightnessGrid allocates a zeroed grid
func NewBrightnessGrid(width, height int) BrightnessGrid {
	return BrightnessGrid{Width: width, Height: height, Pix: make([]uint8, width*height)}
}

// At returns the brightness of cell (x, y)
func (g BrightnessGrid) At(x, y int) uint8 {
	return g.Pix[y*g.Width+x]
}

// ColorGrid is a row-major color grid matching a BrightnessGrid
type ColorGrid struct {
	Width  int
	Height int
	Pix    []palette.RGB
}

// NewColorGrid allocates a black grid
func NewColorGrid(width, height int) ColorGrid {
	return ColorGrid{Width: width, Height: height, Pix: make([]palette.RGB, width*height)}
}

// At returns the color of cell (x, y)
func (g ColorGrid) At(x, y int) palette.RGB {
	return g.Pix[y*g.Width+x]
}

// DimensionMismatchError reports a grid whose size disagrees with the output grid
type DimensionMismatchError struct {
	Grid                  string
	Width, Height, Len    int
	WantWidth, WantHeight int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("render: %s grid is %dx%d (%d cells), output is %dx%d",
		e.Grid, e.Width, e.Height, e.Len, e.WantWidth, e.WantHeight)
}

// checkDims validates one grid against the output size
func checkDims(name string, w, h, n, width, height int) error {
	if w != width || h != height || n != width*height {
		return &DimensionMismatchError{
			Grid: name, Width: w, Height: h, Len: n,
			WantWidth: width, WantHeight: height,
		}
	}
	return nil
}
