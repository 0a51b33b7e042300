// Package media turns decoded video into brightness and color grids at the
// output resolution, and gathers the pixel samples used to build a palette.
package media

import (
	"errors"
	"image"

	"golang.org/x/image/draw"

	"github.com/lixenwraith/asciiplay/palette"
	"github.com/lixenwraith/asciiplay/render"
)

// DefaultCharAspect compensates for terminal cells being taller than wide
const DefaultCharAspect = 0.6

var (
	// ErrBackwardSeek is returned by stream sources asked to rewind
	ErrBackwardSeek = errors.New("media: cannot seek backward")
	// ErrUnsupportedSource is returned for inputs no source can open
	ErrUnsupportedSource = errors.New("media: unsupported source")
)

// Frame is one decoded frame at output resolution
type Frame struct {
	Index      int
	Brightness render.BrightnessGrid
	Colors     render.ColorGrid

	scaled *image.RGBA
}

// NewFrame allocates grids for the output size
func NewFrame(width, height int) *Frame {
	return &Frame{
		Brightness: render.NewBrightnessGrid(width, height),
		Colors:     render.NewColorGrid(width, height),
	}
}

// Size returns the grid dimensions
func (f *Frame) Size() (int, int) {
	return f.Brightness.Width, f.Brightness.Height
}

// Clone returns a deep copy detached from scratch buffers
func (f *Frame) Clone() *Frame {
	w, h := f.Size()
	c := NewFrame(w, h)
	c.Index = f.Index
	copy(c.Brightness.Pix, f.Brightness.Pix)
	copy(c.Colors.Pix, f.Colors.Pix)
	return c
}

// OutputSize returns the grid size for a source scaled to width columns.
// Height follows the source aspect ratio scaled by charAspect, minimum one row.
func OutputSize(srcW, srcH, width int, charAspect float64) (outW, outH int) {
	if srcW <= 0 || srcH <= 0 || width <= 0 {
		return 0, 0
	}
	if charAspect <= 0 {
		charAspect = DefaultCharAspect
	}
	outH = int(float64(srcH) * (float64(width) / float64(srcW)) * charAspect)
	return width, max(outH, 1)
}

// Rasterize scales img to the frame size and fills both grids
func Rasterize(img image.Image, f *Frame) {
	w, h := f.Size()
	if w == 0 || h == 0 {
		return
	}
	if f.scaled == nil || f.scaled.Rect.Dx() != w || f.scaled.Rect.Dy() != h {
		f.scaled = image.NewRGBA(image.Rect(0, 0, w, h))
	}

	draw.ApproxBiLinear.Scale(f.scaled, f.scaled.Rect, img, img.Bounds(), draw.Src, nil)

	pix := f.scaled.Pix
	for i := 0; i < w*h; i++ {
		c := palette.RGB{R: pix[i*4], G: pix[i*4+1], B: pix[i*4+2]}
		f.Colors.Pix[i] = c
		f.Brightness.Pix[i] = c.Luma()
	}
}

// fillRGB24 fills both grids from packed rgb24 bytes at frame size
func fillRGB24(buf []byte, f *Frame) {
	for i := range f.Colors.Pix {
		c := palette.RGB{R: buf[i*3], G: buf[i*3+1], B: buf[i*3+2]}
		f.Colors.Pix[i] = c
		f.Brightness.Pix[i] = c.Luma()
	}
}
