package media

import (
	"fmt"
	"image"
	"image/gif"
	"io"
	"os"

	"golang.org/x/image/draw"
)

// GIFSource serves frames of an animated GIF with random access.
// Frames are composited once at open so seeking is free.
type GIFSource struct {
	frames []*image.RGBA
	fps    float64
	width  int
	height int
	pos    int
}

// OpenGIF decodes a GIF file for output at the given column width
func OpenGIF(path string, width int, charAspect float64) (*GIFSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadGIF(f, width, charAspect)
}

// ReadGIF decodes a GIF stream for output at the given column width
func ReadGIF(r io.Reader, width int, charAspect float64) (*GIFSource, error) {
	g, err := gif.DecodeAll(r)
	if err != nil {
		return nil, fmt.Errorf("decode gif: %w", err)
	}
	if len(g.Image) == 0 {
		return nil, fmt.Errorf("decode gif: %w", ErrUnsupportedSource)
	}

	bounds := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	if bounds.Empty() {
		bounds = g.Image[0].Bounds()
	}

	w, h := OutputSize(bounds.Dx(), bounds.Dy(), width, charAspect)
	return &GIFSource{
		frames: composite(g, bounds),
		fps:    gifFPS(g.Delay),
		width:  w,
		height: h,
	}, nil
}

// composite applies each frame over the running canvas honoring disposal
func composite(g *gif.GIF, bounds image.Rectangle) []*image.RGBA {
	out := make([]*image.RGBA, len(g.Image))
	canvas := image.NewRGBA(bounds)
	draw.Draw(canvas, bounds, image.Black, image.Point{}, draw.Src)

	for i, fr := range g.Image {
		var saved *image.RGBA
		disposal := byte(0)
		if i < len(g.Disposal) {
			disposal = g.Disposal[i]
		}
		if disposal == gif.DisposalPrevious {
			saved = cloneRGBA(canvas)
		}

		draw.Draw(canvas, fr.Bounds(), fr, fr.Bounds().Min, draw.Over)
		out[i] = cloneRGBA(canvas)

		switch disposal {
		case gif.DisposalBackground:
			draw.Draw(canvas, fr.Bounds(), image.Black, image.Point{}, draw.Src)
		case gif.DisposalPrevious:
			canvas = saved
		}
	}
	return out
}

func cloneRGBA(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Rect)
	copy(dst.Pix, src.Pix)
	return dst
}

// gifFPS derives a rate from mean frame delay, 0 when delays are absent
func gifFPS(delays []int) float64 {
	total := 0
	for _, d := range delays {
		total += d
	}
	if total == 0 {
		return 0
	}
	return 100 * float64(len(delays)) / float64(total)
}

// Next fills f with the next frame, io.EOF after the last one
func (s *GIFSource) Next(f *Frame) error {
	if s.pos >= len(s.frames) {
		return io.EOF
	}
	f.Index = s.pos
	Rasterize(s.frames[s.pos], f)
	s.pos++
	return nil
}

// Position returns the index of the frame Next will return
func (s *GIFSource) Position() int {
	return s.pos
}

// Seek moves to frame index, clamped to the end of the stream
func (s *GIFSource) Seek(frame int) error {
	if frame < 0 {
		return fmt.Errorf("seek to %d: negative frame", frame)
	}
	s.pos = min(frame, len(s.frames))
	return nil
}

// FPS returns the rate implied by the GIF delays, 0 when unknown
func (s *GIFSource) FPS() float64 {
	return s.fps
}

// FrameCount returns the number of frames
func (s *GIFSource) FrameCount() int {
	return len(s.frames)
}

// Size returns the output grid dimensions
func (s *GIFSource) Size() (int, int) {
	return s.width, s.height
}

// SampleFrames returns n frames evenly spaced across the animation
func (s *GIFSource) SampleFrames(n int) ([]*Frame, error) {
	if n <= 0 {
		return nil, nil
	}
	n = min(n, len(s.frames))
	out := make([]*Frame, 0, n)
	for i := 0; i < n; i++ {
		idx := i * len(s.frames) / n
		f := NewFrame(s.width, s.height)
		f.Index = idx
		Rasterize(s.frames[idx], f)
		out = append(out, f)
	}
	return out, nil
}

// Close releases the decoded frames
func (s *GIFSource) Close() error {
	s.frames = nil
	return nil
}
