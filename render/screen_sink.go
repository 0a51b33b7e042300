package render

import (
	"fmt"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/lixenwraith/asciiplay/palette"
)

// ScreenSink draws segments onto a tcell screen and serves as the palette host.
// Registered slots map to foreground styles; unregistered or NoSlot segments use
// the default style.
type ScreenSink struct {
	mu     sync.RWMutex
	screen tcell.Screen
	base   tcell.Style
	styles map[int]tcell.Style
}

// NewScreenSink wraps an initialized screen
func NewScreenSink(screen tcell.Screen) *ScreenSink {
	return &ScreenSink{
		screen: screen,
		base:   tcell.StyleDefault,
		styles: make(map[int]tcell.Style),
	}
}

// Colors returns the number of colors the terminal reports
func (s *ScreenSink) Colors() int {
	return s.screen.Colors()
}

// ColorPairs matches Colors since tcell composes foreground and background freely
func (s *ScreenSink) ColorPairs() int {
	return s.screen.Colors()
}

// RegisterColor binds a slot to a foreground color
func (s *ScreenSink) RegisterColor(slot int, c palette.RGB) error {
	if slot < 0 || slot >= s.Colors() {
		return fmt.Errorf("slot %d outside terminal range [0,%d)", slot, s.Colors())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.styles[slot] = s.base.Foreground(tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B)))
	return nil
}

// Size returns the screen dimensions in cells
func (s *ScreenSink) Size() (int, int) {
	return s.screen.Size()
}

// Clear blanks the screen before the first frame
func (s *ScreenSink) Clear() {
	s.screen.Clear()
}

// Present draws one frame of segments and flushes it.
// Cells outside the screen are skipped.
func (s *ScreenSink) Present(segs []DrawSegment) {
	w, h := s.screen.Size()

	s.mu.RLock()
	for _, seg := range segs {
		if seg.Row < 0 || seg.Row >= h {
			continue
		}

		style := s.base
		if seg.HasSlot() {
			if st, ok := s.styles[seg.Slot]; ok {
				style = st
			}
		}

		for i, r := range seg.Glyphs {
			x := seg.Col + i
			if x < 0 || x >= w {
				continue
			}
			s.screen.SetContent(x, seg.Row, r, nil, style)
		}
	}
	s.mu.RUnlock()

	s.screen.Show()
}
