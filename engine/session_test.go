package engine

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/davecgh/go-spew/spew"

	"github.com/lixenwraith/asciiplay/glyph"
	"github.com/lixenwraith/asciiplay/media"
	"github.com/lixenwraith/asciiplay/palette"
	"github.com/lixenwraith/asciiplay/render"
)

// scriptedSource yields frames filled with one color per index
type scriptedSource struct {
	width, height int
	colors        []palette.RGB
	pos           int
	failAt        int // -1 disables
	onFail        func()
	served        []int
}

func newScriptedSource(n int) *scriptedSource {
	cs := make([]palette.RGB, n)
	for i := range cs {
		if i%2 == 0 {
			cs[i] = palette.Red
		} else {
			cs[i] = palette.Blue
		}
	}
	return &scriptedSource{width: 4, height: 2, colors: cs, failAt: -1}
}

func (s *scriptedSource) Size() (int, int) { return s.width, s.height }
func (s *scriptedSource) Position() int    { return s.pos }
func (s *scriptedSource) Seek(frame int) error {
	s.pos = min(frame, len(s.colors))
	return nil
}

func (s *scriptedSource) Next(f *media.Frame) error {
	if s.pos == s.failAt {
		if s.onFail != nil {
			s.onFail()
		}
		return errors.New("corrupt packet")
	}
	if s.pos >= len(s.colors) {
		return io.EOF
	}
	for i := range f.Colors.Pix {
		f.Colors.Pix[i] = s.colors[s.pos]
		f.Brightness.Pix[i] = 255
	}
	f.Index = s.pos
	s.served = append(s.served, s.pos)
	s.pos++
	return nil
}

// recordingSink keeps a copy of each presented frame
type recordingSink struct {
	frames  [][]render.DrawSegment
	onFrame func(n int)
}

func (r *recordingSink) Present(segs []render.DrawSegment) {
	cp := make([]render.DrawSegment, len(segs))
	for i, s := range segs {
		s.Glyphs = append([]rune(nil), s.Glyphs...)
		cp[i] = s
	}
	r.frames = append(r.frames, cp)
	if r.onFrame != nil {
		r.onFrame(len(r.frames))
	}
}

func testPaletteIndex() *palette.Index {
	return palette.NewIndex([]palette.Entry{
		{Color: palette.Red, Slot: 16},
		{Color: palette.Blue, Slot: 17},
	}, 0)
}

func newTestSession(src FrameSource, ix *palette.Index, sink Sink, ref Reference) (*Session, *MockTimeProvider) {
	mock := NewMockTimeProvider(epoch)
	clock := NewClock(ClockConfig{TargetFPS: 10, SourceFPS: 10, Reference: ref, Time: mock, Sleeper: mock})
	comp := render.NewCompositor(glyph.MustNew(" .#"), ix)
	s := NewSession(src, comp, nil, sink, clock)
	s.Logger = log.New(io.Discard, "", 0)
	return s, mock
}

func TestSessionPlaysToEndOfStream(t *testing.T) {
	src := newScriptedSource(5)
	sink := &recordingSink{}
	ix := testPaletteIndex()
	s, mock := newTestSession(src, ix, sink, nil)

	stats, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if stats.Frames != 5 || len(sink.frames) != 5 {
		t.Fatalf("Presented %d frames (stats %d), want 5", len(sink.frames), stats.Frames)
	}
	if stats.ID != s.ID() || stats.ID == "" {
		t.Errorf("Stats ID %q does not match session %q", stats.ID, s.ID())
	}

	for i, segs := range sink.frames {
		wantSlot := 16 + i%2
		if len(segs) != 2 {
			t.Fatalf("Frame %d: %d segments, want one per row:\n%s", i, len(segs), spew.Sdump(segs))
		}
		for _, seg := range segs {
			if seg.Slot != wantSlot || string(seg.Glyphs) != "####" {
				t.Errorf("Frame %d segment = %+v, want slot %d", i, seg, wantSlot)
			}
		}
	}

	// Wall-clock at 10 fps sleeps before every decode after the first,
	// including the one that hits end of stream
	if sleeps := mock.Sleeps(); len(sleeps) != 5 {
		t.Errorf("Sleeps = %v, want 5", sleeps)
	}

	if ix.Len() != 0 {
		t.Error("Index should be released when the session ends")
	}
	if !stats.Color {
		t.Error("Playback should have ended in color mode")
	}
}

func TestSessionStopsBeforeFirstFrame(t *testing.T) {
	sink := &recordingSink{}
	s, _ := newTestSession(newScriptedSource(5), testPaletteIndex(), sink, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stats, err := s.Run(ctx)
	if err != nil {
		t.Fatalf("Cancelled run returned %v", err)
	}
	if stats.Frames != 0 || len(sink.frames) != 0 {
		t.Errorf("Presented %d frames after stop", len(sink.frames))
	}
}

func TestSessionStopsMidStream(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ix := testPaletteIndex()
	sink := &recordingSink{onFrame: func(n int) {
		if n == 2 {
			cancel()
		}
	}}
	s, _ := newTestSession(newScriptedSource(10), ix, sink, nil)

	stats, err := s.Run(ctx)
	if err != nil {
		t.Fatalf("Run returned %v", err)
	}
	if len(sink.frames) != 2 || stats.Frames != 2 {
		t.Errorf("Presented %d frames, want 2", len(sink.frames))
	}
	if ix.Len() != 0 {
		t.Error("Stop must release the index like end of stream")
	}
}

func TestSessionFallsBackToGlyphOnly(t *testing.T) {
	sink := &recordingSink{}
	s, _ := newTestSession(newScriptedSource(3), palette.NewIndex(nil, 0), sink, nil)

	stats, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if stats.Frames != 3 || stats.Color {
		t.Fatalf("Stats = %+v, want 3 glyph-only frames", stats)
	}
	for i, segs := range sink.frames {
		for _, seg := range segs {
			if seg.HasSlot() {
				t.Errorf("Frame %d carries slot %d after palette failure", i, seg.Slot)
			}
		}
	}
}

func TestSessionDecodeError(t *testing.T) {
	src := newScriptedSource(5)
	src.failAt = 2
	sink := &recordingSink{}
	s, _ := newTestSession(src, testPaletteIndex(), sink, nil)

	stats, err := s.Run(context.Background())
	if err == nil {
		t.Fatal("Expected decode error")
	}
	if stats.Frames != 2 {
		t.Errorf("Frames before failure = %d, want 2", stats.Frames)
	}
}

func TestSessionDecodeErrorAfterStopIsClean(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := newScriptedSource(5)
	src.failAt = 3
	src.onFail = cancel
	s, _ := newTestSession(src, testPaletteIndex(), &recordingSink{}, nil)

	stats, err := s.Run(ctx)
	if err != nil {
		t.Fatalf("Expected clean stop, got %v", err)
	}
	if stats.Frames != 3 {
		t.Errorf("Frames = %d, want 3", stats.Frames)
	}
}

// timedRef reports a position that jumps ahead of decoding
type timedRef struct {
	positions []float64
	calls     int
}

func (r *timedRef) IsAdvancing() bool { return true }
func (r *timedRef) Position() float64 {
	p := r.positions[min(r.calls, len(r.positions)-1)]
	r.calls++
	return p
}

func TestSessionExternalPacingSkipsFrames(t *testing.T) {
	src := newScriptedSource(20)
	sink := &recordingSink{}
	// At 10 fps: frame 0, then the reference is at frame 5, then at frame 12
	ref := &timedRef{positions: []float64{0, 0.5, 1.2}}
	s, _ := newTestSession(src, testPaletteIndex(), sink, ref)

	stats, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if stats.Skipped != 4+6 {
		t.Errorf("Skipped = %d, want 10", stats.Skipped)
	}
	if stats.Frames+stats.Skipped != 20 {
		t.Errorf("Presented %d + skipped %d != 20 source frames", stats.Frames, stats.Skipped)
	}

	if src.served[0] != 0 || src.served[1] != 5 || src.served[2] != 12 {
		t.Errorf("Served frames %v, want catch-up to 5 then 12", src.served)
	}
	for i := 1; i < len(src.served); i++ {
		if src.served[i] <= src.served[i-1] {
			t.Fatalf("Presentation order regressed: %v", src.served)
		}
	}
}
