package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/lixenwraith/asciiplay/media"
	"github.com/lixenwraith/asciiplay/palette"
	"github.com/lixenwraith/asciiplay/render"
)

// FrameSource yields decoded frames at output resolution
type FrameSource interface {
	Seeker
	Next(f *media.Frame) error
	Size() (width, height int)
}

// Sink draws one frame's segments
type Sink interface {
	Present(segs []render.DrawSegment)
}

// Stats summarizes a finished session
type Stats struct {
	ID          string
	Frames      int
	Skipped     int
	Fallbacks   int
	Elapsed     time.Duration
	MeasuredFPS float64
	Color       bool // playback ended in color mode
}

// Session runs the decode, pace, compose, present loop for one stream
type Session struct {
	Source     FrameSource
	Compositor *render.Compositor
	Overlay    *render.Overlay
	Sink       Sink
	Clock      *Clock
	Logger     *log.Logger

	id string
}

// NewSession wires a session with a fresh identifier and a prefixed logger
func NewSession(src FrameSource, comp *render.Compositor, overlay *render.Overlay, sink Sink, clock *Clock) *Session {
	id := uuid.NewString()
	return &Session{
		Source:     src,
		Compositor: comp,
		Overlay:    overlay,
		Sink:       sink,
		Clock:      clock,
		Logger:     log.New(log.Writer(), fmt.Sprintf("[session %s] ", id[:8]), log.Flags()),
		id:         id,
	}
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// Run plays the source until it is exhausted or ctx is cancelled. Both end
// the loop through the same path and release the color index.
// Cancellation is a clean stop, not an error.
func (s *Session) Run(ctx context.Context) (Stats, error) {
	logger := s.Logger
	if logger == nil {
		logger = log.Default()
	}

	width, height := s.Source.Size()
	frame := media.NewFrame(width, height)

	s.Clock.Reset()
	logger.Printf("playback started: %dx%d, %s pacing at %.2f fps, color %v",
		width, height, s.Clock.Mode(), s.Clock.TargetFPS(), s.Compositor.ColorEnabled())

	err := s.loop(ctx, frame, width, height, logger)
	stats := s.stats()
	s.Compositor.DisableColor()

	if err != nil {
		logger.Printf("playback failed after %d frames: %v", stats.Frames, err)
		return stats, err
	}
	logger.Printf("playback ended: %d frames, %d skipped, %.1f fps", stats.Frames, stats.Skipped, stats.MeasuredFPS)
	return stats, nil
}

func (s *Session) loop(ctx context.Context, frame *media.Frame, width, height int, logger *log.Logger) error {
	for {
		// No frame is presented once a stop is observed here
		if ctx.Err() != nil {
			return nil
		}

		if err := s.Clock.Pace(ctx, s.Source); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		if err := s.Source.Next(frame); err != nil {
			// A decoder killed by cancellation ends the same way as a stop
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("decode frame %d: %w", s.Source.Position(), err)
		}

		segs, err := s.compose(frame, width, height, logger)
		if err != nil {
			return err
		}

		s.Sink.Present(segs)
		s.Clock.Presented()
	}
}

// compose renders one frame, dropping to glyph-only if the palette is unusable
func (s *Session) compose(frame *media.Frame, width, height int, logger *log.Logger) ([]render.DrawSegment, error) {
	var colors *render.ColorGrid
	if s.Compositor.ColorEnabled() {
		colors = &frame.Colors
	}

	segs, err := s.Compositor.Compose(frame.Brightness, colors, s.Overlay, width, height)
	if errors.Is(err, palette.ErrNoPalette) {
		logger.Printf("color disabled: %v", err)
		s.Compositor.DisableColor()
		segs, err = s.Compositor.Compose(frame.Brightness, nil, s.Overlay, width, height)
	}
	return segs, err
}

func (s *Session) stats() Stats {
	st := s.Clock.State()
	return Stats{
		ID:          s.id,
		Frames:      st.FrameCount,
		Skipped:     st.Skipped,
		Fallbacks:   st.Fallbacks,
		Elapsed:     st.Elapsed,
		MeasuredFPS: st.MeasuredFPS,
		Color:       s.Compositor.ColorEnabled(),
	}
}
