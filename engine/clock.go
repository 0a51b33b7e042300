package engine

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"
)

// DefaultFPS is used when neither the caller nor the source supplies a rate
const DefaultFPS = 30.0

// PacingMode selects what frame presentation follows
type PacingMode int

const (
	// PaceWallClock presents frame n at n/target_fps after start
	PaceWallClock PacingMode = iota
	// PaceExternal follows an external position and skips forward to catch up
	PaceExternal
)

func (m PacingMode) String() string {
	switch m {
	case PaceWallClock:
		return "wall-clock"
	case PaceExternal:
		return "external"
	default:
		return fmt.Sprintf("PacingMode(%d)", int(m))
	}
}

// Reference is a polled external position, usually the audio track
type Reference interface {
	Position() float64 // seconds
	IsAdvancing() bool
}

// Seeker is the part of a frame source the clock drives
type Seeker interface {
	Position() int
	Seek(frame int) error
}

// ClockConfig configures a Clock. Zero rates fall back to each other and
// then to DefaultFPS. A nil Reference selects wall-clock pacing.
type ClockConfig struct {
	TargetFPS float64
	SourceFPS float64
	Reference Reference
	Time      TimeProvider
	Sleeper   Sleeper
}

// Decision is the outcome of planning one loop iteration
type Decision struct {
	Wait     time.Duration
	SeekTo   int  // -1 when no seek is needed
	Fallback bool // external reference unavailable, wall-clock used
}

// State is the clock's observable progress
type State struct {
	Mode        PacingMode
	FrameCount  int
	Skipped     int
	Fallbacks   int
	Start       time.Time
	Elapsed     time.Duration
	MeasuredFPS float64
}

// Clock paces the playback loop. Safe for one loop goroutine plus readers of State.
type Clock struct {
	mu sync.RWMutex

	targetFPS float64
	sourceFPS float64
	mode      PacingMode
	ref       Reference
	time      TimeProvider
	sleeper   Sleeper

	start       time.Time
	frameCount  int
	skipped     int
	fallbacks   int
	measuredFPS float64
}

// NewClock creates a clock started at the provider's current time
func NewClock(cfg ClockConfig) *Clock {
	if cfg.TargetFPS <= 0 {
		cfg.TargetFPS = cfg.SourceFPS
	}
	if cfg.TargetFPS <= 0 {
		cfg.TargetFPS = DefaultFPS
	}
	if cfg.SourceFPS <= 0 {
		cfg.SourceFPS = cfg.TargetFPS
	}

	mono := NewMonotonicTimeProvider()
	if cfg.Time == nil {
		cfg.Time = mono
	}
	if cfg.Sleeper == nil {
		cfg.Sleeper = mono
	}

	c := &Clock{
		targetFPS: cfg.TargetFPS,
		sourceFPS: cfg.SourceFPS,
		ref:       cfg.Reference,
		time:      cfg.Time,
		sleeper:   cfg.Sleeper,
	}
	if c.ref != nil {
		c.mode = PaceExternal
	}
	c.Reset()
	return c
}

// Reset zeroes counters and restarts the reference time
func (c *Clock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.start = c.time.Now()
	c.frameCount = 0
	c.skipped = 0
	c.fallbacks = 0
	c.measuredFPS = 0
}

// Mode returns the pacing mode fixed at construction
func (c *Clock) Mode() PacingMode {
	return c.mode
}

// TargetFPS returns the effective wall-clock rate
func (c *Clock) TargetFPS() float64 {
	return c.targetFPS
}

// Plan decides the wait and optional forward seek for the next frame.
// decodePos is the index of the frame the source will decode next.
func (c *Clock) Plan(decodePos int) Decision {
	if c.mode == PaceExternal {
		if c.ref.IsAdvancing() {
			return c.planExternal(decodePos, c.ref.Position())
		}
		d := c.planWallClock()
		d.Fallback = true
		return d
	}
	return c.planWallClock()
}

func (c *Clock) planWallClock() Decision {
	c.mu.RLock()
	target := time.Duration(float64(c.frameCount) * float64(time.Second) / c.targetFPS)
	elapsed := c.time.Now().Sub(c.start)
	c.mu.RUnlock()

	return Decision{Wait: max(target-elapsed, 0), SeekTo: -1}
}

// planExternal seeks forward when decoding lags the reference and waits
// for the reference when decoding is ahead of it
func (c *Clock) planExternal(decodePos int, pos float64) Decision {
	target := int(math.Floor(pos * c.sourceFPS))
	if decodePos < target {
		return Decision{SeekTo: target}
	}
	ahead := float64(decodePos)/c.sourceFPS - pos
	return Decision{Wait: max(time.Duration(ahead*float64(time.Second)), 0), SeekTo: -1}
}

// Pace applies the plan for the next frame to src, sleeping and seeking as
// decided. Returns ctx.Err() when cancelled during the wait.
func (c *Clock) Pace(ctx context.Context, src Seeker) error {
	from := src.Position()
	d := c.Plan(from)

	if d.Fallback {
		c.mu.Lock()
		c.fallbacks++
		c.mu.Unlock()
	}

	if d.SeekTo >= 0 {
		if err := src.Seek(d.SeekTo); err != nil {
			return fmt.Errorf("seek to frame %d: %w", d.SeekTo, err)
		}
		c.mu.Lock()
		c.skipped += src.Position() - from
		c.mu.Unlock()
	}

	if d.Wait > 0 {
		return c.sleeper.Sleep(ctx, d.Wait)
	}
	return nil
}

// Presented records one presented frame and refreshes the measured rate
func (c *Clock) Presented() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frameCount++
	if elapsed := c.time.Now().Sub(c.start); elapsed > 0 {
		c.measuredFPS = float64(c.frameCount) / elapsed.Seconds()
	}
}

// State returns a snapshot of the clock's progress
func (c *Clock) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return State{
		Mode:        c.mode,
		FrameCount:  c.frameCount,
		Skipped:     c.skipped,
		Fallbacks:   c.fallbacks,
		Start:       c.start,
		Elapsed:     c.time.Now().Sub(c.start),
		MeasuredFPS: c.measuredFPS,
	}
}
